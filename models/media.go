// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"strings"

	"github.com/goccy/go-json"
)

// Media types
const (
	MediaImage    = "image"
	MediaVideo    = "video"
	MediaDocument = "document"
	MediaLink     = "link"
)

// MediaUploadFields describe a file a client is about to upload
type MediaUploadFields struct {
	FileName     string   `json:"file_name" validate:"notblank,max=255"`
	ContentType  string   `json:"content_type" validate:"notblank,max=120"`
	Title        *string  `json:"title" validate:"omitnil,max=200"`
	Description  *string  `json:"description" validate:"omitnil,max=4000"`
	ThumbnailURL *string  `json:"thumbnail_url" validate:"omitnil,url"`
	Position     *FlexInt `json:"position" validate:"omitnil,min=0"`
}

func (f *MediaUploadFields) normalize() {
	f.FileName = strings.TrimSpace(f.FileName)
	f.ContentType = strings.TrimSpace(f.ContentType)
	trim(f.Title, f.Description)
}

// MediaDraft is the media record a client saves once its upload finishes
type MediaDraft struct {
	Type         string  `json:"type"`
	URL          string  `json:"url"`
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	ThumbnailURL *string `json:"thumbnail_url"`
	Position     *int    `json:"position"`
}

// Draft builds the record for an upload stored at publicURL
func (f *MediaUploadFields) Draft(mediaType, publicURL string) MediaDraft {
	return MediaDraft{
		Type:         mediaType,
		URL:          publicURL,
		Title:        f.Title,
		Description:  f.Description,
		ThumbnailURL: f.ThumbnailURL,
		Position:     f.Position.IntPtr(),
	}
}

type MediaUploadResponse struct {
	OK     bool        `json:"ok"`
	Upload interface{} `json:"upload"`
	Media  interface{} `json:"media"`
}

type MediaResponse struct {
	OK    bool        `json:"ok"`
	Media interface{} `json:"media"`
}

// MediaPlayback carries a playable URL; ExpiresIn is nil for URLs that are not signed
type MediaPlayback struct {
	OK        bool        `json:"ok"`
	Media     interface{} `json:"media"`
	PlayURL   string      `json:"play_url"`
	ExpiresIn *int        `json:"expires_in"`
}

type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TagFilter narrows tag listings
type TagFilter struct {
	OrgID   string
	SportID string
	Q       string
	Limit   int
	Offset  int
}

// SkillRef is a skill id given either bare or as {"skill_id": ...}
type SkillRef string

func (s *SkillRef) UnmarshalJSON(b []byte) error {
	var id string
	if err := json.Unmarshal(b, &id); err == nil {
		*s = SkillRef(id)
		return nil
	}
	var obj struct {
		SkillID string `json:"skill_id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*s = SkillRef(obj.SkillID)
	return nil
}
