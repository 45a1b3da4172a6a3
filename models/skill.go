// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "strings"

// SkillMedia is one skill_media row. URL falls back to the public storage URL.
type SkillMedia struct {
	ID           string  `json:"id"`
	SkillID      string  `json:"skill_id"`
	Type         string  `json:"type"`
	URL          *string `json:"url"`
	StoragePath  *string `json:"storage_path"`
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	ThumbnailURL *string `json:"thumbnail_url"`
	Position     *int    `json:"position"`
}

type Skill struct {
	ID          string       `json:"id"`
	OrgID       *string      `json:"org_id"`
	SportID     *string      `json:"sport_id"`
	Category    string       `json:"category"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Level       *string      `json:"level"`
	Visibility  *string      `json:"visibility"`
	Status      *string      `json:"status"`
	CreatedAt   string       `json:"created_at"`
	UpdatedAt   string       `json:"updated_at"`
	Media       []SkillMedia `json:"media"`
}

type SkillResponse struct {
	OK    bool   `json:"ok"`
	Skill *Skill `json:"skill"`
}

// CreateSkillRequest is the body of POST /skills
type CreateSkillRequest struct {
	OrgID       string  `json:"org_id" validate:"uuid_any"`
	SportID     *string `json:"sport_id" validate:"omitnil,uuid_any"`
	Category    string  `json:"category" validate:"notblank,max=120"`
	Title       string  `json:"title" validate:"notblank,max=200"`
	Description *string `json:"description" validate:"omitnil,max=4000"`
	Level       *string `json:"level" validate:"omitnil,max=50"`
	Visibility  *string `json:"visibility" validate:"omitnil,max=50"`
	Status      *string `json:"status" validate:"omitnil,max=50"`
}

func (r *CreateSkillRequest) Normalize() {
	r.Category = strings.TrimSpace(r.Category)
	r.Title = strings.TrimSpace(r.Title)
	trim(r.Description, r.Level, r.Visibility, r.Status)
}

func (r *CreateSkillRequest) Messages() map[string]string {
	return map[string]string{
		"category.notblank": "category is required",
		"title.notblank":    "title is required",
	}
}

// UpdateSkillRequest is the body of PATCH /skills/:id
type UpdateSkillRequest struct {
	SportID     Nullable[string] `json:"sport_id" validate:"omitempty,uuid_any"`
	Category    *string          `json:"category" validate:"omitnil,notblank,max=120"`
	Title       *string          `json:"title" validate:"omitnil,notblank,max=200"`
	Description Nullable[string] `json:"description" validate:"omitempty,max=4000"`
	Level       Nullable[string] `json:"level" validate:"omitempty,max=50"`
	Visibility  Nullable[string] `json:"visibility" validate:"omitempty,max=50"`
	Status      Nullable[string] `json:"status" validate:"omitempty,max=50"`
}

func (r *UpdateSkillRequest) Normalize() {
	trim(r.Category, r.Title)
	for _, n := range []*Nullable[string]{&r.Description, &r.Level, &r.Visibility, &r.Status} {
		n.Value = strings.TrimSpace(n.Value)
	}
}

func (r *UpdateSkillRequest) Empty() bool {
	return !r.SportID.Set && r.Category == nil && r.Title == nil &&
		!r.Description.Set && !r.Level.Set && !r.Visibility.Set && !r.Status.Set
}

// SkillFilter narrows skill listings
type SkillFilter struct {
	OrgID   string
	SportID string
	Q       string
	Limit   int
	Offset  int
}

// SkillMediaUploadRequest is the body of POST /skills/media/upload-url.
// media_type is accepted as an alias of type.
type SkillMediaUploadRequest struct {
	OrgID     string `json:"org_id" validate:"uuid_any"`
	SkillID   string `json:"skill_id" validate:"uuid_any"`
	Type      string `json:"type" validate:"omitempty,oneof=image video document link"`
	MediaType string `json:"media_type" validate:"omitempty,oneof=image video document link"`
	MediaUploadFields
}

func (r *SkillMediaUploadRequest) Normalize() {
	r.MediaUploadFields.normalize()
}

// ResolvedType is type, then media_type, then video
func (r *SkillMediaUploadRequest) ResolvedType() string {
	return firstNonEmpty(r.Type, r.MediaType, MediaVideo)
}

func (r *SkillMediaUploadRequest) Messages() map[string]string {
	return map[string]string{"thumbnail_url.url": "thumbnail_url must be a valid URL"}
}

// CreateSkillMediaRequest is the body of POST /skills/media
type CreateSkillMediaRequest struct {
	OrgID        string   `json:"org_id" validate:"uuid_any"`
	SkillID      string   `json:"skill_id" validate:"uuid_any"`
	Type         string   `json:"type" validate:"omitempty,oneof=image video document link"`
	MediaType    string   `json:"media_type" validate:"omitempty,oneof=image video document link"`
	URL          *string  `json:"url" validate:"omitnil,url"`
	StoragePath  *string  `json:"storage_path" validate:"omitnil,notblank,max=1024"`
	Title        *string  `json:"title" validate:"omitnil,max=200"`
	Description  *string  `json:"description" validate:"omitnil,max=4000"`
	ThumbnailURL *string  `json:"thumbnail_url" validate:"omitnil,url"`
	Position     *FlexInt `json:"position" validate:"omitnil,min=0"`
}

func (r *CreateSkillMediaRequest) Normalize() {
	trim(r.StoragePath, r.Title, r.Description)
}

func (r *CreateSkillMediaRequest) ResolvedType() string {
	return firstNonEmpty(r.Type, r.MediaType, MediaVideo)
}

func (r *CreateSkillMediaRequest) Messages() map[string]string {
	return map[string]string{
		"url.url":           "url must be a valid URL",
		"thumbnail_url.url": "thumbnail_url must be a valid URL",
	}
}

// NewSkillMedia is a skill_media row to insert. A nil Position appends after the last item.
type NewSkillMedia struct {
	SkillID      string
	Type         string
	Title        *string
	URL          *string
	StoragePath  *string
	ThumbnailURL *string
	Position     *int
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
