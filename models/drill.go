// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"strings"
)

type DrillSegment struct {
	ID   string  `json:"id"`
	Name *string `json:"name"`
}

// DrillMediaItem is media as embedded in a drill
type DrillMediaItem struct {
	Type         string  `json:"type"`
	URL          *string `json:"url"`
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	ThumbnailURL *string `json:"thumbnail_url"`
	Position     *int    `json:"position"`
}

type Drill struct {
	ID          string           `json:"id"`
	OrgID       *string          `json:"org_id"`
	SegmentID   *string          `json:"segment_id"`
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	Level       *string          `json:"level"`
	MinPlayers  *int             `json:"min_players"`
	MaxPlayers  *int             `json:"max_players"`
	MinAge      *int             `json:"min_age"`
	MaxAge      *int             `json:"max_age"`
	DurationMin *int             `json:"duration_min"`
	Visibility  *string          `json:"visibility"`
	IsArchived  bool             `json:"is_archived"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
	Segment     *DrillSegment    `json:"segment"`
	SkillTags   []Tag            `json:"skill_tags"`
	Media       []DrillMediaItem `json:"media"`
}

type DrillResponse struct {
	OK    bool        `json:"ok"`
	Drill interface{} `json:"drill"`
}

// DrillMedia is one drill_media row
type DrillMedia struct {
	ID           string  `json:"id"`
	DrillID      string  `json:"drill_id"`
	Type         string  `json:"type"`
	URL          string  `json:"url"`
	Title        *string `json:"title"`
	ThumbnailURL *string `json:"thumbnail_url"`
	Position     *int    `json:"position"`
}

// DrillFilter narrows drill listings. Nil bounds are not applied.
type DrillFilter struct {
	OrgID      string
	Name       string
	Levels     []string
	SegmentIDs []string
	TagIDs     []string
	MinAge     *int
	MaxAge     *int
	MinPlayers *int
	MaxPlayers *int
	Limit      int
	Offset     int
}

// DrillMediaInput is one media item sent with a new drill
type DrillMediaInput struct {
	Type         string   `json:"type" validate:"omitempty,oneof=image video document link"`
	URL          string   `json:"url" validate:"url"`
	Title        *string  `json:"title" validate:"omitnil,max=200"`
	Description  *string  `json:"description" validate:"omitnil,max=4000"`
	ThumbnailURL *string  `json:"thumbnail_url" validate:"omitnil,url"`
	Position     *FlexInt `json:"position" validate:"omitnil,min=0"`
}

// CreateDrillRequest is the body of POST /drills
type CreateDrillRequest struct {
	OrgID           string            `json:"org_id" validate:"uuid_any"`
	SegmentID       string            `json:"segment_id" validate:"uuid_any"`
	SportID         *string           `json:"sport_id" validate:"omitnil,uuid_any"`
	Name            string            `json:"name" validate:"notblank,max=200"`
	Description     *string           `json:"description" validate:"omitnil,max=4000"`
	Instructions    *string           `json:"instructions" validate:"omitnil,max=4000"`
	Level           *string           `json:"level" validate:"omitnil,max=50"`
	MinAge          *FlexInt          `json:"min_age" validate:"omitnil,min=0"`
	MaxAge          *FlexInt          `json:"max_age" validate:"omitnil,min=0"`
	DurationSeconds *FlexInt          `json:"duration_seconds" validate:"omitnil,gt=0"`
	CreatedBy       *string           `json:"created_by" validate:"omitnil,uuid_any"`
	Media           []DrillMediaInput `json:"media" validate:"dive"`
	SkillTags       []SkillRef        `json:"skill_tags" validate:"dive,uuid_any"`
}

// Normalize trims text, defaults media types and positions, and drops repeated tags
func (r *CreateDrillRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	trim(r.Description, r.Instructions, r.Level)
	for i := range r.Media {
		m := &r.Media[i]
		if m.Type == "" {
			m.Type = MediaImage
		}
		trim(m.Title, m.Description)
		if m.Position == nil {
			p := FlexInt(i + 1)
			m.Position = &p
		}
	}

	seen := make(map[SkillRef]bool, len(r.SkillTags))
	tags := r.SkillTags[:0]
	for _, t := range r.SkillTags {
		if !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}
	r.SkillTags = tags
}

func (r *CreateDrillRequest) Messages() map[string]string {
	return map[string]string{
		"name.notblank":     "name is required",
		"url.url":           "media.url must be a valid URL",
		"thumbnail_url.url": "thumbnail_url must be a valid URL",
	}
}

// SkillIDs returns the tags as plain ids
func (r *CreateDrillRequest) SkillIDs() []string {
	ids := make([]string, len(r.SkillTags))
	for i, t := range r.SkillTags {
		ids[i] = string(t)
	}
	return ids
}

// UpdateDrillRequest is the body of PATCH /drills/:id.
// instructions is stored as coaching_points.
type UpdateDrillRequest struct {
	Name            *string           `json:"name" validate:"omitnil,notblank,max=200"`
	Description     Nullable[string]  `json:"description" validate:"omitempty,max=4000"`
	Instructions    Nullable[string]  `json:"instructions" validate:"omitempty,max=4000"`
	Level           Nullable[string]  `json:"level" validate:"omitempty,max=50"`
	SegmentID       Nullable[string]  `json:"segment_id" validate:"omitempty,uuid_any"`
	MinAge          Nullable[FlexInt] `json:"min_age" validate:"omitempty,min=0"`
	MaxAge          Nullable[FlexInt] `json:"max_age" validate:"omitempty,min=0"`
	MinPlayers      Nullable[FlexInt] `json:"min_players" validate:"omitempty,min=0"`
	MaxPlayers      Nullable[FlexInt] `json:"max_players" validate:"omitempty,min=0"`
	DurationSeconds Nullable[FlexInt] `json:"duration_seconds" validate:"omitempty,gt=0"`
	DurationMin     Nullable[FlexInt] `json:"duration_min" validate:"omitempty,gt=0"`
	Visibility      Nullable[string]  `json:"visibility" validate:"omitempty,max=50"`
	IsArchived      *bool             `json:"is_archived"`
	AddTagIDs       []string          `json:"add_tag_ids" validate:"dive,uuid_any"`
	RemoveTagIDs    []string          `json:"remove_tag_ids" validate:"dive,uuid_any"`
}

func (r *UpdateDrillRequest) Normalize() {
	trim(r.Name)
	for _, n := range []*Nullable[string]{&r.Description, &r.Instructions, &r.Level, &r.Visibility} {
		n.Value = strings.TrimSpace(n.Value)
	}
	r.AddTagIDs = dedupe(r.AddTagIDs)
	r.RemoveTagIDs = dedupe(r.RemoveTagIDs)
}

func (r *UpdateDrillRequest) Empty() bool {
	return r.Name == nil && !r.Description.Set && !r.Instructions.Set && !r.Level.Set &&
		!r.SegmentID.Set && !r.MinAge.Set && !r.MaxAge.Set && !r.MinPlayers.Set &&
		!r.MaxPlayers.Set && !r.DurationSeconds.Set && !r.DurationMin.Set &&
		!r.Visibility.Set && r.IsArchived == nil && len(r.AddTagIDs) == 0 && len(r.RemoveTagIDs) == 0
}

// DurationMinutes resolves duration_min, falling back to duration_seconds rounded up to whole minutes.
// set is false when neither was sent.
func (r *UpdateDrillRequest) DurationMinutes() (minutes *int, set bool) {
	if r.DurationMin.Set {
		if !r.DurationMin.Valid {
			return nil, true
		}
		v := int(r.DurationMin.Value)
		return &v, true
	}
	if r.DurationSeconds.Set {
		if !r.DurationSeconds.Valid {
			return nil, true
		}
		v := (int(r.DurationSeconds.Value) + 59) / 60
		return &v, true
	}
	return nil, false
}

// TagRemovals drops removals that are also being added
func (r *UpdateDrillRequest) TagRemovals() []string {
	add := make(map[string]bool, len(r.AddTagIDs))
	for _, id := range r.AddTagIDs {
		add[id] = true
	}
	var out []string
	for _, id := range r.RemoveTagIDs {
		if !add[id] {
			out = append(out, id)
		}
	}
	return out
}

// DrillMediaUploadRequest is the body of POST /drills/media/upload-url
type DrillMediaUploadRequest struct {
	OrgID   string `json:"org_id" validate:"uuid_any"`
	DrillID string `json:"drill_id" validate:"uuid_any"`
	Type    string `json:"type" validate:"omitempty,oneof=image video document link"`
	MediaUploadFields
}

func (r *DrillMediaUploadRequest) Normalize() {
	if r.Type == "" {
		r.Type = MediaVideo
	}
	r.MediaUploadFields.normalize()
}

func (r *DrillMediaUploadRequest) Messages() map[string]string {
	return map[string]string{"thumbnail_url.url": "thumbnail_url must be a valid URL"}
}

// CreateDrillMediaRequest is the body of POST /drills/media
type CreateDrillMediaRequest struct {
	OrgID   string `json:"org_id" validate:"uuid_any"`
	DrillID string `json:"drill_id" validate:"uuid_any"`
	DrillMediaInput
}

func (r *CreateDrillMediaRequest) Normalize() {
	if r.Type == "" {
		r.Type = MediaVideo
	}
	trim(r.Title, r.Description)
}

func (r *CreateDrillMediaRequest) Messages() map[string]string {
	return map[string]string{
		"url.url":           "media.url must be a valid URL",
		"thumbnail_url.url": "thumbnail_url must be a valid URL",
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
