// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielhkuo/ankor-api/db"
	"github.com/danielhkuo/ankor-api/logging"
	"github.com/danielhkuo/ankor-api/middleware"
	"github.com/danielhkuo/ankor-api/models"
	"github.com/danielhkuo/ankor-api/storage"
	"github.com/danielhkuo/ankor-api/validation"
)

type SkillStore interface {
	Skills(ctx context.Context, f models.SkillFilter) ([]models.Skill, int, error)
	Skill(ctx context.Context, orgID, id string) (*models.Skill, error)
	CreateSkill(ctx context.Context, req models.CreateSkillRequest) (string, error)
	UpdateSkill(ctx context.Context, orgID, id string, req models.UpdateSkillRequest) error
	SkillTags(ctx context.Context, f models.TagFilter) ([]models.Tag, error)
	SkillInOrg(ctx context.Context, orgID, skillID string) (bool, error)
	CreateSkillMedia(ctx context.Context, m models.NewSkillMedia) (*models.SkillMedia, error)
	FirstSkillVideo(ctx context.Context, skillID string) (*models.SkillMedia, error)
}

type SkillHandler struct {
	store   SkillStore
	objects ObjectStore
	bucket  string
}

func NewSkillHandler(store SkillStore, objects ObjectStore, bucket string) *SkillHandler {
	return &SkillHandler{store: store, objects: objects, bucket: bucket}
}

// resolve fills in public URLs for media that only carry a storage path
func (h *SkillHandler) resolve(media []models.SkillMedia) {
	for i := range media {
		m := &media[i]
		if m.URL == nil && m.StoragePath != nil && *m.StoragePath != "" {
			u := h.objects.PublicURL(h.bucket, *m.StoragePath)
			m.URL = &u
		}
	}
}

// ListSkills handles GET /skills/list
func (h *SkillHandler) ListSkills(w http.ResponseWriter, r *http.Request) {
	f := models.SkillFilter{
		OrgID:   orgID(r),
		SportID: queryString(r, "sport_id"),
		Q:       queryString(r, "q"),
		Limit:   queryInt(r, "limit", 50, 1, 200),
		Offset:  queryOffset(r),
	}
	if f.SportID != "" && !validation.IsUUID(f.SportID) {
		middleware.BadRequest(w, "sport_id must be a UUID if provided")
		return
	}

	skills, total, err := h.store.Skills(r.Context(), f)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list skills")
		return
	}
	for i := range skills {
		h.resolve(skills[i].Media)
	}
	middleware.OK(w, models.ListResponse{OK: true, Count: total, Items: skills})
}

// GetSkill handles GET /skills/:id
func (h *SkillHandler) GetSkill(w http.ResponseWriter, r *http.Request) {
	id := requireUUIDParam(w, r, "id")
	if id == "" {
		return
	}

	skill, err := h.store.Skill(r.Context(), orgID(r), id)
	if errors.Is(err, db.ErrNotFound) {
		middleware.NotFound(w, "Skill not found")
		return
	}
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to fetch skill")
		return
	}
	h.resolve(skill.Media)
	middleware.OK(w, models.SkillResponse{OK: true, Skill: skill})
}

// CreateSkill handles POST /skills
func (h *SkillHandler) CreateSkill(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSkillRequest
	if !decodeObject(w, r, &req) || !validate(w, &req) {
		return
	}

	ctx := r.Context()
	id, err := h.store.CreateSkill(ctx, req)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to create skill")
		return
	}
	skill, err := h.store.Skill(ctx, req.OrgID, id)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to create skill")
		return
	}

	logging.Ctx(ctx).Info().Str("skill_id", id).Str("org_id", req.OrgID).Msg("skill created")
	middleware.Created(w, models.SkillResponse{OK: true, Skill: skill})
}

// UpdateSkill handles PATCH /skills/:id
func (h *SkillHandler) UpdateSkill(w http.ResponseWriter, r *http.Request) {
	id := requireUUIDParam(w, r, "id")
	if id == "" {
		return
	}

	var req models.UpdateSkillRequest
	if !decodeObject(w, r, &req) || !validate(w, &req) {
		return
	}
	if req.Empty() {
		middleware.BadRequest(w, "No updates provided")
		return
	}

	ctx := r.Context()
	org := orgID(r)
	err := h.store.UpdateSkill(ctx, org, id, req)
	if err == nil {
		var skill *models.Skill
		skill, err = h.store.Skill(ctx, org, id)
		if err == nil {
			h.resolve(skill.Media)
			middleware.OK(w, models.SkillResponse{OK: true, Skill: skill})
			return
		}
	}
	if errors.Is(err, db.ErrNotFound) {
		middleware.NotFound(w, "Skill not found")
		return
	}
	middleware.InternalError(w, r, err, "Failed to update skill")
}

// ListSkillTags handles GET /skills/tags
func (h *SkillHandler) ListSkillTags(w http.ResponseWriter, r *http.Request) {
	f := models.TagFilter{
		OrgID:   orgID(r),
		SportID: queryString(r, "sport_id"),
		Q:       queryString(r, "q"),
	}
	if f.SportID != "" && !validation.IsUUID(f.SportID) {
		middleware.BadRequest(w, "sport_id must be a UUID if provided")
		return
	}

	tags, err := h.store.SkillTags(r.Context(), f)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list skill tags")
		return
	}
	middleware.OK(w, models.ListResponse{OK: true, Count: len(tags), Items: tags})
}

// CreateUploadURL handles POST /skills/media/upload-url
func (h *SkillHandler) CreateUploadURL(w http.ResponseWriter, r *http.Request) {
	var req models.SkillMediaUploadRequest
	if !decodeObject(w, r, &req) || !validate(w, &req) {
		return
	}
	mediaType := req.ResolvedType()
	if !checkUpload(w, mediaType, req.ContentType) {
		return
	}

	path := storage.ObjectPath(req.OrgID, "skills", req.SkillID, req.FileName, req.ContentType)
	upload, err := h.objects.CreateSignedUploadURL(r.Context(), h.bucket, path)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to create upload URL")
		return
	}

	middleware.Created(w, models.MediaUploadResponse{
		OK:     true,
		Upload: upload,
		Media:  req.Draft(mediaType, upload.PublicURL),
	})
}

// CreateSkillMedia handles POST /skills/media
func (h *SkillHandler) CreateSkillMedia(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSkillMediaRequest
	if !decodeObject(w, r, &req) || !validate(w, &req) {
		return
	}
	if req.StoragePath == nil && req.URL == nil {
		middleware.BadRequest(w, "storage_path or url is required")
		return
	}

	ctx := r.Context()
	ok, err := h.store.SkillInOrg(ctx, req.OrgID, req.SkillID)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to create skill media")
		return
	}
	if !ok {
		middleware.NotFound(w, "Skill not found")
		return
	}

	m := models.NewSkillMedia{
		SkillID:      req.SkillID,
		Type:         req.ResolvedType(),
		Title:        req.Title,
		URL:          req.URL,
		ThumbnailURL: req.ThumbnailURL,
		Position:     req.Position.IntPtr(),
	}
	if req.StoragePath != nil {
		path := storagePath(h.bucket, *req.StoragePath)
		m.StoragePath = &path
		if m.URL == nil {
			u := h.objects.PublicURL(h.bucket, path)
			m.URL = &u
		}
	}

	media, err := h.store.CreateSkillMedia(ctx, m)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to create skill media")
		return
	}
	middleware.Created(w, models.MediaResponse{OK: true, Media: media})
}

// PlaySkillMedia handles GET /skills/media/:skill_id/play
func (h *SkillHandler) PlaySkillMedia(w http.ResponseWriter, r *http.Request) {
	skillID := requireUUIDParam(w, r, "skill_id")
	if skillID == "" {
		return
	}
	expiresIn := playExpiry(r)

	ctx := r.Context()
	ok, err := h.store.SkillInOrg(ctx, orgID(r), skillID)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to load skill media")
		return
	}
	if !ok {
		middleware.NotFound(w, "Skill not found")
		return
	}

	media, err := h.store.FirstSkillVideo(ctx, skillID)
	if errors.Is(err, db.ErrNotFound) {
		middleware.NotFound(w, "Skill media not found")
		return
	}
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to load skill media")
		return
	}

	bucket, path := h.bucket, deref(media.StoragePath)
	if path == "" {
		var parsed bool
		bucket, path, parsed = storage.ParseObjectURL(deref(media.URL))
		if !parsed {
			if media.URL == nil {
				middleware.NotFound(w, "Skill media not found")
				return
			}
			middleware.OK(w, models.MediaPlayback{OK: true, Media: media, PlayURL: *media.URL})
			return
		}
	}

	signed, err := h.objects.CreateSignedURL(ctx, bucket, path, expiresIn)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to sign media URL")
		return
	}
	if media.URL == nil {
		u := h.objects.PublicURL(bucket, path)
		media.URL = &u
	}
	middleware.OK(w, models.MediaPlayback{OK: true, Media: media, PlayURL: signed, ExpiresIn: &expiresIn})
}
