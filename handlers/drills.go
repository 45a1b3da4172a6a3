// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/danielhkuo/ankor-api/db"
	"github.com/danielhkuo/ankor-api/logging"
	"github.com/danielhkuo/ankor-api/middleware"
	"github.com/danielhkuo/ankor-api/models"
	"github.com/danielhkuo/ankor-api/storage"
	"github.com/danielhkuo/ankor-api/validation"
)

type DrillStore interface {
	CreateDrill(ctx context.Context, drill map[string]interface{}, media []map[string]interface{}, skillIDs []string) (interface{}, error)
	Drills(ctx context.Context, f models.DrillFilter) ([]models.Drill, int, error)
	Drill(ctx context.Context, orgID, id string) (*models.Drill, error)
	UpdateDrill(ctx context.Context, orgID, id string, req models.UpdateDrillRequest) error
	Segments(ctx context.Context) ([]models.DrillSegment, error)
	DrillTags(ctx context.Context, f models.TagFilter) ([]models.Tag, int, error)
	DrillInOrg(ctx context.Context, orgID, drillID string) (bool, error)
	CreateDrillMedia(ctx context.Context, drillID string, m models.DrillMediaInput) (*models.DrillMedia, error)
	FirstDrillVideo(ctx context.Context, drillID string) (*models.DrillMedia, error)
}

type DrillHandler struct {
	store   DrillStore
	objects ObjectStore
	bucket  string
}

func NewDrillHandler(store DrillStore, objects ObjectStore, bucket string) *DrillHandler {
	return &DrillHandler{store: store, objects: objects, bucket: bucket}
}

// CreateDrill handles POST /drills
func (h *DrillHandler) CreateDrill(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDrillRequest
	if !decodeObject(w, r, &req) || !validate(w, &req) {
		return
	}

	createdBy := req.CreatedBy
	if createdBy == nil {
		createdBy = optional(callerID(r))
	}
	drill := map[string]interface{}{
		"org_id":           req.OrgID,
		"segment_id":       req.SegmentID,
		"sport_id":         req.SportID,
		"name":             req.Name,
		"description":      req.Description,
		"instructions":     req.Instructions,
		"level":            req.Level,
		"min_age":          req.MinAge.IntPtr(),
		"max_age":          req.MaxAge.IntPtr(),
		"duration_seconds": req.DurationSeconds.IntPtr(),
		"created_by":       createdBy,
	}
	media := make([]map[string]interface{}, len(req.Media))
	for i, m := range req.Media {
		media[i] = map[string]interface{}{
			"type":          m.Type,
			"url":           m.URL,
			"title":         m.Title,
			"description":   m.Description,
			"thumbnail_url": m.ThumbnailURL,
			"position":      m.Position.IntPtr(),
		}
	}

	ctx := r.Context()
	created, err := h.store.CreateDrill(ctx, drill, media, req.SkillIDs())
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to create drill")
		return
	}

	logging.Ctx(ctx).Info().Str("org_id", req.OrgID).Str("name", req.Name).Msg("drill created")
	middleware.Created(w, models.DrillResponse{OK: true, Drill: created})
}

// nonNegativeQuery parses an optional integer filter, writing a 400 when it is malformed
func nonNegativeQuery(w http.ResponseWriter, r *http.Request, key string) (*int, bool) {
	raw := queryString(r, key)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		middleware.BadRequest(w, key+" must be a non-negative integer")
		return nil, false
	}
	return &n, true
}

// ListDrills handles GET /drills/list
func (h *DrillHandler) ListDrills(w http.ResponseWriter, r *http.Request) {
	f := models.DrillFilter{
		OrgID:  orgID(r),
		Name:   queryString(r, "name"),
		Levels: queryCSV(r, "levels"),
		Limit:  queryInt(r, "limit", 50, 1, 200),
		Offset: queryOffset(r),
	}
	for _, id := range queryCSV(r, "segment_ids") {
		if validation.IsUUID(id) {
			f.SegmentIDs = append(f.SegmentIDs, id)
		}
	}
	for _, id := range queryCSV(r, "skill_tags") {
		if validation.IsUUID(id) {
			f.TagIDs = append(f.TagIDs, id)
		}
	}

	bounds := []struct {
		key string
		dst **int
	}{
		{"min_age", &f.MinAge},
		{"max_age", &f.MaxAge},
		{"min_players", &f.MinPlayers},
		{"max_players", &f.MaxPlayers},
	}
	for _, b := range bounds {
		n, ok := nonNegativeQuery(w, r, b.key)
		if !ok {
			return
		}
		*b.dst = n
	}

	drills, total, err := h.store.Drills(r.Context(), f)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list drills")
		return
	}
	middleware.OK(w, models.ListResponse{OK: true, Count: total, Items: drills})
}

// ListSegments handles GET /drills/segments
func (h *DrillHandler) ListSegments(w http.ResponseWriter, r *http.Request) {
	segments, err := h.store.Segments(r.Context())
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list segments")
		return
	}
	middleware.OK(w, models.ListResponse{OK: true, Count: len(segments), Items: segments})
}

// ListDrillTags handles GET /drills/tags
func (h *DrillHandler) ListDrillTags(w http.ResponseWriter, r *http.Request) {
	f := models.TagFilter{
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

	tags, total, err := h.store.DrillTags(r.Context(), f)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list drill tags")
		return
	}
	middleware.OK(w, models.ListResponse{OK: true, Count: total, Items: tags})
}

// GetDrill handles GET /drills/:id
func (h *DrillHandler) GetDrill(w http.ResponseWriter, r *http.Request) {
	id := requireUUIDParam(w, r, "id")
	if id == "" {
		return
	}

	drill, err := h.store.Drill(r.Context(), orgID(r), id)
	if errors.Is(err, db.ErrNotFound) {
		middleware.NotFound(w, "Drill not found")
		return
	}
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to fetch drill")
		return
	}
	middleware.OK(w, models.DrillResponse{OK: true, Drill: drill})
}

// UpdateDrill handles PATCH /drills/:id
func (h *DrillHandler) UpdateDrill(w http.ResponseWriter, r *http.Request) {
	id := requireUUIDParam(w, r, "id")
	if id == "" {
		return
	}

	var req models.UpdateDrillRequest
	if !decodeObject(w, r, &req) || !validate(w, &req) {
		return
	}
	if req.Empty() {
		middleware.BadRequest(w, "No updates provided")
		return
	}

	ctx := r.Context()
	org := orgID(r)
	err := h.store.UpdateDrill(ctx, org, id, req)
	if err == nil {
		var drill *models.Drill
		drill, err = h.store.Drill(ctx, org, id)
		if err == nil {
			middleware.OK(w, models.DrillResponse{OK: true, Drill: drill})
			return
		}
	}
	if errors.Is(err, db.ErrNotFound) {
		middleware.NotFound(w, "Drill not found")
		return
	}
	middleware.InternalError(w, r, err, "Failed to update drill")
}

// CreateUploadURL handles POST /drills/media/upload-url
func (h *DrillHandler) CreateUploadURL(w http.ResponseWriter, r *http.Request) {
	var req models.DrillMediaUploadRequest
	if !decodeObject(w, r, &req) || !validate(w, &req) {
		return
	}
	if !checkUpload(w, req.Type, req.ContentType) {
		return
	}

	path := storage.ObjectPath(req.OrgID, "drills", req.DrillID, req.FileName, req.ContentType)
	upload, err := h.objects.CreateSignedUploadURL(r.Context(), h.bucket, path)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to create upload URL")
		return
	}

	middleware.Created(w, models.MediaUploadResponse{
		OK:     true,
		Upload: upload,
		Media:  req.Draft(req.Type, upload.PublicURL),
	})
}

// CreateDrillMedia handles POST /drills/media
func (h *DrillHandler) CreateDrillMedia(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDrillMediaRequest
	if !decodeObject(w, r, &req) || !validate(w, &req) {
		return
	}

	ctx := r.Context()
	ok, err := h.store.DrillInOrg(ctx, req.OrgID, req.DrillID)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to create drill media")
		return
	}
	if !ok {
		middleware.NotFound(w, "Drill not found")
		return
	}

	media, err := h.store.CreateDrillMedia(ctx, req.DrillID, req.DrillMediaInput)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to create drill media")
		return
	}
	middleware.Created(w, models.MediaResponse{OK: true, Media: media})
}

// PlayDrillMedia handles GET /drills/media/:drill_id/play.
// Only URLs that point into storage are signed.
func (h *DrillHandler) PlayDrillMedia(w http.ResponseWriter, r *http.Request) {
	drillID := requireUUIDParam(w, r, "drill_id")
	if drillID == "" {
		return
	}
	expiresIn := playExpiry(r)

	ctx := r.Context()
	ok, err := h.store.DrillInOrg(ctx, orgID(r), drillID)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to load drill media")
		return
	}
	if !ok {
		middleware.NotFound(w, "Drill not found")
		return
	}

	media, err := h.store.FirstDrillVideo(ctx, drillID)
	if errors.Is(err, db.ErrNotFound) {
		middleware.NotFound(w, "Drill media not found")
		return
	}
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to load drill media")
		return
	}

	bucket, path, signable := storage.ParseObjectURL(media.URL)
	if !signable {
		middleware.OK(w, models.MediaPlayback{OK: true, Media: media, PlayURL: media.URL})
		return
	}

	signed, err := h.objects.CreateSignedURL(ctx, bucket, path, expiresIn)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to sign media URL")
		return
	}
	middleware.OK(w, models.MediaPlayback{OK: true, Media: media, PlayURL: signed, ExpiresIn: &expiresIn})
}
