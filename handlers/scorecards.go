// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielhkuo/ankor-api/logging"
	"github.com/danielhkuo/ankor-api/middleware"
	"github.com/danielhkuo/ankor-api/models"
	"github.com/danielhkuo/ankor-api/validation"
)

type ScorecardStore interface {
	CreateScorecardTemplate(ctx context.Context, template models.ScorecardTemplatePayload, createdBy string) (string, error)
	ScorecardTemplates(ctx context.Context, f models.ScorecardFilter) ([]models.ScorecardTemplate, int, error)
	ScorecardCategories(ctx context.Context, orgID, templateID string, limit, offset int) ([]models.ScorecardCategory, int, error)
	ScorecardSubskills(ctx context.Context, orgID, categoryID string, limit, offset int) ([]models.ScorecardSubskill, int, error)
}

type ScorecardHandler struct {
	store ScorecardStore
}

func NewScorecardHandler(store ScorecardStore) *ScorecardHandler {
	return &ScorecardHandler{store: store}
}

var scorecardErrors = []struct {
	code    string
	status  int
	message string
}{
	{"FORBIDDEN", http.StatusForbidden, "You do not have permission for this organization."},
	{"CATEGORY_NEEDS_ONE_SUBSKILL", http.StatusBadRequest, "Each category must have at least one subskill."},
	{"SUBSKILL_SKILL_REQUIRED", http.StatusBadRequest, "Each subskill must include a valid skill_id."},
	{"SUBSKILL_SKILL_NOT_IN_ORG_OR_SPORT", http.StatusBadRequest, "One or more skills do not belong to this org/sport."},
	{"AT_LEAST_ONE_CATEGORY_REQUIRED", http.StatusBadRequest, "At least one category is required."},
	{"NAME_REQUIRED", http.StatusBadRequest, "Template name is required."},
	{"ORG_REQUIRED", http.StatusBadRequest, "org_id is required."},
}

// CreateTemplate handles POST /scorecard
func (h *ScorecardHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateScorecardRequest
	if !decodeObject(w, r, &req) || !validate(w, &req) {
		return
	}

	createdBy := callerID(r)
	if createdBy == "" {
		createdBy = deref(req.CreatedBy)
	}
	if createdBy == "" {
		middleware.Unauthorized(w, "Unauthorized")
		return
	}

	ctx := r.Context()
	id, err := h.store.CreateScorecardTemplate(ctx, req.Payload(), createdBy)
	if err != nil {
		for _, e := range scorecardErrors {
			if strings.Contains(err.Error(), e.code) {
				middleware.ErrorResponse(w, e.status, e.message)
				return
			}
		}
		middleware.InternalError(w, r, err, "Failed to create template")
		return
	}

	logging.Ctx(ctx).Info().Str("template_id", id).Str("org_id", req.OrgID).Msg("scorecard template created")
	middleware.Created(w, models.CreateScorecardResponse{OK: true, TemplateID: id})
}

// ListTemplates handles GET /scorecard/list
func (h *ScorecardHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	f := models.ScorecardFilter{
		OrgID:   orgID(r),
		SportID: queryString(r, "sport_id"),
		Q:       queryString(r, "q"),
		Limit:   queryInt(r, "limit", 10, 1, 200),
		Offset:  queryOffset(r),
	}
	if !validation.IsUUID(f.OrgID) {
		middleware.BadRequest(w, "org_id (UUID) is required")
		return
	}
	if f.SportID != "" && !validation.IsUUID(f.SportID) {
		middleware.BadRequest(w, "sport_id must be a UUID if provided")
		return
	}

	templates, total, err := h.store.ScorecardTemplates(r.Context(), f)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list scorecard templates")
		return
	}
	middleware.OK(w, models.ListResponse{OK: true, Count: total, Items: templates})
}

// ListCategories handles GET /scorecard/categories
func (h *ScorecardHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	org := requireUUIDQuery(w, r, "org_id")
	if org == "" {
		return
	}
	templateID := requireUUIDQuery(w, r, "scorecard_template_id")
	if templateID == "" {
		return
	}

	categories, total, err := h.store.ScorecardCategories(r.Context(), org, templateID,
		queryInt(r, "limit", 100, 1, 500), queryOffset(r))
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list scorecard categories")
		return
	}
	middleware.OK(w, models.ListResponse{OK: true, Count: total, Items: categories})
}

// ListSubskills handles GET /scorecard/subskills
func (h *ScorecardHandler) ListSubskills(w http.ResponseWriter, r *http.Request) {
	org := requireUUIDQuery(w, r, "org_id")
	if org == "" {
		return
	}
	categoryID := requireUUIDQuery(w, r, "category_id")
	if categoryID == "" {
		return
	}

	subskills, total, err := h.store.ScorecardSubskills(r.Context(), org, categoryID,
		queryInt(r, "limit", 100, 1, 500), queryOffset(r))
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list scorecard subskills")
		return
	}
	middleware.OK(w, models.ListResponse{OK: true, Count: total, Items: subskills})
}
