// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielhkuo/ankor-api/auth"
	"github.com/danielhkuo/ankor-api/db"
	"github.com/danielhkuo/ankor-api/logging"
	"github.com/danielhkuo/ankor-api/middleware"
	"github.com/danielhkuo/ankor-api/models"
)

type CoachStore interface {
	Coaches(ctx context.Context, f models.PersonFilter) ([]models.Coach, int, error)
	Coach(ctx context.Context, orgID, id string) (*models.Coach, error)
	CreateCoach(ctx context.Context, params map[string]interface{}) (string, error)
	DeleteCoach(ctx context.Context, orgID, coachID string) error
	UpdateCoach(ctx context.Context, orgID, id string, req models.UpdateCoachRequest) error
}

type CoachHandler struct {
	store CoachStore
	admin UserAdmin
}

func NewCoachHandler(store CoachStore, admin UserAdmin) *CoachHandler {
	return &CoachHandler{store: store, admin: admin}
}

// ListCoaches handles GET /coaches/list
func (h *CoachHandler) ListCoaches(w http.ResponseWriter, r *http.Request) {
	f, ok := personFilter(w, r)
	if !ok {
		return
	}
	f.TeamID = ""

	coaches, total, err := h.store.Coaches(r.Context(), f)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list coaches")
		return
	}
	middleware.OK(w, models.ListResponse{OK: true, Count: total, Items: coaches})
}

// GetCoach handles GET /coaches/:id
func (h *CoachHandler) GetCoach(w http.ResponseWriter, r *http.Request) {
	id := requireUUIDParam(w, r, "id")
	if id == "" {
		return
	}

	coach, err := h.store.Coach(r.Context(), orgID(r), id)
	if errors.Is(err, db.ErrNotFound) {
		middleware.NotFound(w, "Coach not found")
		return
	}
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to fetch coach")
		return
	}
	middleware.OK(w, models.CoachResponse{OK: true, Coach: coach})
}

// CreateCoach handles POST /coaches
func (h *CoachHandler) CreateCoach(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCoachRequest
	if !decodeObject(w, r, &req) || !validate(w, &req) {
		return
	}

	ctx := r.Context()
	fullName := req.FullName
	if fullName == nil {
		fullName = models.BuildFullName(&req.FirstName, &req.LastName)
	}

	user, err := h.admin.CreateUser(ctx, auth.CreateUserParams{
		Email:        req.Email,
		Password:     req.Password,
		EmailConfirm: true,
		UserMetadata: map[string]interface{}{
			"first_name":  req.FirstName,
			"last_name":   req.LastName,
			"cell_number": req.CellNumber,
		},
		AppMetadata: map[string]interface{}{"role": "coach"},
	})
	if err != nil {
		h.createFailed(w, r, err)
		return
	}

	rollback := func() {
		if err := h.admin.DeleteUser(context.WithoutCancel(ctx), user.ID); err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("user_id", user.ID).Msg("failed to roll back auth user")
		}
	}

	coachID, err := h.store.CreateCoach(ctx, map[string]interface{}{
		"p_user_id":     user.ID,
		"p_org_id":      req.OrgID,
		"p_first_name":  req.FirstName,
		"p_last_name":   req.LastName,
		"p_full_name":   fullName,
		"p_email":       req.Email,
		"p_phone":       req.Phone,
		"p_cell_number": req.CellNumber,
	})
	if err != nil {
		rollback()
		h.createFailed(w, r, err)
		return
	}

	coach, err := h.store.Coach(ctx, req.OrgID, coachID)
	if err != nil {
		if derr := h.store.DeleteCoach(context.WithoutCancel(ctx), req.OrgID, coachID); derr != nil {
			logging.Ctx(ctx).Error().Err(derr).Str("coach_id", coachID).Msg("failed to roll back coach")
		}
		rollback()
		middleware.InternalError(w, r, err, "Failed to create coach")
		return
	}

	logging.Ctx(ctx).Info().Str("coach_id", coachID).Str("org_id", req.OrgID).Msg("coach created")
	middleware.Created(w, models.CoachResponse{OK: true, Coach: coach})
}

func (h *CoachHandler) createFailed(w http.ResponseWriter, r *http.Request, err error) {
	if isDuplicate(err) {
		middleware.Conflict(w, "Email already registered")
		return
	}
	middleware.InternalError(w, r, err, "Failed to create coach")
}

// UpdateCoach handles PATCH /coaches/:id
func (h *CoachHandler) UpdateCoach(w http.ResponseWriter, r *http.Request) {
	id := requireUUIDParam(w, r, "id")
	if id == "" {
		return
	}

	var req models.UpdateCoachRequest
	if !decodeObject(w, r, &req) || !validate(w, &req) {
		return
	}
	if req.Empty() {
		middleware.BadRequest(w, "No updates provided")
		return
	}

	ctx := r.Context()
	org := orgID(r)
	err := h.store.UpdateCoach(ctx, org, id, req)
	if err == nil {
		var coach *models.Coach
		coach, err = h.store.Coach(ctx, org, id)
		if err == nil {
			middleware.OK(w, models.CoachResponse{OK: true, Coach: coach})
			return
		}
	}
	if errors.Is(err, db.ErrNotFound) {
		middleware.NotFound(w, "Coach not found")
		return
	}
	middleware.InternalError(w, r, err, "Failed to update coach")
}
