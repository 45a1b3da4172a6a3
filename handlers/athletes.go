// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielhkuo/ankor-api/auth"
	"github.com/danielhkuo/ankor-api/db"
	"github.com/danielhkuo/ankor-api/logging"
	"github.com/danielhkuo/ankor-api/middleware"
	"github.com/danielhkuo/ankor-api/models"
	"github.com/danielhkuo/ankor-api/validation"
)

type AthleteStore interface {
	Athletes(ctx context.Context, f models.PersonFilter) ([]models.Athlete, int, error)
	Athlete(ctx context.Context, orgID, id string) (*models.Athlete, error)
	GuardianIDByEmail(ctx context.Context, orgID, email string) (string, error)
	CreateAthlete(ctx context.Context, params map[string]interface{}) (string, error)
	DeleteAthlete(ctx context.Context, orgID, athleteID, guardianEmail string) error
	UpdateAthlete(ctx context.Context, orgID, id string, req models.UpdateAthleteRequest) error
}

type AthleteHandler struct {
	store AthleteStore
	admin UserAdmin
}

func NewAthleteHandler(store AthleteStore, admin UserAdmin) *AthleteHandler {
	return &AthleteHandler{store: store, admin: admin}
}

// personFilter reads the list filters shared by athletes and coaches
func personFilter(w http.ResponseWriter, r *http.Request) (models.PersonFilter, bool) {
	f := models.PersonFilter{
		OrgID:  orgID(r),
		Name:   queryString(r, "name"),
		Email:  queryString(r, "email"),
		TeamID: queryString(r, "team_id"),
		Limit:  queryInt(r, "limit", 50, 1, 200),
		Offset: queryOffset(r),
	}
	if f.TeamID != "" && !validation.IsUUID(f.TeamID) {
		middleware.BadRequest(w, "team_id must be a valid UUID")
		return f, false
	}
	return f, true
}

// ListAthletes handles GET /athletes/list
func (h *AthleteHandler) ListAthletes(w http.ResponseWriter, r *http.Request) {
	f, ok := personFilter(w, r)
	if !ok {
		return
	}

	athletes, total, err := h.store.Athletes(r.Context(), f)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list athletes")
		return
	}
	middleware.OK(w, models.ListResponse{OK: true, Count: total, Items: athletes})
}

// GetAthlete handles GET /athletes/:id
func (h *AthleteHandler) GetAthlete(w http.ResponseWriter, r *http.Request) {
	id := requireUUIDParam(w, r, "id")
	if id == "" {
		return
	}

	athlete, err := h.store.Athlete(r.Context(), orgID(r), id)
	if errors.Is(err, db.ErrNotFound) {
		middleware.NotFound(w, "Athlete not found")
		return
	}
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to fetch athlete")
		return
	}
	middleware.OK(w, models.AthleteResponse{OK: true, Athlete: athlete})
}

// CreateAthlete handles POST /athletes. It creates the athlete's auth user,
// a guardian user when the guardian is new and has a different email, and
// then the athlete records. Every step is undone if a later one fails.
func (h *AthleteHandler) CreateAthlete(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAthleteRequest
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
		AppMetadata: map[string]interface{}{"role": "athlete"},
	})
	if err != nil {
		h.createFailed(w, r, err)
		return
	}

	created := []string{user.ID}
	rollback := func() {
		for _, id := range created {
			if err := h.admin.DeleteUser(context.WithoutCancel(ctx), id); err != nil {
				logging.Ctx(ctx).Error().Err(err).Str("user_id", id).Msg("failed to roll back auth user")
			}
		}
	}

	guardianID, err := h.store.GuardianIDByEmail(ctx, req.OrgID, req.ParentEmail)
	if err != nil {
		rollback()
		h.createFailed(w, r, err)
		return
	}

	var guardianUserID string
	if guardianID == "" {
		if strings.EqualFold(req.Email, req.ParentEmail) {
			guardianUserID = user.ID
		} else {
			guardian, err := h.admin.CreateUser(ctx, auth.CreateUserParams{
				Email:        req.ParentEmail,
				Password:     req.Password,
				EmailConfirm: true,
				UserMetadata: map[string]interface{}{
					"full_name":   req.ParentFullName,
					"cell_number": req.ParentMobilePhone,
				},
				AppMetadata: map[string]interface{}{"role": "parent"},
			})
			if err != nil {
				rollback()
				h.createFailed(w, r, err)
				return
			}
			guardianUserID = guardian.ID
			created = append(created, guardian.ID)
		}
	}

	athleteID, err := h.store.CreateAthlete(ctx, map[string]interface{}{
		"p_user_id":               user.ID,
		"p_org_id":                req.OrgID,
		"p_team_id":               req.TeamID,
		"p_first_name":            req.FirstName,
		"p_last_name":             req.LastName,
		"p_full_name":             fullName,
		"p_email":                 req.Email,
		"p_phone":                 req.Phone,
		"p_cell_number":           req.CellNumber,
		"p_gender":                req.Gender,
		"p_guardian_id":           optional(guardianID),
		"p_guardian_user_id":      optional(guardianUserID),
		"p_guardian_full_name":    req.ParentFullName,
		"p_guardian_email":        req.ParentEmail,
		"p_guardian_phone":        req.ParentMobilePhone,
		"p_guardian_relationship": req.Relationship,
		"p_graduation_year":       req.GraduationYear.IntPtr(),
	})
	if err != nil {
		rollback()
		h.createFailed(w, r, err)
		return
	}

	athlete, err := h.store.Athlete(ctx, req.OrgID, athleteID)
	if err != nil {
		newGuardian := ""
		if len(created) > 1 {
			newGuardian = req.ParentEmail
		}
		if derr := h.store.DeleteAthlete(context.WithoutCancel(ctx), req.OrgID, athleteID, newGuardian); derr != nil {
			logging.Ctx(ctx).Error().Err(derr).Str("athlete_id", athleteID).Msg("failed to roll back athlete")
		}
		rollback()
		middleware.InternalError(w, r, err, "Failed to create athlete")
		return
	}

	logging.Ctx(ctx).Info().Str("athlete_id", athleteID).Str("org_id", req.OrgID).Msg("athlete created")
	middleware.Created(w, models.AthleteResponse{OK: true, Athlete: athlete})
}

func (h *AthleteHandler) createFailed(w http.ResponseWriter, r *http.Request, err error) {
	if isDuplicate(err) {
		middleware.Conflict(w, "Email already registered")
		return
	}
	middleware.InternalError(w, r, err, "Failed to create athlete")
}

// UpdateAthlete handles PATCH /athletes/:id
func (h *AthleteHandler) UpdateAthlete(w http.ResponseWriter, r *http.Request) {
	id := requireUUIDParam(w, r, "id")
	if id == "" {
		return
	}

	var req models.UpdateAthleteRequest
	if !decodeObject(w, r, &req) || !validate(w, &req) {
		return
	}
	if req.Empty() {
		middleware.BadRequest(w, "No updates provided")
		return
	}

	ctx := r.Context()
	org := orgID(r)
	err := h.store.UpdateAthlete(ctx, org, id, req)
	if err == nil {
		var athlete *models.Athlete
		athlete, err = h.store.Athlete(ctx, org, id)
		if err == nil {
			middleware.OK(w, models.AthleteResponse{OK: true, Athlete: athlete})
			return
		}
	}
	if errors.Is(err, db.ErrNotFound) {
		middleware.NotFound(w, "Athlete not found")
		return
	}
	middleware.InternalError(w, r, err, "Failed to update athlete")
}
