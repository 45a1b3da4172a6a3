// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/ankor-api/auth"
	"github.com/danielhkuo/ankor-api/db"
	"github.com/danielhkuo/ankor-api/logging"
	"github.com/danielhkuo/ankor-api/middleware"
	"github.com/danielhkuo/ankor-api/models"
	"github.com/danielhkuo/ankor-api/validation"
)

// maxEmailLookups bounds concurrent Auth admin calls per invite
const maxEmailLookups = 8

type PlanStore interface {
	Plans(ctx context.Context, f models.PlanFilter) ([]models.Plan, int, error)
	InvitedPlans(ctx context.Context, userID string, limit, offset int) ([]models.InvitedPlan, int, error)
	Plan(ctx context.Context, id string) (*models.PlanDetail, error)
	CreatePlan(ctx context.Context, req models.CreatePlanRequest) (*models.Plan, error)
	UpdatePlan(ctx context.Context, id string, req models.UpdatePlanRequest) (*models.Plan, error)
	InviteCandidates(ctx context.Context, planID, orgID string, userIDs []string) (*models.InviteCandidates, error)
	AddPlanMembers(ctx context.Context, planID, invitedBy, role string, invites []models.PlanInvite) error
}

// EmailLookup resolves a user's email through Supabase Auth
type EmailLookup interface {
	GetUser(ctx context.Context, id string) (auth.User, error)
}

type PlanHandler struct {
	store PlanStore
	users EmailLookup
}

func NewPlanHandler(store PlanStore, users EmailLookup) *PlanHandler {
	return &PlanHandler{store: store, users: users}
}

// ListPlans handles GET /plans/list
func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	f := models.PlanFilter{
		Type:   queryString(r, "type"),
		UserID: queryString(r, "user_id"),
		Limit:  queryInt(r, "limit", 50, 1, 200),
		Offset: queryOffset(r),
	}
	if f.Type != models.PlanTypePrebuild && f.Type != models.PlanTypeCustom {
		middleware.BadRequest(w, "type must be one of: prebuild, custom")
		return
	}
	if f.UserID != "" && !validation.IsUUID(f.UserID) {
		middleware.BadRequest(w, "user_id must be a valid UUID")
		return
	}
	if f.Type == models.PlanTypeCustom && f.UserID == "" {
		middleware.BadRequest(w, "user_id (UUID) is required for type=custom")
		return
	}

	plans, total, err := h.store.Plans(r.Context(), f)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list plans")
		return
	}
	middleware.OK(w, models.ListResponse{OK: true, Count: total, Items: plans})
}

// ListInvited handles GET /plans/invited
func (h *PlanHandler) ListInvited(w http.ResponseWriter, r *http.Request) {
	user := requireUUIDQuery(w, r, "user_id")
	if user == "" {
		return
	}

	plans, total, err := h.store.InvitedPlans(r.Context(), user, queryInt(r, "limit", 50, 1, 200), queryOffset(r))
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list invited plans")
		return
	}
	middleware.OK(w, models.ListResponse{OK: true, Count: total, Items: plans})
}

// GetPlan handles GET /plans/:id
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	if requireOrg(w, r) == "" {
		return
	}
	id := requireUUIDParam(w, r, "id")
	if id == "" {
		return
	}

	plan, err := h.store.Plan(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		middleware.NotFound(w, "Plan not found")
		return
	}
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to fetch plan")
		return
	}
	middleware.OK(w, models.PlanResponse{OK: true, Plan: plan})
}

// InviteMembers handles POST /plans/:id/invite
func (h *PlanHandler) InviteMembers(w http.ResponseWriter, r *http.Request) {
	org := requireOrg(w, r)
	if org == "" {
		return
	}
	id := requireUUIDParam(w, r, "id")
	if id == "" {
		return
	}

	var req models.InvitePlanMembersRequest
	if !decodeObject(w, r, &req) || !validate(w, &req) {
		return
	}

	candidates, err := h.store.InviteCandidates(r.Context(), id, org, req.UserIDs)
	var outside *db.UsersNotInOrgError
	switch {
	case errors.Is(err, db.ErrNotFound):
		middleware.NotFound(w, "Plan not found")
		return
	case errors.Is(err, db.ErrPlanWithoutOrg), errors.Is(err, db.ErrPlanOrgMismatch), errors.As(err, &outside):
		middleware.BadRequest(w, err.Error())
		return
	case err != nil:
		middleware.InternalError(w, r, err, "Failed to invite plan members")
		return
	}

	resp := models.InviteResponse{OK: true, PlanID: id, InvitedUserIDs: []string{}, SkippedUserIDs: candidates.Skipped}
	if len(candidates.ToInvite) == 0 {
		middleware.OK(w, resp)
		return
	}

	invitedBy := deref(req.AddedBy)
	if invitedBy == "" {
		invitedBy = candidates.OwnerUserID
	}

	invites, err := h.lookupEmails(r.Context(), candidates.ToInvite)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to invite plan members")
		return
	}
	if err := h.store.AddPlanMembers(r.Context(), id, invitedBy, req.Role, invites); err != nil {
		middleware.InternalError(w, r, err, "Failed to invite plan members")
		return
	}

	logging.Ctx(r.Context()).Info().Str("plan_id", id).Int("invited", len(invites)).Msg("plan members invited")
	resp.InvitedUserIDs = candidates.ToInvite
	middleware.OK(w, resp)
}

// lookupEmails fetches every user's email concurrently, failing if any is missing
func (h *PlanHandler) lookupEmails(ctx context.Context, userIDs []string) ([]models.PlanInvite, error) {
	invites := make([]models.PlanInvite, len(userIDs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxEmailLookups)
	for i, id := range userIDs {
		g.Go(func() error {
			u, err := h.users.GetUser(ctx, id)
			if err != nil {
				return err
			}
			invites[i] = models.PlanInvite{UserID: id, Email: u.Email}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var missing []string
	for _, inv := range invites {
		if inv.Email == "" {
			missing = append(missing, inv.UserID)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing emails for users: %s", strings.Join(missing, ", "))
	}
	return invites, nil
}

// UpdatePlan handles PATCH /plans/:id
func (h *PlanHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	if requireOrg(w, r) == "" {
		return
	}
	id := requireUUIDParam(w, r, "id")
	if id == "" {
		return
	}

	var req models.UpdatePlanRequest
	if !decodeObject(w, r, &req) || !validate(w, &req) {
		return
	}
	if req.Empty() {
		middleware.BadRequest(w, "No updates provided")
		return
	}

	plan, err := h.store.UpdatePlan(r.Context(), id, req)
	if errors.Is(err, db.ErrNotFound) {
		middleware.NotFound(w, "Plan not found")
		return
	}
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to update plan")
		return
	}
	middleware.OK(w, models.PlanResponse{OK: true, Plan: plan})
}

// CreatePlan handles POST /plans
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePlanRequest
	if !decodeObject(w, r, &req) || !validate(w, &req) {
		return
	}

	caller := callerID(r)
	if caller == "" {
		middleware.Unauthorized(w, "Unauthorized")
		return
	}
	if req.OwnerUserID != caller {
		middleware.Forbidden(w, "owner_user_id must match the authenticated user")
		return
	}

	plan, err := h.store.CreatePlan(r.Context(), req)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to create plan")
		return
	}
	middleware.Created(w, models.PlanResponse{OK: true, Plan: plan})
}
