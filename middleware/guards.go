// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/danielhkuo/ankor-api/auth"
	"github.com/danielhkuo/ankor-api/logging"
	"github.com/danielhkuo/ankor-api/metrics"
	"github.com/danielhkuo/ankor-api/models"
	"github.com/danielhkuo/ankor-api/validation"
)

// Reject stops a guard chain with a status and message
type Reject struct {
	Status  int
	Message string
}

// Guard inspects a request before its handler runs. A nil Reject lets the
// request continue; guards may annotate c.
type Guard func(r *http.Request, c *Context) *Reject

func reject(status int, message string) *Reject {
	return &Reject{Status: status, Message: message}
}

// Chain runs guards in order and calls h only if none of them rejects
func Chain(h http.HandlerFunc, guards ...Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := RequestContext(r)
		if c == nil {
			r, c = NewContext(r, nil)
		}
		for _, g := range guards {
			if rej := g(r, c); rej != nil {
				metrics.GuardRejections.WithLabelValues(strconv.Itoa(rej.Status)).Inc()
				ErrorResponse(w, rej.Status, rej.Message)
				return
			}
		}
		h(w, r)
	}
}

// TokenVerifier checks bearer tokens
type TokenVerifier interface {
	Configured() bool
	Verify(ctx context.Context, token string) (auth.User, error)
}

// MembershipStore answers the access questions guards ask
type MembershipStore interface {
	OrgRole(ctx context.Context, orgID, userID string) (string, error)
	PlanAccess(ctx context.Context, planID string) (*models.PlanAccess, error)
	IsPlanMember(ctx context.Context, planID, userID string) (bool, error)
}

// BodyOrgOptions relaxes OrgFromBody for bodies where the org is optional
type BodyOrgOptions struct {
	AllowNull bool
	Optional  bool
}

// Guards builds route guards around a verifier and a membership store
type Guards struct {
	verifier TokenVerifier
	store    MembershipStore
}

func NewGuards(verifier TokenVerifier, store MembershipStore) *Guards {
	return &Guards{verifier: verifier, store: store}
}

// Auth requires a valid bearer token and records the caller
func (g *Guards) Auth() Guard {
	return func(r *http.Request, c *Context) *Reject {
		if c.User != nil {
			return nil
		}
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			return reject(http.StatusUnauthorized, "Missing bearer token")
		}
		if g.verifier == nil || !g.verifier.Configured() {
			return reject(http.StatusUnauthorized, "Auth client not configured")
		}
		user, err := g.verifier.Verify(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrNotConfigured) {
				return reject(http.StatusUnauthorized, "Auth client not configured")
			}
			if !errors.Is(err, auth.ErrInvalidToken) {
				logging.Ctx(r.Context()).Warn().Err(err).Msg("token verification failed")
			}
			return reject(http.StatusUnauthorized, "Invalid or expired token")
		}
		c.User = &user
		return nil
	}
}

// requireOrgRole resolves the caller's role in orgID and checks it against roles
func (g *Guards) requireOrgRole(r *http.Request, c *Context, orgID string, roles []auth.Role) *Reject {
	if c.User == nil {
		return reject(http.StatusUnauthorized, "Unauthorized")
	}

	raw, err := g.store.OrgRole(r.Context(), orgID, c.User.ID)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("org_id", orgID).Msg("failed to load org role")
		return reject(http.StatusInternalServerError, "Failed to verify organization access")
	}
	role, ok := auth.ParseRole(raw)
	if !ok {
		return reject(http.StatusForbidden, "No access to this organization")
	}
	if !role.Allows(roles...) {
		return reject(http.StatusForbidden, "Insufficient role for this action")
	}

	c.OrgID = orgID
	c.OrgRole = role
	return nil
}

// OrgFromQuery takes the organization from a query parameter
func (g *Guards) OrgFromQuery(param string, roles ...auth.Role) Guard {
	return func(r *http.Request, c *Context) *Reject {
		orgID := strings.TrimSpace(r.URL.Query().Get(param))
		if !validation.IsUUID(orgID) {
			return reject(http.StatusBadRequest, param+" (UUID) is required")
		}
		return g.requireOrgRole(r, c, orgID, roles)
	}
}

// OrgFromBody takes the organization from a top-level body field
func (g *Guards) OrgFromBody(key string, opts BodyOrgOptions, roles ...auth.Role) Guard {
	return func(r *http.Request, c *Context) *Reject {
		obj, err := c.BodyObject()
		if err != nil {
			return reject(http.StatusBadRequest, "Invalid JSON payload")
		}

		raw, present := obj[key]
		if !present || IsNull(raw) {
			if opts.AllowNull || opts.Optional {
				return nil
			}
			return reject(http.StatusBadRequest, key+" (UUID) is required")
		}

		var orgID string
		if err := json.Unmarshal(raw, &orgID); err != nil || !validation.IsUUID(orgID) {
			return reject(http.StatusBadRequest, key+" (UUID) is required")
		}
		return g.requireOrgRole(r, c, orgID, roles)
	}
}

// EvaluationBulkOrg requires every evaluation in a bulk body to name the same org
func (g *Guards) EvaluationBulkOrg(roles ...auth.Role) Guard {
	const missing = "Body must contain an 'evaluations' array."

	return func(r *http.Request, c *Context) *Reject {
		obj, err := c.BodyObject()
		if err != nil {
			return reject(http.StatusBadRequest, missing)
		}
		var items []json.RawMessage
		if err := json.Unmarshal(obj["evaluations"], &items); err != nil || len(items) == 0 {
			return reject(http.StatusBadRequest, missing)
		}

		orgIDs := map[string]struct{}{}
		for _, item := range items {
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(item, &fields); err != nil {
				continue
			}
			var orgID string
			if err := json.Unmarshal(fields["org_id"], &orgID); err != nil {
				continue
			}
			if orgID = strings.TrimSpace(orgID); orgID != "" {
				orgIDs[orgID] = struct{}{}
			}
		}
		if len(orgIDs) != 1 {
			return reject(http.StatusBadRequest, "All evaluations must share the same org_id.")
		}

		var orgID string
		for id := range orgIDs {
			orgID = id
		}
		if !validation.IsUUID(orgID) {
			return reject(http.StatusBadRequest, "org_id (UUID) is required")
		}
		return g.requireOrgRole(r, c, orgID, roles)
	}
}

// UserQuery requires a query parameter naming the caller
func (g *Guards) UserQuery(param string, allowMissing bool) Guard {
	return func(r *http.Request, c *Context) *Reject {
		userID := strings.TrimSpace(r.URL.Query().Get(param))
		if userID == "" {
			if allowMissing {
				return nil
			}
			return reject(http.StatusBadRequest, param+" (UUID) is required")
		}
		if !validation.IsUUID(userID) {
			return reject(http.StatusBadRequest, param+" (UUID) is required")
		}
		if c.User == nil {
			return reject(http.StatusUnauthorized, "Unauthorized")
		}
		if userID != c.User.ID {
			return reject(http.StatusForbidden, "Forbidden")
		}
		return nil
	}
}

// PlanRead admits the owner, plan members and coaches of the plan's org
func (g *Guards) PlanRead() Guard {
	return g.planGuard(true)
}

// PlanWrite admits the owner and coaches of the plan's org
func (g *Guards) PlanWrite() Guard {
	return g.planGuard(false)
}

func (g *Guards) planGuard(allowMembers bool) Guard {
	return func(r *http.Request, c *Context) *Reject {
		planID := c.Param("id")
		if !validation.IsUUID(planID) {
			return reject(http.StatusBadRequest, "id (UUID) is required")
		}
		if c.User == nil {
			return reject(http.StatusUnauthorized, "Unauthorized")
		}

		plan, err := g.store.PlanAccess(r.Context(), planID)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Str("plan_id", planID).Msg("failed to load plan access")
			return reject(http.StatusInternalServerError, "Failed to verify plan access")
		}
		if plan == nil {
			return reject(http.StatusNotFound, "Plan not found")
		}

		if c.OrgID != "" && plan.OrgID != "" && c.OrgID != plan.OrgID {
			return reject(http.StatusForbidden, "Forbidden")
		}
		if plan.OwnerUserID == c.User.ID {
			return nil
		}

		if allowMembers {
			member, err := g.store.IsPlanMember(r.Context(), planID, c.User.ID)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Str("plan_id", planID).Msg("failed to check plan membership")
				return reject(http.StatusInternalServerError, "Failed to verify plan access")
			}
			if member {
				return nil
			}
		}

		if plan.OrgID != "" {
			return g.requireOrgRole(r, c, plan.OrgID, []auth.Role{auth.RoleCoach})
		}
		return reject(http.StatusForbidden, "Forbidden")
	}
}

// PlanCreate checks coach access when a new plan names an organization
func (g *Guards) PlanCreate() Guard {
	return func(r *http.Request, c *Context) *Reject {
		obj, err := c.BodyObject()
		if err != nil {
			return reject(http.StatusBadRequest, "Invalid JSON payload")
		}

		raw := obj["org_id"]
		if IsNull(raw) {
			return nil
		}
		var orgID string
		if err := json.Unmarshal(raw, &orgID); err != nil {
			return reject(http.StatusBadRequest, "org_id (UUID) is required")
		}
		if orgID == "" {
			return nil
		}
		if !validation.IsUUID(orgID) {
			return reject(http.StatusBadRequest, "org_id (UUID) is required")
		}
		return g.requireOrgRole(r, c, orgID, []auth.Role{auth.RoleCoach})
	}
}
