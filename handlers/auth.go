// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/ankor-api/auth"
	"github.com/danielhkuo/ankor-api/db"
	"github.com/danielhkuo/ankor-api/logging"
	"github.com/danielhkuo/ankor-api/middleware"
	"github.com/danielhkuo/ankor-api/models"
	"github.com/danielhkuo/ankor-api/validation"
)

// UserAdmin creates and removes Supabase Auth users
type UserAdmin interface {
	CreateUser(ctx context.Context, p auth.CreateUserParams) (auth.User, error)
	DeleteUser(ctx context.Context, id string) error
	GetUser(ctx context.Context, id string) (auth.User, error)
}

type AuthStore interface {
	RegisterWithCode(ctx context.Context, role string, params map[string]interface{}) (map[string]interface{}, error)
	RegisterOrg(ctx context.Context, params map[string]interface{}) (*models.OrgSignupResult, error)
	Profile(ctx context.Context, userID string) (*models.Profile, error)
	AthleteEmail(ctx context.Context, orgID, userID string) (string, error)
	GuardianEmail(ctx context.Context, orgID, userID string) (string, error)
	CoachIDForUser(ctx context.Context, userID string) (string, error)
	AthleteIDForUser(ctx context.Context, userID string) (string, error)
}

type AuthHandler struct {
	store    AuthStore
	admin    UserAdmin
	verifier middleware.TokenVerifier
}

func NewAuthHandler(store AuthStore, admin UserAdmin, verifier middleware.TokenVerifier) *AuthHandler {
	return &AuthHandler{store: store, admin: admin, verifier: verifier}
}

// join code RPC exceptions, checked in order
var signupErrors = []struct {
	code    string
	message string
}{
	{"INVALID_JOIN_CODE", "Invalid or expired join code."},
	{"EXPIRED_OR_USED_JOIN_CODE", "Invalid or expired join code."},
	{"TERMS_REQUIRED", "You must accept the terms & conditions."},
	{"GRADUATION_YEAR_REQUIRED", "Graduation year is required."},
	{"POSITION_REQUIRED", "At least one position is required."},
	{"FIRST_NAME_REQUIRED", "First name is required."},
	{"LAST_NAME_REQUIRED", "Last name is required."},
	{"EMAIL_REQUIRED", "Valid email is required."},
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.BadRequest(w, "Invalid JSON payload")
		return
	}
	req.Normalize()
	if err := validation.Struct(&req); err != nil {
		middleware.BadRequest(w, err.Error())
		return
	}

	var positions []string
	if req.Role == models.SignupAthlete {
		for _, p := range req.Positions {
			p = models.NormalizePosition(p)
			if !models.AllowedPositions[p] {
				middleware.BadRequest(w, "Invalid position value(s).")
				return
			}
			positions = append(positions, p)
		}
	}

	meta := map[string]interface{}{
		"first_name":  req.FirstName,
		"last_name":   req.LastName,
		"username":    req.Username,
		"cell_number": req.CellNumber,
		"join_code":   req.JoinCode,
	}
	if req.Role == models.SignupAthlete {
		meta["graduation_year"] = req.GraduationYear.IntPtr()
		meta["positions"] = req.Positions
	}

	ctx := r.Context()
	user, err := h.admin.CreateUser(ctx, auth.CreateUserParams{
		Email:        req.Email,
		Password:     req.Password,
		EmailConfirm: true,
		UserMetadata: meta,
		AppMetadata:  map[string]interface{}{"role": req.Role},
	})
	if err != nil {
		switch {
		case auth.IsAlreadyRegistered(err):
			middleware.Conflict(w, "Email already registered")
		case errors.Is(err, auth.ErrUserNotReturned):
			middleware.ErrorResponse(w, http.StatusInternalServerError, "User was not returned by Supabase")
		default:
			logging.Ctx(ctx).Error().Err(err).Msg("failed to create auth user")
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create user: "+auth.ErrorMessage(err))
		}
		return
	}

	params := map[string]interface{}{
		"p_user_id":        user.ID,
		"p_code":           req.JoinCode,
		"p_first_name":     req.FirstName,
		"p_last_name":      req.LastName,
		"p_email":          req.Email,
		"p_cell_number":    req.CellNumber,
		"p_terms_accepted": true,
	}
	if req.Role == models.SignupAthlete {
		params["p_graduation_year"] = req.GraduationYear.IntPtr()
		params["p_positions"] = positions
	}

	row, err := h.store.RegisterWithCode(ctx, req.Role, params)
	if err != nil {
		h.rollbackUser(ctx, user.ID)
		for _, e := range signupErrors {
			if strings.Contains(err.Error(), e.code) {
				middleware.BadRequest(w, e.message)
				return
			}
		}
		logging.Ctx(ctx).Error().Err(err).Str("role", req.Role).Msg("signup transaction failed")
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Signup failed: "+err.Error())
		return
	}

	resp := map[string]interface{}{}
	for k, v := range row {
		resp[k] = v
	}
	resp["ok"] = true
	resp["user_id"] = user.ID
	resp["role"] = req.Role
	resp["message"] = "Welcome to ANKOR!"

	logging.Ctx(ctx).Info().Str("user_id", user.ID).Str("role", req.Role).Msg("user signed up")
	middleware.Created(w, resp)
}

// rollbackUser removes an auth user whose database records could not be created
func (h *AuthHandler) rollbackUser(ctx context.Context, userID string) {
	if err := h.admin.DeleteUser(context.WithoutCancel(ctx), userID); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("user_id", userID).Msg("failed to roll back auth user")
	}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := middleware.ParseJSONBody(r, &body); err != nil || body == nil {
		middleware.BadRequest(w, "Invalid JSON body")
		return
	}

	var userID string
	for _, key := range []string{"user_id", "userId", "userid"} {
		var s string
		if err := json.Unmarshal(body[key], &s); err == nil {
			userID = strings.TrimSpace(s)
			break
		}
	}
	if !validation.IsUUID(userID) {
		middleware.BadRequest(w, "Invalid UUID")
		return
	}

	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		middleware.Unauthorized(w, "Missing bearer token")
		return
	}
	if h.verifier == nil || !h.verifier.Configured() {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Auth client not configured")
		return
	}

	ctx := r.Context()
	caller, err := h.verifier.Verify(ctx, token)
	if err != nil {
		middleware.Unauthorized(w, "Invalid or expired token")
		return
	}
	if caller.ID != userID {
		middleware.Unauthorized(w, "Token does not match user")
		return
	}

	profile, err := h.store.Profile(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		middleware.NotFound(w, "Profile not found")
		return
	}
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to load profile")
		return
	}

	profileUserID := strings.TrimSpace(profile.ID)
	role := profile.Role

	if orgID := strings.TrimSpace(deref(profile.DefaultOrgID)); orgID != "" && profileUserID != "" {
		var athleteEmail, guardianEmail string
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			athleteEmail, err = h.store.AthleteEmail(gctx, orgID, profileUserID)
			return err
		})
		g.Go(func() error {
			var err error
			guardianEmail, err = h.store.GuardianEmail(gctx, orgID, profileUserID)
			return err
		})
		if err := g.Wait(); err != nil {
			middleware.InternalError(w, r, err, "Failed to load profile")
			return
		}

		athleteEmail = strings.ToLower(strings.TrimSpace(athleteEmail))
		guardianEmail = strings.ToLower(strings.TrimSpace(guardianEmail))
		if athleteEmail != "" && athleteEmail == guardianEmail {
			parent := models.SignupParent
			role = &parent
		}
	}

	user := models.LoginUser{
		ID:           profile.ID,
		FullName:     profile.FullName,
		Email:        profile.Email,
		Role:         role,
		DefaultOrgID: profile.DefaultOrgID,
	}

	if profileUserID != "" {
		switch deref(role) {
		case "coach":
			id, err := h.store.CoachIDForUser(ctx, profileUserID)
			if err != nil {
				middleware.InternalError(w, r, err, "Failed to load coach")
				return
			}
			user.CoachID = optional(id)
		case "athlete":
			id, err := h.store.AthleteIDForUser(ctx, profileUserID)
			if err != nil {
				middleware.InternalError(w, r, err, "Failed to load athlete")
				return
			}
			user.AthleteID = optional(id)
		}
	}

	middleware.OK(w, models.LoginResponse{OK: true, User: user})
}

// OrgSignup handles POST /org/signup
func (h *AuthHandler) OrgSignup(w http.ResponseWriter, r *http.Request) {
	var req models.OrgSignupRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.BadRequest(w, "Invalid JSON body")
		return
	}

	a := req.Admin
	if a.FirstName == "" || a.LastName == "" || a.Email == "" || a.Password == "" {
		middleware.BadRequest(w, "Missing admin fields")
		return
	}
	org := req.Organization
	switch {
	case org.Name == "":
		middleware.BadRequest(w, "Invalid organization data")
		return
	case org.ProgramGender != "girls" && org.ProgramGender != "boys" && org.ProgramGender != "coed":
		middleware.BadRequest(w, "Invalid organization data")
		return
	}

	ctx := r.Context()
	user, err := h.admin.CreateUser(ctx, auth.CreateUserParams{
		Email:        a.Email,
		Password:     a.Password,
		EmailConfirm: true,
		UserMetadata: map[string]interface{}{
			"first_name": a.FirstName,
			"last_name":  a.LastName,
			"role":       "admin",
		},
	})
	if err != nil {
		middleware.BadRequest(w, "Could not create user: "+auth.ErrorMessage(err))
		return
	}

	teamNames := []string{}
	for _, t := range req.Teams {
		if name := strings.TrimSpace(t.Name); name != "" {
			teamNames = append(teamNames, name)
		}
	}

	result, err := h.store.RegisterOrg(ctx, map[string]interface{}{
		"p_user_id":        user.ID,
		"p_first_name":     a.FirstName,
		"p_last_name":      a.LastName,
		"p_email":          a.Email,
		"p_phone":          a.Phone,
		"p_org_name":       org.Name,
		"p_program_gender": org.ProgramGender,
		"p_team_names":     teamNames,
	})
	if err != nil {
		h.rollbackUser(ctx, user.ID)
		logging.Ctx(ctx).Error().Err(err).Msg("org signup transaction failed")
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Signup failed: "+err.Error())
		return
	}

	teamIDs := result.TeamIDs
	if teamIDs == nil {
		teamIDs = []string{}
	}

	logging.Ctx(ctx).Info().Str("org_id", result.OrgID).Str("user_id", user.ID).Msg("organization registered")
	middleware.Created(w, models.OrgSignupResponse{
		OK:        true,
		UserID:    user.ID,
		OrgID:     result.OrgID,
		ProfileID: result.ProfileID,
		TeamIDs:   teamIDs,
	})
}
