// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/ankor-api/auth"
	"github.com/danielhkuo/ankor-api/db"
	"github.com/danielhkuo/ankor-api/models"
	"github.com/danielhkuo/ankor-api/testutil"
)

type fakeAuthStore struct {
	mu sync.Mutex

	registerErr error
	role        string
	params      map[string]interface{}

	profile       *models.Profile
	profileErr    error
	athleteEmail  string
	guardianEmail string
	coachID       string
	athleteID     string
	lookups       []string
}

func (s *fakeAuthStore) RegisterWithCode(_ context.Context, role string, params map[string]interface{}) (map[string]interface{}, error) {
	s.role = role
	s.params = params
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return map[string]interface{}{"profile_id": testutil.EntityID, "org_id": testutil.OrgID}, nil
}

func (s *fakeAuthStore) RegisterOrg(_ context.Context, params map[string]interface{}) (*models.OrgSignupResult, error) {
	s.params = params
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &models.OrgSignupResult{OrgID: testutil.OrgID, ProfileID: testutil.EntityID}, nil
}

func (s *fakeAuthStore) Profile(context.Context, string) (*models.Profile, error) {
	return s.profile, s.profileErr
}

func (s *fakeAuthStore) AthleteEmail(context.Context, string, string) (string, error) {
	return s.athleteEmail, nil
}

func (s *fakeAuthStore) GuardianEmail(context.Context, string, string) (string, error) {
	return s.guardianEmail, nil
}

func (s *fakeAuthStore) CoachIDForUser(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, "coach "+userID)
	return s.coachID, nil
}

func (s *fakeAuthStore) AthleteIDForUser(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, "athlete "+userID)
	return s.athleteID, nil
}

func signupBody(role string) map[string]interface{} {
	b := map[string]interface{}{
		"role":          role,
		"joinCode":      " TEAM42 ",
		"email":         "sam@example.com",
		"password":      "hunter2hunter2",
		"firstName":     "Sam",
		"lastName":      "Lee",
		"termsAccepted": true,
	}
	if role == models.SignupAthlete {
		b["graduationYear"] = "2027"
		b["positions"] = []string{" Mid Field ", "goalie"}
	}
	return b
}

func TestSignup(t *testing.T) {
	with := func(role, k string, v interface{}) map[string]interface{} {
		b := signupBody(role)
		b[k] = v
		return b
	}

	tests := []struct {
		name        string
		body        interface{}
		createErr   error
		registerErr error
		wantStatus  int
		wantError   string
		wantDeleted bool
	}{
		{"invalid json", "{", nil, nil, http.StatusBadRequest, "Invalid JSON payload", false},
		{"short password", with("coach", "password", "short"), nil, nil, http.StatusBadRequest, "Password must be at least 8 characters", false},
		{"bad role", with("coach", "role", "owner"), nil, nil, http.StatusBadRequest, "role must be one of: athlete, coach, parent", false},
		{"terms not accepted", with("coach", "termsAccepted", false), nil, nil, http.StatusBadRequest, "termsAccepted must be true", false},
		{"athlete without year", with("athlete", "graduationYear", nil), nil, nil, http.StatusBadRequest, "graduationYear is required", false},
		{"bad position", with("athlete", "positions", []string{"pitcher"}), nil, nil, http.StatusBadRequest, "Invalid position value(s).", false},
		{"email taken", signupBody("coach"), errors.New("A user with this email address has already been registered"), nil,
			http.StatusConflict, "Email already registered", false},
		{"no user returned", signupBody("coach"), auth.ErrUserNotReturned, nil,
			http.StatusInternalServerError, "User was not returned by Supabase", false},
		{"auth failure", signupBody("coach"), testutil.ErrBoom, nil,
			http.StatusInternalServerError, "Failed to create user: boom", false},
		{"bad join code", signupBody("coach"), nil, errors.New("pq: INVALID_JOIN_CODE"),
			http.StatusBadRequest, "Invalid or expired join code.", true},
		{"terms rpc error", signupBody("parent"), nil, errors.New("TERMS_REQUIRED"),
			http.StatusBadRequest, "You must accept the terms & conditions.", true},
		{"unknown rpc error", signupBody("coach"), nil, errors.New("connection reset"),
			http.StatusInternalServerError, "Signup failed: connection reset", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admin := testutil.NewUserAdmin()
			admin.CreateErr = tt.createErr
			store := &fakeAuthStore{registerErr: tt.registerErr}
			h := NewAuthHandler(store, admin, &testutil.Verifier{})

			w := testutil.Serve(h.Signup, testutil.NewRequest(t, "POST", "/auth/signup", tt.body))

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantError, testutil.ErrorMessage(t, w))
			if tt.wantDeleted {
				assert.Equal(t, []string{testutil.EntityID}, admin.Deleted)
			} else {
				assert.Empty(t, admin.Deleted)
			}
		})
	}
}

func TestSignup_Athlete(t *testing.T) {
	admin := testutil.NewUserAdmin()
	store := &fakeAuthStore{}
	h := NewAuthHandler(store, admin, &testutil.Verifier{})

	w := testutil.Serve(h.Signup, testutil.NewRequest(t, "POST", "/auth/signup", signupBody("athlete")))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := testutil.DecodeJSON(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, testutil.EntityID, body["user_id"])
	assert.Equal(t, "athlete", body["role"])
	assert.Equal(t, "Welcome to ANKOR!", body["message"])
	assert.Equal(t, testutil.OrgID, body["org_id"])

	require.Len(t, admin.Created, 1)
	assert.True(t, admin.Created[0].EmailConfirm)
	assert.Equal(t, map[string]interface{}{"role": "athlete"}, admin.Created[0].AppMetadata)

	assert.Equal(t, "athlete", store.role)
	assert.Equal(t, "TEAM42", store.params["p_code"])
	assert.Equal(t, []string{"midfield", "goalie"}, store.params["p_positions"])
	year := store.params["p_graduation_year"].(*int)
	assert.Equal(t, 2027, *year)
}

func TestSignup_CoachSkipsAthleteFields(t *testing.T) {
	store := &fakeAuthStore{}
	h := NewAuthHandler(store, testutil.NewUserAdmin(), &testutil.Verifier{})

	w := testutil.Serve(h.Signup, testutil.NewRequest(t, "POST", "/auth/signup", signupBody("coach")))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, store.params, "p_positions")
	assert.NotContains(t, store.params, "p_graduation_year")
}

func loginRequest(t *testing.T, body interface{}, token string) *http.Request {
	req := testutil.NewRequest(t, "POST", "/auth/login", body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func strPtr(s string) *string { return &s }

func TestLogin_Errors(t *testing.T) {
	verifier := &testutil.Verifier{Tokens: map[string]auth.User{"t": {ID: testutil.UserID}}}

	tests := []struct {
		name       string
		body       interface{}
		token      string
		verifier   *testutil.Verifier
		store      *fakeAuthStore
		wantStatus int
		wantError  string
	}{
		{"not an object", "[]", "t", verifier, &fakeAuthStore{}, http.StatusBadRequest, "Invalid JSON body"},
		{"null body", "null", "t", verifier, &fakeAuthStore{}, http.StatusBadRequest, "Invalid JSON body"},
		{"bad uuid", map[string]string{"user_id": "me"}, "t", verifier, &fakeAuthStore{}, http.StatusBadRequest, "Invalid UUID"},
		{"no token", map[string]string{"user_id": testutil.UserID}, "", verifier, &fakeAuthStore{}, http.StatusUnauthorized, "Missing bearer token"},
		{"unconfigured", map[string]string{"user_id": testutil.UserID}, "t", &testutil.Verifier{Unconfigured: true}, &fakeAuthStore{},
			http.StatusInternalServerError, "Auth client not configured"},
		{"bad token", map[string]string{"user_id": testutil.UserID}, "x", verifier, &fakeAuthStore{}, http.StatusUnauthorized, "Invalid or expired token"},
		{"other user", map[string]string{"user_id": testutil.OtherID}, "t", verifier, &fakeAuthStore{}, http.StatusUnauthorized, "Token does not match user"},
		{"no profile", map[string]string{"userId": testutil.UserID}, "t", verifier, &fakeAuthStore{profileErr: db.ErrNotFound},
			http.StatusNotFound, "Profile not found"},
		{"profile failure", map[string]string{"userid": testutil.UserID}, "t", verifier, &fakeAuthStore{profileErr: testutil.ErrBoom},
			http.StatusInternalServerError, "Failed to load profile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(tt.store, testutil.NewUserAdmin(), tt.verifier)

			w := testutil.Serve(h.Login, loginRequest(t, tt.body, tt.token))

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantError, testutil.ErrorMessage(t, w))
		})
	}
}

func TestLogin_Roles(t *testing.T) {
	verifier := &testutil.Verifier{Tokens: map[string]auth.User{"t": {ID: testutil.UserID}}}
	profile := func(role string, org *string) *models.Profile {
		return &models.Profile{ID: testutil.UserID, Email: strPtr("sam@example.com"), Role: strPtr(role), DefaultOrgID: org}
	}

	tests := []struct {
		name        string
		store       *fakeAuthStore
		wantRole    string
		wantCoach   interface{}
		wantAthlete interface{}
		wantLookups []string
	}{
		{"coach", &fakeAuthStore{profile: profile("coach", nil), coachID: testutil.EntityID},
			"coach", testutil.EntityID, nil, []string{"coach " + testutil.UserID}},
		{"athlete without row", &fakeAuthStore{profile: profile("athlete", strPtr(testutil.OrgID)), athleteEmail: "a@example.com"},
			"athlete", nil, nil, []string{"athlete " + testutil.UserID}},
		{"athlete", &fakeAuthStore{profile: profile("athlete", nil), athleteID: testutil.EntityID},
			"athlete", nil, testutil.EntityID, []string{"athlete " + testutil.UserID}},
		{"guardian shares athlete email", &fakeAuthStore{
			profile:       profile("athlete", strPtr(testutil.OrgID)),
			athleteEmail:  " Kid@Example.com",
			guardianEmail: "kid@example.com ",
		}, "parent", nil, nil, nil},
		{"blank emails stay athlete", &fakeAuthStore{profile: profile("athlete", strPtr(testutil.OrgID)), athleteID: testutil.EntityID},
			"athlete", nil, testutil.EntityID, []string{"athlete " + testutil.UserID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(tt.store, testutil.NewUserAdmin(), verifier)

			w := testutil.Serve(h.Login, loginRequest(t, map[string]string{"user_id": testutil.UserID}, "t"))

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			user := testutil.DecodeJSON(t, w)["user"].(map[string]interface{})
			assert.Equal(t, tt.wantRole, user["role"])
			assert.Equal(t, tt.wantCoach, user["coach_id"])
			assert.Equal(t, tt.wantAthlete, user["athlete_id"])
			assert.Equal(t, tt.wantLookups, tt.store.lookups)
		})
	}
}

func orgSignupBody() map[string]interface{} {
	return map[string]interface{}{
		"admin": map[string]interface{}{
			"firstName": "Pat", "lastName": "Kim", "email": "pat@example.com", "password": "longpassword",
		},
		"organization": map[string]interface{}{"name": "Harbor LC", "programGender": "girls"},
		"teams":        []map[string]string{{"name": " Varsity "}, {"name": " "}, {"name": "JV"}},
	}
}

func TestOrgSignup(t *testing.T) {
	noPassword := orgSignupBody()
	noPassword["admin"].(map[string]interface{})["password"] = ""
	badGender := orgSignupBody()
	badGender["organization"] = map[string]interface{}{"name": "Harbor LC", "programGender": "mixed"}
	noName := orgSignupBody()
	noName["organization"] = map[string]interface{}{"programGender": "coed"}

	tests := []struct {
		name        string
		body        interface{}
		createErr   error
		registerErr error
		wantStatus  int
		wantError   string
	}{
		{"invalid json", "{", nil, nil, http.StatusBadRequest, "Invalid JSON body"},
		{"missing admin fields", noPassword, nil, nil, http.StatusBadRequest, "Missing admin fields"},
		{"bad gender", badGender, nil, nil, http.StatusBadRequest, "Invalid organization data"},
		{"no org name", noName, nil, nil, http.StatusBadRequest, "Invalid organization data"},
		{"auth failure", orgSignupBody(), errors.New("email exists"), nil, http.StatusBadRequest, "Could not create user: email exists"},
		{"rpc failure", orgSignupBody(), nil, errors.New("unique violation"), http.StatusInternalServerError, "Signup failed: unique violation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admin := testutil.NewUserAdmin()
			admin.CreateErr = tt.createErr
			h := NewAuthHandler(&fakeAuthStore{registerErr: tt.registerErr}, admin, &testutil.Verifier{})

			w := testutil.Serve(h.OrgSignup, testutil.NewRequest(t, "POST", "/org/signup", tt.body))

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantError, testutil.ErrorMessage(t, w))
			if tt.registerErr != nil {
				assert.Equal(t, []string{testutil.EntityID}, admin.Deleted)
			}
		})
	}
}

func TestOrgSignup_Created(t *testing.T) {
	admin := testutil.NewUserAdmin()
	store := &fakeAuthStore{}
	h := NewAuthHandler(store, admin, &testutil.Verifier{})

	w := testutil.Serve(h.OrgSignup, testutil.NewRequest(t, "POST", "/org/signup", orgSignupBody()))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"ok":true,"userId":"`+testutil.EntityID+`","orgId":"`+testutil.OrgID+`","profileId":"`+testutil.EntityID+`","teamIds":[]}`,
		w.Body.String())
	assert.Equal(t, []string{"Varsity", "JV"}, store.params["p_team_names"])
	assert.Equal(t, "admin", admin.Created[0].UserMetadata["role"])
	assert.Equal(t, "pat@example.com", store.params["p_email"])
}
