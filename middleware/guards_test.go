// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/ankor-api/auth"
	"github.com/danielhkuo/ankor-api/middleware"
	"github.com/danielhkuo/ankor-api/models"
	"github.com/danielhkuo/ankor-api/testutil"
)

// runGuards serves r through guards and returns the recorder plus the
// Context the handler saw, or nil when a guard rejected
func runGuards(r *http.Request, guards ...middleware.Guard) (*httptest.ResponseRecorder, *middleware.Context) {
	var seen *middleware.Context
	h := middleware.Chain(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.RequestContext(r)
		w.WriteHeader(http.StatusNoContent)
	}, guards...)
	w := httptest.NewRecorder()
	h(w, r)
	return w, seen
}

func newVerifier() *testutil.Verifier {
	return &testutil.Verifier{Tokens: map[string]auth.User{
		"coach-token": {ID: testutil.UserID, Email: "coach@example.com"},
	}}
}

func TestAuthGuard(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		verifier   *testutil.Verifier
		wantStatus int
		wantError  string
	}{
		{"missing header", "", newVerifier(), http.StatusUnauthorized, "Missing bearer token"},
		{"not bearer", "Basic abc", newVerifier(), http.StatusUnauthorized, "Missing bearer token"},
		{"unconfigured", "Bearer coach-token", &testutil.Verifier{Unconfigured: true}, http.StatusUnauthorized, "Auth client not configured"},
		{"verifier not configured", "Bearer coach-token", &testutil.Verifier{Err: auth.ErrNotConfigured}, http.StatusUnauthorized, "Auth client not configured"},
		{"unknown token", "Bearer nope", newVerifier(), http.StatusUnauthorized, "Invalid or expired token"},
		{"verifier failure", "Bearer coach-token", &testutil.Verifier{Err: testutil.ErrBoom}, http.StatusUnauthorized, "Invalid or expired token"},
		{"valid", "Bearer coach-token", newVerifier(), http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := middleware.NewGuards(tt.verifier, testutil.NewMemberships())
			req := testutil.NewRequest(t, "GET", "/drills/list", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w, c := runGuards(req, g.Auth())

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, testutil.ErrorMessage(t, w))
				return
			}
			require.NotNil(t, c)
			assert.Equal(t, testutil.UserID, c.UserID())
		})
	}
}

func TestAuthGuard_NilVerifier(t *testing.T) {
	g := middleware.NewGuards(nil, testutil.NewMemberships())
	req := testutil.NewRequest(t, "GET", "/", nil)
	req.Header.Set("Authorization", "Bearer x")

	w, _ := runGuards(req, g.Auth())

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Auth client not configured", testutil.ErrorMessage(t, w))
}

func TestOrgFromQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		role       string
		storeErr   error
		wantStatus int
		wantError  string
	}{
		{"missing org", "", "coach", nil, http.StatusBadRequest, "org_id (UUID) is required"},
		{"bad org", "?org_id=nope", "coach", nil, http.StatusBadRequest, "org_id (UUID) is required"},
		{"not a member", "?org_id=" + testutil.OrgID, "", nil, http.StatusForbidden, "No access to this organization"},
		{"unknown role", "?org_id=" + testutil.OrgID, "janitor", nil, http.StatusForbidden, "No access to this organization"},
		{"wrong role", "?org_id=" + testutil.OrgID, "athlete", nil, http.StatusForbidden, "Insufficient role for this action"},
		{"store failure", "?org_id=" + testutil.OrgID, "coach", testutil.ErrBoom, http.StatusInternalServerError, "Failed to verify organization access"},
		{"coach", "?org_id=" + testutil.OrgID, "coach", nil, http.StatusNoContent, ""},
		{"owner bypasses role list", "?org_id=" + testutil.OrgID, "owner", nil, http.StatusNoContent, ""},
		{"admin bypasses role list", "?org_id=" + testutil.OrgID, "admin", nil, http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMemberships()
			if tt.role != "" {
				store.Grant(testutil.OrgID, testutil.UserID, tt.role)
			}
			store.Err = tt.storeErr
			g := middleware.NewGuards(newVerifier(), store)

			req := testutil.NewRequest(t, "GET", "/teams/list"+tt.query, nil)
			req = testutil.WithContext(req, nil, testutil.AsUser(testutil.UserID))

			w, c := runGuards(req, g.OrgFromQuery("org_id", auth.RoleCoach))

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, testutil.ErrorMessage(t, w))
				return
			}
			assert.Equal(t, testutil.OrgID, c.OrgID)
			assert.Equal(t, auth.Role(tt.role), c.OrgRole)
		})
	}
}

func TestOrgFromQuery_RequiresUser(t *testing.T) {
	g := middleware.NewGuards(newVerifier(), testutil.NewMemberships())
	req := testutil.NewRequest(t, "GET", "/teams/list?org_id="+testutil.OrgID, nil)

	w, _ := runGuards(req, g.OrgFromQuery("org_id", auth.RoleCoach))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", testutil.ErrorMessage(t, w))
}

func TestOrgFromBody(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		opts       middleware.BodyOrgOptions
		wantStatus int
		wantError  string
		wantOrg    string
	}{
		{"invalid json", "{", middleware.BodyOrgOptions{}, http.StatusBadRequest, "Invalid JSON payload", ""},
		{"array body", "[]", middleware.BodyOrgOptions{}, http.StatusBadRequest, "Invalid JSON payload", ""},
		{"empty body", nil, middleware.BodyOrgOptions{}, http.StatusBadRequest, "Invalid JSON payload", ""},
		{"missing org", map[string]string{"name": "x"}, middleware.BodyOrgOptions{}, http.StatusBadRequest, "org_id (UUID) is required", ""},
		{"null org", `{"org_id": null}`, middleware.BodyOrgOptions{}, http.StatusBadRequest, "org_id (UUID) is required", ""},
		{"numeric org", `{"org_id": 7}`, middleware.BodyOrgOptions{}, http.StatusBadRequest, "org_id (UUID) is required", ""},
		{"optional org absent", map[string]string{"name": "x"}, middleware.BodyOrgOptions{Optional: true}, http.StatusNoContent, "", ""},
		{"null allowed", `{"org_id": null}`, middleware.BodyOrgOptions{AllowNull: true}, http.StatusNoContent, "", ""},
		{"member", map[string]string{"org_id": testutil.OrgID}, middleware.BodyOrgOptions{}, http.StatusNoContent, "", testutil.OrgID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMemberships().Grant(testutil.OrgID, testutil.UserID, "coach")
			g := middleware.NewGuards(newVerifier(), store)

			req := testutil.NewRequest(t, "POST", "/drills", tt.body)
			req = testutil.WithContext(req, nil, testutil.AsUser(testutil.UserID))

			w, c := runGuards(req, g.OrgFromBody("org_id", tt.opts, auth.RoleCoach))

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, testutil.ErrorMessage(t, w))
				return
			}
			assert.Equal(t, tt.wantOrg, c.OrgID)
		})
	}
}

func TestOrgFromBody_BodyStillReadable(t *testing.T) {
	store := testutil.NewMemberships().Grant(testutil.OrgID, testutil.UserID, "coach")
	g := middleware.NewGuards(newVerifier(), store)

	req := testutil.NewRequest(t, "POST", "/drills", map[string]string{"org_id": testutil.OrgID, "name": "Box jumps"})
	req = testutil.WithContext(req, nil, testutil.AsUser(testutil.UserID))

	var got struct {
		Name string `json:"name"`
	}
	h := middleware.Chain(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, middleware.ParseJSONBody(r, &got))
		w.WriteHeader(http.StatusNoContent)
	}, g.OrgFromBody("org_id", middleware.BodyOrgOptions{}, auth.RoleCoach))
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "Box jumps", got.Name)
}

func TestEvaluationBulkOrg(t *testing.T) {
	other := "66666666-6666-4666-8666-666666666666"
	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantError  string
	}{
		{"not an object", "[]", http.StatusBadRequest, "Body must contain an 'evaluations' array."},
		{"missing array", map[string]string{}, http.StatusBadRequest, "Body must contain an 'evaluations' array."},
		{"empty array", map[string]interface{}{"evaluations": []interface{}{}}, http.StatusBadRequest, "Body must contain an 'evaluations' array."},
		{"no org", map[string]interface{}{"evaluations": []interface{}{map[string]string{"athlete_id": testutil.EntityID}}},
			http.StatusBadRequest, "All evaluations must share the same org_id."},
		{"mixed orgs", map[string]interface{}{"evaluations": []interface{}{
			map[string]string{"org_id": testutil.OrgID},
			map[string]string{"org_id": other},
		}}, http.StatusBadRequest, "All evaluations must share the same org_id."},
		{"bad uuid", map[string]interface{}{"evaluations": []interface{}{map[string]string{"org_id": "abc"}}},
			http.StatusBadRequest, "org_id (UUID) is required"},
		{"same org", map[string]interface{}{"evaluations": []interface{}{
			map[string]string{"org_id": testutil.OrgID},
			map[string]string{"org_id": " " + testutil.OrgID + " "},
		}}, http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMemberships().Grant(testutil.OrgID, testutil.UserID, "coach")
			g := middleware.NewGuards(newVerifier(), store)

			req := testutil.NewRequest(t, "POST", "/evaluations/bulk-create", tt.body)
			req = testutil.WithContext(req, nil, testutil.AsUser(testutil.UserID))

			w, c := runGuards(req, g.EvaluationBulkOrg(auth.RoleCoach))

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, testutil.ErrorMessage(t, w))
				return
			}
			assert.Equal(t, testutil.OrgID, c.OrgID)
		})
	}
}

func TestUserQuery(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		allowMissing bool
		wantStatus   int
		wantError    string
	}{
		{"missing allowed", "", true, http.StatusNoContent, ""},
		{"missing required", "", false, http.StatusBadRequest, "user_id (UUID) is required"},
		{"not a uuid", "?user_id=me", true, http.StatusBadRequest, "user_id (UUID) is required"},
		{"someone else", "?user_id=" + testutil.OtherID, true, http.StatusForbidden, "Forbidden"},
		{"self", "?user_id=" + testutil.UserID, false, http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := middleware.NewGuards(newVerifier(), testutil.NewMemberships())
			req := testutil.NewRequest(t, "GET", "/plans/list"+tt.query, nil)
			req = testutil.WithContext(req, nil, testutil.AsUser(testutil.UserID))

			w, _ := runGuards(req, g.UserQuery("user_id", tt.allowMissing))

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, testutil.ErrorMessage(t, w))
			}
		})
	}
}

func TestPlanGuards(t *testing.T) {
	otherOrg := "66666666-6666-4666-8666-666666666666"

	tests := []struct {
		name       string
		write      bool
		plan       *models.PlanAccess
		member     bool
		role       string
		ctxOrg     string
		wantStatus int
		wantError  string
	}{
		{"missing plan", false, nil, false, "", "", http.StatusNotFound, "Plan not found"},
		{"owner reads", false, &models.PlanAccess{ID: testutil.PlanID, OrgID: testutil.OrgID, OwnerUserID: testutil.UserID},
			false, "", "", http.StatusNoContent, ""},
		{"owner writes", true, &models.PlanAccess{ID: testutil.PlanID, OwnerUserID: testutil.UserID},
			false, "", "", http.StatusNoContent, ""},
		{"member reads", false, &models.PlanAccess{ID: testutil.PlanID, OrgID: testutil.OrgID, OwnerUserID: testutil.OtherID},
			true, "athlete", "", http.StatusNoContent, ""},
		{"member cannot write", true, &models.PlanAccess{ID: testutil.PlanID, OrgID: testutil.OrgID, OwnerUserID: testutil.OtherID},
			true, "athlete", "", http.StatusForbidden, "Insufficient role for this action"},
		{"org coach writes", true, &models.PlanAccess{ID: testutil.PlanID, OrgID: testutil.OrgID, OwnerUserID: testutil.OtherID},
			false, "coach", "", http.StatusNoContent, ""},
		{"outsider without org", false, &models.PlanAccess{ID: testutil.PlanID, OwnerUserID: testutil.OtherID},
			false, "", "", http.StatusForbidden, "Forbidden"},
		{"org mismatch", false, &models.PlanAccess{ID: testutil.PlanID, OrgID: otherOrg, OwnerUserID: testutil.UserID},
			false, "", testutil.OrgID, http.StatusForbidden, "Forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMemberships()
			if tt.plan != nil {
				store.Plans[testutil.PlanID] = tt.plan
			}
			if tt.member {
				store.Members[testutil.PlanID+"/"+testutil.UserID] = true
			}
			if tt.role != "" {
				store.Grant(testutil.OrgID, testutil.UserID, tt.role)
			}
			g := middleware.NewGuards(newVerifier(), store)

			guard := g.PlanRead()
			if tt.write {
				guard = g.PlanWrite()
			}

			opts := []testutil.RequestOption{testutil.AsUser(testutil.UserID)}
			if tt.ctxOrg != "" {
				opts = append(opts, testutil.InOrg(tt.ctxOrg, auth.RoleCoach))
			}
			req := testutil.NewRequest(t, "GET", "/plans/"+testutil.PlanID, nil)
			req = testutil.WithContext(req, map[string]string{"id": testutil.PlanID}, opts...)

			w, _ := runGuards(req, guard)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, testutil.ErrorMessage(t, w))
			}
		})
	}
}

func TestPlanGuards_BadID(t *testing.T) {
	g := middleware.NewGuards(newVerifier(), testutil.NewMemberships())
	req := testutil.NewRequest(t, "GET", "/plans/abc", nil)
	req = testutil.WithContext(req, map[string]string{"id": "abc"}, testutil.AsUser(testutil.UserID))

	w, _ := runGuards(req, g.PlanRead())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "id (UUID) is required", testutil.ErrorMessage(t, w))
}

func TestPlanGuards_StoreFailure(t *testing.T) {
	store := testutil.NewMemberships()
	store.Err = testutil.ErrBoom
	g := middleware.NewGuards(newVerifier(), store)
	req := testutil.NewRequest(t, "GET", "/plans/"+testutil.PlanID, nil)
	req = testutil.WithContext(req, map[string]string{"id": testutil.PlanID}, testutil.AsUser(testutil.UserID))

	w, _ := runGuards(req, g.PlanWrite())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to verify plan access", testutil.ErrorMessage(t, w))
}

func TestPlanCreate(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		role       string
		wantStatus int
		wantError  string
	}{
		{"invalid json", "nope", "", http.StatusBadRequest, "Invalid JSON payload"},
		{"no org", map[string]string{"name": "Tuesday"}, "", http.StatusNoContent, ""},
		{"null org", `{"org_id": null}`, "", http.StatusNoContent, ""},
		{"empty org", map[string]string{"org_id": ""}, "", http.StatusNoContent, ""},
		{"bad org", map[string]string{"org_id": "x"}, "coach", http.StatusBadRequest, "org_id (UUID) is required"},
		{"coach", map[string]string{"org_id": testutil.OrgID}, "coach", http.StatusNoContent, ""},
		{"athlete", map[string]string{"org_id": testutil.OrgID}, "athlete", http.StatusForbidden, "Insufficient role for this action"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMemberships()
			if tt.role != "" {
				store.Grant(testutil.OrgID, testutil.UserID, tt.role)
			}
			g := middleware.NewGuards(newVerifier(), store)
			req := testutil.NewRequest(t, "POST", "/plans", tt.body)
			req = testutil.WithContext(req, nil, testutil.AsUser(testutil.UserID))

			w, _ := runGuards(req, g.PlanCreate())

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, testutil.ErrorMessage(t, w))
			}
		})
	}
}
