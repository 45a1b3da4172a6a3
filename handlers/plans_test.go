// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/ankor-api/auth"
	"github.com/danielhkuo/ankor-api/db"
	"github.com/danielhkuo/ankor-api/models"
	"github.com/danielhkuo/ankor-api/testutil"
)

type fakePlanStore struct {
	mu sync.Mutex

	plans      []models.Plan
	detail     *models.PlanDetail
	candidates *models.InviteCandidates
	err        error
	addErr     error

	filter    models.PlanFilter
	created   *models.CreatePlanRequest
	updated   *models.UpdatePlanRequest
	invitedBy string
	role      string
	invites   []models.PlanInvite
}

func (s *fakePlanStore) Plans(_ context.Context, f models.PlanFilter) ([]models.Plan, int, error) {
	s.filter = f
	return s.plans, len(s.plans), s.err
}

func (s *fakePlanStore) InvitedPlans(_ context.Context, userID string, limit, offset int) ([]models.InvitedPlan, int, error) {
	s.filter = models.PlanFilter{UserID: userID, Limit: limit, Offset: offset}
	return []models.InvitedPlan{{Plan: models.Plan{ID: testutil.PlanID}, MemberRole: "viewer"}}, 1, s.err
}

func (s *fakePlanStore) Plan(context.Context, string) (*models.PlanDetail, error) {
	return s.detail, s.err
}

func (s *fakePlanStore) CreatePlan(_ context.Context, req models.CreatePlanRequest) (*models.Plan, error) {
	s.created = &req
	if s.err != nil {
		return nil, s.err
	}
	return &models.Plan{ID: testutil.PlanID, OwnerUserID: req.OwnerUserID, Name: req.Name}, nil
}

func (s *fakePlanStore) UpdatePlan(_ context.Context, id string, req models.UpdatePlanRequest) (*models.Plan, error) {
	s.updated = &req
	if s.err != nil {
		return nil, s.err
	}
	return &models.Plan{ID: id}, nil
}

func (s *fakePlanStore) InviteCandidates(context.Context, string, string, []string) (*models.InviteCandidates, error) {
	return s.candidates, s.err
}

func (s *fakePlanStore) AddPlanMembers(_ context.Context, _, invitedBy, role string, invites []models.PlanInvite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invitedBy = invitedBy
	s.role = role
	s.invites = invites
	return s.addErr
}

func TestListPlans(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantError  string
		wantFilter models.PlanFilter
	}{
		{"missing type", "", http.StatusBadRequest, "type must be one of: prebuild, custom", models.PlanFilter{}},
		{"unknown type", "?type=shared", http.StatusBadRequest, "type must be one of: prebuild, custom", models.PlanFilter{}},
		{"bad user", "?type=prebuild&user_id=me", http.StatusBadRequest, "user_id must be a valid UUID", models.PlanFilter{}},
		{"custom needs user", "?type=custom", http.StatusBadRequest, "user_id (UUID) is required for type=custom", models.PlanFilter{}},
		{"prebuild", "?type=prebuild", http.StatusOK, "",
			models.PlanFilter{Type: "prebuild", Limit: 50}},
		{"custom clamps paging", "?type=custom&user_id=" + testutil.UserID + "&limit=1000&offset=-3", http.StatusOK, "",
			models.PlanFilter{Type: "custom", UserID: testutil.UserID, Limit: 200}},
		{"limit floor", "?type=prebuild&limit=0&offset=20", http.StatusOK, "",
			models.PlanFilter{Type: "prebuild", Limit: 1, Offset: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakePlanStore{plans: []models.Plan{{ID: testutil.PlanID}}}
			h := NewPlanHandler(store, testutil.NewUserAdmin())

			req := testutil.WithContext(testutil.NewRequest(t, "GET", "/plans/list"+tt.query, nil), nil,
				testutil.AsUser(testutil.UserID), testutil.InOrg(testutil.OrgID, auth.RoleCoach))
			w := testutil.Serve(h.ListPlans, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, testutil.ErrorMessage(t, w))
				return
			}
			assert.Equal(t, tt.wantFilter, store.filter)
			body := testutil.DecodeJSON(t, w)
			assert.Equal(t, float64(1), body["count"])
		})
	}
}

func TestListPlans_StoreFailure(t *testing.T) {
	h := NewPlanHandler(&fakePlanStore{err: testutil.ErrBoom}, testutil.NewUserAdmin())
	w := testutil.Serve(h.ListPlans, testutil.NewRequest(t, "GET", "/plans/list?type=prebuild", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to list plans", testutil.ErrorMessage(t, w))
}

func TestListInvited(t *testing.T) {
	store := &fakePlanStore{}
	h := NewPlanHandler(store, testutil.NewUserAdmin())

	w := testutil.Serve(h.ListInvited, testutil.NewRequest(t, "GET", "/plans/invited", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "user_id (UUID) is required", testutil.ErrorMessage(t, w))

	w = testutil.Serve(h.ListInvited, testutil.NewRequest(t, "GET", "/plans/invited?user_id="+testutil.UserID+"&limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.PlanFilter{UserID: testutil.UserID, Limit: 5}, store.filter)

	items := testutil.DecodeJSON(t, w)["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "viewer", items[0].(map[string]interface{})["member_role"])
}

func TestGetPlan(t *testing.T) {
	detail := &models.PlanDetail{
		Plan:              models.Plan{ID: testutil.PlanID, Name: "Tuesday", Tags: []string{}},
		PracticePlanItems: []models.PlanItem{{ID: testutil.EntityID, ItemType: "drill"}},
	}

	tests := []struct {
		name       string
		org        string
		id         string
		store      *fakePlanStore
		wantStatus int
		wantError  string
	}{
		{"missing org", "", testutil.PlanID, &fakePlanStore{detail: detail}, http.StatusBadRequest, "org_id (UUID) is required"},
		{"bad id", testutil.OrgID, "nope", &fakePlanStore{detail: detail}, http.StatusBadRequest, "id (UUID) is required"},
		{"not found", testutil.OrgID, testutil.PlanID, &fakePlanStore{err: db.ErrNotFound}, http.StatusNotFound, "Plan not found"},
		{"store failure", testutil.OrgID, testutil.PlanID, &fakePlanStore{err: testutil.ErrBoom}, http.StatusInternalServerError, "Failed to fetch plan"},
		{"found", testutil.OrgID, testutil.PlanID, &fakePlanStore{detail: detail}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPlanHandler(tt.store, testutil.NewUserAdmin())
			var opts []testutil.RequestOption
			if tt.org != "" {
				opts = append(opts, testutil.InOrg(tt.org, auth.RoleCoach))
			}
			req := testutil.WithContext(testutil.NewRequest(t, "GET", "/plans/"+tt.id, nil), map[string]string{"id": tt.id}, opts...)

			w := testutil.Serve(h.GetPlan, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, testutil.ErrorMessage(t, w))
				return
			}
			plan := testutil.DecodeJSON(t, w)["plan"].(map[string]interface{})
			assert.Equal(t, "Tuesday", plan["name"])
			assert.Len(t, plan["practice_plan_items"], 1)
		})
	}
}

func invitePlanRequest(t *testing.T, body interface{}) *http.Request {
	req := testutil.NewRequest(t, "POST", "/plans/"+testutil.PlanID+"/invite", body)
	return testutil.WithContext(req, map[string]string{"id": testutil.PlanID},
		testutil.AsUser(testutil.UserID), testutil.InOrg(testutil.OrgID, auth.RoleCoach))
}

func TestInviteMembers(t *testing.T) {
	const third = "66666666-6666-4666-8666-666666666666"

	users := testutil.NewUserAdmin()
	users.Users[testutil.OtherID] = auth.User{ID: testutil.OtherID, Email: "other@example.com"}
	users.Users[third] = auth.User{ID: third, Email: "third@example.com"}

	store := &fakePlanStore{candidates: &models.InviteCandidates{
		OwnerUserID: testutil.UserID,
		ToInvite:    []string{testutil.OtherID, third},
		Skipped:     []string{testutil.EntityID},
	}}
	h := NewPlanHandler(store, users)

	w := testutil.Serve(h.InviteMembers, invitePlanRequest(t, map[string]interface{}{
		"user_ids": []string{testutil.OtherID, " " + third + " ", testutil.OtherID, testutil.EntityID},
	}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.InviteResponse
	testutil.DecodeInto(t, w, &resp)
	assert.True(t, resp.OK)
	assert.Equal(t, testutil.PlanID, resp.PlanID)
	assert.Equal(t, []string{testutil.OtherID, third}, resp.InvitedUserIDs)
	assert.Equal(t, []string{testutil.EntityID}, resp.SkippedUserIDs)

	assert.Equal(t, testutil.UserID, store.invitedBy, "owner is the default inviter")
	assert.Equal(t, models.PlanRoleViewer, store.role)
	emails := []string{store.invites[0].Email, store.invites[1].Email}
	sort.Strings(emails)
	assert.Equal(t, []string{"other@example.com", "third@example.com"}, emails)
}

func TestInviteMembers_AddedByAndRole(t *testing.T) {
	users := testutil.NewUserAdmin()
	users.Users[testutil.OtherID] = auth.User{ID: testutil.OtherID, Email: "other@example.com"}
	store := &fakePlanStore{candidates: &models.InviteCandidates{OwnerUserID: testutil.UserID, ToInvite: []string{testutil.OtherID}}}
	h := NewPlanHandler(store, users)

	w := testutil.Serve(h.InviteMembers, invitePlanRequest(t, map[string]interface{}{
		"user_ids": []string{testutil.OtherID},
		"role":     "editor",
		"added_by": testutil.EntityID,
	}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, testutil.EntityID, store.invitedBy)
	assert.Equal(t, "editor", store.role)
}

func TestInviteMembers_NothingToInvite(t *testing.T) {
	store := &fakePlanStore{candidates: &models.InviteCandidates{OwnerUserID: testutil.UserID, Skipped: []string{testutil.OtherID}}}
	h := NewPlanHandler(store, testutil.NewUserAdmin())

	w := testutil.Serve(h.InviteMembers, invitePlanRequest(t, map[string]interface{}{"user_ids": []string{testutil.OtherID}}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"ok":true,"plan_id":"`+testutil.PlanID+`","invited_user_ids":[],"skipped_user_ids":["`+testutil.OtherID+`"]}`, w.Body.String())
	assert.Nil(t, store.invites)
}

func TestInviteMembers_Errors(t *testing.T) {
	withCandidates := func() *fakePlanStore {
		return &fakePlanStore{candidates: &models.InviteCandidates{OwnerUserID: testutil.UserID, ToInvite: []string{testutil.OtherID}}}
	}

	tests := []struct {
		name       string
		body       interface{}
		store      *fakePlanStore
		knownEmail bool
		wantStatus int
		wantError  string
	}{
		{"no users", map[string]interface{}{"user_ids": []string{}}, withCandidates(), true,
			http.StatusBadRequest, "user_ids is required"},
		{"bad user id", map[string]interface{}{"user_ids": []string{"x"}}, withCandidates(), true,
			http.StatusBadRequest, "user_ids[0] must be a valid UUID"},
		{"plan missing", map[string]interface{}{"user_ids": []string{testutil.OtherID}}, &fakePlanStore{err: db.ErrNotFound}, true,
			http.StatusNotFound, "Plan not found"},
		{"plan without org", map[string]interface{}{"user_ids": []string{testutil.OtherID}}, &fakePlanStore{err: db.ErrPlanWithoutOrg}, true,
			http.StatusBadRequest, "Plan is not associated with an organization"},
		{"org mismatch", map[string]interface{}{"user_ids": []string{testutil.OtherID}}, &fakePlanStore{err: db.ErrPlanOrgMismatch}, true,
			http.StatusBadRequest, "org_id does not match plan"},
		{"outsiders", map[string]interface{}{"user_ids": []string{testutil.OtherID}},
			&fakePlanStore{err: &db.UsersNotInOrgError{UserIDs: []string{testutil.OtherID}}}, true,
			http.StatusBadRequest, "Users not in organization: " + testutil.OtherID},
		{"email lookup fails", map[string]interface{}{"user_ids": []string{testutil.OtherID}}, withCandidates(), false,
			http.StatusInternalServerError, "Failed to invite plan members"},
		{"insert fails", map[string]interface{}{"user_ids": []string{testutil.OtherID}},
			&fakePlanStore{addErr: testutil.ErrBoom, candidates: &models.InviteCandidates{ToInvite: []string{testutil.OtherID}}}, true,
			http.StatusInternalServerError, "Failed to invite plan members"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := testutil.NewUserAdmin()
			if tt.knownEmail {
				users.Users[testutil.OtherID] = auth.User{ID: testutil.OtherID, Email: "other@example.com"}
			}
			h := NewPlanHandler(tt.store, users)

			w := testutil.Serve(h.InviteMembers, invitePlanRequest(t, tt.body))

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantError, testutil.ErrorMessage(t, w))
		})
	}
}

func TestInviteMembers_BlankEmail(t *testing.T) {
	users := testutil.NewUserAdmin()
	users.Users[testutil.OtherID] = auth.User{ID: testutil.OtherID}
	store := &fakePlanStore{candidates: &models.InviteCandidates{ToInvite: []string{testutil.OtherID}}}
	h := NewPlanHandler(store, users)

	w := testutil.Serve(h.InviteMembers, invitePlanRequest(t, map[string]interface{}{"user_ids": []string{testutil.OtherID}}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Nil(t, store.invites)
}

func updatePlanRequest(t *testing.T, body interface{}) *http.Request {
	req := testutil.NewRequest(t, "PATCH", "/plans/"+testutil.PlanID, body)
	return testutil.WithContext(req, map[string]string{"id": testutil.PlanID},
		testutil.AsUser(testutil.UserID), testutil.InOrg(testutil.OrgID, auth.RoleCoach))
}

func TestUpdatePlan(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		store      *fakePlanStore
		wantStatus int
		wantError  string
	}{
		{"not an object", "[1]", &fakePlanStore{}, http.StatusBadRequest, "Invalid JSON payload"},
		{"empty", map[string]interface{}{}, &fakePlanStore{}, http.StatusBadRequest, "No updates provided"},
		{"blank name", map[string]interface{}{"name": "  "}, &fakePlanStore{}, http.StatusBadRequest, "name is required"},
		{"bad status", map[string]interface{}{"status": "done"}, &fakePlanStore{}, http.StatusBadRequest,
			"status must be one of: draft, published, archived"},
		{"drill item without drill", map[string]interface{}{"add_items": []map[string]interface{}{{"title": "x"}}}, &fakePlanStore{},
			http.StatusBadRequest, "drill_id is required when item_type=drill"},
		{"bad removal id", map[string]interface{}{"remove_item_ids": []string{"x"}}, &fakePlanStore{}, http.StatusBadRequest,
			"remove_item_ids[0] must be a valid UUID"},
		{"not found", map[string]interface{}{"name": "New"}, &fakePlanStore{err: db.ErrNotFound}, http.StatusNotFound, "Plan not found"},
		{"store failure", map[string]interface{}{"name": "New"}, &fakePlanStore{err: testutil.ErrBoom}, http.StatusInternalServerError, "Failed to update plan"},
		{"rename", map[string]interface{}{"name": " New "}, &fakePlanStore{}, http.StatusOK, ""},
		{"null description", `{"description": null}`, &fakePlanStore{}, http.StatusOK, ""},
		{"items only", map[string]interface{}{"remove_item_ids": []string{testutil.EntityID}}, &fakePlanStore{}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPlanHandler(tt.store, testutil.NewUserAdmin())

			w := testutil.Serve(h.UpdatePlan, updatePlanRequest(t, tt.body))

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, testutil.ErrorMessage(t, w))
			}
		})
	}
}

func TestUpdatePlan_PassesPatch(t *testing.T) {
	store := &fakePlanStore{}
	h := NewPlanHandler(store, testutil.NewUserAdmin())

	w := testutil.Serve(h.UpdatePlan, updatePlanRequest(t, `{
		"name": " Thursday ",
		"description": null,
		"estimated_minutes": "45",
		"add_items": [{"drill_id": "`+testutil.EntityID+`", "reps": "10"}]
	}`))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, store.updated)
	assert.Equal(t, "Thursday", *store.updated.Name)
	assert.True(t, store.updated.Description.Set)
	assert.False(t, store.updated.Description.Valid)
	assert.Equal(t, models.FlexInt(45), store.updated.EstimatedMinutes.Value)
	require.Len(t, store.updated.AddItems, 1)
	assert.Equal(t, models.PlanItemDrill, store.updated.AddItems[0].ItemType)
	assert.True(t, store.updated.NeedsPositions())
}

func TestCreatePlan(t *testing.T) {
	valid := func() map[string]interface{} {
		return map[string]interface{}{
			"owner_user_id": testutil.UserID,
			"name":          "Tuesday practice",
			"items":         []map[string]interface{}{{"drill_id": testutil.EntityID}},
		}
	}
	with := func(k string, v interface{}) map[string]interface{} {
		b := valid()
		b[k] = v
		return b
	}

	tests := []struct {
		name       string
		body       interface{}
		caller     string
		store      *fakePlanStore
		wantStatus int
		wantError  string
	}{
		{"invalid json", "{", testutil.UserID, &fakePlanStore{}, http.StatusBadRequest, "Invalid JSON payload"},
		{"no items", with("items", []interface{}{}), testutil.UserID, &fakePlanStore{}, http.StatusBadRequest, "items is required"},
		{"blank name", with("name", " "), testutil.UserID, &fakePlanStore{}, http.StatusBadRequest, "name is required"},
		{"bad type", with("type", "shared"), testutil.UserID, &fakePlanStore{}, http.StatusBadRequest, "type must be one of: prebuild, custom"},
		{"no caller", valid(), "", &fakePlanStore{}, http.StatusUnauthorized, "Unauthorized"},
		{"someone else's plan", valid(), testutil.OtherID, &fakePlanStore{}, http.StatusForbidden,
			"owner_user_id must match the authenticated user"},
		{"store failure", valid(), testutil.UserID, &fakePlanStore{err: testutil.ErrBoom}, http.StatusInternalServerError, "Failed to create plan"},
		{"created", valid(), testutil.UserID, &fakePlanStore{}, http.StatusCreated, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPlanHandler(tt.store, testutil.NewUserAdmin())
			var opts []testutil.RequestOption
			if tt.caller != "" {
				opts = append(opts, testutil.AsUser(tt.caller))
			}
			req := testutil.WithContext(testutil.NewRequest(t, "POST", "/plans", tt.body), nil, opts...)

			w := testutil.Serve(h.CreatePlan, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, testutil.ErrorMessage(t, w))
				return
			}
			plan := testutil.DecodeJSON(t, w)["plan"].(map[string]interface{})
			assert.Equal(t, testutil.PlanID, plan["id"])
			require.NotNil(t, tt.store.created)
			assert.Equal(t, models.PlanTypeCustom, tt.store.created.Type)
			assert.Equal(t, []string{}, tt.store.created.Tags)
		})
	}
}
