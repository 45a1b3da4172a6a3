// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/ankor-api/db"
	"github.com/danielhkuo/ankor-api/models"
	"github.com/danielhkuo/ankor-api/testutil"
)

func coachBody() map[string]interface{} {
	return map[string]interface{}{
		"org_id":     testutil.OrgID,
		"first_name": "Alex",
		"last_name":  " Moore ",
		"full_name":  " Coach Moore ",
		"email":      "alex@example.com",
		"password":   "password1",
	}
}

func TestListCoaches_IgnoresTeam(t *testing.T) {
	store := &fakePeopleStore{}
	h := NewCoachHandler(store, testutil.NewUserAdmin())

	w := testutil.Serve(h.ListCoaches, coachRequest(t, "GET", "/coaches/list?team_id="+testutil.EntityID+"&email=alex", nil, nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"ok":true,"count":0,"items":[]}`, w.Body.String())
	assert.Equal(t, models.PersonFilter{OrgID: testutil.OrgID, Email: "alex", Limit: 50}, store.filter)
}

func TestGetCoach(t *testing.T) {
	h := NewCoachHandler(&fakePeopleStore{fetchErr: db.ErrNotFound}, testutil.NewUserAdmin())

	w := testutil.Serve(h.GetCoach, coachRequest(t, "GET", "/coaches/"+testutil.EntityID, nil, map[string]string{"id": testutil.EntityID}))

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Coach not found", testutil.ErrorMessage(t, w))
}

func TestCreateCoach(t *testing.T) {
	store := &fakePeopleStore{}
	admin := testutil.NewUserAdmin()
	h := NewCoachHandler(store, admin)

	w := testutil.Serve(h.CreateCoach, coachRequest(t, "POST", "/coaches", coachBody(), nil))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	coach := testutil.DecodeJSON(t, w)["coach"].(map[string]interface{})
	assert.Equal(t, testutil.PlanID, coach["id"])

	require.Len(t, admin.Created, 1)
	assert.Equal(t, "coach", admin.Created[0].AppMetadata["role"])
	assert.Equal(t, "Moore", store.params["p_last_name"])
	assert.Equal(t, "Coach Moore", *store.params["p_full_name"].(*string))
	assert.Equal(t, testutil.EntityID, store.params["p_user_id"])
}

func TestCreateCoach_Failures(t *testing.T) {
	with := func(k string, v interface{}) map[string]interface{} {
		b := coachBody()
		b[k] = v
		return b
	}

	tests := []struct {
		name        string
		body        interface{}
		createErr   error
		fetchErr    error
		wantStatus  int
		wantError   string
		wantDeleted []string
		wantRows    []string
	}{
		{"bad org", with("org_id", "acme"), nil, nil, http.StatusBadRequest, "org_id must be a valid UUID", nil, nil},
		{"missing email", with("email", ""), nil, nil, http.StatusBadRequest, "email is required", nil, nil},
		{"blank first name", with("first_name", ""), nil, nil, http.StatusBadRequest, "first_name is required", nil, nil},
		{"duplicate", coachBody(), &db.RPCError{Code: "23505"}, nil,
			http.StatusConflict, "Email already registered", []string{testutil.EntityID}, nil},
		{"reload failure", coachBody(), nil, testutil.ErrBoom,
			http.StatusInternalServerError, "Failed to create coach", []string{testutil.EntityID}, []string{testutil.PlanID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakePeopleStore{createErr: tt.createErr, fetchErr: tt.fetchErr}
			admin := testutil.NewUserAdmin()
			h := NewCoachHandler(store, admin)

			w := testutil.Serve(h.CreateCoach, coachRequest(t, "POST", "/coaches", tt.body, nil))

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantError, testutil.ErrorMessage(t, w))
			assert.Equal(t, tt.wantDeleted, admin.Deleted)
			assert.Equal(t, tt.wantRows, store.deleted)
		})
	}
}

func TestUpdateCoach(t *testing.T) {
	store := &fakePeopleStore{}
	h := NewCoachHandler(store, testutil.NewUserAdmin())
	body := map[string]interface{}{"full_name": "  ", "user_id": testutil.OtherID}

	w := testutil.Serve(h.UpdateCoach, coachRequest(t, "PATCH", "/coaches/"+testutil.EntityID, body, map[string]string{"id": testutil.EntityID}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, store.coachPatch)
	assert.True(t, store.coachPatch.FullName.Set)
	assert.False(t, store.coachPatch.FullName.Valid, "blank full name clears the column")
	assert.Equal(t, testutil.OtherID, store.coachPatch.UserID.Value)
}

func TestUpdateCoach_BadUserID(t *testing.T) {
	h := NewCoachHandler(&fakePeopleStore{}, testutil.NewUserAdmin())
	body := map[string]interface{}{"user_id": "someone"}

	w := testutil.Serve(h.UpdateCoach, coachRequest(t, "PATCH", "/coaches/"+testutil.EntityID, body, map[string]string{"id": testutil.EntityID}))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "user_id must be a valid UUID", testutil.ErrorMessage(t, w))
}
