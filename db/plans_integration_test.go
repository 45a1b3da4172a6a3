// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

//go:build integration

package db_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/ankor-api/db"
	"github.com/danielhkuo/ankor-api/models"
	"github.com/danielhkuo/ankor-api/testutil"
)

func seedOrg(t *testing.T, conn *sql.DB) {
	t.Helper()
	testutil.Exec(t, conn, `INSERT INTO organizations (id, name, "maxWorkoutReps") VALUES ($1, 'Ankor VB', 3)`, testutil.OrgID)
	testutil.Exec(t, conn, `INSERT INTO coaches (org_id, user_id, full_name) VALUES ($1, $2, 'Coach Kim')`,
		testutil.OrgID, testutil.UserID)
	testutil.Exec(t, conn, `INSERT INTO athletes (id, org_id, user_id, full_name) VALUES ($1, $2, $3, 'Jo Park')`,
		testutil.EntityID, testutil.OrgID, testutil.OtherID)
}

func createPlan(t *testing.T, store *db.Store) *models.Plan {
	t.Helper()
	org := testutil.OrgID
	first := models.FlexInt(4)
	req := models.CreatePlanRequest{
		OwnerUserID: testutil.UserID,
		OrgID:       &org,
		Type:        models.PlanTypeCustom,
		Name:        "Serve receive",
		Tags:        []string{"passing"},
		Items: []models.PlanItemInput{
			{ItemType: "note", Config: map[string]interface{}{}},
			{ItemType: "rest", Position: &first, Config: map[string]interface{}{"cue": "breathe"}},
		},
	}
	plan, err := store.CreatePlan(context.Background(), req)
	require.NoError(t, err)
	return plan
}

func TestCreatePlan(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	seedOrg(t, conn)
	store := db.NewStore(conn)

	plan := createPlan(t, store)
	assert.Equal(t, "Serve receive", plan.Name)
	assert.Equal(t, "private", plan.Visibility)
	assert.Equal(t, "draft", plan.Status)
	assert.Equal(t, []string{"passing"}, plan.Tags)

	detail, err := store.Plan(context.Background(), plan.ID)
	require.NoError(t, err)
	require.Len(t, detail.PracticePlanItems, 2)
	assert.Equal(t, 0, *detail.PracticePlanItems[0].Position)
	assert.Equal(t, 4, *detail.PracticePlanItems[1].Position)
	assert.Equal(t, "breathe", detail.PracticePlanItems[1].Config["cue"])

	plans, total, err := store.Plans(context.Background(), models.PlanFilter{
		Type: models.PlanTypeCustom, UserID: testutil.UserID, Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, plans, 1)

	_, total, err = store.Plans(context.Background(), models.PlanFilter{
		Type: models.PlanTypeCustom, UserID: testutil.OtherID, Limit: 10,
	})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUpdatePlan(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	seedOrg(t, conn)
	store := db.NewStore(conn)
	plan := createPlan(t, store)

	detail, err := store.Plan(context.Background(), plan.ID)
	require.NoError(t, err)
	removed := detail.PracticePlanItems[0].ID

	name := "Serve receive II"
	updated, err := store.UpdatePlan(context.Background(), plan.ID, models.UpdatePlanRequest{
		Name:          &name,
		Description:   models.Nullable[string]{Set: true},
		RemoveItemIDs: []string{removed},
		AddItems:      []models.PlanItemInput{{ItemType: "note", Config: map[string]interface{}{}}},
	})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Nil(t, updated.Description)

	detail, err = store.Plan(context.Background(), plan.ID)
	require.NoError(t, err)
	require.Len(t, detail.PracticePlanItems, 2)
	assert.Equal(t, 4, *detail.PracticePlanItems[0].Position)
	assert.Equal(t, 5, *detail.PracticePlanItems[1].Position)

	_, err = store.UpdatePlan(context.Background(), testutil.PlanID, models.UpdatePlanRequest{Name: &name})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestInviteCandidates(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	seedOrg(t, conn)
	store := db.NewStore(conn)
	plan := createPlan(t, store)
	ctx := context.Background()

	got, err := store.InviteCandidates(ctx, plan.ID, testutil.OrgID, []string{testutil.OtherID})
	require.NoError(t, err)
	assert.Equal(t, testutil.UserID, got.OwnerUserID)
	assert.Equal(t, []string{testutil.OtherID}, got.ToInvite)
	assert.Empty(t, got.Skipped)

	_, err = store.InviteCandidates(ctx, plan.ID, testutil.OrgID, []string{testutil.OtherID, testutil.PlanID})
	var outside *db.UsersNotInOrgError
	require.ErrorAs(t, err, &outside)
	assert.Equal(t, []string{testutil.PlanID}, outside.UserIDs)

	_, err = store.InviteCandidates(ctx, plan.ID, testutil.EntityID, []string{testutil.OtherID})
	assert.ErrorIs(t, err, db.ErrPlanOrgMismatch)

	_, err = store.InviteCandidates(ctx, testutil.PlanID, testutil.OrgID, []string{testutil.OtherID})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestAddPlanMembers(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	seedOrg(t, conn)
	store := db.NewStore(conn)
	plan := createPlan(t, store)
	ctx := context.Background()

	testutil.Exec(t, conn, `
		INSERT INTO practice_plan_invitations (plan_id, invited_by, invited_email, role)
		VALUES ($1, $2, 'jo@example.com', 'viewer')`, plan.ID, testutil.UserID)

	invites := []models.PlanInvite{{UserID: testutil.OtherID, Email: "jo@example.com"}}
	require.NoError(t, store.AddPlanMembers(ctx, plan.ID, testutil.UserID, models.PlanRoleViewer, invites))

	var invitations int
	require.NoError(t, conn.QueryRow(
		`SELECT count(*) FROM practice_plan_invitations WHERE plan_id = $1`, plan.ID).Scan(&invitations))
	assert.Equal(t, 1, invitations)

	member, err := store.IsPlanMember(ctx, plan.ID, testutil.OtherID)
	require.NoError(t, err)
	assert.True(t, member)

	got, err := store.InviteCandidates(ctx, plan.ID, testutil.OrgID, []string{testutil.OtherID})
	require.NoError(t, err)
	assert.Empty(t, got.ToInvite)
	assert.Equal(t, []string{testutil.OtherID}, got.Skipped)

	invited, total, err := store.InvitedPlans(ctx, testutil.OtherID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, invited, 1)
	assert.Equal(t, "viewer", invited[0].MemberRole)
	require.NotNil(t, invited[0].InvitedBy)
	assert.Equal(t, testutil.UserID, *invited[0].InvitedBy)
}

func TestPlanAccessAndOrgRole(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	seedOrg(t, conn)
	store := db.NewStore(conn)
	plan := createPlan(t, store)
	ctx := context.Background()

	testutil.Exec(t, conn, `INSERT INTO org_memberships (org_id, user_id, role) VALUES ($1, $2, 'coach')`,
		testutil.OrgID, testutil.UserID)
	testutil.Exec(t, conn, `INSERT INTO org_memberships (org_id, user_id, role, is_active) VALUES ($1, $2, 'athlete', false)`,
		testutil.OrgID, testutil.OtherID)

	role, err := store.OrgRole(ctx, testutil.OrgID, testutil.UserID)
	require.NoError(t, err)
	assert.Equal(t, "coach", role)

	role, err = store.OrgRole(ctx, testutil.OrgID, testutil.OtherID)
	require.NoError(t, err)
	assert.Empty(t, role)

	access, err := store.PlanAccess(ctx, plan.ID)
	require.NoError(t, err)
	require.NotNil(t, access)
	assert.Equal(t, testutil.OrgID, access.OrgID)
	assert.Equal(t, testutil.UserID, access.OwnerUserID)

	access, err = store.PlanAccess(ctx, testutil.PlanID)
	require.NoError(t, err)
	assert.Nil(t, access)
}
