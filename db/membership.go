// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/danielhkuo/ankor-api/models"
)

// OrgRole returns the caller's active role in an organization, or "" for none
func (s *Store) OrgRole(ctx context.Context, orgID, userID string) (string, error) {
	var role sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT role FROM org_memberships
		WHERE org_id = $1 AND user_id = $2 AND is_active = true
		LIMIT 1
	`, orgID, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load org role: %w", err)
	}
	return role.String, nil
}

// PlanAccess loads the ownership facts a plan guard needs; nil when the plan does not exist
func (s *Store) PlanAccess(ctx context.Context, planID string) (*models.PlanAccess, error) {
	var (
		a     models.PlanAccess
		orgID sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, org_id, owner_user_id FROM practice_plans WHERE id = $1
	`, planID).Scan(&a.ID, &orgID, &a.OwnerUserID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plan access: %w", err)
	}
	a.OrgID = orgID.String
	return &a, nil
}

func (s *Store) IsPlanMember(ctx context.Context, planID, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM practice_plan_members WHERE plan_id = $1 AND user_id = $2)
	`, planID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check plan membership: %w", err)
	}
	return exists, nil
}
