// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"fmt"

	"github.com/danielhkuo/ankor-api/models"
)

// OrgAthleteUsers returns athletes that have an auth account
func (s *Store) OrgAthleteUsers(ctx context.Context, orgID string) ([]models.OrgUser, error) {
	users := []models.OrgUser{}
	err := selectJSON(ctx, s.db, &users, `
		SELECT user_id, 'athlete' AS role, full_name,
			coalesce(cell_number, phone) AS phone, graduation_year
		FROM athletes
		WHERE org_id = $1 AND user_id IS NOT NULL
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list athlete users: %w", err)
	}
	return users, nil
}

// OrgCoachUsers returns coaches that have an auth account
func (s *Store) OrgCoachUsers(ctx context.Context, orgID string) ([]models.OrgUser, error) {
	users := []models.OrgUser{}
	err := selectJSON(ctx, s.db, &users, `
		SELECT user_id, 'coach' AS role, full_name,
			coalesce(cell_number, phone) AS phone, NULL::int AS graduation_year
		FROM coaches
		WHERE org_id = $1 AND user_id IS NOT NULL
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list coach users: %w", err)
	}
	return users, nil
}
