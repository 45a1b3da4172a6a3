// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/danielhkuo/ankor-api/models"
)

// Profile loads a user's profile row
func (s *Store) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := getJSON(ctx, s.db, &p, `
		SELECT id, email, full_name, role, default_org_id
		FROM profiles WHERE id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// optionalString scans a single nullable text column; no row yields ""
func optionalString(ctx context.Context, q querier, query string, args ...interface{}) (string, error) {
	var v sql.NullString
	err := q.QueryRowContext(ctx, query, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v.String, nil
}

// AthleteEmail returns the email on the user's athlete record in an org
func (s *Store) AthleteEmail(ctx context.Context, orgID, userID string) (string, error) {
	email, err := optionalString(ctx, s.db,
		`SELECT email FROM athletes WHERE org_id = $1 AND user_id = $2 LIMIT 1`, orgID, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load athlete: %w", err)
	}
	return email, nil
}

// GuardianEmail returns the email on the user's guardian contact in an org
func (s *Store) GuardianEmail(ctx context.Context, orgID, userID string) (string, error) {
	email, err := optionalString(ctx, s.db,
		`SELECT email FROM guardian_contacts WHERE org_id = $1 AND user_id = $2 LIMIT 1`, orgID, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load guardian: %w", err)
	}
	return email, nil
}

func (s *Store) CoachIDForUser(ctx context.Context, userID string) (string, error) {
	id, err := optionalString(ctx, s.db, `SELECT id FROM coaches WHERE user_id = $1 LIMIT 1`, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load coach: %w", err)
	}
	return id, nil
}

func (s *Store) AthleteIDForUser(ctx context.Context, userID string) (string, error) {
	id, err := optionalString(ctx, s.db, `SELECT id FROM athletes WHERE user_id = $1 LIMIT 1`, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load athlete: %w", err)
	}
	return id, nil
}

// RegisterWithCode runs signup_register_<role>_with_code_tx and returns its first row
func (s *Store) RegisterWithCode(ctx context.Context, role string, params map[string]interface{}) (map[string]interface{}, error) {
	var rows []map[string]interface{}
	if err := s.RPC(ctx, "signup_register_"+role+"_with_code_tx", params, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]interface{}{}, nil
	}
	return rows[0], nil
}

// RegisterOrg runs signup_register_org_tx
func (s *Store) RegisterOrg(ctx context.Context, params map[string]interface{}) (*models.OrgSignupResult, error) {
	var rows []models.OrgSignupResult
	if err := s.RPC(ctx, "signup_register_org_tx", params, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return &rows[0], nil
}
