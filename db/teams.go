// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"fmt"

	"github.com/danielhkuo/ankor-api/models"
)

// Teams lists an organization's teams by name
func (s *Store) Teams(ctx context.Context, orgID string) ([]models.Team, error) {
	teams := []models.Team{}
	err := selectJSON(ctx, s.db, &teams, `
		SELECT id, org_id, name, level, gender, season, is_active, join_code
		FROM teams WHERE org_id = $1
		ORDER BY name
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// TeamsWithAthletes lists teams newest first with their athletes' names
func (s *Store) TeamsWithAthletes(ctx context.Context, orgID string) ([]models.TeamWithAthletes, error) {
	teams := []models.TeamWithAthletes{}
	err := selectJSON(ctx, s.db, &teams, `
		SELECT t.id, t.org_id, t.name, t.created_at,
			coalesce((
				SELECT json_agg(json_build_object(
					'id', a.id, 'first_name', a.first_name, 'last_name', a.last_name
				) ORDER BY a.last_name, a.first_name)
				FROM team_athletes ta
				JOIN athletes a ON a.id = ta.athlete_id
				WHERE ta.team_id = t.id
			), '[]'::json) AS athletes
		FROM teams t
		WHERE t.org_id = $1
		ORDER BY t.created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams with athletes: %w", err)
	}
	return teams, nil
}

// TeamAthletes returns the active roster of a team in an organization
func (s *Store) TeamAthletes(ctx context.Context, orgID, teamID string) ([]models.TeamAthlete, error) {
	athletes := []models.TeamAthlete{}
	err := selectJSON(ctx, s.db, &athletes, `
		SELECT ta.team_id, a.id, a.org_id, a.user_id, a.first_name, a.last_name,
			a.full_name, a.phone, a.graduation_year, a.cell_number
		FROM team_athletes ta
		JOIN teams t ON t.id = ta.team_id
		LEFT JOIN athletes a ON a.id = ta.athlete_id
		WHERE ta.team_id::text = $1 AND t.org_id = $2 AND ta.status = 'active'
	`, teamID, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team athletes: %w", err)
	}
	return athletes, nil
}
