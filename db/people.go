// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/danielhkuo/ankor-api/models"
)

const athleteColumns = `
	a.id, a.org_id, a.user_id, a.first_name, a.last_name, a.full_name,
	coalesce(p.email, a.email) AS email, a.phone, a.cell_number, a.gender, a.graduation_year,
	coalesce((
		SELECT json_agg(x ORDER BY x.name) FROM (
			SELECT DISTINCT t.id, t.name
			FROM team_athletes ta JOIN teams t ON t.id = ta.team_id
			WHERE ta.athlete_id = a.id AND coalesce(ta.status, 'active') = 'active'
		) x
	), '[]'::json) AS teams,
	(
		SELECT json_build_object(
			'full_name', g.full_name, 'email', g.email,
			'phone_number', g.phone, 'relationship', ag.relationship)
		FROM athlete_guardians ag JOIN guardian_contacts g ON g.id = ag.guardian_id
		WHERE ag.athlete_id = a.id
		LIMIT 1
	) AS parent`

const coachColumns = `
	a.id, a.org_id, a.user_id, a.first_name, a.last_name, a.full_name,
	coalesce(p.email, a.email) AS email, a.phone, a.cell_number`

// personFilter applies the shared name and email filters; a is the person table alias
func personFilter(b *builder, f models.PersonFilter) {
	b.cond("a.org_id = ?", f.OrgID)
	if f.Name != "" {
		pat := likePattern(f.Name)
		b.cond("(a.full_name ILIKE ? OR a.first_name ILIKE ? OR a.last_name ILIKE ?)", pat, pat, pat)
	}
	if f.Email != "" {
		b.cond("coalesce(p.email, a.email) ILIKE ?", likePattern(f.Email))
	}
}

// Athletes lists athletes by last then first name and returns the unpaged total
func (s *Store) Athletes(ctx context.Context, f models.PersonFilter) ([]models.Athlete, int, error) {
	var b builder
	personFilter(&b, f)
	if f.TeamID != "" {
		b.cond(`EXISTS (SELECT 1 FROM team_athletes ta
			WHERE ta.athlete_id = a.id AND ta.team_id = ? AND ta.status = 'active')`, f.TeamID)
	}

	from := ` FROM athletes a LEFT JOIN profiles p ON p.id = a.user_id` + b.whereSQL()
	total, err := count(ctx, s.db, `SELECT a.id`+from, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count athletes: %w", err)
	}

	query := `SELECT ` + athleteColumns + from +
		` ORDER BY a.last_name, a.first_name LIMIT ` + b.arg(f.Limit) + ` OFFSET ` + b.arg(f.Offset)
	athletes := []models.Athlete{}
	if err := selectJSON(ctx, s.db, &athletes, query, b.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list athletes: %w", err)
	}
	return athletes, total, nil
}

// Athlete loads one athlete in an organization
func (s *Store) Athlete(ctx context.Context, orgID, id string) (*models.Athlete, error) {
	var a models.Athlete
	err := getJSON(ctx, s.db, &a, `SELECT `+athleteColumns+`
		FROM athletes a LEFT JOIN profiles p ON p.id = a.user_id
		WHERE a.id = $1 AND a.org_id = $2`, id, orgID)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Coaches lists coaches by last then first name and returns the unpaged total
func (s *Store) Coaches(ctx context.Context, f models.PersonFilter) ([]models.Coach, int, error) {
	var b builder
	personFilter(&b, f)

	from := ` FROM coaches a LEFT JOIN profiles p ON p.id = a.user_id` + b.whereSQL()
	total, err := count(ctx, s.db, `SELECT a.id`+from, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count coaches: %w", err)
	}

	query := `SELECT ` + coachColumns + from +
		` ORDER BY a.last_name, a.first_name LIMIT ` + b.arg(f.Limit) + ` OFFSET ` + b.arg(f.Offset)
	coaches := []models.Coach{}
	if err := selectJSON(ctx, s.db, &coaches, query, b.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list coaches: %w", err)
	}
	return coaches, total, nil
}

// Coach loads one coach in an organization
func (s *Store) Coach(ctx context.Context, orgID, id string) (*models.Coach, error) {
	var c models.Coach
	err := getJSON(ctx, s.db, &c, `SELECT `+coachColumns+`
		FROM coaches a LEFT JOIN profiles p ON p.id = a.user_id
		WHERE a.id = $1 AND a.org_id = $2`, id, orgID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GuardianIDByEmail finds an existing guardian contact, or returns ""
func (s *Store) GuardianIDByEmail(ctx context.Context, orgID, email string) (string, error) {
	id, err := optionalString(ctx, s.db, `
		SELECT id FROM guardian_contacts WHERE org_id = $1 AND lower(email) = lower($2) LIMIT 1
	`, orgID, email)
	if err != nil {
		return "", fmt.Errorf("failed to look up guardian: %w", err)
	}
	return id, nil
}

// CreateAthlete runs create_athlete_tx and returns the new athlete id
func (s *Store) CreateAthlete(ctx context.Context, params map[string]interface{}) (string, error) {
	return s.rpcID(ctx, "create_athlete_tx", "athlete_id", params)
}

// CreateCoach runs create_coach_tx and returns the new coach id
func (s *Store) CreateCoach(ctx context.Context, params map[string]interface{}) (string, error) {
	return s.rpcID(ctx, "create_coach_tx", "coach_id", params)
}

// rpcID runs fn and accepts either a scalar id or a row carrying key
func (s *Store) rpcID(ctx context.Context, fn, key string, params map[string]interface{}) (string, error) {
	var rows []json.RawMessage
	if err := s.RPC(ctx, fn, params, &rows); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", ErrNoRows
	}

	var id string
	if err := json.Unmarshal(rows[0], &id); err == nil && id != "" {
		return id, nil
	}
	var row map[string]interface{}
	if err := json.Unmarshal(rows[0], &row); err == nil {
		if v, ok := row[key].(string); ok && v != "" {
			return v, nil
		}
		// SETOF a scalar comes back wrapped in a column named after the function
		if v, ok := row[fn].(string); ok && v != "" {
			return v, nil
		}
	}
	return "", ErrNoRows
}

// DeleteAthlete removes a partially created athlete and its new guardian contact
func (s *Store) DeleteAthlete(ctx context.Context, orgID, athleteID, guardianEmail string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM athletes WHERE id = $1 AND org_id = $2`, athleteID, orgID); err != nil {
			return fmt.Errorf("failed to delete athlete: %w", err)
		}
		if guardianEmail == "" {
			return nil
		}
		_, err := tx.ExecContext(ctx,
			`DELETE FROM guardian_contacts WHERE org_id = $1 AND lower(email) = lower($2)`, orgID, guardianEmail)
		if err != nil {
			return fmt.Errorf("failed to delete guardian: %w", err)
		}
		return nil
	})
}

func (s *Store) DeleteCoach(ctx context.Context, orgID, coachID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM coaches WHERE id = $1 AND org_id = $2`, coachID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete coach: %w", err)
	}
	return nil
}

// UpdateAthlete applies a patch; ErrNotFound when the athlete is not in the org
func (s *Store) UpdateAthlete(ctx context.Context, orgID, id string, req models.UpdateAthleteRequest) error {
	return s.updatePerson(ctx, "athletes", orgID, id, req.UpdateCoachRequest, func(b *builder) {
		if req.GraduationYear.Set {
			var year *int
			if req.GraduationYear.Valid {
				v := int(req.GraduationYear.Value)
				year = &v
			}
			b.set("graduation_year", year)
		}
	})
}

// UpdateCoach applies a patch; ErrNotFound when the coach is not in the org
func (s *Store) UpdateCoach(ctx context.Context, orgID, id string, req models.UpdateCoachRequest) error {
	return s.updatePerson(ctx, "coaches", orgID, id, req, nil)
}

// updatePerson recomputes full_name from the merged first and last names
// whenever either changes and full_name was not sent.
func (s *Store) updatePerson(ctx context.Context, table, orgID, id string, req models.UpdateCoachRequest, extra func(*builder)) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var b builder
		setNullable(&b, "user_id", req.UserID)
		if req.FirstName != nil {
			b.set("first_name", *req.FirstName)
		}
		if req.LastName != nil {
			b.set("last_name", *req.LastName)
		}
		setNullable(&b, "full_name", req.FullName)
		setNullable(&b, "phone", req.Phone)
		setNullable(&b, "cell_number", req.CellNumber)
		if extra != nil {
			extra(&b)
		}

		if !req.FullName.Set && (req.FirstName != nil || req.LastName != nil) {
			var first, last sql.NullString
			err := tx.QueryRowContext(ctx,
				`SELECT first_name, last_name FROM `+table+` WHERE id = $1 AND org_id = $2 FOR UPDATE`,
				id, orgID).Scan(&first, &last)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", table, err)
			}
			mergedFirst, mergedLast := req.FirstName, req.LastName
			if mergedFirst == nil && first.Valid {
				mergedFirst = &first.String
			}
			if mergedLast == nil && last.Valid {
				mergedLast = &last.String
			}
			b.set("full_name", models.BuildFullName(mergedFirst, mergedLast))
		}

		query := `SELECT id FROM ` + table + ` WHERE id = $1 AND org_id = $2`
		args := []interface{}{id, orgID}
		if len(b.sets) > 0 {
			idArg, orgArg := b.arg(id), b.arg(orgID)
			query = `UPDATE ` + table + ` SET ` + b.setSQL() +
				` WHERE id = ` + idArg + ` AND org_id = ` + orgArg + ` RETURNING id`
			args = b.args
		}

		var got string
		err := tx.QueryRowContext(ctx, query, args...).Scan(&got)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to update %s: %w", table, err)
		}
		return nil
	})
}
