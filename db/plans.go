// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/lib/pq"

	"github.com/danielhkuo/ankor-api/models"
)

var (
	ErrPlanWithoutOrg  = errors.New("Plan is not associated with an organization")
	ErrPlanOrgMismatch = errors.New("org_id does not match plan")
)

// UsersNotInOrgError lists invitees that are neither athletes nor coaches of the plan's org
type UsersNotInOrgError struct {
	UserIDs []string
}

func (e *UsersNotInOrgError) Error() string {
	return "Users not in organization: " + strings.Join(e.UserIDs, ", ")
}

const planColumns = `
	p.id, p.org_id, p.owner_user_id, p.name, p.description,
	coalesce(p.visibility, 'private') AS visibility, coalesce(p.status, 'draft') AS status,
	coalesce(p.tags, '{}') AS tags, p.estimated_minutes, p.created_at, p.updated_at`

const planItemsColumn = `
	coalesce((
		SELECT json_agg(json_build_object(
			'id', i.id, 'plan_id', i.plan_id, 'section_title', i.section_title,
			'section_order', i.section_order, 'position', i.position,
			'item_type', coalesce(i.item_type, 'drill'), 'drill_id', i.drill_id, 'drill_name', d.name,
			'title', i.title, 'instructions', i.instructions, 'sets', i.sets, 'reps', i.reps,
			'duration_seconds', i.duration_seconds, 'rest_seconds', i.rest_seconds,
			'config', coalesce(i.config, '{}'::jsonb)
		) ORDER BY i.section_order NULLS LAST, i.position NULLS LAST, i.id)
		FROM practice_plan_items i LEFT JOIN drills d ON d.id = i.drill_id
		WHERE i.plan_id = p.id
	), '[]'::json) AS practice_plan_items`

// Plans lists prebuilt plans, or the custom plans of one owner, most recently updated first
func (s *Store) Plans(ctx context.Context, f models.PlanFilter) ([]models.Plan, int, error) {
	var b builder
	b.cond("p.type = ?", f.Type)
	if f.Type != models.PlanTypePrebuild {
		b.cond("p.owner_user_id = ?", f.UserID)
	}

	from := ` FROM practice_plans p` + b.whereSQL()
	total, err := count(ctx, s.db, `SELECT p.id`+from, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count plans: %w", err)
	}

	plans := []models.Plan{}
	query := `SELECT ` + planColumns + from +
		` ORDER BY p.updated_at DESC LIMIT ` + b.arg(f.Limit) + ` OFFSET ` + b.arg(f.Offset)
	if err := selectJSON(ctx, s.db, &plans, query, b.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, total, nil
}

// InvitedPlans lists plans userID is a member of but does not own
func (s *Store) InvitedPlans(ctx context.Context, userID string, limit, offset int) ([]models.InvitedPlan, int, error) {
	from := ` FROM practice_plans p
		JOIN practice_plan_members m ON m.plan_id = p.id AND m.user_id = $1
		WHERE p.owner_user_id <> $1`
	total, err := count(ctx, s.db, `SELECT p.id`+from, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count invited plans: %w", err)
	}

	plans := []models.InvitedPlan{}
	err = selectJSON(ctx, s.db, &plans, `
		SELECT `+planColumns+`, coalesce(m.role, 'viewer') AS member_role,
			coalesce(m.created_at, p.created_at) AS invited_at, m.added_by AS invited_by`+from+`
		ORDER BY p.updated_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invited plans: %w", err)
	}
	return plans, total, nil
}

// Plan loads a plan with its items in section and position order
func (s *Store) Plan(ctx context.Context, id string) (*models.PlanDetail, error) {
	return planDetail(ctx, s.db, id)
}

func planDetail(ctx context.Context, q querier, id string) (*models.PlanDetail, error) {
	var p models.PlanDetail
	err := getJSON(ctx, q, &p, `SELECT `+planColumns+`, `+planItemsColumn+` FROM practice_plans p WHERE p.id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func planRow(ctx context.Context, q querier, id string) (*models.Plan, error) {
	var p models.Plan
	if err := getJSON(ctx, q, &p, `SELECT `+planColumns+` FROM practice_plans p WHERE p.id = $1`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// insertPlanItems numbers items without a position from start
func insertPlanItems(ctx context.Context, tx *sql.Tx, planID string, items []models.PlanItemInput, start int) error {
	for i, it := range items {
		position := start + i
		if it.Position != nil {
			position = int(*it.Position)
		}
		config, err := json.Marshal(it.Config)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO practice_plan_items (plan_id, section_title, section_order, position, item_type,
				drill_id, title, instructions, sets, reps, duration_seconds, rest_seconds, config)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::jsonb)`,
			planID, it.SectionTitle, it.SectionOrder.IntPtr(), position, it.ItemType,
			it.DrillID, it.Title, it.Instructions, it.Sets.IntPtr(), it.Reps.IntPtr(),
			it.DurationSeconds.IntPtr(), it.RestSeconds.IntPtr(), string(config))
		if err != nil {
			return fmt.Errorf("failed to insert plan item %d: %w", i, err)
		}
	}
	return nil
}

// CreatePlan inserts a plan and its items together
func (s *Store) CreatePlan(ctx context.Context, req models.CreatePlanRequest) (*models.Plan, error) {
	var plan *models.Plan
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx, `
			INSERT INTO practice_plans (owner_user_id, org_id, type, name, description, visibility, status,
				tags, estimated_minutes)
			VALUES ($1, $2, $3, $4, $5, coalesce($6, 'private'), coalesce($7, 'draft'), $8, $9)
			RETURNING id`,
			req.OwnerUserID, req.OrgID, req.Type, req.Name, req.Description, req.Visibility, req.Status,
			pq.Array(req.Tags), req.EstimatedMinutes.IntPtr()).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to create plan: %w", err)
		}
		if err := insertPlanItems(ctx, tx, id, req.Items, 0); err != nil {
			return err
		}
		plan, err = planRow(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// UpdatePlan patches a plan, removes items and appends new ones in one transaction
func (s *Store) UpdatePlan(ctx context.Context, id string, req models.UpdatePlanRequest) (*models.Plan, error) {
	var plan *models.Plan
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var b builder
		if req.Name != nil {
			b.set("name", *req.Name)
		}
		setNullable(&b, "description", req.Description)
		if req.Visibility != nil {
			b.set("visibility", *req.Visibility)
		}
		if req.Status != nil {
			b.set("status", *req.Status)
		}
		if req.Tags != nil {
			b.set("tags", pq.Array(req.Tags))
		}
		setNullable(&b, "estimated_minutes", req.EstimatedMinutes)
		setNullable(&b, "org_id", req.OrgID)
		b.sets = append(b.sets, "updated_at = now()")

		var got string
		err := tx.QueryRowContext(ctx,
			`UPDATE practice_plans SET `+b.setSQL()+` WHERE id = `+b.arg(id)+` RETURNING id`,
			b.args...).Scan(&got)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to update plan: %w", err)
		}

		if len(req.RemoveItemIDs) > 0 {
			_, err := tx.ExecContext(ctx,
				`DELETE FROM practice_plan_items WHERE plan_id = $1 AND id = ANY($2::uuid[])`,
				id, pq.Array(req.RemoveItemIDs))
			if err != nil {
				return fmt.Errorf("failed to remove plan items: %w", err)
			}
		}

		if len(req.AddItems) > 0 {
			start := 0
			if req.NeedsPositions() {
				err := tx.QueryRowContext(ctx,
					`SELECT coalesce(max(position) + 1, 0) FROM practice_plan_items WHERE plan_id = $1`,
					id).Scan(&start)
				if err != nil {
					return fmt.Errorf("failed to find last plan position: %w", err)
				}
			}
			if err := insertPlanItems(ctx, tx, id, req.AddItems, start); err != nil {
				return err
			}
		}

		plan, err = planRow(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// InviteCandidates checks that every user belongs to the plan's org and
// splits them into new invitees and existing members
func (s *Store) InviteCandidates(ctx context.Context, planID, orgID string, userIDs []string) (*models.InviteCandidates, error) {
	var (
		planOrg sql.NullString
		out     models.InviteCandidates
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT org_id, owner_user_id FROM practice_plans WHERE id = $1`, planID).Scan(&planOrg, &out.OwnerUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	if !planOrg.Valid || planOrg.String == "" {
		return nil, ErrPlanWithoutOrg
	}
	if planOrg.String != orgID {
		return nil, ErrPlanOrgMismatch
	}

	var outside []string
	err = s.db.QueryRowContext(ctx, `
		SELECT coalesce(array_agg(u::text ORDER BY ord), '{}') FROM unnest($2::uuid[]) WITH ORDINALITY AS x(u, ord)
		WHERE NOT EXISTS (SELECT 1 FROM athletes WHERE org_id = $1 AND user_id = u)
			AND NOT EXISTS (SELECT 1 FROM coaches WHERE org_id = $1 AND user_id = u)`,
		orgID, pq.Array(userIDs)).Scan(pq.Array(&outside))
	if err != nil {
		return nil, fmt.Errorf("failed to check organization users: %w", err)
	}
	if len(outside) > 0 {
		return nil, &UsersNotInOrgError{UserIDs: outside}
	}

	var members []string
	err = s.db.QueryRowContext(ctx, `
		SELECT coalesce(array_agg(user_id::text), '{}') FROM practice_plan_members
		WHERE plan_id = $1 AND user_id = ANY($2::uuid[])`,
		planID, pq.Array(userIDs)).Scan(pq.Array(&members))
	if err != nil {
		return nil, fmt.Errorf("failed to load plan members: %w", err)
	}

	existing := make(map[string]bool, len(members))
	for _, id := range members {
		existing[id] = true
	}
	out.ToInvite, out.Skipped = []string{}, []string{}
	for _, id := range userIDs {
		if existing[id] {
			out.Skipped = append(out.Skipped, id)
		} else {
			out.ToInvite = append(out.ToInvite, id)
		}
	}
	return &out, nil
}

// AddPlanMembers records an invitation for every invitee without a pending
// one and adds all of them as members
func (s *Store) AddPlanMembers(ctx context.Context, planID, invitedBy, role string, invites []models.PlanInvite) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		emails := make([]string, len(invites))
		for i, inv := range invites {
			emails[i] = inv.Email
		}

		var pending []string
		err := tx.QueryRowContext(ctx, `
			SELECT coalesce(array_agg(invited_email), '{}') FROM practice_plan_invitations
			WHERE plan_id = $1 AND status = 'pending' AND invited_email = ANY($2)`,
			planID, pq.Array(emails)).Scan(pq.Array(&pending))
		if err != nil {
			return fmt.Errorf("failed to load pending invitations: %w", err)
		}
		isPending := make(map[string]bool, len(pending))
		for _, e := range pending {
			isPending[e] = true
		}

		for _, inv := range invites {
			if isPending[inv.Email] {
				continue
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO practice_plan_invitations (plan_id, invited_by, invited_email, invited_user_id, role)
				VALUES ($1, $2, $3, $4, $5)`, planID, invitedBy, inv.Email, inv.UserID, role)
			if err != nil {
				return fmt.Errorf("failed to record invitation: %w", err)
			}
		}

		for _, inv := range invites {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO practice_plan_members (plan_id, user_id, role, added_by)
				VALUES ($1, $2, $3, $4)`, planID, inv.UserID, role, invitedBy)
			if err != nil {
				return fmt.Errorf("failed to add plan member: %w", err)
			}
		}
		return nil
	})
}
