// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/danielhkuo/ankor-api/models"
)

// ErrInvalidMaxReps is returned when an organization has no usable maxWorkoutReps
var ErrInvalidMaxReps = errors.New("maxWorkoutReps must be a positive number")

// BulkCreateEvaluations runs evaluations_bulk_create_tx and returns the
// created evaluations with their items
func (s *Store) BulkCreateEvaluations(ctx context.Context, evaluations []models.EvaluationInput) ([]models.CreatedEvaluation, error) {
	var rows []json.RawMessage
	err := s.RPC(ctx, "evaluations_bulk_create_tx", map[string]interface{}{
		"evaluations": evaluations,
	}, &rows)
	if err != nil {
		return nil, err
	}

	// a function returning one json array comes back as a single element
	if len(rows) == 1 && len(rows[0]) > 0 && rows[0][0] == '[' {
		var inner []json.RawMessage
		if err := json.Unmarshal(rows[0], &inner); err != nil {
			return nil, err
		}
		rows = inner
	}

	out := make([]models.CreatedEvaluation, 0, len(rows))
	for _, raw := range rows {
		var row models.EvaluationRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("failed to decode created evaluation: %w", err)
		}
		out = append(out, row.API())
	}
	return out, nil
}

// OpenEvaluations lists evaluations that are not completed, newest first.
// Evaluations without a team or template are left out.
func (s *Store) OpenEvaluations(ctx context.Context, orgID string) ([]models.EvaluationSummary, error) {
	var b builder
	b.cond("e.status <> 'completed'")
	if orgID != "" {
		b.cond("e.org_id = ?", orgID)
	}

	rows := []models.EvaluationSummary{}
	err := selectJSON(ctx, s.db, &rows, `
		SELECT e.id, e.org_id, e.teams_id, e.coach_id, e.notes, e.created_at, e.status,
			e.template_id AS scorecard_template_id, t.name AS scorecard_template_name, tm.name AS team_name
		FROM evaluations e
		JOIN teams tm ON tm.id = e.teams_id
		JOIN scorecard_templates t ON t.id = e.template_id`+b.whereSQL()+`
		ORDER BY e.created_at DESC`, b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	return rows, nil
}

const evaluationDetailQuery = `
	SELECT e.id, e.org_id, e.template_id, t.name AS template_name, e.coach_id, e.teams_id,
		tm.name AS team_name, e.notes, e.created_at, e.status,
		coalesce((
			SELECT json_agg(json_build_object(
				'id', i.id, 'evaluation_id', i.evaluation_id, 'athlete_id', i.athlete_id,
				'athlete_first_name', a.first_name, 'athlete_last_name', a.last_name,
				'subskill_id', i.subskill_id, 'rating', i.rating, 'comment', i.comment,
				'created_at', i.created_at
			) ORDER BY i.created_at, i.id)
			FROM evaluation_items i LEFT JOIN athletes a ON a.id = i.athlete_id
			WHERE i.evaluation_id = e.id
		), '[]'::json) AS evaluation_items,
		coalesce((
			SELECT json_agg(json_build_object('id', a.id, 'first_name', a.first_name, 'last_name', a.last_name)
				ORDER BY a.last_name, a.first_name)
			FROM athletes a
			WHERE a.id IN (SELECT athlete_id FROM evaluation_items WHERE evaluation_id = e.id)
		), '[]'::json) AS athletes,
		coalesce((
			SELECT json_agg(json_build_object(
				'id', c.id, 'template_id', c.template_id, 'name', c.name,
				'description', c.description, 'position', c.position
			) ORDER BY c.position NULLS LAST, c.name)
			FROM scorecard_categories c WHERE c.template_id = e.template_id
		), '[]'::json) AS categories
	FROM evaluations e
	LEFT JOIN scorecard_templates t ON t.id = e.template_id
	LEFT JOIN teams tm ON tm.id = e.teams_id
	WHERE e.id = $1 AND e.org_id = $2`

// Evaluation loads the matrix view of one evaluation
func (s *Store) Evaluation(ctx context.Context, orgID, id string) (*models.EvaluationDetail, error) {
	var e models.EvaluationDetail
	if err := getJSON(ctx, s.db, &e, evaluationDetailQuery, id, orgID); err != nil {
		return nil, err
	}
	return &e, nil
}

// ApplyMatrixUpdate patches the evaluation header and applies every
// operation in order. Nothing is written unless all of them succeed.
func (s *Store) ApplyMatrixUpdate(ctx context.Context, id string, req models.MatrixUpdateRequest) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var locked string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM evaluations WHERE id = $1 AND org_id = $2 FOR UPDATE`, id, req.OrgID).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock evaluation: %w", err)
		}

		var b builder
		setNullable(&b, "template_id", req.TemplateID)
		setNullable(&b, "teams_id", req.TeamID)
		setNullable(&b, "coach_id", req.CoachID)
		setNullable(&b, "notes", req.Notes)
		if len(b.sets) > 0 {
			query := `UPDATE evaluations SET ` + b.setSQL() + ` WHERE id = ` + b.arg(id)
			if _, err := tx.ExecContext(ctx, query, b.args...); err != nil {
				return fmt.Errorf("failed to update evaluation: %w", err)
			}
		}

		for i, op := range req.Operations {
			if err := applyOperation(ctx, tx, id, op); err != nil {
				return fmt.Errorf("operations[%d]: %w", i, err)
			}
		}
		return nil
	})
}

func applyOperation(ctx context.Context, tx *sql.Tx, evaluationID string, op models.MatrixOperation) error {
	switch {
	case op.Type == models.OpRemoveAthlete:
		_, err := tx.ExecContext(ctx,
			`DELETE FROM evaluation_items WHERE evaluation_id = $1 AND athlete_id = $2`,
			evaluationID, op.AthleteID)
		return err

	case op.Rating == nil:
		_, err := tx.ExecContext(ctx,
			`DELETE FROM evaluation_items WHERE evaluation_id = $1 AND athlete_id = $2 AND subskill_id = $3`,
			evaluationID, op.AthleteID, op.SubskillID)
		return err
	}

	rating := int(*op.Rating)
	res, err := tx.ExecContext(ctx, `
		UPDATE evaluation_items SET rating = $4, comment = $5
		WHERE evaluation_id = $1 AND athlete_id = $2 AND subskill_id = $3`,
		evaluationID, op.AthleteID, op.SubskillID, rating, op.Comments)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO evaluation_items (evaluation_id, athlete_id, subskill_id, rating, comment, recommended_skill_id)
		VALUES ($1, $2, $3, $4, $5, NULL)`,
		evaluationID, op.AthleteID, op.SubskillID, rating, op.Comments)
	return err
}

// SubmitEvaluation marks an open evaluation completed. Evaluations in any
// other state are returned unchanged.
func (s *Store) SubmitEvaluation(ctx context.Context, orgID, id string) (*models.EvaluationStatus, error) {
	var st models.EvaluationStatus
	err := s.db.QueryRowContext(ctx, `
		UPDATE evaluations SET status = 'completed'
		WHERE id = $1 AND org_id = $2 AND status IN ('not_started', 'in_progress')
		RETURNING id, status::text`, id, orgID).Scan(&st.ID, &st.Status)
	if err == nil {
		return &st, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to submit evaluation: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT id, coalesce(status::text, '') FROM evaluations WHERE id = $1 AND org_id = $2`,
		id, orgID).Scan(&st.ID, &st.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load evaluation status: %w", err)
	}
	return &st, nil
}

// LatestEvaluations lists the evaluations an athlete was rated in, newest
// first, and returns the unpaged total
func (s *Store) LatestEvaluations(ctx context.Context, f models.LatestEvaluationFilter) ([]models.AthleteEvaluation, int, error) {
	var b builder
	athlete := b.arg(f.AthleteID)
	b.cond("e.org_id = ?", f.OrgID)
	b.cond(`EXISTS (SELECT 1 FROM evaluation_items i WHERE i.evaluation_id = e.id AND i.athlete_id = ` + athlete + `)`)
	if f.ScorecardName != "" {
		b.cond("t.name ILIKE ?", likePattern(f.ScorecardName))
	}
	if f.CoachID != "" {
		b.cond("e.coach_id = ?", f.CoachID)
	} else if f.CoachName != "" {
		b.cond("c.full_name ILIKE ?", likePattern(f.CoachName))
	}
	if f.DateFrom != nil {
		b.cond("e.created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		b.cond("e.created_at <= ?", *f.DateTo)
	}

	from := ` FROM evaluations e
		JOIN scorecard_templates t ON t.id = e.template_id
		JOIN coaches c ON c.id = e.coach_id
		JOIN athletes a ON a.id = ` + athlete + b.whereSQL()
	total, err := count(ctx, s.db, `SELECT e.id`+from, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count evaluations: %w", err)
	}

	rows := []models.AthleteEvaluation{}
	query := `SELECT e.id AS evaluation_id, e.created_at, t.name AS scorecard_name,
		c.full_name AS coach_name, a.id AS athlete_id, a.full_name AS athlete_full_name` + from +
		` ORDER BY e.created_at DESC LIMIT ` + b.arg(f.Limit) + ` OFFSET ` + b.arg(f.Offset)
	if err := selectJSON(ctx, s.db, &rows, query, b.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list evaluations: %w", err)
	}
	return rows, total, nil
}

// EvaluationAthletes lists the distinct athletes rated in an evaluation
func (s *Store) EvaluationAthletes(ctx context.Context, orgID, evaluationID, athleteID string, limit, offset int) ([]models.AthleteEvaluation, int, error) {
	var b builder
	b.cond("i.evaluation_id = ?", evaluationID)
	b.cond("e.org_id = ?", orgID)
	if athleteID != "" {
		b.cond("i.athlete_id = ?", athleteID)
	}

	distinct := `SELECT DISTINCT ON (a.id) e.id AS evaluation_id, e.created_at, t.name AS scorecard_name,
			c.full_name AS coach_name, a.id AS athlete_id, a.full_name AS athlete_full_name
		FROM evaluation_items i
		JOIN evaluations e ON e.id = i.evaluation_id
		JOIN athletes a ON a.id = i.athlete_id
		LEFT JOIN scorecard_templates t ON t.id = e.template_id
		LEFT JOIN coaches c ON c.id = e.coach_id` + b.whereSQL() + `
		ORDER BY a.id`
	total, err := count(ctx, s.db, distinct, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count evaluation athletes: %w", err)
	}

	rows := []models.AthleteEvaluation{}
	query := `SELECT * FROM (` + distinct + `) x ORDER BY athlete_full_name NULLS LAST, athlete_id
		LIMIT ` + b.arg(limit) + ` OFFSET ` + b.arg(offset)
	if err := selectJSON(ctx, s.db, &rows, query, b.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list evaluation athletes: %w", err)
	}
	return rows, total, nil
}

// lowRatings is the shared source of improvement skills and skill videos:
// scorecard skills an athlete was rated below $4 on
func lowRatings(join string) string {
	return `
	FROM evaluation_items i
	JOIN evaluations e ON e.id = i.evaluation_id
	JOIN skills sk ON sk.id = i.subskill_id` + join + `
	WHERE i.evaluation_id = $1 AND e.org_id = $2 AND i.athlete_id = $3 AND i.rating < $4
		AND EXISTS (SELECT 1 FROM scorecard_subskills ss WHERE ss.skill_id = i.subskill_id)`
}

// ImprovementSkills lists skills rated below ratingMax, most recent first
func (s *Store) ImprovementSkills(ctx context.Context, orgID, evaluationID, athleteID string, ratingMax, limit, offset int) ([]models.ImprovementSkill, int, error) {
	args := []interface{}{evaluationID, orgID, athleteID, ratingMax}
	from := lowRatings("")
	total, err := count(ctx, s.db, `SELECT i.id`+from, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count improvement skills: %w", err)
	}

	skills := []models.ImprovementSkill{}
	err = selectJSON(ctx, s.db, &skills, `
		SELECT i.evaluation_id, i.subskill_id AS skill_id, sk.title AS skill_name, i.rating`+from+`
		ORDER BY i.created_at DESC LIMIT $5 OFFSET $6`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list improvement skills: %w", err)
	}
	return skills, total, nil
}

// SkillVideos lists the mapped videos of every skill rated below ratingMax
func (s *Store) SkillVideos(ctx context.Context, orgID, evaluationID, athleteID string, ratingMax int) ([]models.SkillVideo, error) {
	videos := []models.SkillVideo{}
	err := selectJSON(ctx, s.db, &videos, `
		SELECT i.evaluation_id, i.subskill_id AS skill_id, sk.title, v.object_path, i.rating`+
		lowRatings(` JOIN skill_video_map v ON v.skill_id = i.subskill_id`)+`
		ORDER BY i.created_at DESC, v.object_path`, evaluationID, orgID, athleteID, ratingMax)
	if err != nil {
		return nil, fmt.Errorf("failed to list skill videos: %w", err)
	}
	return videos, nil
}

// SubskillRatings lists every rating of an athlete with the template category it belongs to
func (s *Store) SubskillRatings(ctx context.Context, orgID, evaluationID, athleteID string) ([]models.SubskillRating, error) {
	rows := []models.SubskillRating{}
	err := selectJSON(ctx, s.db, &rows, `
		SELECT c.id AS category_id, c.name AS category_name, i.subskill_id AS skill_id,
			sk.title AS skill_name, i.rating
		FROM evaluation_items i
		JOIN evaluations e ON e.id = i.evaluation_id
		JOIN scorecard_subskills ss ON ss.skill_id = i.subskill_id
		JOIN scorecard_categories c ON c.id = ss.category_id AND c.template_id = e.template_id
		LEFT JOIN skills sk ON sk.id = i.subskill_id
		WHERE i.evaluation_id = $1 AND e.org_id = $2 AND i.athlete_id = $3
		ORDER BY c.position NULLS LAST, c.name, ss.position NULLS LAST`,
		evaluationID, orgID, athleteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subskill ratings: %w", err)
	}
	return rows, nil
}

const workoutProgressColumns = `
	p.id, p.org_id, p.evaluation_id, p.athlete_id, p.progress, p.level, o."maxWorkoutReps"`

// WorkoutProgress lists an athlete's workout progress rows with the organization's rep target
func (s *Store) WorkoutProgress(ctx context.Context, orgID, athleteID, evaluationID string, limit, offset int) ([]models.WorkoutProgress, int, error) {
	var b builder
	b.cond("p.org_id = ?", orgID)
	b.cond("p.athlete_id = ?", athleteID)
	if evaluationID != "" {
		b.cond("p.evaluation_id = ?", evaluationID)
	}

	from := ` FROM evaluation_workout_progress p JOIN organizations o ON o.id = p.org_id` + b.whereSQL()
	total, err := count(ctx, s.db, `SELECT p.id`+from, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count workout progress: %w", err)
	}

	rows := []models.WorkoutProgress{}
	query := `SELECT ` + workoutProgressColumns + from +
		` ORDER BY p.id LIMIT ` + b.arg(limit) + ` OFFSET ` + b.arg(offset)
	if err := selectJSON(ctx, s.db, &rows, query, b.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list workout progress: %w", err)
	}
	return rows, total, nil
}

// IncrementWorkoutProgress records one completed workout. Reaching the
// organization's maxWorkoutReps starts the next level.
func (s *Store) IncrementWorkoutProgress(ctx context.Context, orgID, athleteID, evaluationID string) (*models.WorkoutProgress, error) {
	var out models.WorkoutProgress
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var cur models.WorkoutProgress
		err := getJSON(ctx, tx, &cur, `
			SELECT `+workoutProgressColumns+`
			FROM evaluation_workout_progress p JOIN organizations o ON o.id = p.org_id
			WHERE p.org_id = $1 AND p.athlete_id = $2 AND p.evaluation_id = $3
			LIMIT 1 FOR UPDATE OF p`, orgID, athleteID, evaluationID)
		if err != nil {
			return err
		}
		if cur.MaxWorkoutReps == nil || *cur.MaxWorkoutReps <= 0 {
			return ErrInvalidMaxReps
		}

		progress, level := cur.Advance(*cur.MaxWorkoutReps)
		out = cur
		out.Progress, out.Level = &progress, &level
		_, err = tx.ExecContext(ctx,
			`UPDATE evaluation_workout_progress SET progress = $2, level = $3 WHERE id = $1`,
			cur.ID, progress, level)
		if err != nil {
			return fmt.Errorf("failed to update workout progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// WorkoutDrills returns the drills of the athlete's current level, each with
// its first media item's title and thumbnail. A nil level means there is
// nothing to show.
func (s *Store) WorkoutDrills(ctx context.Context, orgID, athleteID, evaluationID string) (*models.WorkoutLevel, error) {
	var cur struct {
		Level    *int `json:"level"`
		Progress *int `json:"progress"`
	}
	err := getJSON(ctx, s.db, &cur, `
		SELECT level, progress FROM evaluation_workout_progress
		WHERE org_id = $1 AND athlete_id = $2 AND evaluation_id = $3`, orgID, athleteID, evaluationID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workout progress: %w", err)
	}
	if cur.Level == nil {
		return nil, nil
	}

	drills := []models.WorkoutDrill{}
	err = selectJSON(ctx, s.db, &drills, `
		SELECT w.drill_id AS id, coalesce(m.title, '') AS title, '30' AS duration, m.thumbnail_url AS "thumbnailUrl"
		FROM evaluation_workout_drills w
		LEFT JOIN LATERAL (
			SELECT title, thumbnail_url FROM drill_media
			WHERE drill_id = w.drill_id ORDER BY sort_order NULLS LAST LIMIT 1
		) m ON true
		WHERE w.org_id = $1 AND w.athlete_id = $2 AND w.evaluation_id = $3 AND w.level = $4
			AND w.drill_id IS NOT NULL`, orgID, athleteID, evaluationID, *cur.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to list workout drills: %w", err)
	}
	if len(drills) == 0 {
		return nil, nil
	}

	return &models.WorkoutLevel{
		Level:      *cur.Level,
		Title:      "Level " + strconv.Itoa(*cur.Level),
		TargetReps: cur.Progress,
		Drills:     drills,
	}, nil
}
