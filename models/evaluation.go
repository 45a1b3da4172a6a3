// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"strings"
	"time"
)

const (
	EvaluationNotStarted = "not_started"
	EvaluationInProgress = "in_progress"
	EvaluationCompleted  = "completed"
)

const (
	OpUpsertRating  = "upsert_rating"
	OpRemoveAthlete = "remove_athlete"
)

// EvaluationItemInput is one rating inside a bulk-created evaluation
type EvaluationItemInput struct {
	AthleteID string   `json:"athlete_id" validate:"required,uuid_any"`
	SkillID   string   `json:"skill_id" validate:"required,uuid_any"`
	Rating    *float64 `json:"rating" validate:"required,rating"`
	Comments  *string  `json:"comments"`
}

type EvaluationInput struct {
	OrgID               string                `json:"org_id" validate:"required,uuid_any"`
	ScorecardTemplateID string                `json:"scorecard_template_id" validate:"required,uuid_any"`
	TeamID              *string               `json:"team_id" validate:"omitnil,uuid_any"`
	CoachID             string                `json:"coach_id" validate:"required,uuid_any"`
	Notes               *string               `json:"notes"`
	EvaluationItems     []EvaluationItemInput `json:"evaluation_items" validate:"required,min=1,dive"`
}

// BulkCreateEvaluationsRequest is the body of POST /evaluations/bulk-create.
// A nil Evaluations means the key was missing or null.
type BulkCreateEvaluationsRequest struct {
	Evaluations []EvaluationInput `json:"evaluations" validate:"dive"`
}

func (r *BulkCreateEvaluationsRequest) Normalize() {
	for i := range r.Evaluations {
		e := &r.Evaluations[i]
		e.OrgID = strings.TrimSpace(e.OrgID)
		e.ScorecardTemplateID = strings.TrimSpace(e.ScorecardTemplateID)
		e.CoachID = strings.TrimSpace(e.CoachID)
		if e.TeamID != nil && strings.TrimSpace(*e.TeamID) == "" {
			e.TeamID = nil
		}
	}
}

// EvaluationItem is a created rating, keyed the way API clients send them
type EvaluationItem struct {
	ID                 string   `json:"id"`
	EvaluationID       string   `json:"evaluation_id"`
	AthleteID          string   `json:"athlete_id"`
	SkillID            string   `json:"skill_id"`
	Rating             *float64 `json:"rating"`
	Comments           *string  `json:"comments"`
	RecommendedSkillID *string  `json:"recommended_skill_id,omitempty"`
	CreatedAt          string   `json:"created_at,omitempty"`
}

// CreatedEvaluation is one row returned by evaluations_bulk_create_tx after
// renaming template_id, teams_id, subskill_id and comment to their API names
type CreatedEvaluation struct {
	ID                  string           `json:"id"`
	OrgID               string           `json:"org_id"`
	ScorecardTemplateID string           `json:"scorecard_template_id"`
	TeamID              *string          `json:"team_id"`
	CoachID             string           `json:"coach_id"`
	Notes               *string          `json:"notes"`
	Status              *string          `json:"status,omitempty"`
	CreatedAt           string           `json:"created_at,omitempty"`
	EvaluationItems     []EvaluationItem `json:"evaluation_items"`
}

// EvaluationRow is the stored shape of CreatedEvaluation
type EvaluationRow struct {
	ID              string    `json:"id"`
	OrgID           string    `json:"org_id"`
	TemplateID      string    `json:"template_id"`
	TeamsID         *string   `json:"teams_id"`
	CoachID         string    `json:"coach_id"`
	Notes           *string   `json:"notes"`
	Status          *string   `json:"status"`
	CreatedAt       string    `json:"created_at"`
	EvaluationItems []ItemRow `json:"evaluation_items"`
}

type ItemRow struct {
	ID                 string   `json:"id"`
	EvaluationID       string   `json:"evaluation_id"`
	AthleteID          string   `json:"athlete_id"`
	SubskillID         string   `json:"subskill_id"`
	Rating             *float64 `json:"rating"`
	Comment            *string  `json:"comment"`
	RecommendedSkillID *string  `json:"recommended_skill_id"`
	CreatedAt          string   `json:"created_at"`
}

// API renames stored columns to the names clients use
func (e EvaluationRow) API() CreatedEvaluation {
	out := CreatedEvaluation{
		ID:                  e.ID,
		OrgID:               e.OrgID,
		ScorecardTemplateID: e.TemplateID,
		TeamID:              e.TeamsID,
		CoachID:             e.CoachID,
		Notes:               e.Notes,
		Status:              e.Status,
		CreatedAt:           e.CreatedAt,
		EvaluationItems:     make([]EvaluationItem, len(e.EvaluationItems)),
	}
	for i, it := range e.EvaluationItems {
		out.EvaluationItems[i] = EvaluationItem{
			ID:                 it.ID,
			EvaluationID:       it.EvaluationID,
			AthleteID:          it.AthleteID,
			SkillID:            it.SubskillID,
			Rating:             it.Rating,
			Comments:           it.Comment,
			RecommendedSkillID: it.RecommendedSkillID,
			CreatedAt:          it.CreatedAt,
		}
	}
	return out
}

// EvaluationSummary is a row of GET /evaluations/list
type EvaluationSummary struct {
	ID                    string  `json:"id"`
	OrgID                 string  `json:"org_id"`
	TeamsID               *string `json:"teams_id"`
	CoachID               *string `json:"coach_id"`
	Notes                 *string `json:"notes"`
	CreatedAt             string  `json:"created_at"`
	Status                *string `json:"status"`
	ScorecardTemplateID   *string `json:"scorecard_template_id"`
	ScorecardTemplateName *string `json:"scorecard_template_name"`
	TeamName              *string `json:"team_name"`
}

type EvaluationDetailItem struct {
	ID               string   `json:"id"`
	EvaluationID     string   `json:"evaluation_id"`
	AthleteID        string   `json:"athlete_id"`
	AthleteFirstName *string  `json:"athlete_first_name"`
	AthleteLastName  *string  `json:"athlete_last_name"`
	SubskillID       string   `json:"subskill_id"`
	Rating           *float64 `json:"rating"`
	Comment          *string  `json:"comment"`
	CreatedAt        string   `json:"created_at"`
}

type EvaluationAthlete struct {
	ID        string  `json:"id"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// EvaluationDetail is the matrix view returned by GET /evaluations/eval/:id
type EvaluationDetail struct {
	ID              string                 `json:"id"`
	OrgID           string                 `json:"org_id"`
	TemplateID      *string                `json:"template_id"`
	TemplateName    *string                `json:"template_name"`
	CoachID         *string                `json:"coach_id"`
	TeamsID         *string                `json:"teams_id"`
	TeamName        *string                `json:"team_name"`
	Notes           *string                `json:"notes"`
	CreatedAt       string                 `json:"created_at"`
	Status          *string                `json:"status"`
	EvaluationItems []EvaluationDetailItem `json:"evaluation_items"`
	Athletes        []EvaluationAthlete    `json:"athletes"`
	Categories      []ScorecardCategory    `json:"categories"`
}

type EvaluationDetailResponse struct {
	OK         bool              `json:"ok"`
	Evaluation *EvaluationDetail `json:"evaluation"`
}

// MatrixOperation edits one cell or one row of the evaluation matrix.
// A null rating deletes the cell.
type MatrixOperation struct {
	Type       string   `json:"type" validate:"oneof=upsert_rating remove_athlete"`
	AthleteID  string   `json:"athlete_id" validate:"uuid_any"`
	SubskillID string   `json:"subskill_id" validate:"required_if=Type upsert_rating,omitempty,uuid_any"`
	Rating     *FlexInt `json:"rating" validate:"omitnil,rating"`
	Comments   *string  `json:"comments"`
}

// MatrixUpdateRequest is the body of PATCH /evaluations/eval/:id/matrix
type MatrixUpdateRequest struct {
	OrgID      string            `json:"org_id" validate:"uuid_any"`
	TemplateID Nullable[string]  `json:"template_id" validate:"omitempty,uuid_any"`
	TeamID     Nullable[string]  `json:"team_id" validate:"omitempty,uuid_any"`
	CoachID    Nullable[string]  `json:"coach_id" validate:"omitempty,uuid_any"`
	Notes      Nullable[string]  `json:"notes"`
	Operations []MatrixOperation `json:"operations" validate:"min=1,dive"`
}

func (r *MatrixUpdateRequest) Normalize() {
	r.OrgID = strings.TrimSpace(r.OrgID)
	for i := range r.Operations {
		op := &r.Operations[i]
		op.Type = strings.TrimSpace(op.Type)
		op.AthleteID = strings.TrimSpace(op.AthleteID)
		op.SubskillID = strings.TrimSpace(op.SubskillID)
	}
}

func (r *MatrixUpdateRequest) Messages() map[string]string {
	return map[string]string{
		"org_id.uuid_any": "org_id (UUID) is required",
		"operations.min":  "'operations' array must not be empty",
	}
}

// EvaluationStatus is the result of a submit
type EvaluationStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// LatestEvaluationFilter narrows GET /evaluations/latest-by-athlete.
// DateFrom and DateTo are inclusive.
type LatestEvaluationFilter struct {
	OrgID         string
	AthleteID     string
	ScorecardName string
	CoachID       string
	CoachName     string
	DateFrom      *time.Time
	DateTo        *time.Time
	Limit         int
	Offset        int
}

// AthleteEvaluation is one (evaluation, athlete) pair as stored
type AthleteEvaluation struct {
	EvaluationID    string  `json:"evaluation_id"`
	CreatedAt       *string `json:"created_at"`
	ScorecardName   *string `json:"scorecard_name"`
	CoachName       *string `json:"coach_name"`
	AthleteID       string  `json:"athlete_id"`
	AthleteFullName *string `json:"athlete_full_name"`
}

// AthleteEvaluationItem is the client shape of AthleteEvaluation
type AthleteEvaluationItem struct {
	EvaluationID    string  `json:"evaluation_id"`
	Date            *string `json:"date"`
	ScorecardName   *string `json:"scorecard_name"`
	CoachName       *string `json:"coach_name"`
	AthleteID       string  `json:"athlete_id"`
	AthleteFullName *string `json:"athlete_full_name"`
	AthletesName    *string `json:"athletes_name,omitempty"`
}

// Item formats the evaluation date. withAlias also fills athletes_name.
func (a AthleteEvaluation) Item(withAlias bool) AthleteEvaluationItem {
	item := AthleteEvaluationItem{
		EvaluationID:    a.EvaluationID,
		Date:            FormatEvaluationDate(a.CreatedAt),
		ScorecardName:   a.ScorecardName,
		CoachName:       a.CoachName,
		AthleteID:       a.AthleteID,
		AthleteFullName: a.AthleteFullName,
	}
	if withAlias {
		item.AthletesName = a.AthleteFullName
	}
	return item
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07",
}

// FormatEvaluationDate renders a timestamp as "JAN 2, 2025 AT 3:04 PM" in UTC.
// Unparseable values yield nil.
func FormatEvaluationDate(ts *string) *string {
	if ts == nil {
		return nil
	}
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, *ts)
		if err != nil {
			continue
		}
		s := strings.ToUpper(t.UTC().Format("Jan 2, 2006 at 3:04 PM"))
		return &s
	}
	return nil
}

// ParseDateBound parses an ISO date or timestamp. Date-only values expand
// to the first or last millisecond of that UTC day.
func ParseDateBound(s string, end bool) (time.Time, bool) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		if end {
			t = t.Add(24*time.Hour - time.Millisecond)
		}
		return t, true
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

type ImprovementSkill struct {
	EvaluationID string   `json:"evaluation_id"`
	SkillID      string   `json:"skill_id"`
	SkillName    *string  `json:"skill_name"`
	Rating       *float64 `json:"rating"`
}

type SkillVideo struct {
	EvaluationID string   `json:"evaluation_id"`
	SkillID      string   `json:"skill_id"`
	Title        *string  `json:"title"`
	ObjectPath   *string  `json:"object_path"`
	Rating       *float64 `json:"rating"`
}

// SubskillRating is one rated skill with its scorecard category
type SubskillRating struct {
	CategoryID   string   `json:"category_id"`
	CategoryName *string  `json:"category_name"`
	SkillID      string   `json:"skill_id"`
	SkillName    *string  `json:"skill_name"`
	Rating       *float64 `json:"rating"`
}

type SubskillScore struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type RatingCategory struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Subskills []SubskillScore `json:"subskills"`
}

// GroupRatings groups ratings by category in first-seen order. Unrated
// skills are dropped but still register their category.
func GroupRatings(rows []SubskillRating) []RatingCategory {
	out := []RatingCategory{}
	index := map[string]int{}
	for _, row := range rows {
		if row.CategoryID == "" {
			continue
		}
		i, ok := index[row.CategoryID]
		if !ok {
			i = len(out)
			index[row.CategoryID] = i
			name := ""
			if row.CategoryName != nil {
				name = *row.CategoryName
			}
			out = append(out, RatingCategory{ID: row.CategoryID, Name: name, Subskills: []SubskillScore{}})
		}
		if row.Rating == nil || row.SkillID == "" {
			continue
		}
		name := ""
		if row.SkillName != nil {
			name = *row.SkillName
		}
		out[i].Subskills = append(out[i].Subskills, SubskillScore{ID: row.SkillID, Name: name, Score: *row.Rating})
	}
	return out
}

// WorkoutProgress tracks an athlete's reps and level for one evaluation
type WorkoutProgress struct {
	ID             string `json:"id"`
	OrgID          string `json:"org_id"`
	EvaluationID   string `json:"evaluation_id"`
	AthleteID      string `json:"athlete_id"`
	Progress       *int   `json:"progress"`
	Level          *int   `json:"level"`
	MaxWorkoutReps *int   `json:"maxWorkoutReps"`
}

// Advance adds one rep. Reaching max resets progress and moves up a level.
func (p WorkoutProgress) Advance(maxReps int) (progress, level int) {
	if p.Progress != nil {
		progress = *p.Progress
	}
	if p.Level != nil {
		level = *p.Level
	}
	progress++
	if progress >= maxReps {
		progress = 0
		level++
	}
	return progress, level
}

type WorkoutDrill struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Duration     string  `json:"duration"`
	ThumbnailURL *string `json:"thumbnailUrl"`
}

type WorkoutLevel struct {
	Level      int            `json:"level"`
	Title      string         `json:"title"`
	TargetReps *int           `json:"targetReps"`
	Drills     []WorkoutDrill `json:"drills"`
}
