// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/ankor-api/db"
	"github.com/danielhkuo/ankor-api/logging"
	"github.com/danielhkuo/ankor-api/middleware"
	"github.com/danielhkuo/ankor-api/models"
	"github.com/danielhkuo/ankor-api/validation"
)

// lowRatingMax is the exclusive rating bound for skills an athlete should work on
const lowRatingMax = 3

type EvaluationStore interface {
	BulkCreateEvaluations(ctx context.Context, evaluations []models.EvaluationInput) ([]models.CreatedEvaluation, error)
	OpenEvaluations(ctx context.Context, orgID string) ([]models.EvaluationSummary, error)
	Evaluation(ctx context.Context, orgID, id string) (*models.EvaluationDetail, error)
	ApplyMatrixUpdate(ctx context.Context, id string, req models.MatrixUpdateRequest) error
	SubmitEvaluation(ctx context.Context, orgID, id string) (*models.EvaluationStatus, error)
	LatestEvaluations(ctx context.Context, f models.LatestEvaluationFilter) ([]models.AthleteEvaluation, int, error)
	EvaluationAthletes(ctx context.Context, orgID, evaluationID, athleteID string, limit, offset int) ([]models.AthleteEvaluation, int, error)
	ImprovementSkills(ctx context.Context, orgID, evaluationID, athleteID string, ratingMax, limit, offset int) ([]models.ImprovementSkill, int, error)
	SkillVideos(ctx context.Context, orgID, evaluationID, athleteID string, ratingMax int) ([]models.SkillVideo, error)
	SubskillRatings(ctx context.Context, orgID, evaluationID, athleteID string) ([]models.SubskillRating, error)
	WorkoutProgress(ctx context.Context, orgID, athleteID, evaluationID string, limit, offset int) ([]models.WorkoutProgress, int, error)
	IncrementWorkoutProgress(ctx context.Context, orgID, athleteID, evaluationID string) (*models.WorkoutProgress, error)
	WorkoutDrills(ctx context.Context, orgID, athleteID, evaluationID string) (*models.WorkoutLevel, error)
}

type EvaluationHandler struct {
	store EvaluationStore
}

func NewEvaluationHandler(store EvaluationStore) *EvaluationHandler {
	return &EvaluationHandler{store: store}
}

// requireOrg writes a 400 and returns "" unless the request carries an org UUID
func requireOrg(w http.ResponseWriter, r *http.Request) string {
	org := orgID(r)
	if !validation.IsUUID(org) {
		middleware.BadRequest(w, "org_id (UUID) is required")
		return ""
	}
	return org
}

// evaluationID reads :id, falling back to ?evaluation_id
func evaluationID(w http.ResponseWriter, r *http.Request) string {
	var id string
	if c := middleware.RequestContext(r); c != nil {
		id = strings.TrimSpace(c.Param("id"))
	}
	if id == "" {
		id = queryString(r, "evaluation_id")
	}
	if !validation.IsUUID(id) {
		middleware.BadRequest(w, "evaluation_id (UUID) is required")
		return ""
	}
	return id
}

// athleteScope resolves the org, evaluation and athlete of the athlete-facing reads
func athleteScope(w http.ResponseWriter, r *http.Request) (org, evaluation, athlete string, ok bool) {
	if org = requireOrg(w, r); org == "" {
		return "", "", "", false
	}
	if athlete = requireUUIDQuery(w, r, "athlete_id"); athlete == "" {
		return "", "", "", false
	}
	if evaluation = evaluationID(w, r); evaluation == "" {
		return "", "", "", false
	}
	return org, evaluation, athlete, true
}

// BulkCreate handles POST /evaluations/bulk-create
func (h *EvaluationHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	var req models.BulkCreateEvaluationsRequest
	if !decodeObject(w, r, &req) {
		return
	}
	if req.Evaluations == nil {
		middleware.BadRequest(w, "Body must contain an 'evaluations' array.")
		return
	}
	if !validate(w, &req) {
		return
	}

	ctx := r.Context()
	created, err := h.store.BulkCreateEvaluations(ctx, req.Evaluations)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to create evaluations")
		return
	}

	logging.Ctx(ctx).Info().Int("count", len(created)).Msg("evaluations created")
	middleware.Created(w, models.CountedDataResponse{OK: true, Count: len(created), Data: created})
}

// ListOpen handles GET /evaluations/list
func (h *EvaluationHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	evaluations, err := h.store.OpenEvaluations(r.Context(), orgID(r))
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list evaluations")
		return
	}
	middleware.OK(w, models.CountedDataResponse{OK: true, Count: len(evaluations), Data: evaluations})
}

// GetEvaluation handles GET /evaluations/eval/:id
func (h *EvaluationHandler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	id := evaluationID(w, r)
	if id == "" {
		return
	}
	org := requireOrg(w, r)
	if org == "" {
		return
	}

	evaluation, err := h.store.Evaluation(r.Context(), org, id)
	if errors.Is(err, db.ErrNotFound) {
		middleware.NotFound(w, "Evaluation not found")
		return
	}
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to fetch evaluation")
		return
	}
	middleware.OK(w, models.EvaluationDetailResponse{OK: true, Evaluation: evaluation})
}

// UpdateMatrix handles PATCH /evaluations/eval/:id/matrix
func (h *EvaluationHandler) UpdateMatrix(w http.ResponseWriter, r *http.Request) {
	id := evaluationID(w, r)
	if id == "" {
		return
	}

	if !hasOperations(r) {
		middleware.BadRequest(w, "Body must include an 'operations' array")
		return
	}
	var req models.MatrixUpdateRequest
	if !decodeObject(w, r, &req) || !validate(w, &req) {
		return
	}

	ctx := r.Context()
	err := h.store.ApplyMatrixUpdate(ctx, id, req)
	if err == nil {
		var evaluation *models.EvaluationDetail
		evaluation, err = h.store.Evaluation(ctx, req.OrgID, id)
		if err == nil {
			logging.Ctx(ctx).Info().Str("evaluation_id", id).Int("operations", len(req.Operations)).
				Msg("evaluation matrix updated")
			middleware.OK(w, models.EvaluationDetailResponse{OK: true, Evaluation: evaluation})
			return
		}
	}
	if errors.Is(err, db.ErrNotFound) {
		middleware.NotFound(w, "Evaluation not found")
		return
	}
	middleware.InternalError(w, r, err, "Failed to update evaluation")
}

// hasOperations reports whether the body is an object whose operations key holds an array
func hasOperations(r *http.Request) bool {
	c := middleware.RequestContext(r)
	if c == nil {
		return false
	}
	obj, err := c.BodyObject()
	if err != nil {
		return false
	}
	raw := bytes.TrimSpace(obj["operations"])
	return len(raw) > 0 && raw[0] == '['
}

// Submit handles POST /evaluations/eval/:id/submit and POST /evaluations/:id
func (h *EvaluationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id := evaluationID(w, r)
	if id == "" {
		return
	}
	org := requireOrg(w, r)
	if org == "" {
		return
	}

	ctx := r.Context()
	status, err := h.store.SubmitEvaluation(ctx, org, id)
	if errors.Is(err, db.ErrNotFound) {
		middleware.NotFound(w, "Evaluation not found")
		return
	}
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to submit evaluation")
		return
	}

	logging.Ctx(ctx).Info().Str("evaluation_id", id).Str("status", status.Status).Msg("evaluation submitted")
	middleware.OK(w, models.DataResponse{OK: true, Data: status})
}

// dateRange resolves date_from/date_to, or a single date covering one day
func dateRange(w http.ResponseWriter, r *http.Request) (from, to *time.Time, ok bool) {
	bound := func(key string, end bool) (*time.Time, bool) {
		raw := queryString(r, key)
		if raw == "" {
			return nil, true
		}
		t, valid := models.ParseDateBound(raw, end)
		if !valid {
			middleware.BadRequest(w, key+" must be a valid date")
			return nil, false
		}
		return &t, true
	}

	if from, ok = bound("date_from", false); !ok {
		return nil, nil, false
	}
	if to, ok = bound("date_to", true); !ok {
		return nil, nil, false
	}
	if from != nil || to != nil {
		return from, to, true
	}

	day := queryString(r, "date")
	if day == "" {
		return nil, nil, true
	}
	start, okStart := models.ParseDateBound(day, false)
	end, okEnd := models.ParseDateBound(day, true)
	if !okStart || !okEnd {
		middleware.BadRequest(w, "date must be a valid date")
		return nil, nil, false
	}
	return &start, &end, true
}

// LatestByAthlete handles GET /evaluations/latest-by-athlete
func (h *EvaluationHandler) LatestByAthlete(w http.ResponseWriter, r *http.Request) {
	org := requireOrg(w, r)
	if org == "" {
		return
	}
	athlete := requireUUIDQuery(w, r, "athlete_id")
	if athlete == "" {
		return
	}

	f := models.LatestEvaluationFilter{
		OrgID:         org,
		AthleteID:     athlete,
		ScorecardName: queryString(r, "scorecard_name"),
		CoachID:       queryString(r, "coach_id"),
		CoachName:     queryString(r, "coach_name"),
		Limit:         queryInt(r, "limit", 20, 1, 200),
		Offset:        queryOffset(r),
	}
	// coach matches by id when it is a UUID and by name otherwise
	if coach := queryString(r, "coach"); coach != "" {
		if f.CoachName == "" {
			f.CoachName = coach
		}
		if f.CoachID == "" && validation.IsUUID(coach) {
			f.CoachID = coach
		}
	}
	if f.CoachID != "" && !validation.IsUUID(f.CoachID) {
		middleware.BadRequest(w, "coach_id (UUID) is required")
		return
	}

	var ok bool
	if f.DateFrom, f.DateTo, ok = dateRange(w, r); !ok {
		return
	}

	rows, total, err := h.store.LatestEvaluations(r.Context(), f)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list evaluations")
		return
	}
	items := make([]models.AthleteEvaluationItem, len(rows))
	for i, row := range rows {
		items[i] = row.Item(false)
	}
	middleware.OK(w, models.CountedDataResponse{OK: true, Count: total, Data: items})
}

// AthletesByID handles GET /evaluations/athletes-by-id
func (h *EvaluationHandler) AthletesByID(w http.ResponseWriter, r *http.Request) {
	org := requireOrg(w, r)
	if org == "" {
		return
	}
	evaluation := requireUUIDQuery(w, r, "evaluation_id")
	if evaluation == "" {
		return
	}
	athlete := queryString(r, "athlete_id")
	if athlete != "" && !validation.IsUUID(athlete) {
		middleware.BadRequest(w, "athlete_id (UUID) is required")
		return
	}

	rows, total, err := h.store.EvaluationAthletes(r.Context(), org, evaluation, athlete,
		queryInt(r, "limit", 200, 1, 200), queryOffset(r))
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list evaluation athletes")
		return
	}
	items := make([]models.AthleteEvaluationItem, len(rows))
	for i, row := range rows {
		items[i] = row.Item(true)
	}
	middleware.OK(w, models.CountedDataResponse{OK: true, Count: total, Data: items})
}

// ImprovementSkills handles GET /evaluations/eval/:id/improvement-skills
func (h *EvaluationHandler) ImprovementSkills(w http.ResponseWriter, r *http.Request) {
	org, evaluation, athlete, ok := athleteScope(w, r)
	if !ok {
		return
	}

	skills, total, err := h.store.ImprovementSkills(r.Context(), org, evaluation, athlete, lowRatingMax,
		queryInt(r, "limit", 3, 1, 200), queryOffset(r))
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list improvement skills")
		return
	}
	middleware.OK(w, models.CountedDataResponse{OK: true, Count: total, Data: skills})
}

// SkillVideos handles GET /evaluations/eval/:id/skill-videos
func (h *EvaluationHandler) SkillVideos(w http.ResponseWriter, r *http.Request) {
	org, evaluation, athlete, ok := athleteScope(w, r)
	if !ok {
		return
	}

	videos, err := h.store.SkillVideos(r.Context(), org, evaluation, athlete, lowRatingMax)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list skill videos")
		return
	}
	middleware.OK(w, models.CountedDataResponse{OK: true, Count: len(videos), Data: videos})
}

// SubskillRatings handles GET /evaluations/eval/:id/subskill-ratings
func (h *EvaluationHandler) SubskillRatings(w http.ResponseWriter, r *http.Request) {
	org, evaluation, athlete, ok := athleteScope(w, r)
	if !ok {
		return
	}

	rows, err := h.store.SubskillRatings(r.Context(), org, evaluation, athlete)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list subskill ratings")
		return
	}
	categories := models.GroupRatings(rows)
	middleware.OK(w, models.CountedDataResponse{OK: true, Count: len(categories), Data: categories})
}

// WorkoutProgress handles GET /evaluations/eval/:id/workout-progress
func (h *EvaluationHandler) WorkoutProgress(w http.ResponseWriter, r *http.Request) {
	org, evaluation, athlete, ok := athleteScope(w, r)
	if !ok {
		return
	}

	rows, total, err := h.store.WorkoutProgress(r.Context(), org, athlete, evaluation,
		queryInt(r, "limit", 200, 1, 200), queryOffset(r))
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list workout progress")
		return
	}
	middleware.OK(w, models.CountedDataResponse{OK: true, Count: total, Data: rows})
}

// IncrementWorkoutProgress handles POST /evaluations/eval/:id/workout-progress
func (h *EvaluationHandler) IncrementWorkoutProgress(w http.ResponseWriter, r *http.Request) {
	org, evaluation, athlete, ok := athleteScope(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	progress, err := h.store.IncrementWorkoutProgress(ctx, org, athlete, evaluation)
	switch {
	case errors.Is(err, db.ErrNotFound):
		middleware.NotFound(w, "Workout progress not found")
		return
	case errors.Is(err, db.ErrInvalidMaxReps):
		middleware.BadRequest(w, err.Error())
		return
	case err != nil:
		middleware.InternalError(w, r, err, "Failed to update workout progress")
		return
	}

	logging.Ctx(ctx).Debug().Str("evaluation_id", evaluation).Str("athlete_id", athlete).
		Msg("workout progress incremented")
	middleware.OK(w, models.DataResponse{OK: true, Data: progress})
}

// WorkoutDrills handles GET /evaluations/eval/:id/workout-drills
func (h *EvaluationHandler) WorkoutDrills(w http.ResponseWriter, r *http.Request) {
	org, evaluation, athlete, ok := athleteScope(w, r)
	if !ok {
		return
	}

	level, err := h.store.WorkoutDrills(r.Context(), org, athlete, evaluation)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list workout drills")
		return
	}
	levels := []models.WorkoutLevel{}
	if level != nil {
		levels = append(levels, *level)
	}
	middleware.OK(w, models.CountedDataResponse{OK: true, Count: len(levels), Data: levels})
}
