// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"

	"github.com/danielhkuo/ankor-api/middleware"
	"github.com/danielhkuo/ankor-api/models"
)

type TeamStore interface {
	Teams(ctx context.Context, orgID string) ([]models.Team, error)
	TeamsWithAthletes(ctx context.Context, orgID string) ([]models.TeamWithAthletes, error)
	TeamAthletes(ctx context.Context, orgID, teamID string) ([]models.TeamAthlete, error)
}

type TeamHandler struct {
	store TeamStore
}

func NewTeamHandler(store TeamStore) *TeamHandler {
	return &TeamHandler{store: store}
}

// ListTeams handles GET /teams/list
func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.store.Teams(r.Context(), orgID(r))
	if err != nil {
		middleware.InternalError(w, r, err, "Unexpected error fetching teams")
		return
	}
	middleware.OK(w, models.DataResponse{OK: true, Data: teams})
}

// ListTeamsWithAthletes handles GET /teams/list-with-athletes
func (h *TeamHandler) ListTeamsWithAthletes(w http.ResponseWriter, r *http.Request) {
	teams, err := h.store.TeamsWithAthletes(r.Context(), orgID(r))
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list teams")
		return
	}
	middleware.OK(w, models.CountedDataResponse{OK: true, Count: len(teams), Data: teams})
}

// AthletesByTeam handles GET /teams/athletes-by-team
func (h *TeamHandler) AthletesByTeam(w http.ResponseWriter, r *http.Request) {
	teamID := queryString(r, "team_id")
	if teamID == "" {
		middleware.BadRequest(w, "Query parameter 'team_id' is required.")
		return
	}

	athletes, err := h.store.TeamAthletes(r.Context(), orgID(r), teamID)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to list team athletes")
		return
	}
	middleware.OK(w, models.CountedDataResponse{OK: true, Count: len(athletes), Data: athletes})
}
