// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/ankor-api/auth"
	"github.com/danielhkuo/ankor-api/cliparse"
	"github.com/danielhkuo/ankor-api/handlers"
	"github.com/danielhkuo/ankor-api/middleware"
)

// Store is everything the handlers and guards read and write
type Store interface {
	handlers.AuthStore
	handlers.AthleteStore
	handlers.CoachStore
	handlers.DrillStore
	handlers.SkillStore
	handlers.ScorecardStore
	handlers.TeamStore
	handlers.UserStore
	handlers.EvaluationStore
	handlers.PlanStore
	middleware.MembershipStore
}

// Deps are the collaborators NewRouter wires into handlers
type Deps struct {
	Config   cliparse.Config
	Store    Store
	Verifier middleware.TokenVerifier
	Admin    handlers.UserAdmin
	Objects  handlers.ObjectStore
}

// prefixes the API table is served under
var mounts = []string{"/functions/v1/api", "/api", "/"}

var (
	coach         = []auth.Role{auth.RoleCoach}
	coachAthlete  = []auth.Role{auth.RoleCoach, auth.RoleAthlete}
	athleteFacing = []auth.Role{auth.RoleCoach, auth.RoleAthlete, auth.RoleParent}
)

// Routes builds the API route table
func Routes(d Deps) *Table {
	g := middleware.NewGuards(d.Verifier, d.Store)
	signedIn := func(guards ...middleware.Guard) []middleware.Guard {
		return append([]middleware.Guard{g.Auth()}, guards...)
	}
	query := func(roles []auth.Role) middleware.Guard { return g.OrgFromQuery("org_id", roles...) }
	body := func(roles []auth.Role) middleware.Guard {
		return g.OrgFromBody("org_id", middleware.BodyOrgOptions{}, roles...)
	}

	root := NewTable()

	authH := handlers.NewAuthHandler(d.Store, d.Admin, d.Verifier)
	authT := NewTable()
	authT.Add("POST", "signup", authH.Signup)
	authT.Add("POST", "login", authH.Login)
	root.Mount("auth", authT)

	org := NewTable()
	org.Add("POST", "signup", authH.OrgSignup)
	root.Mount("org", org)

	scorecardH := handlers.NewScorecardHandler(d.Store)
	scorecard := NewTable()
	scorecard.Add("POST", "", scorecardH.CreateTemplate, signedIn(body(coach))...)
	scorecard.Add("GET", "list", scorecardH.ListTemplates, signedIn(query(coachAthlete))...)
	scorecard.Add("GET", "categories", scorecardH.ListCategories, signedIn(query(coach))...)
	scorecard.Add("GET", "subskills", scorecardH.ListSubskills, signedIn(query(coach))...)
	root.Mount("scorecard", scorecard)

	skillH := handlers.NewSkillHandler(d.Store, d.Objects, d.Config.SkillsBucket)
	skills := NewTable()
	skills.Add("POST", "", skillH.CreateSkill, signedIn(body(coach))...)
	skills.Add("POST", "media/upload-url", skillH.CreateUploadURL, signedIn(body(coach))...)
	skills.Add("POST", "media", skillH.CreateSkillMedia, signedIn(body(coach))...)
	skills.Add("GET", "media/:skill_id/play", skillH.PlaySkillMedia, signedIn(query(athleteFacing))...)
	skills.Add("GET", "list", skillH.ListSkills, signedIn(query(athleteFacing))...)
	skills.Add("GET", "tags", skillH.ListSkillTags, signedIn(query(athleteFacing))...)
	skills.Add("PATCH", ":id", skillH.UpdateSkill, signedIn(query(coach))...)
	skills.Add("GET", ":id", skillH.GetSkill, signedIn(query(athleteFacing))...)
	root.Mount("skills", skills)

	teamH := handlers.NewTeamHandler(d.Store)
	teams := NewTable()
	teams.Add("GET", "list-with-athletes", teamH.ListTeamsWithAthletes, signedIn(query(coach))...)
	teams.Add("GET", "list", teamH.ListTeams, signedIn(query(coach))...)
	teams.Add("GET", "athletes-by-team", teamH.AthletesByTeam, signedIn(query(coach))...)
	root.Mount("teams", teams)

	userH := handlers.NewUserHandler(d.Store)
	users := NewTable()
	users.Add("GET", "list", userH.ListUsers, signedIn(query(coach))...)
	root.Mount("users", users)

	athleteH := handlers.NewAthleteHandler(d.Store, d.Admin)
	athletes := NewTable()
	athletes.Add("POST", "", athleteH.CreateAthlete, signedIn(body(coach))...)
	athletes.Add("GET", "list", athleteH.ListAthletes, signedIn(query(coach))...)
	athletes.Add("GET", ":id", athleteH.GetAthlete, signedIn(query(coach))...)
	athletes.Add("PATCH", ":id", athleteH.UpdateAthlete, signedIn(query(coach))...)
	root.Mount("athletes", athletes)

	coachH := handlers.NewCoachHandler(d.Store, d.Admin)
	coaches := NewTable()
	coaches.Add("POST", "", coachH.CreateCoach, signedIn(body(coach))...)
	coaches.Add("GET", "list", coachH.ListCoaches, signedIn(query(coach))...)
	coaches.Add("GET", ":id", coachH.GetCoach, signedIn(query(coach))...)
	coaches.Add("PATCH", ":id", coachH.UpdateCoach, signedIn(query(coach))...)
	root.Mount("coaches", coaches)

	drillH := handlers.NewDrillHandler(d.Store, d.Objects, d.Config.MediaBucket)
	drills := NewTable()
	drills.Add("POST", "", drillH.CreateDrill, signedIn(body(coach))...)
	drills.Add("POST", "media/upload-url", drillH.CreateUploadURL, signedIn(body(coach))...)
	drills.Add("POST", "media", drillH.CreateDrillMedia, signedIn(body(coach))...)
	drills.Add("GET", "media/:drill_id/play", drillH.PlayDrillMedia, signedIn(query(coachAthlete))...)
	drills.Add("GET", "list", drillH.ListDrills, signedIn(query(coachAthlete))...)
	drills.Add("GET", "segments", drillH.ListSegments, signedIn()...)
	drills.Add("GET", "tags", drillH.ListDrillTags, signedIn(query(coachAthlete))...)
	drills.Add("PATCH", ":id", drillH.UpdateDrill, signedIn(query(coach))...)
	drills.Add("GET", ":id", drillH.GetDrill, signedIn(query(coachAthlete))...)
	root.Mount("drills", drills)

	evalH := handlers.NewEvaluationHandler(d.Store)
	evals := NewTable()
	evals.Add("POST", "bulk-create", evalH.BulkCreate, signedIn(g.EvaluationBulkOrg(coach...))...)
	evals.Add("GET", "list", evalH.ListOpen, signedIn(query(coach))...)
	evals.Add("GET", "latest-by-athlete", evalH.LatestByAthlete, signedIn(query(athleteFacing))...)
	evals.Add("GET", "athletes-by-id", evalH.AthletesByID, signedIn(query(athleteFacing))...)
	evals.Add("GET", "eval/:id", evalH.GetEvaluation, signedIn(query(coach))...)
	evals.Add("PATCH", "eval/:id/matrix", evalH.UpdateMatrix, signedIn(body(coach))...)
	evals.Add("POST", "eval/:id/submit", evalH.Submit, signedIn(query(coach))...)
	evals.Add("GET", "eval/:id/improvement-skills", evalH.ImprovementSkills, signedIn(query(athleteFacing))...)
	evals.Add("GET", "eval/:id/skill-videos", evalH.SkillVideos, signedIn(query(athleteFacing))...)
	evals.Add("GET", "eval/:id/subskill-ratings", evalH.SubskillRatings, signedIn(query(athleteFacing))...)
	evals.Add("GET", "eval/:id/workout-progress", evalH.WorkoutProgress, signedIn(query(athleteFacing))...)
	evals.Add("POST", "eval/:id/workout-progress", evalH.IncrementWorkoutProgress, signedIn(query(athleteFacing))...)
	evals.Add("GET", "eval/:id/workout-drills", evalH.WorkoutDrills, signedIn(query(athleteFacing))...)
	evals.Add("POST", ":id", evalH.Submit, signedIn(query(coach))...)
	root.Mount("evaluations", evals)

	planH := handlers.NewPlanHandler(d.Store, d.Admin)
	plans := NewTable()
	plans.Add("GET", "list", planH.ListPlans, signedIn(query(coachAthlete), g.UserQuery("user_id", true))...)
	plans.Add("GET", "invited", planH.ListInvited, signedIn(query(coachAthlete), g.UserQuery("user_id", false))...)
	plans.Add("GET", ":id", planH.GetPlan, signedIn(query(coachAthlete), g.PlanRead())...)
	plans.Add("POST", ":id/invite", planH.InviteMembers, signedIn(query(coachAthlete), g.PlanWrite())...)
	plans.Add("PATCH", ":id", planH.UpdatePlan, signedIn(query(coachAthlete), g.PlanWrite())...)
	plans.Add("POST", "", planH.CreatePlan, signedIn(g.PlanCreate())...)
	root.Mount("plans", plans)

	return root
}

// preflight answers every OPTIONS request once CORS headers are set
func preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func rateLimit(cfg cliparse.RateLimit) func(http.Handler) http.Handler {
	return httprate.Limit(cfg.Requests, cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			middleware.ErrorResponse(w, http.StatusTooManyRequests, "Too many requests")
		}),
	)
}

// NewRouter serves the API under every supported prefix plus /health and /metrics
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORS(d.Config.AllowedOrigins))
	r.Use(preflight)
	if d.Config.RateLimit.Requests > 0 && d.Config.RateLimit.Window > 0 {
		r.Use(rateLimit(d.Config.RateLimit))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	api := Routes(d).Handler()
	for _, prefix := range mounts {
		r.Mount(prefix, api)
	}
	return r
}
