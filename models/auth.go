// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "strings"

// Signup roles
const (
	SignupAthlete = "athlete"
	SignupCoach   = "coach"
	SignupParent  = "parent"
)

// AllowedPositions are the normalized lacrosse positions an athlete may list
var AllowedPositions = map[string]bool{
	"attack":   true,
	"midfield": true,
	"defense":  true,
	"faceoff":  true,
	"goalie":   true,
}

// Request types

// SignupRequest is the union of the athlete, coach and parent signup bodies.
// GraduationYear and Positions apply to athletes only.
type SignupRequest struct {
	Role           string   `json:"role" validate:"oneof=athlete coach parent"`
	JoinCode       string   `json:"joinCode" validate:"notblank"`
	Email          string   `json:"email" validate:"required,email"`
	Password       string   `json:"password" validate:"min=8"`
	FirstName      string   `json:"firstName" validate:"notblank"`
	LastName       string   `json:"lastName" validate:"notblank"`
	CellNumber     *string  `json:"cellNumber"`
	GraduationYear *FlexInt `json:"graduationYear" validate:"required_if=Role athlete,omitempty,min=1900,max=2100"`
	Positions      []string `json:"positions" validate:"required_if=Role athlete,omitempty,min=1"`
	TermsAccepted  bool     `json:"termsAccepted" validate:"eq=true"`
	Username       *string  `json:"username" validate:"omitempty,min=3,max=50"`
}

func (r *SignupRequest) Messages() map[string]string {
	return map[string]string{
		"role.oneof":                 "role must be one of: athlete, coach, parent",
		"password.min":               "Password must be at least 8 characters",
		"email.email":                "Invalid email",
		"termsAccepted.eq":           "termsAccepted must be true",
		"graduationYear.required_if": "graduationYear is required",
		"positions.required_if":      "positions is required",
		"positions.min":              "positions is required",
	}
}

// Normalize trims the fields the signup form trims
func (r *SignupRequest) Normalize() {
	r.JoinCode = strings.TrimSpace(r.JoinCode)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	if r.Username != nil {
		u := strings.TrimSpace(*r.Username)
		r.Username = &u
	}
}

// NormalizePosition lowercases and strips all whitespace
func NormalizePosition(p string) string {
	return strings.ToLower(strings.Join(strings.Fields(p), ""))
}

type OrgSignupRequest struct {
	Admin struct {
		FirstName string  `json:"firstName"`
		LastName  string  `json:"lastName"`
		Email     string  `json:"email"`
		Phone     *string `json:"phone"`
		Password  string  `json:"password"`
	} `json:"admin"`
	Organization struct {
		Name          string `json:"name"`
		ProgramGender string `json:"programGender"`
	} `json:"organization"`
	Teams []struct {
		Name string `json:"name"`
	} `json:"teams"`
}

// Response types

type OrgSignupResponse struct {
	OK        bool     `json:"ok"`
	UserID    string   `json:"userId"`
	OrgID     string   `json:"orgId"`
	ProfileID string   `json:"profileId"`
	TeamIDs   []string `json:"teamIds"`
}

type LoginUser struct {
	ID           string  `json:"id"`
	FullName     *string `json:"full_name"`
	Email        *string `json:"email"`
	Role         *string `json:"role"`
	DefaultOrgID *string `json:"default_org_id"`
	CoachID      *string `json:"coach_id"`
	AthleteID    *string `json:"athlete_id"`
}

type LoginResponse struct {
	OK   bool      `json:"ok"`
	User LoginUser `json:"user"`
}

// Domain types

type Profile struct {
	ID           string  `json:"id"`
	Email        *string `json:"email"`
	FullName     *string `json:"full_name"`
	Role         *string `json:"role"`
	DefaultOrgID *string `json:"default_org_id"`
}

// OrgSignupResult is the first row of signup_register_org_tx
type OrgSignupResult struct {
	OrgID     string   `json:"org_id"`
	ProfileID string   `json:"profile_id"`
	TeamIDs   []string `json:"team_ids"`
}
