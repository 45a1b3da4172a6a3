// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

type Team struct {
	ID       string  `json:"id"`
	OrgID    string  `json:"org_id"`
	Name     string  `json:"name"`
	Level    *string `json:"level"`
	Gender   *string `json:"gender"`
	Season   *string `json:"season"`
	IsActive bool    `json:"is_active"`
	JoinCode *string `json:"join_code"`
}

type TeamAthleteName struct {
	ID        string  `json:"id"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// TeamWithAthletes is a team with its roster names nested
type TeamWithAthletes struct {
	ID        string            `json:"id"`
	OrgID     string            `json:"org_id"`
	Name      string            `json:"name"`
	CreatedAt string            `json:"created_at"`
	Athletes  []TeamAthleteName `json:"athletes"`
}

// TeamAthlete is one active roster entry
type TeamAthlete struct {
	TeamID         string  `json:"team_id"`
	ID             *string `json:"id"`
	OrgID          *string `json:"org_id"`
	UserID         *string `json:"user_id"`
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	FullName       *string `json:"full_name"`
	Phone          *string `json:"phone"`
	GraduationYear *int    `json:"graduation_year"`
	CellNumber     *string `json:"cell_number"`
}

type CountedDataResponse struct {
	OK    bool        `json:"ok"`
	Count int         `json:"count"`
	Data  interface{} `json:"data"`
}

// OrgUser is an athlete or coach account in an organization
type OrgUser struct {
	UserID         string  `json:"user_id"`
	Role           string  `json:"role"`
	FullName       *string `json:"full_name"`
	Phone          *string `json:"phone"`
	GraduationYear *int    `json:"graduation_year"`
}
