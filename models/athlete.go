// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "strings"

// Relationships a guardian may have to an athlete
var Relationships = []string{"mother", "father", "guardian", "step-parent", "grandparent", "sibling", "other"}

type AthleteTeam struct {
	ID   string  `json:"id"`
	Name *string `json:"name"`
}

type AthleteParent struct {
	FullName     *string `json:"full_name"`
	Email        *string `json:"email"`
	PhoneNumber  *string `json:"phone_number"`
	Relationship *string `json:"relationship"`
}

type Athlete struct {
	ID             string         `json:"id"`
	OrgID          *string        `json:"org_id"`
	UserID         *string        `json:"user_id"`
	FirstName      *string        `json:"first_name"`
	LastName       *string        `json:"last_name"`
	FullName       *string        `json:"full_name"`
	Email          *string        `json:"email"`
	Phone          *string        `json:"phone"`
	CellNumber     *string        `json:"cell_number"`
	Gender         *string        `json:"gender"`
	GraduationYear *int           `json:"graduation_year"`
	Teams          []AthleteTeam  `json:"teams"`
	Parent         *AthleteParent `json:"parent"`
}

type Coach struct {
	ID         string  `json:"id"`
	OrgID      *string `json:"org_id"`
	UserID     *string `json:"user_id"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	FullName   *string `json:"full_name"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	CellNumber *string `json:"cell_number"`
}

// PersonFilter narrows athlete and coach listings
type PersonFilter struct {
	OrgID  string
	Name   string
	Email  string
	TeamID string
	Limit  int
	Offset int
}

// CreateCoachRequest is the body of POST /coaches
type CreateCoachRequest struct {
	OrgID      string  `json:"org_id" validate:"uuid_any"`
	FirstName  string  `json:"first_name" validate:"notblank"`
	LastName   string  `json:"last_name" validate:"notblank"`
	FullName   *string `json:"full_name" validate:"omitnil,notblank"`
	Email      string  `json:"email" validate:"email"`
	Password   string  `json:"password" validate:"min=8"`
	Phone      *string `json:"phone"`
	CellNumber *string `json:"cell_number"`
}

func (r *CreateCoachRequest) Messages() map[string]string {
	return map[string]string{
		"email.email":  "email is required",
		"password.min": "password must be at least 8 characters",
	}
}

func (r *CreateCoachRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(r.Email)
	trim(r.FullName, r.Phone, r.CellNumber)
}

// CreateAthleteRequest is the body of POST /athletes
type CreateAthleteRequest struct {
	CreateCoachRequest
	TeamID            string   `json:"team_id" validate:"uuid_any"`
	Gender            string   `json:"gender" validate:"notblank"`
	ParentEmail       string   `json:"parent_email" validate:"email"`
	ParentFullName    string   `json:"parent_full_name" validate:"notblank"`
	ParentMobilePhone string   `json:"parent_mobile_phone" validate:"notblank"`
	Relationship      string   `json:"relationship" validate:"oneof=mother father guardian step-parent grandparent sibling other"`
	GraduationYear    *FlexInt `json:"graduation_year" validate:"omitnil,min=1900,max=2100"`
}

func (r *CreateAthleteRequest) Messages() map[string]string {
	return map[string]string{
		"email.email":        "email is required",
		"password.min":       "password must be at least 8 characters",
		"parent_email.email": "parent_email is required",
		"relationship.oneof": "relationship is required",
	}
}

func (r *CreateAthleteRequest) Normalize() {
	r.CreateCoachRequest.Normalize()
	r.Gender = strings.TrimSpace(r.Gender)
	r.ParentEmail = strings.TrimSpace(r.ParentEmail)
	r.ParentFullName = strings.TrimSpace(r.ParentFullName)
	r.ParentMobilePhone = strings.TrimSpace(r.ParentMobilePhone)
}

// UpdateCoachRequest is the body of PATCH /coaches/:id. Absent keys are left alone.
type UpdateCoachRequest struct {
	UserID     Nullable[string] `json:"user_id" validate:"omitempty,uuid_any"`
	FirstName  *string          `json:"first_name" validate:"omitnil,notblank"`
	LastName   *string          `json:"last_name" validate:"omitnil,notblank"`
	FullName   Nullable[string] `json:"full_name"`
	Phone      Nullable[string] `json:"phone"`
	CellNumber Nullable[string] `json:"cell_number"`
}

// Empty reports whether the patch changes nothing
func (r *UpdateCoachRequest) Empty() bool {
	return !r.UserID.Set && r.FirstName == nil && r.LastName == nil &&
		!r.FullName.Set && !r.Phone.Set && !r.CellNumber.Set
}

func (r *UpdateCoachRequest) Normalize() {
	trim(r.FirstName, r.LastName)
	for _, n := range []*Nullable[string]{&r.UserID, &r.FullName, &r.Phone, &r.CellNumber} {
		n.Value = strings.TrimSpace(n.Value)
	}
	// a blank full name is cleared rather than stored
	if r.FullName.Valid && r.FullName.Value == "" {
		r.FullName.Valid = false
	}
}

// UpdateAthleteRequest is the body of PATCH /athletes/:id
type UpdateAthleteRequest struct {
	UpdateCoachRequest
	GraduationYear Nullable[FlexInt] `json:"graduation_year" validate:"omitempty,min=1900,max=2100"`
}

func (r *UpdateAthleteRequest) Empty() bool {
	return r.UpdateCoachRequest.Empty() && !r.GraduationYear.Set
}

// BuildFullName joins the non-blank parts of a name, or returns nil
func BuildFullName(first, last *string) *string {
	var parts []string
	for _, p := range []*string{first, last} {
		if p == nil {
			continue
		}
		if s := strings.TrimSpace(*p); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	name := strings.Join(parts, " ")
	return &name
}

func trim(ptrs ...*string) {
	for _, p := range ptrs {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
}

type AthleteResponse struct {
	OK      bool     `json:"ok"`
	Athlete *Athlete `json:"athlete"`
}

type CoachResponse struct {
	OK    bool   `json:"ok"`
	Coach *Coach `json:"coach"`
}
