// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "strings"

type ScorecardTemplate struct {
	ID          string  `json:"id"`
	OrgID       *string `json:"org_id"`
	SportID     *string `json:"sport_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	IsActive    bool    `json:"is_active"`
	CreatedBy   *string `json:"created_by"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type ScorecardCategory struct {
	ID          string  `json:"id"`
	TemplateID  string  `json:"template_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Position    *int    `json:"position"`
}

type ScorecardSubskill struct {
	ID          string  `json:"id"`
	CategoryID  string  `json:"category_id"`
	SkillID     *string `json:"skill_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Position    *int    `json:"position"`
}

type SubskillInput struct {
	Name        string   `json:"name" validate:"notblank"`
	Description *string  `json:"description"`
	Position    *FlexInt `json:"position" validate:"omitnil,gt=0"`
	SkillID     string   `json:"skill_id" validate:"uuid_any"`
}

type CategoryInput struct {
	Name        string          `json:"name" validate:"notblank"`
	Description *string         `json:"description"`
	Position    *FlexInt        `json:"position" validate:"omitnil,gt=0"`
	Subskills   []SubskillInput `json:"subskills" validate:"min=1,dive"`
}

// CreateScorecardRequest is the body of POST /scorecard. createdBy is
// only used when the request carries no authenticated user.
type CreateScorecardRequest struct {
	CreatedBy   *string         `json:"createdBy" validate:"omitnil,uuid_any"`
	OrgID       string          `json:"org_id" validate:"uuid_any"`
	SportID     *string         `json:"sport_id" validate:"omitnil,uuid_any"`
	Name        string          `json:"name" validate:"notblank"`
	Description *string         `json:"description"`
	IsActive    *bool           `json:"isActive"`
	Categories  []CategoryInput `json:"categories" validate:"min=1,dive"`
}

func (r *CreateScorecardRequest) Messages() map[string]string {
	return map[string]string{
		"categories.min": "At least one category is required.",
		"subskills.min":  "Each category must have at least one subskill.",
	}
}

// ScorecardSubskillPayload and the types below are the template document
// create_scorecard_template_tx expects
type ScorecardSubskillPayload struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Position    int     `json:"position"`
	SkillID     string  `json:"skill_id"`
}

type ScorecardCategoryPayload struct {
	Name        string                     `json:"name"`
	Description *string                    `json:"description"`
	Position    int                        `json:"position"`
	Subskills   []ScorecardSubskillPayload `json:"subskills"`
}

type ScorecardTemplatePayload struct {
	OrgID       string                     `json:"org_id"`
	SportID     *string                    `json:"sport_id"`
	Name        string                     `json:"name"`
	Description *string                    `json:"description"`
	IsActive    bool                       `json:"isActive"`
	Categories  []ScorecardCategoryPayload `json:"categories"`
}

// Payload trims names and numbers categories and subskills from 1 where no position was given
func (r *CreateScorecardRequest) Payload() ScorecardTemplatePayload {
	p := ScorecardTemplatePayload{
		OrgID:       r.OrgID,
		SportID:     r.SportID,
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		IsActive:    r.IsActive == nil || *r.IsActive,
		Categories:  make([]ScorecardCategoryPayload, len(r.Categories)),
	}
	for i, c := range r.Categories {
		cat := ScorecardCategoryPayload{
			Name:        strings.TrimSpace(c.Name),
			Description: c.Description,
			Position:    positionOr(c.Position, i+1),
			Subskills:   make([]ScorecardSubskillPayload, len(c.Subskills)),
		}
		for j, s := range c.Subskills {
			cat.Subskills[j] = ScorecardSubskillPayload{
				Name:        strings.TrimSpace(s.Name),
				Description: s.Description,
				Position:    positionOr(s.Position, j+1),
				SkillID:     s.SkillID,
			}
		}
		p.Categories[i] = cat
	}
	return p
}

func positionOr(p *FlexInt, def int) int {
	if p == nil {
		return def
	}
	return int(*p)
}

type CreateScorecardResponse struct {
	OK         bool   `json:"ok"`
	TemplateID string `json:"templateId"`
}

// ScorecardFilter narrows template listings
type ScorecardFilter struct {
	OrgID   string
	SportID string
	Q       string
	Limit   int
	Offset  int
}
