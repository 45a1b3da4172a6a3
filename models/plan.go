// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "strings"

const (
	PlanTypePrebuild = "prebuild"
	PlanTypeCustom   = "custom"

	PlanItemDrill = "drill"

	PlanRoleViewer = "viewer"
)

type Plan struct {
	ID               string   `json:"id"`
	OrgID            *string  `json:"org_id"`
	OwnerUserID      string   `json:"owner_user_id"`
	Name             string   `json:"name"`
	Description      *string  `json:"description"`
	Visibility       string   `json:"visibility"`
	Status           string   `json:"status"`
	Tags             []string `json:"tags"`
	EstimatedMinutes *int     `json:"estimated_minutes"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

type PlanItem struct {
	ID              string                 `json:"id"`
	PlanID          string                 `json:"plan_id"`
	SectionTitle    *string                `json:"section_title"`
	SectionOrder    *int                   `json:"section_order"`
	Position        *int                   `json:"position"`
	ItemType        string                 `json:"item_type"`
	DrillID         *string                `json:"drill_id"`
	DrillName       *string                `json:"drill_name"`
	Title           *string                `json:"title"`
	Instructions    *string                `json:"instructions"`
	Sets            *int                   `json:"sets"`
	Reps            *int                   `json:"reps"`
	DurationSeconds *int                   `json:"duration_seconds"`
	RestSeconds     *int                   `json:"rest_seconds"`
	Config          map[string]interface{} `json:"config"`
}

// PlanDetail is a plan with its ordered items
type PlanDetail struct {
	Plan
	PracticePlanItems []PlanItem `json:"practice_plan_items"`
}

// InvitedPlan is a plan shared with the caller by someone else
type InvitedPlan struct {
	Plan
	MemberRole string  `json:"member_role"`
	InvitedAt  string  `json:"invited_at"`
	InvitedBy  *string `json:"invited_by"`
}

type PlanResponse struct {
	OK   bool        `json:"ok"`
	Plan interface{} `json:"plan"`
}

// PlanFilter narrows GET /plans/list. Custom plans are always scoped to their owner.
type PlanFilter struct {
	Type   string
	UserID string
	Limit  int
	Offset int
}

type PlanItemInput struct {
	SectionTitle    *string                `json:"section_title" validate:"omitnil,max=200"`
	SectionOrder    *FlexInt               `json:"section_order" validate:"omitnil,gte=0"`
	Position        *FlexInt               `json:"position" validate:"omitnil,gte=0"`
	ItemType        string                 `json:"item_type" validate:"oneof=drill note rest custom"`
	DrillID         *string                `json:"drill_id" validate:"required_if=ItemType drill,omitnil,uuid_any"`
	Title           *string                `json:"title" validate:"omitnil,max=200"`
	Instructions    *string                `json:"instructions" validate:"omitnil,max=4000"`
	Sets            *FlexInt               `json:"sets" validate:"omitnil,gte=0"`
	Reps            *FlexInt               `json:"reps" validate:"omitnil,gte=0"`
	DurationSeconds *FlexInt               `json:"duration_seconds" validate:"omitnil,gte=0"`
	RestSeconds     *FlexInt               `json:"rest_seconds" validate:"omitnil,gte=0"`
	Config          map[string]interface{} `json:"config"`
}

func (p *PlanItemInput) normalize() {
	p.ItemType = strings.TrimSpace(p.ItemType)
	if p.ItemType == "" {
		p.ItemType = PlanItemDrill
	}
	p.DrillID = trimmed(p.DrillID)
	p.SectionTitle = trimmed(p.SectionTitle)
	p.Title = trimmed(p.Title)
	p.Instructions = trimmed(p.Instructions)
	if p.Config == nil {
		p.Config = map[string]interface{}{}
	}
}

// trimmed trims s and maps blank strings to nil
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func normalizeItems(items []PlanItemInput) {
	for i := range items {
		items[i].normalize()
	}
}

var planItemMessages = map[string]string{
	"drill_id.required_if": "drill_id is required when item_type=drill",
}

// CreatePlanRequest is the body of POST /plans
type CreatePlanRequest struct {
	OwnerUserID      string          `json:"owner_user_id" validate:"uuid_any"`
	OrgID            *string         `json:"org_id" validate:"omitnil,uuid_any"`
	Type             string          `json:"type" validate:"oneof=prebuild custom"`
	Name             string          `json:"name" validate:"notblank,max=200"`
	Description      *string         `json:"description" validate:"omitnil,max=4000"`
	Visibility       *string         `json:"visibility" validate:"omitnil,oneof=private org shared prebuilt"`
	Status           *string         `json:"status" validate:"omitnil,oneof=draft published archived"`
	Tags             []string        `json:"tags" validate:"dive,notblank"`
	EstimatedMinutes *FlexInt        `json:"estimated_minutes" validate:"omitnil,gte=0"`
	Items            []PlanItemInput `json:"items" validate:"min=1,dive"`
}

func (r *CreatePlanRequest) Normalize() {
	r.OwnerUserID = strings.TrimSpace(r.OwnerUserID)
	r.OrgID = trimmed(r.OrgID)
	r.Type = strings.TrimSpace(r.Type)
	if r.Type == "" {
		r.Type = PlanTypeCustom
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Description = trimmed(r.Description)
	if r.Tags == nil {
		r.Tags = []string{}
	}
	for i := range r.Tags {
		r.Tags[i] = strings.TrimSpace(r.Tags[i])
	}
	normalizeItems(r.Items)
}

func (r *CreatePlanRequest) Messages() map[string]string {
	m := map[string]string{
		"name.notblank": "name is required",
		"items.min":     "items is required",
	}
	for k, v := range planItemMessages {
		m[k] = v
	}
	return m
}

// UpdatePlanRequest is the body of PATCH /plans/:id. Nil Tags means the key was absent.
type UpdatePlanRequest struct {
	Name             *string           `json:"name" validate:"omitnil,notblank,max=200"`
	Description      Nullable[string]  `json:"description" validate:"omitempty,max=4000"`
	Visibility       *string           `json:"visibility" validate:"omitnil,oneof=private org shared prebuilt"`
	Status           *string           `json:"status" validate:"omitnil,oneof=draft published archived"`
	Tags             []string          `json:"tags" validate:"omitempty,dive,notblank"`
	EstimatedMinutes Nullable[FlexInt] `json:"estimated_minutes" validate:"omitempty,gte=0"`
	OrgID            Nullable[string]  `json:"org_id" validate:"omitempty,uuid_any"`
	AddItems         []PlanItemInput   `json:"add_items" validate:"dive"`
	RemoveItemIDs    []string          `json:"remove_item_ids" validate:"dive,uuid_any"`
}

func (r *UpdatePlanRequest) Normalize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
	if r.Description.Valid {
		r.Description.Value = strings.TrimSpace(r.Description.Value)
	}
	for i := range r.Tags {
		r.Tags[i] = strings.TrimSpace(r.Tags[i])
	}
	normalizeItems(r.AddItems)
}

func (r *UpdatePlanRequest) Messages() map[string]string {
	return planItemMessages
}

// HasPatch reports whether any plan column changes
func (r *UpdatePlanRequest) HasPatch() bool {
	return r.Name != nil || r.Description.Set || r.Visibility != nil || r.Status != nil ||
		r.Tags != nil || r.EstimatedMinutes.Set || r.OrgID.Set
}

func (r *UpdatePlanRequest) Empty() bool {
	return !r.HasPatch() && len(r.AddItems) == 0 && len(r.RemoveItemIDs) == 0
}

// NeedsPositions reports whether any new item relies on the next free position
func (r *UpdatePlanRequest) NeedsPositions() bool {
	for _, it := range r.AddItems {
		if it.Position == nil {
			return true
		}
	}
	return false
}

// InvitePlanMembersRequest is the body of POST /plans/:id/invite
type InvitePlanMembersRequest struct {
	UserIDs []string `json:"user_ids" validate:"min=1,dive,uuid_any"`
	Role    string   `json:"role" validate:"max=50"`
	AddedBy *string  `json:"added_by" validate:"omitnil,uuid_any"`
}

func (r *InvitePlanMembersRequest) Normalize() {
	seen := make(map[string]bool, len(r.UserIDs))
	ids := r.UserIDs[:0]
	for _, id := range r.UserIDs {
		id = strings.TrimSpace(id)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	r.UserIDs = ids
	r.Role = strings.TrimSpace(r.Role)
	if r.Role == "" {
		r.Role = PlanRoleViewer
	}
	r.AddedBy = trimmed(r.AddedBy)
}

func (r *InvitePlanMembersRequest) Messages() map[string]string {
	return map[string]string{"user_ids.min": "user_ids is required"}
}

// InviteCandidates splits requested users into new and existing members
type InviteCandidates struct {
	OwnerUserID string
	ToInvite    []string
	Skipped     []string
}

// PlanInvite is one invitation to record
type PlanInvite struct {
	UserID string
	Email  string
}

type InviteResponse struct {
	OK             bool     `json:"ok"`
	PlanID         string   `json:"plan_id"`
	InvitedUserIDs []string `json:"invited_user_ids"`
	SkippedUserIDs []string `json:"skipped_user_ids"`
}
