// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"fmt"

	"github.com/danielhkuo/ankor-api/models"
)

// CreateScorecardTemplate runs create_scorecard_template_tx and returns the template id
func (s *Store) CreateScorecardTemplate(ctx context.Context, template models.ScorecardTemplatePayload, createdBy string) (string, error) {
	return s.rpcID(ctx, "create_scorecard_template_tx", "template_id", map[string]interface{}{
		"p_template":   template,
		"p_created_by": createdBy,
	})
}

// ScorecardTemplates lists templates, most recently updated first, and returns the unpaged total
func (s *Store) ScorecardTemplates(ctx context.Context, f models.ScorecardFilter) ([]models.ScorecardTemplate, int, error) {
	var b builder
	b.cond("org_id = ?", f.OrgID)
	if f.SportID != "" {
		b.cond("sport_id = ?", f.SportID)
	}
	if f.Q != "" {
		pat := likePattern(f.Q)
		b.cond("(name ILIKE ? OR description ILIKE ?)", pat, pat)
	}

	from := ` FROM scorecard_templates` + b.whereSQL()
	total, err := count(ctx, s.db, `SELECT id`+from, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count scorecard templates: %w", err)
	}

	templates := []models.ScorecardTemplate{}
	query := `SELECT id, org_id, sport_id, name, description, coalesce(is_active, true) AS is_active,
		created_by, created_at, updated_at` + from +
		` ORDER BY updated_at DESC NULLS LAST LIMIT ` + b.arg(f.Limit) + ` OFFSET ` + b.arg(f.Offset)
	if err := selectJSON(ctx, s.db, &templates, query, b.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list scorecard templates: %w", err)
	}
	return templates, total, nil
}

// ScorecardCategories lists a template's categories by position
func (s *Store) ScorecardCategories(ctx context.Context, orgID, templateID string, limit, offset int) ([]models.ScorecardCategory, int, error) {
	from := ` FROM scorecard_categories c
		JOIN scorecard_templates t ON t.id = c.template_id
		WHERE c.template_id = $1 AND t.org_id = $2`
	total, err := count(ctx, s.db, `SELECT c.id`+from, templateID, orgID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count scorecard categories: %w", err)
	}

	categories := []models.ScorecardCategory{}
	err = selectJSON(ctx, s.db, &categories,
		`SELECT c.id, c.template_id, c.name, c.description, c.position`+from+
			` ORDER BY c.position NULLS LAST, c.name LIMIT $3 OFFSET $4`,
		templateID, orgID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list scorecard categories: %w", err)
	}
	return categories, total, nil
}

// ScorecardSubskills lists a category's subskills by position
func (s *Store) ScorecardSubskills(ctx context.Context, orgID, categoryID string, limit, offset int) ([]models.ScorecardSubskill, int, error) {
	from := ` FROM scorecard_subskills ss
		JOIN scorecard_categories c ON c.id = ss.category_id
		JOIN scorecard_templates t ON t.id = c.template_id
		WHERE ss.category_id = $1 AND t.org_id = $2`
	total, err := count(ctx, s.db, `SELECT ss.id`+from, categoryID, orgID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count scorecard subskills: %w", err)
	}

	subskills := []models.ScorecardSubskill{}
	err = selectJSON(ctx, s.db, &subskills,
		`SELECT ss.id, ss.category_id, ss.skill_id, ss.name, ss.description, ss.position`+from+
			` ORDER BY ss.position NULLS LAST, ss.name LIMIT $3 OFFSET $4`,
		categoryID, orgID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list scorecard subskills: %w", err)
	}
	return subskills, total, nil
}
