// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/danielhkuo/ankor-api/models"
)

const skillMediaColumns = `
	m.id, m.skill_id, m.media_type AS type, m.url, m.storage_path, m.title,
	NULL::text AS description, m.thumbnail_url, m.sort_order AS position`

const skillColumns = `
	s.id, s.org_id, s.sport_id, s.category, s.title, s.description, s.level,
	s.visibility, s.status, s.created_at, coalesce(s.updated_at, s.created_at) AS updated_at,
	coalesce((
		SELECT json_agg(x ORDER BY x.position NULLS LAST) FROM (
			SELECT ` + skillMediaColumns + ` FROM skill_media m WHERE m.skill_id = s.id
		) x
	), '[]'::json) AS media`

// Skills lists an organization's skills by title and returns the unpaged total
func (s *Store) Skills(ctx context.Context, f models.SkillFilter) ([]models.Skill, int, error) {
	var b builder
	b.cond("s.org_id = ?", f.OrgID)
	if f.SportID != "" {
		b.cond("s.sport_id = ?", f.SportID)
	}
	if f.Q != "" {
		pat := likePattern(f.Q)
		b.cond("(s.title ILIKE ? OR s.category ILIKE ?)", pat, pat)
	}

	from := ` FROM skills s` + b.whereSQL()
	total, err := count(ctx, s.db, `SELECT s.id`+from, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count skills: %w", err)
	}

	query := `SELECT ` + skillColumns + from +
		` ORDER BY s.title LIMIT ` + b.arg(f.Limit) + ` OFFSET ` + b.arg(f.Offset)
	skills := []models.Skill{}
	if err := selectJSON(ctx, s.db, &skills, query, b.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list skills: %w", err)
	}
	return skills, total, nil
}

// Skill loads one skill with its media
func (s *Store) Skill(ctx context.Context, orgID, id string) (*models.Skill, error) {
	var skill models.Skill
	err := getJSON(ctx, s.db, &skill,
		`SELECT `+skillColumns+` FROM skills s WHERE s.id = $1 AND s.org_id = $2`, id, orgID)
	if err != nil {
		return nil, err
	}
	return &skill, nil
}

// CreateSkill inserts a skill and returns its id
func (s *Store) CreateSkill(ctx context.Context, req models.CreateSkillRequest) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO skills (org_id, sport_id, category, title, description, level, visibility, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, req.OrgID, req.SportID, req.Category, req.Title, req.Description, req.Level, req.Visibility, req.Status).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create skill: %w", err)
	}
	return id, nil
}

// UpdateSkill applies a patch; ErrNotFound when the skill is not in the org
func (s *Store) UpdateSkill(ctx context.Context, orgID, id string, req models.UpdateSkillRequest) error {
	var b builder
	setNullable(&b, "sport_id", req.SportID)
	if req.Category != nil {
		b.set("category", *req.Category)
	}
	if req.Title != nil {
		b.set("title", *req.Title)
	}
	setNullable(&b, "description", req.Description)
	setNullable(&b, "level", req.Level)
	setNullable(&b, "visibility", req.Visibility)
	setNullable(&b, "status", req.Status)
	b.sets = append(b.sets, "updated_at = now()")

	idArg, orgArg := b.arg(id), b.arg(orgID)
	var got string
	err := s.db.QueryRowContext(ctx, `UPDATE skills SET `+b.setSQL()+
		` WHERE id = `+idArg+` AND org_id = `+orgArg+` RETURNING id`, b.args...).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update skill: %w", err)
	}
	return nil
}

// SkillTags lists the distinct tags attached to an organization's skills
func (s *Store) SkillTags(ctx context.Context, f models.TagFilter) ([]models.Tag, error) {
	var b builder
	b.cond("s.org_id = ?", f.OrgID)
	if f.SportID != "" {
		b.cond("s.sport_id = ?", f.SportID)
	}
	if f.Q != "" {
		b.cond("t.name ILIKE ?", likePattern(f.Q))
	}

	tags := []models.Tag{}
	err := selectJSON(ctx, s.db, &tags, `
		SELECT DISTINCT t.id, t.name
		FROM skill_tags st
		JOIN tags t ON t.id = st.tag_id
		JOIN skills s ON s.id = st.skill_id`+b.whereSQL()+`
		ORDER BY t.name`, b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list skill tags: %w", err)
	}
	return tags, nil
}

// SkillInOrg reports whether a skill belongs to an organization
func (s *Store) SkillInOrg(ctx context.Context, orgID, skillID string) (bool, error) {
	return exists(ctx, s.db, `SELECT 1 FROM skills WHERE id = $1 AND org_id = $2`, skillID, orgID)
}

// CreateSkillMedia inserts a media row, appending it after the last item when no position is given
func (s *Store) CreateSkillMedia(ctx context.Context, m models.NewSkillMedia) (*models.SkillMedia, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO skill_media (skill_id, media_type, title, url, storage_path, thumbnail_url, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, coalesce($7,
			(SELECT coalesce(max(sort_order), 0) + 1 FROM skill_media WHERE skill_id = $1)))
		RETURNING json_build_object(
			'id', id, 'skill_id', skill_id, 'type', media_type, 'url', url,
			'storage_path', storage_path, 'title', title, 'description', NULL,
			'thumbnail_url', thumbnail_url, 'position', sort_order)
	`, m.SkillID, m.Type, m.Title, m.URL, m.StoragePath, m.ThumbnailURL, m.Position).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create skill media: %w", err)
	}
	var media models.SkillMedia
	if err := json.Unmarshal(raw, &media); err != nil {
		return nil, err
	}
	return &media, nil
}

// FirstSkillVideo returns the lowest ordered video of a skill
func (s *Store) FirstSkillVideo(ctx context.Context, skillID string) (*models.SkillMedia, error) {
	var media models.SkillMedia
	err := getJSON(ctx, s.db, &media, `
		SELECT `+skillMediaColumns+` FROM skill_media m
		WHERE m.skill_id = $1 AND m.media_type = 'video'
		ORDER BY m.sort_order NULLS LAST, m.id`, skillID)
	if err != nil {
		return nil, err
	}
	return &media, nil
}
