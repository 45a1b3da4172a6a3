// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/lib/pq"

	"github.com/danielhkuo/ankor-api/models"
)

const drillMediaColumns = `
	m.id, m.drill_id, coalesce(m.media_type, 'video') AS type, m.url, m.title,
	m.thumbnail_url, m.sort_order AS position`

const drillColumns = `
	d.id, d.org_id, d.segment_id, d.name, d.description, d.level,
	d.min_players, d.max_players, d.min_age, d.max_age, d.duration_min,
	d.visibility, coalesce(d.is_archived, false) AS is_archived,
	d.created_at, coalesce(d.updated_at, d.created_at) AS updated_at,
	(SELECT json_build_object('id', sg.id, 'name', sg.name) FROM segments sg WHERE sg.id = d.segment_id) AS segment,
	coalesce((
		SELECT json_agg(json_build_object('id', t.id, 'name', coalesce(t.name, '')) ORDER BY t.name)
		FROM drill_tag_map dm JOIN drill_tags t ON t.id = dm.tag_id
		WHERE dm.drill_id = d.id
	), '[]'::json) AS skill_tags,
	coalesce((
		SELECT json_agg(json_build_object(
			'type', coalesce(m.media_type, 'video'), 'url', m.url, 'title', m.title,
			'description', NULL, 'thumbnail_url', m.thumbnail_url, 'position', m.sort_order
		) ORDER BY m.sort_order NULLS LAST)
		FROM drill_media m WHERE m.drill_id = d.id
	), '[]'::json) AS media`

// CreateDrill runs rpc_create_drill. A single created row is returned on
// its own; anything else is returned as the raw result.
func (s *Store) CreateDrill(ctx context.Context, drill map[string]interface{}, media []map[string]interface{}, skillIDs []string) (interface{}, error) {
	var rows []json.RawMessage
	err := s.RPC(ctx, "rpc_create_drill", map[string]interface{}{
		"p_drill":      drill,
		"p_media":      media,
		"p_skill_tags": skillIDs,
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 1 {
		return rows[0], nil
	}
	return rows, nil
}

// Drills lists an organization's drills, newest first, and returns the unpaged total
func (s *Store) Drills(ctx context.Context, f models.DrillFilter) ([]models.Drill, int, error) {
	var b builder
	b.cond("d.org_id = ?", f.OrgID)
	if f.Name != "" {
		b.cond("d.name ILIKE ?", likePattern(f.Name))
	}
	if len(f.Levels) > 0 {
		b.cond("d.level = ANY(?)", pq.Array(f.Levels))
	}
	if len(f.SegmentIDs) > 0 {
		b.cond("d.segment_id = ANY(?::uuid[])", pq.Array(f.SegmentIDs))
	}
	if f.MinAge != nil {
		b.cond("d.min_age >= ?", *f.MinAge)
	}
	if f.MaxAge != nil {
		b.cond("d.max_age <= ?", *f.MaxAge)
	}
	if f.MinPlayers != nil {
		b.cond("d.min_players >= ?", *f.MinPlayers)
	}
	if f.MaxPlayers != nil {
		b.cond("d.max_players <= ?", *f.MaxPlayers)
	}
	if len(f.TagIDs) > 0 {
		b.cond(`EXISTS (SELECT 1 FROM drill_tag_map dm
			WHERE dm.drill_id = d.id AND dm.tag_id = ANY(?::uuid[]))`, pq.Array(f.TagIDs))
	}

	from := ` FROM drills d` + b.whereSQL()
	total, err := count(ctx, s.db, `SELECT d.id`+from, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count drills: %w", err)
	}

	query := `SELECT ` + drillColumns + from +
		` ORDER BY d.created_at DESC LIMIT ` + b.arg(f.Limit) + ` OFFSET ` + b.arg(f.Offset)
	drills := []models.Drill{}
	if err := selectJSON(ctx, s.db, &drills, query, b.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list drills: %w", err)
	}
	return drills, total, nil
}

// Drill loads one drill with its segment, tags and media
func (s *Store) Drill(ctx context.Context, orgID, id string) (*models.Drill, error) {
	var d models.Drill
	err := getJSON(ctx, s.db, &d,
		`SELECT `+drillColumns+` FROM drills d WHERE d.id = $1 AND d.org_id = $2`, id, orgID)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateDrill applies a patch and edits the tag map in one transaction
func (s *Store) UpdateDrill(ctx context.Context, orgID, id string, req models.UpdateDrillRequest) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var b builder
		if req.Name != nil {
			b.set("name", *req.Name)
		}
		setNullable(&b, "description", req.Description)
		setNullable(&b, "coaching_points", req.Instructions)
		setNullable(&b, "level", req.Level)
		setNullable(&b, "segment_id", req.SegmentID)
		setNullable(&b, "min_age", req.MinAge)
		setNullable(&b, "max_age", req.MaxAge)
		setNullable(&b, "min_players", req.MinPlayers)
		setNullable(&b, "max_players", req.MaxPlayers)
		setNullable(&b, "visibility", req.Visibility)
		if req.IsArchived != nil {
			b.set("is_archived", *req.IsArchived)
		}
		if minutes, ok := req.DurationMinutes(); ok {
			b.set("duration_min", minutes)
		}

		query := `SELECT id FROM drills WHERE id = $1 AND org_id = $2 FOR UPDATE`
		args := []interface{}{id, orgID}
		if len(b.sets) > 0 {
			b.sets = append(b.sets, "updated_at = now()")
			idArg, orgArg := b.arg(id), b.arg(orgID)
			query = `UPDATE drills SET ` + b.setSQL() +
				` WHERE id = ` + idArg + ` AND org_id = ` + orgArg + ` RETURNING id`
			args = b.args
		}

		var got string
		err := tx.QueryRowContext(ctx, query, args...).Scan(&got)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to update drill: %w", err)
		}

		if removals := req.TagRemovals(); len(removals) > 0 {
			_, err := tx.ExecContext(ctx,
				`DELETE FROM drill_tag_map WHERE drill_id = $1 AND tag_id = ANY($2::uuid[])`,
				id, pq.Array(removals))
			if err != nil {
				return fmt.Errorf("failed to remove drill tags: %w", err)
			}
		}
		if len(req.AddTagIDs) > 0 {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO drill_tag_map (drill_id, tag_id)
				SELECT $1, unnest($2::uuid[])
				ON CONFLICT (drill_id, tag_id) DO NOTHING`,
				id, pq.Array(req.AddTagIDs))
			if err != nil {
				return fmt.Errorf("failed to add drill tags: %w", err)
			}
		}
		return nil
	})
}

// Segments lists every drill segment by name
func (s *Store) Segments(ctx context.Context) ([]models.DrillSegment, error) {
	segments := []models.DrillSegment{}
	if err := selectJSON(ctx, s.db, &segments, `SELECT id, name FROM segments ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	return segments, nil
}

// DrillTags lists an organization's drill tags by name and returns the unpaged total
func (s *Store) DrillTags(ctx context.Context, f models.TagFilter) ([]models.Tag, int, error) {
	var b builder
	b.cond("org_id = ?", f.OrgID)
	if f.SportID != "" {
		b.cond("sport_id = ?", f.SportID)
	}
	if f.Q != "" {
		b.cond("name ILIKE ?", likePattern(f.Q))
	}

	from := ` FROM drill_tags` + b.whereSQL()
	total, err := count(ctx, s.db, `SELECT id`+from, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count drill tags: %w", err)
	}

	tags := []models.Tag{}
	query := `SELECT id, coalesce(name, '') AS name` + from +
		` ORDER BY name LIMIT ` + b.arg(f.Limit) + ` OFFSET ` + b.arg(f.Offset)
	if err := selectJSON(ctx, s.db, &tags, query, b.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list drill tags: %w", err)
	}
	return tags, total, nil
}

// DrillInOrg reports whether a drill belongs to an organization
func (s *Store) DrillInOrg(ctx context.Context, orgID, drillID string) (bool, error) {
	return exists(ctx, s.db, `SELECT 1 FROM drills WHERE id = $1 AND org_id = $2`, drillID, orgID)
}

// CreateDrillMedia inserts a media row, appending it after the last item when no position is given
func (s *Store) CreateDrillMedia(ctx context.Context, drillID string, m models.DrillMediaInput) (*models.DrillMedia, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO drill_media (drill_id, media_type, url, title, thumbnail_url, sort_order)
		VALUES ($1, $2, $3, $4, $5, coalesce($6,
			(SELECT coalesce(max(sort_order), 0) + 1 FROM drill_media WHERE drill_id = $1)))
		RETURNING json_build_object(
			'id', id, 'drill_id', drill_id, 'type', coalesce(media_type, 'video'), 'url', url,
			'title', title, 'thumbnail_url', thumbnail_url, 'position', sort_order)
	`, drillID, m.Type, m.URL, m.Title, m.ThumbnailURL, m.Position.IntPtr()).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create drill media: %w", err)
	}
	var media models.DrillMedia
	if err := json.Unmarshal(raw, &media); err != nil {
		return nil, err
	}
	return &media, nil
}

// FirstDrillVideo returns the lowest ordered video of a drill
func (s *Store) FirstDrillVideo(ctx context.Context, drillID string) (*models.DrillMedia, error) {
	var media models.DrillMedia
	err := getJSON(ctx, s.db, &media, `
		SELECT `+drillMediaColumns+` FROM drill_media m
		WHERE m.drill_id = $1 AND m.media_type = 'video'
		ORDER BY m.sort_order NULLS LAST, m.id`, drillID)
	if err != nil {
		return nil, err
	}
	return &media, nil
}
