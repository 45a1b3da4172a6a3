// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates the reference tables the queries in this package run
// against. Production schemas and stored procedures live with the hosted
// database; this is for local development and integration tests.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

-- Organizations and membership
CREATE TABLE IF NOT EXISTS organizations (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name TEXT NOT NULL,
    program_gender TEXT,
    "maxWorkoutReps" INTEGER,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS profiles (
    id UUID PRIMARY KEY,
    email TEXT,
    full_name TEXT,
    role TEXT,
    default_org_id UUID REFERENCES organizations(id) ON DELETE SET NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS org_memberships (
    org_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
    user_id UUID NOT NULL,
    role TEXT NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT true,
    PRIMARY KEY (org_id, user_id)
);

CREATE TABLE IF NOT EXISTS teams (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    org_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    level TEXT,
    gender TEXT,
    season TEXT,
    is_active BOOLEAN DEFAULT true,
    join_code TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

-- People
CREATE TABLE IF NOT EXISTS athletes (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    org_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
    user_id UUID,
    first_name TEXT,
    last_name TEXT,
    full_name TEXT,
    email TEXT,
    phone TEXT,
    cell_number TEXT,
    gender TEXT,
    graduation_year INTEGER,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS coaches (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    org_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
    user_id UUID,
    first_name TEXT,
    last_name TEXT,
    full_name TEXT,
    email TEXT,
    phone TEXT,
    cell_number TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS team_athletes (
    team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
    athlete_id UUID NOT NULL REFERENCES athletes(id) ON DELETE CASCADE,
    status TEXT DEFAULT 'active',
    PRIMARY KEY (team_id, athlete_id)
);

CREATE TABLE IF NOT EXISTS guardian_contacts (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    org_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
    user_id UUID,
    full_name TEXT,
    email TEXT,
    phone TEXT
);

CREATE TABLE IF NOT EXISTS athlete_guardians (
    athlete_id UUID NOT NULL REFERENCES athletes(id) ON DELETE CASCADE,
    guardian_id UUID NOT NULL REFERENCES guardian_contacts(id) ON DELETE CASCADE,
    relationship TEXT,
    PRIMARY KEY (athlete_id, guardian_id)
);

-- Skills
CREATE TABLE IF NOT EXISTS skills (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    org_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
    sport_id UUID,
    category TEXT,
    title TEXT NOT NULL,
    description TEXT,
    level TEXT,
    visibility TEXT,
    status TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS skill_media (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    skill_id UUID NOT NULL REFERENCES skills(id) ON DELETE CASCADE,
    media_type TEXT NOT NULL,
    title TEXT,
    url TEXT,
    storage_path TEXT,
    thumbnail_url TEXT,
    sort_order INTEGER
);

CREATE TABLE IF NOT EXISTS tags (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS skill_tags (
    skill_id UUID NOT NULL REFERENCES skills(id) ON DELETE CASCADE,
    tag_id UUID NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    PRIMARY KEY (skill_id, tag_id)
);

CREATE TABLE IF NOT EXISTS skill_video_map (
    skill_id UUID NOT NULL REFERENCES skills(id) ON DELETE CASCADE,
    object_path TEXT NOT NULL,
    PRIMARY KEY (skill_id, object_path)
);

-- Drills
CREATE TABLE IF NOT EXISTS segments (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS drills (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    org_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
    segment_id UUID REFERENCES segments(id) ON DELETE SET NULL,
    name TEXT NOT NULL,
    description TEXT,
    coaching_points TEXT,
    level TEXT,
    min_players INTEGER,
    max_players INTEGER,
    min_age INTEGER,
    max_age INTEGER,
    duration_min INTEGER,
    visibility TEXT,
    is_archived BOOLEAN DEFAULT false,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS drill_media (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    drill_id UUID NOT NULL REFERENCES drills(id) ON DELETE CASCADE,
    media_type TEXT,
    url TEXT,
    title TEXT,
    thumbnail_url TEXT,
    sort_order INTEGER
);

CREATE TABLE IF NOT EXISTS drill_tags (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    org_id UUID REFERENCES organizations(id) ON DELETE CASCADE,
    sport_id UUID,
    name TEXT
);

CREATE TABLE IF NOT EXISTS drill_tag_map (
    drill_id UUID NOT NULL REFERENCES drills(id) ON DELETE CASCADE,
    tag_id UUID NOT NULL,
    PRIMARY KEY (drill_id, tag_id)
);

-- Scorecards
CREATE TABLE IF NOT EXISTS scorecard_templates (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    org_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
    sport_id UUID,
    name TEXT NOT NULL,
    description TEXT,
    is_active BOOLEAN DEFAULT true,
    created_by UUID,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS scorecard_categories (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    template_id UUID NOT NULL REFERENCES scorecard_templates(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    description TEXT,
    position INTEGER
);

CREATE TABLE IF NOT EXISTS scorecard_subskills (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    category_id UUID NOT NULL REFERENCES scorecard_categories(id) ON DELETE CASCADE,
    skill_id UUID REFERENCES skills(id) ON DELETE SET NULL,
    name TEXT,
    description TEXT,
    position INTEGER
);

-- Evaluations
CREATE TABLE IF NOT EXISTS evaluations (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    org_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
    template_id UUID REFERENCES scorecard_templates(id),
    teams_id UUID REFERENCES teams(id),
    coach_id UUID REFERENCES coaches(id),
    notes TEXT,
    status TEXT NOT NULL DEFAULT 'not_started'
        CHECK (status IN ('not_started', 'in_progress', 'completed')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS evaluation_items (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    evaluation_id UUID NOT NULL REFERENCES evaluations(id) ON DELETE CASCADE,
    athlete_id UUID NOT NULL REFERENCES athletes(id) ON DELETE CASCADE,
    subskill_id UUID NOT NULL,
    rating INTEGER CHECK (rating BETWEEN 1 AND 5),
    comment TEXT,
    recommended_skill_id UUID,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS evaluation_workout_progress (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    org_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
    evaluation_id UUID NOT NULL REFERENCES evaluations(id) ON DELETE CASCADE,
    athlete_id UUID NOT NULL REFERENCES athletes(id) ON DELETE CASCADE,
    progress INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS evaluation_workout_drills (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    org_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
    evaluation_id UUID NOT NULL REFERENCES evaluations(id) ON DELETE CASCADE,
    athlete_id UUID NOT NULL REFERENCES athletes(id) ON DELETE CASCADE,
    level INTEGER NOT NULL,
    drill_id UUID REFERENCES drills(id) ON DELETE SET NULL
);

-- Practice plans
CREATE TABLE IF NOT EXISTS practice_plans (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    org_id UUID REFERENCES organizations(id) ON DELETE SET NULL,
    owner_user_id UUID NOT NULL,
    type TEXT NOT NULL DEFAULT 'custom' CHECK (type IN ('prebuild', 'custom')),
    name TEXT NOT NULL,
    description TEXT,
    visibility TEXT DEFAULT 'private',
    status TEXT DEFAULT 'draft',
    tags TEXT[] DEFAULT '{}',
    estimated_minutes INTEGER,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS practice_plan_items (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    plan_id UUID NOT NULL REFERENCES practice_plans(id) ON DELETE CASCADE,
    section_title TEXT,
    section_order INTEGER,
    position INTEGER,
    item_type TEXT DEFAULT 'drill',
    drill_id UUID REFERENCES drills(id) ON DELETE SET NULL,
    title TEXT,
    instructions TEXT,
    sets INTEGER,
    reps INTEGER,
    duration_seconds INTEGER,
    rest_seconds INTEGER,
    config JSONB DEFAULT '{}'::jsonb
);

CREATE TABLE IF NOT EXISTS practice_plan_members (
    plan_id UUID NOT NULL REFERENCES practice_plans(id) ON DELETE CASCADE,
    user_id UUID NOT NULL,
    role TEXT DEFAULT 'viewer',
    added_by UUID,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (plan_id, user_id)
);

CREATE TABLE IF NOT EXISTS practice_plan_invitations (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    plan_id UUID NOT NULL REFERENCES practice_plans(id) ON DELETE CASCADE,
    invited_by UUID,
    invited_email TEXT NOT NULL,
    invited_user_id UUID,
    role TEXT DEFAULT 'viewer',
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_athletes_org ON athletes(org_id);
CREATE INDEX IF NOT EXISTS idx_coaches_org ON coaches(org_id);
CREATE INDEX IF NOT EXISTS idx_drills_org_created ON drills(org_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_skills_org ON skills(org_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_org_created ON evaluations(org_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_evaluation_items_eval_athlete ON evaluation_items(evaluation_id, athlete_id);
CREATE INDEX IF NOT EXISTS idx_plans_type_updated ON practice_plans(type, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_plan_items_plan ON practice_plan_items(plan_id, section_order, position);
CREATE INDEX IF NOT EXISTS idx_plan_members_user ON practice_plan_members(user_id);
`
