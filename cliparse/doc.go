// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Values are layered with koanf, later sources winning:

 1. built-in defaults
 2. YAML file from -config or ANKOR_CONFIG
 3. environment variables
 4. CLI flags that were explicitly passed

# Environment Variables

	PORT                       → port (default 3318)
	DATABASE_URL               → database_url (required)
	SUPABASE_URL               → supabase_url
	SUPABASE_SERVICE_ROLE_KEY  → service_role_key
	SUPABASE_ANON_KEY          → anon_key
	SUPABASE_JWT_SECRET        → jwt_secret
	DRILLS_MEDIA_BUCKET        → media_bucket (default drill-media)
	MOCK_SUPABASE              → mock_supabase
	ALLOWED_ORIGINS            → allowed_origins (comma separated, default *)
	LOG_LEVEL, LOG_FORMAT      → log_level, log_format
	RATE_LIMIT_REQUESTS/WINDOW → rate_limit.requests, rate_limit.window
	CREATE_SCHEMA              → create_schema

Blank variables are treated as unset.

# CLI Flags

	-p              Server port
	-d              Database URL
	-supabase-url   Supabase project URL
	-mock           Skip the Supabase credential check
	-create-schema  Apply the reference schema at startup
	-config         YAML config file

# Validation

ParseFlags fails when DATABASE_URL is missing, or when SUPABASE_URL or
SUPABASE_SERVICE_ROLE_KEY is missing outside mock mode.
*/
package cliparse
