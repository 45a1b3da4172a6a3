// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Ankor API server.

Ankor is the backend for a coaching app: organizations, their coaches and
athletes, skills and drills with media, scorecard templates, evaluations
and practice plans. Data lives in the Supabase Postgres database; users
and media objects live in Supabase Auth and Storage.

# Starting the Server

	DATABASE_URL=postgres://... SUPABASE_URL=https://xyz.supabase.co \
	SUPABASE_SERVICE_ROLE_KEY=... go run .

For local work without a Supabase project:

	go run . -d "postgres://..." -mock -create-schema

# Configuration

See package cliparse. A .env file in the working directory is loaded first
when present.

# Architecture

  - handlers: one handler struct per resource, each behind a small store interface
  - router: route table with guards, mounted under /functions/v1/api, /api and /
  - middleware: request context, guards, CORS, logging, JSON envelope helpers
  - db: SQL for every store, on database/sql and lib/pq
  - auth: token verification, roles and the Auth admin client
  - storage, supabase: signed media URLs and the REST client under them
  - models: request and response types
  - cliparse, logging, metrics, validation: ambient plumbing
*/
package main
