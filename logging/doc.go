// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package logging wraps zerolog with a process-wide logger.

# Setup

Call Init once from main after configuration is parsed:

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

Before Init runs, the logger writes JSON at info level to stderr.

# Usage

Always finish an event with Msg or Send:

	logging.Info().Str("org_id", orgID).Msg("athlete created")
	logging.Err(err).Msg("failed to load profile")

Inside a request, Ctx adds the request id set by the request logger:

	logging.Ctx(r.Context()).Warn().Msg("rpc returned no rows")
*/
package logging
