// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines the routes for the Ankor API.

# Route Table

Routes are collected in a Table, each with the guards that run before its
handler. Patterns use ":name" parameters:

	t := router.NewTable()
	t.Add("GET", ":id", h.GetDrill, g.Auth(), g.OrgFromQuery("org_id", auth.RoleCoach))
	root.Mount("drills", t)

Table.Handler compiles the table onto a chi mux. Unknown paths answer 404
"Not found: METHOD /path" and known paths with the wrong method answer 405
with an Allow header.

# Mounts

NewRouter serves the same table under /functions/v1/api, /api and /, next
to /health and /metrics. Global middleware adds request ids, logging,
panic recovery, CORS, OPTIONS preflight and optional per-IP rate limiting.
*/
package router
