// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides the request Context, route guards and HTTP
helpers.

# Context

The router attaches a Context to every request. It holds path parameters,
the verified user, the resolved org and role, and the request body, which
is read once and cached so guards and handlers can both look at it:

	c := middleware.RequestContext(r)
	orgID := c.OrgID

# Guards

A Guard inspects the request and either passes or returns a Reject with a
status and message. Chain runs them in order before the handler:

	g := middleware.NewGuards(verifier, store)
	h := middleware.Chain(handler, g.Auth(), g.OrgFromQuery("org_id", auth.RoleCoach))

# Responses

	middleware.OK(w, data)
	middleware.BadRequest(w, "name is required")
	middleware.InternalError(w, r, err, "Failed to load drills")

Errors use the {"ok": false, "error": message} envelope.

# HTTP Middleware

RequestLogger logs each request with zerolog and records Prometheus
metrics. Recover turns panics into 500s. CORS wraps go-chi/cors.
*/
package middleware
