// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package supabase is a small REST client for the hosted auth (GoTrue) and
storage APIs.

Every call goes through a sony/gobreaker circuit breaker. 4xx answers come
back as *APIError but do not count against the breaker. An optional
golang.org/x/time/rate limiter throttles outgoing calls.

	c := supabase.NewClient(supabase.Options{BaseURL: cfg.SupabaseURL, APIKey: cfg.ServiceRoleKey, Name: "gotrue-admin"})
	err := c.Do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+id, "", nil, nil)
*/
package supabase
