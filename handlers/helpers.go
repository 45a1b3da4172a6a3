// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielhkuo/ankor-api/auth"
	"github.com/danielhkuo/ankor-api/db"
	"github.com/danielhkuo/ankor-api/middleware"
	"github.com/danielhkuo/ankor-api/validation"
)

// queryString returns a trimmed query parameter
func queryString(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// queryInt parses an integer query parameter, falling back to def and clamping to [lo, hi]
func queryInt(r *http.Request, key string, def, lo, hi int) int {
	n, err := strconv.Atoi(queryString(r, key))
	if err != nil {
		n = def
	}
	return min(max(n, lo), hi)
}

// queryOffset parses offset; negative or malformed values become 0
func queryOffset(r *http.Request) int {
	n, err := strconv.Atoi(queryString(r, "offset"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// queryCSV splits a comma separated parameter, dropping blanks
func queryCSV(r *http.Request, key string) []string {
	var out []string
	for _, s := range strings.Split(r.URL.Query().Get(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// orgID prefers the org resolved by the guard chain over the query string
func orgID(r *http.Request) string {
	if c := middleware.RequestContext(r); c != nil && c.OrgID != "" {
		return c.OrgID
	}
	return queryString(r, "org_id")
}

// requireUUIDQuery writes a 400 and returns "" when key is not a UUID
func requireUUIDQuery(w http.ResponseWriter, r *http.Request, key string) string {
	v := queryString(r, key)
	if !validation.IsUUID(v) {
		middleware.BadRequest(w, key+" (UUID) is required")
		return ""
	}
	return v
}

// requireUUIDParam writes a 400 and returns "" when a path parameter is not a UUID
func requireUUIDParam(w http.ResponseWriter, r *http.Request, name string) string {
	var v string
	if c := middleware.RequestContext(r); c != nil {
		v = strings.TrimSpace(c.Param(name))
	}
	if !validation.IsUUID(v) {
		middleware.BadRequest(w, name+" (UUID) is required")
		return ""
	}
	return v
}

// callerID returns the authenticated user's id, or ""
func callerID(r *http.Request) string {
	if c := middleware.RequestContext(r); c != nil {
		return c.UserID()
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// optional maps "" to nil
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// decodeObject requires a JSON object body and decodes it into v, writing a 400 otherwise
func decodeObject(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	c := middleware.RequestContext(r)
	if c == nil {
		_, c = middleware.NewContext(r, nil)
	}
	_, err := c.BodyObject()
	if err == nil {
		err = c.DecodeBody(v)
	}
	if err != nil {
		middleware.BadRequest(w, "Invalid JSON payload")
		return false
	}
	return true
}

// validate normalizes and validates a request, writing a 400 with every issue on failure
func validate(w http.ResponseWriter, req interface{}) bool {
	if n, ok := req.(interface{ Normalize() }); ok {
		n.Normalize()
	}
	if err := validation.Struct(req); err != nil {
		middleware.BadRequest(w, err.Error())
		return false
	}
	return true
}

// isDuplicate reports whether err is an already registered email or a unique violation
func isDuplicate(err error) bool {
	if auth.IsAlreadyRegistered(err) {
		return true
	}
	var rpcErr *db.RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == "23505" {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate")
}
