// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/ankor-api/middleware"
)

// Route is one registered (method, pattern) pair with its guards
type Route struct {
	Method  string
	Pattern string // no leading or trailing slash; ":name" segments are parameters
	Handler http.HandlerFunc
	Guards  []middleware.Guard
}

// Table collects routes and serves them through a single dispatcher
type Table struct {
	routes []Route
}

func NewTable() *Table {
	return &Table{}
}

func normalize(path string) string {
	return strings.Trim(path, "/")
}

func segments(path string) []string {
	var out []string
	for _, s := range strings.Split(normalize(path), "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Add registers a handler; guards run in order before it
func (t *Table) Add(method, pattern string, h http.HandlerFunc, guards ...middleware.Guard) {
	t.routes = append(t.routes, Route{
		Method:  strings.ToUpper(method),
		Pattern: normalize(pattern),
		Handler: h,
		Guards:  guards,
	})
}

// Mount copies child's routes under prefix
func (t *Table) Mount(prefix string, child *Table) {
	base := normalize(prefix)
	for _, r := range child.routes {
		p := base
		if r.Pattern != "" {
			p = normalize(base + "/" + r.Pattern)
		}
		r.Pattern = p
		t.routes = append(t.routes, r)
	}
}

// Routes returns a copy of the table
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// matchPattern compares segment by segment; parameter values are unescaped
// when possible and kept raw otherwise.
func matchPattern(pattern, path string) (map[string]string, bool) {
	want := segments(pattern)
	got := segments(path)
	if len(want) != len(got) {
		return nil, false
	}

	params := map[string]string{}
	for i, seg := range want {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			v, err := url.PathUnescape(got[i])
			if err != nil {
				v = got[i]
			}
			params[name] = v
			continue
		}
		if seg != got[i] {
			return nil, false
		}
	}
	return params, true
}

// Match finds the first route for method and an escaped path
func (t *Table) Match(method, path string) (Route, map[string]string, bool) {
	i, params, ok := t.match(method, path)
	if !ok {
		return Route{}, nil, false
	}
	return t.routes[i], params, true
}

func (t *Table) match(method, path string) (int, map[string]string, bool) {
	method = strings.ToUpper(method)
	for i, r := range t.routes {
		if r.Method != method {
			continue
		}
		if params, ok := matchPattern(r.Pattern, path); ok {
			return i, params, true
		}
	}
	return -1, nil, false
}

// Allowed lists the methods registered for a path, sorted
func (t *Table) Allowed(path string) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range t.routes {
		if _, ok := matchPattern(r.Pattern, path); ok && !seen[r.Method] {
			seen[r.Method] = true
			out = append(out, r.Method)
		}
	}
	sort.Strings(out)
	return out
}

// Handler dispatches every request through Match. Empty segments and
// leading or trailing slashes are ignored, so /drills/list/ and
// //drills//list reach the same route as /drills/list.
func (t *Table) Handler() http.Handler {
	chains := make([]http.HandlerFunc, len(t.routes))
	for i, r := range t.routes {
		chains[i] = middleware.Chain(r.Handler, r.Guards...)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := routePath(r)
		i, params, ok := t.match(r.Method, path)
		if !ok {
			if allowed := t.Allowed(path); len(allowed) > 0 {
				middleware.MethodNotAllowed(w, allowed)
				return
			}
			middleware.NotFound(w, "Not found: "+r.Method+" /"+strings.Join(segments(path), "/"))
			return
		}

		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			rctx.RoutePatterns = append(rctx.RoutePatterns, "/"+t.routes[i].Pattern)
		}
		r, _ = middleware.NewContext(r, params)
		chains[i](w, r)
	})
}

// routePath is the path below the mount point, escaped when the request carries a RawPath
func routePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePath != "" {
		return rctx.RoutePath
	}
	if r.URL.RawPath != "" {
		return r.URL.RawPath
	}
	return r.URL.Path
}
