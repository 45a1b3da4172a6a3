// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/ankor-api/middleware"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    map[string]string
		ok      bool
	}{
		{"drills/list", "/drills/list", map[string]string{}, true},
		{"drills/list", "drills/list/", map[string]string{}, true},
		{"drills/:id", "/drills/abc", map[string]string{"id": "abc"}, true},
		{"drills/:id", "/drills/a%20b", map[string]string{"id": "a b"}, true},
		{"drills/:id", "/drills/%zz", map[string]string{"id": "%zz"}, true},
		{"evaluations/eval/:id/matrix", "/evaluations/eval/7/matrix", map[string]string{"id": "7"}, true},
		{"drills/:id", "/drills", nil, false},
		{"drills/:id", "/drills/a/b", nil, false},
		{"drills/list", "/skills/list", nil, false},
		{"", "/", map[string]string{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			got, ok := matchPattern(tt.pattern, tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestTableMount(t *testing.T) {
	noop := func(w http.ResponseWriter, r *http.Request) {}

	child := NewTable()
	child.Add("post", "", noop)
	child.Add("GET", "/list/", noop)
	child.Add("GET", ":id", noop)

	root := NewTable()
	root.Mount("/plans/", child)

	var got []string
	for _, r := range root.Routes() {
		got = append(got, r.Method+" "+r.Pattern)
	}
	assert.Equal(t, []string{"POST plans", "GET plans/list", "GET plans/:id"}, got)
}

func TestTableMatch(t *testing.T) {
	noop := func(w http.ResponseWriter, r *http.Request) {}
	table := NewTable()
	table.Add("GET", "plans/invited", noop)
	table.Add("GET", "plans/:id", noop)
	table.Add("PATCH", "plans/:id", noop)

	route, params, ok := table.Match("get", "/plans/invited")
	require.True(t, ok)
	assert.Equal(t, "plans/invited", route.Pattern)
	assert.Empty(t, params)

	route, params, ok = table.Match("PATCH", "/plans/xyz")
	require.True(t, ok)
	assert.Equal(t, "plans/:id", route.Pattern)
	assert.Equal(t, "xyz", params["id"])

	route, _, ok = table.Match("GET", "//plans//invited/")
	require.True(t, ok)
	assert.Equal(t, "plans/invited", route.Pattern)

	_, _, ok = table.Match("DELETE", "/plans/xyz")
	assert.False(t, ok)

	assert.Equal(t, []string{"GET", "PATCH"}, table.Allowed("/plans/xyz"))
	assert.Empty(t, table.Allowed("/teams"))
}

func TestTableHandler_Dispatch(t *testing.T) {
	table := NewTable()
	table.Add("GET", "drills/segments", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	table.Add("PATCH", "drills/:id", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	h := table.Handler()

	tests := []struct {
		method     string
		target     string
		wantStatus int
	}{
		{"GET", "/drills/segments", http.StatusNoContent},
		{"GET", "/drills/segments/", http.StatusNoContent},
		{"GET", "//drills//segments", http.StatusNoContent},
		{"PATCH", "/drills/abc/", http.StatusAccepted},
		{"DELETE", "/drills/abc", http.StatusMethodNotAllowed},
		{"GET", "/drills/a/b", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tt.method, tt.target, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestTableHandler_Params(t *testing.T) {
	var got string
	table := NewTable()
	table.Add("GET", "drills/:id", func(w http.ResponseWriter, r *http.Request) {
		got = middleware.RequestContext(r).Param("id")
		w.WriteHeader(http.StatusNoContent)
	})
	h := table.Handler()

	tests := []struct {
		target string
		want   string
	}{
		{"/drills/abc", "abc"},
		{"/drills/a%2Fb", "a/b"},
		{"/drills/a%20b", "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("GET", tt.target, nil))

			assert.Equal(t, http.StatusNoContent, w.Code)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTableHandler_GuardOrder(t *testing.T) {
	var order []string
	guard := func(name string, stop bool) middleware.Guard {
		return func(r *http.Request, c *middleware.Context) *middleware.Reject {
			order = append(order, name)
			if stop {
				return &middleware.Reject{Status: http.StatusForbidden, Message: "Forbidden"}
			}
			return nil
		}
	}

	table := NewTable()
	table.Add("GET", "x", func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}, guard("first", false), guard("second", true), guard("third", false))

	w := httptest.NewRecorder()
	table.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, []string{"first", "second"}, order)
}
