// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/danielhkuo/ankor-api/auth"
)

const maxBodyBytes = 4 << 20

var (
	ErrEmptyBody = errors.New("request body is empty")
	ErrNotObject = errors.New("request body is not a JSON object")
)

type contextKey struct{}

// Context carries per-request state from guards to the handler
type Context struct {
	Params  map[string]string
	User    *auth.User
	OrgID   string
	OrgRole auth.Role

	src      io.Reader
	body     []byte
	bodyErr  error
	bodyRead bool
}

// NewContext attaches a fresh Context to r. The body is read lazily, once.
func NewContext(r *http.Request, params map[string]string) (*http.Request, *Context) {
	if params == nil {
		params = map[string]string{}
	}
	c := &Context{Params: params, src: r.Body}
	return r.WithContext(context.WithValue(r.Context(), contextKey{}, c)), c
}

// RequestContext returns the Context attached by the router, or nil
func RequestContext(r *http.Request) *Context {
	c, _ := r.Context().Value(contextKey{}).(*Context)
	return c
}

// Param returns a path parameter, or ""
func (c *Context) Param(name string) string {
	return c.Params[name]
}

// UserID returns the authenticated user's id, or ""
func (c *Context) UserID() string {
	if c.User == nil {
		return ""
	}
	return c.User.ID
}

// Body returns the buffered request body
func (c *Context) Body() ([]byte, error) {
	if !c.bodyRead {
		c.bodyRead = true
		if c.src != nil {
			c.body, c.bodyErr = io.ReadAll(io.LimitReader(c.src, maxBodyBytes))
		}
	}
	return c.body, c.bodyErr
}

// DecodeBody unmarshals the buffered body into v
func (c *Context) DecodeBody(v interface{}) error {
	body, err := c.Body()
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return ErrEmptyBody
	}
	return json.Unmarshal(body, v)
}

// BodyObject decodes the body as a JSON object keyed by field name
func (c *Context) BodyObject() (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := c.DecodeBody(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, ErrNotObject
	}
	return obj, nil
}

// ParseJSONBody parses the request body into the given struct
func ParseJSONBody(r *http.Request, v interface{}) error {
	if c := RequestContext(r); c != nil {
		return c.DecodeBody(v)
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// IsNull reports whether a raw JSON value is absent or null
func IsNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
