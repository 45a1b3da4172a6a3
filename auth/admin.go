// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/danielhkuo/ankor-api/supabase"
)

var ErrUserNotReturned = errors.New("User was not returned by Supabase")

// CreateUserParams mirrors the GoTrue admin create-user body
type CreateUserParams struct {
	Email        string                 `json:"email"`
	Password     string                 `json:"password"`
	EmailConfirm bool                   `json:"email_confirm"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	AppMetadata  map[string]interface{} `json:"app_metadata,omitempty"`
}

// Admin wraps the GoTrue admin endpoints, authenticated with the service role key
type Admin struct {
	c *supabase.Client
}

func NewAdmin(c *supabase.Client) *Admin {
	return &Admin{c: c}
}

func (a *Admin) CreateUser(ctx context.Context, p CreateUserParams) (User, error) {
	var u User
	if err := a.c.Do(ctx, http.MethodPost, "/auth/v1/admin/users", "", p, &u); err != nil {
		return User{}, err
	}
	if u.ID == "" {
		return User{}, ErrUserNotReturned
	}
	return u, nil
}

func (a *Admin) DeleteUser(ctx context.Context, id string) error {
	if err := a.c.Do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+url.PathEscape(id), "", nil, nil); err != nil {
		return fmt.Errorf("failed to delete auth user %s: %w", id, err)
	}
	return nil
}

func (a *Admin) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	if err := a.c.Do(ctx, http.MethodGet, "/auth/v1/admin/users/"+url.PathEscape(id), "", nil, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// IsAlreadyRegistered matches GoTrue's duplicate-email errors
func IsAlreadyRegistered(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already registered") ||
		strings.Contains(msg, "already been registered") ||
		strings.Contains(msg, "duplicate")
}

// ErrorMessage returns the upstream message without the transport prefix
func ErrorMessage(err error) string {
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
