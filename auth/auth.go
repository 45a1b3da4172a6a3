// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/danielhkuo/ankor-api/supabase"
)

var (
	ErrMissingToken  = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrNotConfigured = errors.New("auth client not configured")
)

var bearerPattern = regexp.MustCompile(`(?i)^Bearer\s+(.+)$`)

// User is the authenticated caller
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, error) {
	m := bearerPattern.FindStringSubmatch(strings.TrimSpace(header))
	if m == nil {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(m[1])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

type supabaseClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier checks Supabase access tokens. With a JWT secret it verifies
// HS256 signatures locally; otherwise it asks GoTrue who the token belongs to.
type Verifier struct {
	secret []byte
	gotrue *supabase.Client
}

func NewVerifier(jwtSecret string, gotrue *supabase.Client) *Verifier {
	v := &Verifier{gotrue: gotrue}
	if jwtSecret != "" {
		v.secret = []byte(jwtSecret)
	}
	return v
}

// Configured reports whether Verify can do anything
func (v *Verifier) Configured() bool {
	return v != nil && (len(v.secret) > 0 || v.gotrue != nil)
}

// Verify returns the user a token was issued to
func (v *Verifier) Verify(ctx context.Context, token string) (User, error) {
	if !v.Configured() {
		return User{}, ErrNotConfigured
	}
	if len(v.secret) > 0 {
		return v.verifyLocal(token)
	}
	return v.verifyRemote(ctx, token)
}

func (v *Verifier) verifyLocal(token string) (User, error) {
	var claims supabaseClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return User{}, ErrInvalidToken
	}
	return User{ID: claims.Subject, Email: claims.Email}, nil
}

func (v *Verifier) verifyRemote(ctx context.Context, token string) (User, error) {
	var u User
	if err := v.gotrue.Do(ctx, http.MethodGet, "/auth/v1/user", token, nil, &u); err != nil {
		var apiErr *supabase.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return User{}, ErrInvalidToken
		}
		return User{}, fmt.Errorf("failed to verify token: %w", err)
	}
	if u.ID == "" {
		return User{}, ErrInvalidToken
	}
	return u, nil
}
