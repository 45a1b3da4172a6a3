// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/danielhkuo/ankor-api/supabase"
)

var ErrNoSignedURL = errors.New("storage did not return a signed URL")

// SignedUpload is a one-shot upload target
type SignedUpload struct {
	Bucket    string `json:"bucket"`
	Path      string `json:"path"`
	SignedURL string `json:"signed_url"`
	Token     string `json:"token"`
	PublicURL string `json:"public_url"`
}

// Client signs Supabase Storage object URLs
type Client struct {
	c *supabase.Client
}

func New(c *supabase.Client) *Client {
	return &Client{c: c}
}

func objectPath(bucket, path string) string {
	parts := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return url.PathEscape(bucket) + "/" + strings.Join(parts, "/")
}

// PublicURL is the unsigned public address of an object
func (s *Client) PublicURL(bucket, path string) string {
	return s.c.BaseURL() + "/storage/v1/object/public/" + objectPath(bucket, path)
}

// CreateSignedUploadURL reserves path for a single upload
func (s *Client) CreateSignedUploadURL(ctx context.Context, bucket, path string) (SignedUpload, error) {
	var resp struct {
		URL   string `json:"url"`
		Token string `json:"token"`
	}
	if err := s.c.Do(ctx, http.MethodPost, "/storage/v1/object/upload/sign/"+objectPath(bucket, path), "", struct{}{}, &resp); err != nil {
		return SignedUpload{}, fmt.Errorf("failed to sign upload: %w", err)
	}
	if resp.URL == "" {
		return SignedUpload{}, ErrNoSignedURL
	}

	signed := s.absolute(resp.URL)
	token := resp.Token
	if token == "" {
		if u, err := url.Parse(signed); err == nil {
			token = u.Query().Get("token")
		}
	}

	return SignedUpload{
		Bucket:    bucket,
		Path:      path,
		SignedURL: signed,
		Token:     token,
		PublicURL: s.PublicURL(bucket, path),
	}, nil
}

// CreateSignedURL returns a time-limited read URL
func (s *Client) CreateSignedURL(ctx context.Context, bucket, path string, expiresIn int) (string, error) {
	var resp struct {
		SignedURL string `json:"signedURL"`
	}
	body := map[string]int{"expiresIn": expiresIn}
	if err := s.c.Do(ctx, http.MethodPost, "/storage/v1/object/sign/"+objectPath(bucket, path), "", body, &resp); err != nil {
		return "", fmt.Errorf("failed to sign url: %w", err)
	}
	if resp.SignedURL == "" {
		return "", ErrNoSignedURL
	}
	return s.absolute(resp.SignedURL), nil
}

// storage answers with paths relative to /storage/v1
func (s *Client) absolute(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return s.c.BaseURL() + "/storage/v1" + "/" + strings.TrimLeft(u, "/")
}

// ParseObjectURL splits a Supabase storage URL into bucket and object path.
// ok is false for URLs that do not point at /storage/v1/object/.
func ParseObjectURL(raw string) (bucket, path string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false
	}
	const marker = "/storage/v1/object/"
	if !strings.HasPrefix(u.Path, marker) {
		return "", "", false
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(u.Path, marker), "/"), "/")
	if len(parts) > 0 && (parts[0] == "public" || parts[0] == "sign") {
		parts = parts[1:]
	}
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[0], strings.Join(parts[1:], "/"), true
}
