// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielhkuo/ankor-api/middleware"
	"github.com/danielhkuo/ankor-api/models"
	"github.com/danielhkuo/ankor-api/storage"
)

// ObjectStore signs and resolves object storage URLs
type ObjectStore interface {
	PublicURL(bucket, path string) string
	CreateSignedUploadURL(ctx context.Context, bucket, path string) (storage.SignedUpload, error)
	CreateSignedURL(ctx context.Context, bucket, path string, expiresIn int) (string, error)
}

const (
	defaultPlayExpiry = 3600
	minPlayExpiry     = 60
	maxPlayExpiry     = 86400
)

// checkUpload rejects link uploads and content types that do not fit the media type
func checkUpload(w http.ResponseWriter, mediaType, contentType string) bool {
	if mediaType == models.MediaLink {
		middleware.BadRequest(w, "type=link does not support uploads")
		return false
	}
	if !storage.ContentTypeMatches(mediaType, contentType) {
		middleware.BadRequest(w, "content_type does not match media type '"+mediaType+"'")
		return false
	}
	return true
}

// playExpiry reads expires_in in seconds, clamped to [60, 86400]
func playExpiry(r *http.Request) int {
	return queryInt(r, "expires_in", defaultPlayExpiry, minPlayExpiry, maxPlayExpiry)
}

// storagePath turns a client supplied reference into a path inside bucket.
// Full storage URLs are parsed; a leading "bucket/" is stripped.
func storagePath(bucket, ref string) string {
	ref = strings.TrimSpace(ref)
	if b, p, ok := storage.ParseObjectURL(ref); ok && b == bucket {
		return p
	}
	ref = strings.TrimPrefix(ref, "/")
	return strings.TrimPrefix(ref, bucket+"/")
}
