// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package storage

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	extPattern = regexp.MustCompile(`(?i)\.([a-z0-9]{1,10})$`)
)

var extensionByContentType = map[string]string{
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/webm":      ".webm",
	"video/ogg":       ".ogv",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// SanitizeFileName keeps the base name and replaces anything outside [a-zA-Z0-9._-]
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = unsafeName.ReplaceAllString(name, "_")
	if name == "" {
		return "upload"
	}
	return name
}

// Extension picks the object suffix from the file name, then the content type.
func Extension(fileName, contentType string) string {
	if fileName != "" {
		if m := extPattern.FindStringSubmatch(SanitizeFileName(fileName)); m != nil {
			return "." + strings.ToLower(m[1])
		}
	}
	if ext, ok := extensionByContentType[strings.ToLower(strings.TrimSpace(contentType))]; ok {
		return ext
	}
	return ".bin"
}

// ObjectPath builds orgs/{org}/{kind}/{owner}/{random}{ext}
func ObjectPath(orgID, kind, ownerID, fileName, contentType string) string {
	return "orgs/" + orgID + "/" + kind + "/" + ownerID + "/" + uuid.NewString() + Extension(fileName, contentType)
}

// ContentTypeMatches reports whether contentType fits a media type.
// Links are never uploaded; unknown media types accept anything.
func ContentTypeMatches(mediaType, contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch mediaType {
	case "video":
		return strings.HasPrefix(ct, "video/")
	case "image":
		return strings.HasPrefix(ct, "image/")
	case "document":
		return strings.HasPrefix(ct, "application/")
	case "link":
		return false
	}
	return true
}
