// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package storage signs upload and playback URLs for drill and skill media
// kept in Supabase Storage, and builds the object paths they live under.
package storage
