// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP handlers for the Ankor API.

Each resource has a handler struct built from a store interface and, where
needed, the Auth admin client or the object store:

	drills := handlers.NewDrillHandler(store, objects, cfg.MediaBucket)

Handlers assume the router already ran the route's guards, so the caller,
the org and the caller's role are on the request Context.

# Requests

JSON bodies must be objects. They are decoded with goccy/go-json and checked
with package validation; the first failure becomes a 400 with the joined
messages.

# Responses

Success bodies carry "ok": true. Failures use the {"ok": false, "error": ...}
envelope from middleware. Store errors are logged with the request id and
answered with a generic 500 message.

# Media

Drill and skill media are uploaded straight to Supabase Storage through a
signed upload URL, then registered with a second call. Playback returns a
short-lived signed URL.
*/
package handlers
