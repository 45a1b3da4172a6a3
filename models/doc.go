// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

Request types carry validate tags checked by package validation. Fields a
client may explicitly null on PATCH use Nullable, which tells an absent key
from a null one:

	type UpdateDrillRequest struct {
		Description models.Nullable[string] `json:"description"`
	}

FlexInt accepts numbers or numeric strings, which older clients send for
durations and reps.

Rows that Postgres renders as JSON decode straight into the domain types;
json.RawMessage is used where a column is passed through unchanged, such
as plan item config.
*/
package models
