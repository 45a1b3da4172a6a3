// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package validation wraps a single go-playground/validator instance.

Field names in messages come from json tags, and nested fields keep their
path:

	categories[0].subskills[1].skill_id must be a valid UUID

Struct joins all issues with "; ", which is what handlers send back as the
400 message.

Extra tags:

  - uuid_any: UUID version 1 through 5, case-insensitive
  - notblank: non-empty after trimming

A request type can implement Messager to replace individual messages,
keyed by "jsonfield.tag":

	func (SignupRequest) Messages() map[string]string {
		return map[string]string{"password.min": "Password must be at least 8 characters"}
	}
*/
package validation
