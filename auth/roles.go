// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

// Role is a member's role inside one organization
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleCoach   Role = "coach"
	RoleAthlete Role = "athlete"
	RoleParent  Role = "parent"
)

// ParseRole accepts only the known organization roles
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleOwner, RoleAdmin, RoleCoach, RoleAthlete, RoleParent:
		return r, true
	}
	return "", false
}

// IsAdmin reports whether r bypasses per-route role lists
func (r Role) IsAdmin() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Allows reports whether r may act where allowed roles are required
func (r Role) Allows(allowed ...Role) bool {
	if r.IsAdmin() {
		return true
	}
	for _, a := range allowed {
		if a == r {
			return true
		}
	}
	return false
}
