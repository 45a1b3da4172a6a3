// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth verifies callers and manages users in Supabase Auth (GoTrue).

# Token Verification

Requests carry a Supabase access token in the Authorization header:

	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	user, err := verifier.Verify(ctx, token)

When SUPABASE_JWT_SECRET is configured the token's HS256 signature, expiry
and subject are checked locally with golang-jwt. Without a secret the
Verifier asks GoTrue's /auth/v1/user endpoint using the anon key. A 4xx
answer there maps to ErrInvalidToken.

# Organization Roles

Members of an organization hold one of five roles:

	owner, admin, coach, athlete, parent

Owner and admin pass every role check:

	auth.RoleAthlete.Allows(auth.RoleCoach) // false
	auth.RoleAdmin.Allows(auth.RoleCoach)   // true

# Admin API

Admin creates and deletes users with the service role key. Signup flows
create the auth user first and delete it again if the database transaction
that follows fails.
*/
package auth
