// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db holds the SQL behind every handler store.

# Store

NewStore wraps a *sql.DB and satisfies all handler store interfaces plus the
membership lookups the guards need:

	store := db.NewStore(conn)

Most reads let Postgres build the JSON. selectJSON aggregates rows with
json_agg and getJSON uses row_to_json, returning ErrNotFound when nothing
matched. Dynamic filters and partial updates go through builder, which
numbers placeholders as they are added.

# Transactions

Multi-table writes (signup, athlete and coach creation, plan create/update,
plan invitations, evaluation matrix updates) run inside withTx, which rolls
back on any error.

# Schema

The tables belong to the hosted Supabase project. CreateSchema applies a
reference copy for local runs and integration tests; it is safe to call
more than once.
*/
package db
