// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/lib/pq"

	"github.com/danielhkuo/ankor-api/metrics"
)

var (
	ErrNotFound = errors.New("not found")
	ErrNoRows   = errors.New("RPC returned no data")

	identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// RPCError is an exception raised inside a stored procedure.
// Message carries the application code (INVALID_JOIN_CODE, FORBIDDEN, ...).
type RPCError struct {
	Function string
	Code     string
	Message  string
}

func (e *RPCError) Error() string {
	return e.Message
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store runs the application's queries against Postgres
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// withTx runs fn inside a transaction, committing only if fn succeeds
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// selectJSON decodes every row of query into out (a pointer to a slice)
func selectJSON(ctx context.Context, q querier, out interface{}, query string, args ...interface{}) error {
	var raw []byte
	err := q.QueryRowContext(ctx,
		`SELECT coalesce(json_agg(t), '[]'::json) FROM (`+query+`) t`, args...).Scan(&raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// getJSON decodes the first row of query into out, or returns ErrNotFound
func getJSON(ctx context.Context, q querier, out interface{}, query string, args ...interface{}) error {
	var raw []byte
	err := q.QueryRowContext(ctx,
		`SELECT row_to_json(t) FROM (`+query+`) t LIMIT 1`, args...).Scan(&raw)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// exists reports whether query returns any row
func exists(ctx context.Context, q querier, query string, args ...interface{}) (bool, error) {
	var ok bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS (`+query+`)`, args...).Scan(&ok)
	return ok, err
}

func count(ctx context.Context, q querier, query string, args ...interface{}) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT count(*) FROM (`+query+`) t`, args...).Scan(&n)
	return n, err
}

// RPC calls a set-returning or scalar stored procedure with named arguments
// and decodes its rows as a JSON array into out.
//
// String slices are sent as Postgres arrays; maps, structs and other slices
// are sent as JSON documents. Scalar results decode as a plain array of values.
func (s *Store) RPC(ctx context.Context, fn string, params map[string]interface{}, out interface{}) error {
	return rpc(ctx, s.db, fn, params, out)
}

func rpc(ctx context.Context, q querier, fn string, params map[string]interface{}, out interface{}) error {
	if !identPattern.MatchString(fn) {
		return fmt.Errorf("invalid function name %q", fn)
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if !identPattern.MatchString(k) {
			return fmt.Errorf("invalid argument name %q", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	named := make([]string, len(keys))
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		named[i] = fmt.Sprintf("%s => $%d", k, i+1)
		v, err := rpcArg(params[k])
		if err != nil {
			return fmt.Errorf("argument %s: %w", k, err)
		}
		args[i] = v
	}

	query := fmt.Sprintf(`SELECT coalesce(json_agg(t), '[]'::json) FROM %s(%s) AS t`, fn, strings.Join(named, ", "))

	start := time.Now()
	var raw []byte
	err := q.QueryRowContext(ctx, query, args...).Scan(&raw)
	metrics.RecordRPC(fn, time.Since(start), err)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return &RPCError{Function: fn, Code: string(pqErr.Code), Message: pqErr.Message}
		}
		return fmt.Errorf("rpc %s: %w", fn, err)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func rpcArg(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case nil, string, bool, int, int64, float64, *string, *int, *bool:
		return val, nil
	case []string:
		return pq.Array(val), nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
}

// IsRPCCode reports whether err is a stored procedure exception mentioning code
func IsRPCCode(err error, code string) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	return strings.Contains(rpcErr.Message, code)
}

// likePattern wraps s for a case-insensitive substring match
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
