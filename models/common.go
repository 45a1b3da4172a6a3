// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Response types

type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type ListResponse struct {
	OK    bool        `json:"ok"`
	Count int         `json:"count"`
	Items interface{} `json:"items"`
}

type DataResponse struct {
	OK   bool        `json:"ok"`
	Data interface{} `json:"data"`
}

// Nullable distinguishes an absent JSON key from an explicit null.
// PATCH bodies use it so that null clears a column and absence leaves it alone.
type Nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Valid = false
		var zero T
		n.Value = zero
		return nil
	}
	if err := json.Unmarshal(b, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Ptr returns nil for null or absent values
func (n Nullable[T]) Ptr() *T {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// Some builds a set, non-null value
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Valid: true, Value: v}
}

// FlexInt accepts 2024 as well as "2024"
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
	}
	if s == "" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n != float64(int(n)) {
		return fmt.Errorf("expected an integer, got %s", string(b))
	}
	*f = FlexInt(int(n))
	return nil
}

// IntPtr converts an optional FlexInt for use as a query argument
func (f *FlexInt) IntPtr() *int {
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}

// ValidationValue exposes the wrapped value to the validator, nil when null or absent
func (n Nullable[T]) ValidationValue() interface{} {
	if !n.Valid {
		return nil
	}
	return n.Value
}

// Domain types

// PlanAccess is the ownership record plan guards check
type PlanAccess struct {
	ID          string
	OrgID       string
	OwnerUserID string
}
