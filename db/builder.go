// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"fmt"
	"strings"

	"github.com/danielhkuo/ankor-api/models"
)

// builder numbers positional arguments while a query is assembled
type builder struct {
	args  []interface{}
	where []string
	sets  []string
}

// arg appends v and returns its placeholder
func (b *builder) arg(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// cond adds a WHERE condition; each ? is replaced by the next value
func (b *builder) cond(expr string, vals ...interface{}) {
	for _, v := range vals {
		expr = strings.Replace(expr, "?", b.arg(v), 1)
	}
	b.where = append(b.where, expr)
}

func (b *builder) whereSQL() string {
	if len(b.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.where, " AND ")
}

func (b *builder) set(col string, v interface{}) {
	b.sets = append(b.sets, col+" = "+b.arg(v))
}

func (b *builder) setSQL() string {
	return strings.Join(b.sets, ", ")
}

// setNullable adds col only when the JSON key was present
func setNullable[T any](b *builder, col string, n models.Nullable[T]) {
	if n.Set {
		b.set(col, n.Ptr())
	}
}
