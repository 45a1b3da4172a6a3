// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/danielhkuo/ankor-api/models"
)

// UUIDPattern accepts RFC 4122 versions 1 through 5
var UUIDPattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

var (
	validate *validator.Validate
	once     sync.Once
)

// Error collects every failed rule of one validation pass
type Error struct {
	Issues []string
}

func (e *Error) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	return strings.Join(e.Issues, "; ")
}

// Messager lets a request type override the default message for "field.tag"
type Messager interface {
	Messages() map[string]string
}

// IsUUID reports whether s is a well-formed UUID
func IsUUID(s string) bool {
	return UUIDPattern.MatchString(s)
}

// Validator returns the shared validator instance
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// report json names instead of Go field names
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})

		_ = v.RegisterValidation("uuid_any", func(fl validator.FieldLevel) bool {
			return IsUUID(fl.Field().String())
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})

		v.RegisterAlias("rating", "gte=1,lte=5")

		v.RegisterCustomTypeFunc(unwrapNullable,
			models.Nullable[string]{},
			models.Nullable[int]{},
			models.Nullable[bool]{},
			models.Nullable[[]string]{},
			models.Nullable[models.FlexInt]{},
		)

		validate = v
	})
	return validate
}

func unwrapNullable(field reflect.Value) interface{} {
	if v, ok := field.Interface().(interface{ ValidationValue() interface{} }); ok {
		return v.ValidationValue()
	}
	return nil
}

// Struct validates s and returns an *Error listing every issue, or nil
func Struct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Issues: []string{err.Error()}}
	}

	var custom map[string]string
	if m, ok := s.(Messager); ok {
		custom = m.Messages()
	}

	out := &Error{}
	for _, fe := range verrs {
		if msg, ok := custom[fe.Field()+"."+fe.Tag()]; ok {
			out.Issues = append(out.Issues, msg)
			continue
		}
		out.Issues = append(out.Issues, message(fe))
	}
	return out
}

// fieldPath drops the root type and embedded struct names, which keep their Go names
func fieldPath(fe validator.FieldError) string {
	parts := strings.Split(fe.Namespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "" && unicode.IsUpper(rune(p[0])) && len(parts) > 1 {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return fe.Field()
	}
	return strings.Join(out, ".")
}

func message(fe validator.FieldError) string {
	field := fieldPath(fe)

	switch fe.Tag() {
	case "required", "notblank", "required_if":
		return field + " is required"
	case "uuid_any":
		return field + " must be a valid UUID"
	case "email":
		return field + " must be a valid email"
	case "url", "http_url":
		return field + " must be a valid URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "rating":
		return field + " must be between 1 and 5"
	case "eq":
		return fmt.Sprintf("%s must be %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "min", "gte":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		case reflect.Slice, reflect.Map, reflect.Array:
			return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case reflect.Slice, reflect.Map, reflect.Array:
			return fmt.Sprintf("%s must contain at most %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	}
	return field + " is invalid"
}
