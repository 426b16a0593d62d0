// Package schema describes the target record structure an import maps
// onto: an ordered list of field descriptors with per-field coercion and
// equality rules, the import key used to match existing records, and the
// storage interface the import engine writes through.
package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sheetport/sheetport/pkg/errors"
)

// Field describes one schema field. Coerce converts a raw cell value to
// the field's native type; Equals compares two coerced values. The diff
// engine calls these capabilities instead of comparing raw strings, so
// type-equivalent values ("1" vs "1.0") never flag as changed.
type Field struct {
	ID     string                           // Schema field identifier
	Label  string                           // Human-readable display label
	Coerce func(raw string) (any, error)    // Raw cell -> native value; "" coerces to nil
	Equals func(a, b any) bool              // Compare two coerced values
}

// String creates a plain string field.
func String(id, label string) Field {
	return Field{
		ID:    id,
		Label: label,
		Coerce: func(raw string) (any, error) {
			if raw == "" {
				return nil, nil
			}
			return raw, nil
		},
		Equals: equalValues,
	}
}

// Int creates an integer field. Values like "042" and "42" compare equal.
func Int(id, label string) Field {
	return Field{
		ID:    id,
		Label: label,
		Coerce: func(raw string) (any, error) {
			if raw == "" {
				return nil, nil
			}
			n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return nil, errors.NewValidationError(id, raw, "not a valid integer")
			}
			return n, nil
		},
		Equals: equalValues,
	}
}

// Float creates a floating-point field. "1" and "1.0" compare equal.
func Float(id, label string) Field {
	return Field{
		ID:    id,
		Label: label,
		Coerce: func(raw string) (any, error) {
			if raw == "" {
				return nil, nil
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, errors.NewValidationError(id, raw, "not a valid number")
			}
			return f, nil
		},
		Equals: equalValues,
	}
}

// Bool creates a boolean field accepting the usual truthy spellings
// ("1", "true", "yes", "y", "on") and their falsy counterparts.
func Bool(id, label string) Field {
	return Field{
		ID:    id,
		Label: label,
		Coerce: func(raw string) (any, error) {
			if raw == "" {
				return nil, nil
			}
			b, ok := ParseBool(raw)
			if !ok {
				return nil, errors.NewValidationError(id, raw, "not a valid boolean")
			}
			return b, nil
		},
		Equals: equalValues,
	}
}

// Time creates a date/time field parsed with the given layout.
func Time(id, label, layout string) Field {
	return Field{
		ID:    id,
		Label: label,
		Coerce: func(raw string) (any, error) {
			if raw == "" {
				return nil, nil
			}
			t, err := time.Parse(layout, strings.TrimSpace(raw))
			if err != nil {
				return nil, errors.NewValidationError(id, raw, fmt.Sprintf("not a valid date (want %s)", layout))
			}
			return t, nil
		},
		Equals: func(a, b any) bool {
			ta, aok := a.(time.Time)
			tb, bok := b.(time.Time)
			if aok && bok {
				return ta.Equal(tb)
			}
			return equalValues(a, b)
		},
	}
}

// ParseBool interprets the truthy/falsy cell spellings used by the
// delete-marker column and Bool fields. The second return reports
// whether the value was recognized.
func ParseBool(raw string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off", "":
		return false, true
	default:
		return false, false
	}
}

// equalValues is the default equality for coerced values. nil (unset)
// only equals nil.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}
