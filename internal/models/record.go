package models

import (
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
)

const (
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldChargedAt = "charged_at"

	// ChargedAtLayout is the minute precision layout of the charged_at column.
	ChargedAtLayout = "2006-01-02T15:04"
)

// Record is a single item returned by the source API.
type Record map[string]any

// Has reports whether the field is present with a non-nil value.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// String returns the field formatted the way it is persisted in a snapshot.
func (r Record) String(field string) string {
	return FormatValue(r[field])
}

func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// FormatValue converts a decoded JSON value into its snapshot cell form.
// Nested objects and arrays are stored as compact JSON.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case map[string]any, []any, Record:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	case fmt.Stringer:
		return val.String()
	default:
		s, err := cast.ToStringE(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return s
	}
}
