package database

import (
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// Normalize converts SurrealDB values into plain JSON-friendly values.
// Record ids become their key part (the table is implied by the query),
// datetimes become RFC 3339 UTC strings, and nested maps and arrays are
// converted recursively.
func Normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case models.RecordID:
		return recordKey(t.ID)
	case *models.RecordID:
		if t == nil {
			return nil
		}
		return recordKey(t.ID)
	case models.CustomDateTime:
		return formatTime(t.Time)
	case *models.CustomDateTime:
		if t == nil {
			return nil
		}
		return formatTime(t.Time)
	case time.Time:
		return formatTime(t)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = Normalize(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	default:
		return v
	}
}

// recordKey returns the key of a record id. Numeric keys stay numeric.
func recordKey(id interface{}) interface{} {
	switch k := id.(type) {
	case string, int, int64, uint64, float64:
		return k
	case nil:
		return nil
	default:
		return fmt.Sprint(k)
	}
}

func formatTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
