package load

import (
	"fmt"
	"strconv"

	"github.com/encql/encql/internal/schema"
	"github.com/encql/encql/internal/table"
)

// Flatten turns a decoded NDJSON object into the dotted-path cell map the
// encoder walks against the extended schema, e.g.
// {"citiesLived": {"job": {"position": "engineer"}}} becomes
// {"citiesLived.job.position": "engineer"}.
func Flatten(obj map[string]any) map[string]any {
	out := make(map[string]any)
	flattenInto(obj, "", out)
	return out
}

func flattenInto(obj map[string]any, prefix string, out map[string]any) {
	for k, v := range obj {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenInto(nested, path, out)
			continue
		}
		out[path] = v
	}
}

// cellToString renders a cell value (already typed by encoding/json, or a
// raw CSV string) as text for cipher roles that require a string input.
func cellToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func cellToInt64(v any) (int64, error) {
	switch t := v.(type) {
	case string:
		return strconv.ParseInt(t, 10, 64)
	case float64:
		return int64(t), nil
	default:
		return 0, fmt.Errorf("cannot interpret %T as an integer", v)
	}
}

func cellToFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case string:
		return strconv.ParseFloat(t, 64)
	case float64:
		return t, nil
	default:
		return 0, fmt.Errorf("cannot interpret %T as a float", v)
	}
}

func cellToBool(v any) (bool, error) {
	switch t := v.(type) {
	case string:
		return strconv.ParseBool(t)
	case bool:
		return t, nil
	default:
		return false, fmt.Errorf("cannot interpret %T as a boolean", v)
	}
}

// typedValue coerces a raw cell into the Go value a plaintext column of
// type ft is stored as; callers pass this straight through as a bind
// parameter for an unencrypted column.
func typedValue(ft schema.FieldType, v any) (any, error) {
	switch ft {
	case schema.TypeString:
		return cellToString(v), nil
	case schema.TypeInteger:
		return cellToInt64(v)
	case schema.TypeFloat:
		return cellToFloat64(v)
	case schema.TypeBoolean:
		return cellToBool(v)
	case schema.TypeTimestamp:
		return timestampMicros(v)
	default:
		return v, nil
	}
}

// timestampMicros accepts an epoch number of seconds (int/float, as NDJSON
// decodes it) or one of table.NormalizeTimestamp's ISO-like strings, and
// returns epoch microseconds, the normalized representation every stored
// timestamp column uses.
func timestampMicros(v any) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t * 1e6), nil
	case string:
		return table.NormalizeTimestamp(t)
	default:
		return 0, fmt.Errorf("cannot interpret %T as a timestamp", v)
	}
}
