package widget

import (
	"fmt"
	"strings"
)

// =============================================================================
// JSON FIELD EXTRACTION UTILITIES
// =============================================================================
//
// Parsed LLM output arrives as map[string]any with the value kinds produced by
// encoding/json: string, float64, bool, nil, map[string]any, []any. These
// helpers replace bare type assertions (which panic on a model's type drift)
// with tolerant, lossless-where-possible coercion.

// FieldString extracts a string from m[key]. Numbers and booleans are
// formatted rather than rejected; missing or null yields "".
func FieldString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return formatNumber(t)
	case bool:
		return fmt.Sprintf("%t", t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// FieldBool extracts a boolean from m[key]. Accepts bool and the string
// forms "true"/"false". Returns (value, ok).
func FieldBool(m map[string]any, key string) (bool, bool) {
	v, ok := m[key]
	if !ok {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// FieldStringSlice extracts an ordered string slice from m[key]. Non-string
// elements are formatted; a lone string becomes a single-element slice.
func FieldStringSlice(m map[string]any, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			} else if e != nil {
				out = append(out, fmt.Sprintf("%v", e))
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	}
	return nil
}

// FieldMap extracts a nested object from m[key]. Returns nil when absent or
// not an object.
func FieldMap(m map[string]any, key string) map[string]any {
	v, ok := m[key]
	if !ok {
		return nil
	}
	if mm, ok := v.(map[string]any); ok {
		return mm
	}
	return nil
}

// NormalizeValue restricts v to the closed JSON value kind set (string,
// float64, bool, nil, map[string]any, []any), recursively. Anything outside
// the set is stringified. Values built by hand (tests, degraded defaults) may
// carry Go ints; this folds them into the same shape strict parsing produces.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case nil, string, float64, bool:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = NormalizeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = NormalizeValue(e)
		}
		return out
	default:
		return fmt.Sprintf("%v", t)
	}
}

// NormalizeMap applies NormalizeValue to every entry of m. A nil map
// normalizes to an empty one so downstream code never sees nil Data.
func NormalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = NormalizeValue(v)
	}
	return out
}

// formatNumber renders a float64 the way JSON does: integral values without
// a decimal point.
func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
