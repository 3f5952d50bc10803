// Package value implements Rulemorph's runtime value model.
//
// Values are plain Go values, the same way the upstream interpreter this
// engine was grounded on represents its runtime data:
//   - nil          -> null
//   - bool
//   - int64        -> integer (never float64, so int(1) stays distinct from 1.0)
//   - float64
//   - string
//   - []any        -> array
//   - map[string]any -> object (insertion order is not tracked by the map
//     itself; callers that must preserve it build the object through
//     ordered writes and rely on the JSON encoder's field order, which is
//     supplied by the record engine via an ordered key slice)
//   - Missing       -> the distinguished "missing" sentinel
package value

import "fmt"

// missing is a distinct type so that Missing never compares equal to any
// user-representable value, including nil interfaces holding a nil pointer.
type missingType struct{}

func (missingType) String() string { return "missing" }

// Missing is the sentinel returned by reference resolution, op propagation,
// and map-step omission. It is distinct from nil (JSON null).
var Missing any = missingType{}

// IsMissing reports whether v is the Missing sentinel.
func IsMissing(v any) bool {
	_, ok := v.(missingType)
	return ok
}

// IsNull reports whether v is JSON null.
func IsNull(v any) bool {
	return v == nil
}

// TypeName returns a short, human-readable name for the variant of v, used
// in TypeMismatch error messages.
func TypeName(v any) string {
	switch v.(type) {
	case missingType:
		return "missing"
	case nil:
		return "null"
	case bool:
		return "bool"
	case int64, int:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any, *Object:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// IsNumeric reports whether v is an int64 or float64.
func IsNumeric(v any) bool {
	switch v.(type) {
	case int64, float64:
		return true
	default:
		return false
	}
}

// AsInt64 normalizes any Go integer kind that the YAML decoder or op
// implementations might produce down to int64.
func AsInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		if t == float64(int64(t)) {
			return int64(t), true
		}
		return 0, false
	}
	return 0, false
}

// AsFloat64 widens any numeric kind to float64.
func AsFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	}
	return 0, false
}

// IsArray reports whether v is an array value.
func IsArray(v any) bool {
	_, ok := v.([]any)
	return ok
}

// IsObject reports whether v is an object value, either a plain map (as
// produced by the YAML decoder or a `value:` literal) or an ordered Object
// (as produced by the record engine's @out accumulator).
func IsObject(v any) bool {
	switch v.(type) {
	case map[string]any, *Object:
		return true
	default:
		return false
	}
}

// Truthy is used by ops that need a loose boolean reading of a value (for
// example, `if` conditions reuse the condition evaluator instead, but some
// predicate ops accept a bare value). Only bool itself is meaningful;
// everything else is false. Callers that need strict boolean-or-TypeMismatch
// semantics should check the type explicitly rather than call this.
func Truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
