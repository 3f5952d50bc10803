package value

import (
	"strconv"
	"strings"

	"github.com/vinhphatfsg/rulemorph/xerr"
)

// CastString converts v to its string variant. Every variant except
// null/missing/array/object has a defined textual form.
func CastString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case nil:
		return "", xerr.ErrTypeMismatch("cast to string", "null", "string-able")
	default:
		return "", xerr.ErrTypeMismatch("cast to string", TypeName(v), "string-able")
	}
}

// CastInt converts v to int64. A string must parse as a clean base-10
// integer: "3.2" fails rather than truncating. A float truncates toward
// zero: 3.7 -> 3, -3.7 -> -3.
func CastInt(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case string:
		s := strings.TrimSpace(t)
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, xerr.ErrTypeMismatch("cast to int", "string "+strconv.Quote(t), "integer literal")
		}
		return n, nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, xerr.ErrTypeMismatch("cast to int", TypeName(v), "numeric or integer string")
	}
}

// CastFloat converts v to float64.
func CastFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	case string:
		s := strings.TrimSpace(t)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, xerr.ErrTypeMismatch("cast to float", "string "+strconv.Quote(t), "numeric literal")
		}
		return f, nil
	default:
		return 0, xerr.ErrTypeMismatch("cast to float", TypeName(v), "numeric or numeric string")
	}
}

// CastBool converts v to bool. An empty string and "false" are false,
// "true" is true, any other string is a TypeMismatch: there is no
// generic truthy-string coercion.
func CastBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		switch t {
		case "":
			return false, nil
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return false, xerr.ErrTypeMismatch("cast to bool", "string "+strconv.Quote(t), `"", "true", or "false"`)
		}
	case int64:
		return t != 0, nil
	case int:
		return t != 0, nil
	case float64:
		return t != 0, nil
	case nil:
		return false, nil
	default:
		return false, xerr.ErrTypeMismatch("cast to bool", TypeName(v), "bool-able")
	}
}
