package value

import (
	"strconv"
	"strings"

	"github.com/vinhphatfsg/rulemorph/xerr"
)

// Compare orders a against b for the lt/lte/gt/gte condition operators. It
// returns -1, 0, or 1. Ordering first attempts a numeric comparison: both
// operands must be numeric, or a numeric-looking string that parses
// cleanly. If both operands are non-numeric strings, comparison falls back
// to lexicographic code-point order. Any other combination of variants
// fails with a TypeMismatch.
func Compare(a, b any) (int, error) {
	a, b = normalizeInt(a), normalizeInt(b)

	if af, aok := numericOf(a); aok {
		if bf, bok := numericOf(b); bok {
			switch {
			case af < bf:
				return -1, nil
			case af > bf:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}

	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		if _, aNum := numericOf(a); !aNum {
			if _, bNum := numericOf(b); !bNum {
				return strings.Compare(as, bs), nil
			}
		}
	}

	return 0, xerr.ErrTypeMismatch("compare", TypeName(a)+" vs "+TypeName(b), "two numerics, or two non-numeric strings")
}

// numericOf reports whether v is numeric outright, or a string that parses
// cleanly as a number, returning its float64 value.
func numericOf(v any) (float64, bool) {
	if f, ok := AsFloat64(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
