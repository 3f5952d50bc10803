package value

import (
	"math"
	"strconv"
	"strings"

	"github.com/vinhphatfsg/rulemorph/xerr"
)

// Add implements the `+` pipe operator's numeric case: if either operand is
// float, the result is float; otherwise integer arithmetic is used.
func Add(a, b any) (any, error) {
	return arith("+", a, b,
		func(x, y int64) (any, error) { return x + y, nil },
		func(x, y float64) (any, error) { return x + y, nil },
	)
}

func Sub(a, b any) (any, error) {
	return arith("-", a, b,
		func(x, y int64) (any, error) { return x - y, nil },
		func(x, y float64) (any, error) { return x - y, nil },
	)
}

func Mul(a, b any) (any, error) {
	return arith("*", a, b,
		func(x, y int64) (any, error) { return x * y, nil },
		func(x, y float64) (any, error) { return x * y, nil },
	)
}

// Div divides a by b. Division yields a float whenever the result is
// non-integral, or when either operand was already a float; it yields an
// integer only when both operands are integers and the division is exact.
func Div(a, b any) (any, error) {
	return arith("/", a, b,
		func(x, y int64) (any, error) {
			if y == 0 {
				return nil, xerr.ErrArithmetic("division by zero")
			}
			if x%y == 0 {
				return x / y, nil
			}
			return float64(x) / float64(y), nil
		},
		func(x, y float64) (any, error) {
			if y == 0 {
				return nil, xerr.ErrArithmetic("division by zero")
			}
			return x / y, nil
		},
	)
}

func arith(op string, a, b any, intFn func(x, y int64) (any, error), floatFn func(x, y float64) (any, error)) (any, error) {
	a, b = normalizeInt(a), normalizeInt(b)

	ai, aIsInt := a.(int64)
	bi, bIsInt := b.(int64)
	if aIsInt && bIsInt {
		return intFn(ai, bi)
	}

	af, aok := AsFloat64(a)
	bf, bok := AsFloat64(b)
	if !aok {
		return nil, xerr.ErrTypeMismatch(op, TypeName(a), "numeric")
	}
	if !bok {
		return nil, xerr.ErrTypeMismatch(op, TypeName(b), "numeric")
	}
	return floatFn(af, bf)
}

// Round implements `round(n, scale?)` with half-away-from-zero rounding.
// scale defaults to 0. A negative scale rounds to the left of the decimal
// point (round(1234, -2) == 1200).
func Round(n any, scale int64) (any, error) {
	f, ok := AsFloat64(n)
	if !ok {
		return nil, xerr.ErrTypeMismatch("round", TypeName(n), "numeric")
	}
	mult := math.Pow(10, float64(scale))
	scaled := f * mult
	// Shift the decimal point of f's shortest decimal form instead, so a
	// decimal tie such as 1.005 scales to exactly 100.5, not 100.4999….
	if mant, exp, ok := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e"); ok {
		if e, err := strconv.Atoi(exp); err == nil {
			if v, err := strconv.ParseFloat(mant+"e"+strconv.Itoa(e+int(scale)), 64); err == nil {
				scaled = v
			}
		}
	}
	var rounded float64
	if scaled >= 0 {
		rounded = math.Floor(scaled + 0.5)
	} else {
		rounded = math.Ceil(scaled - 0.5)
	}
	result := rounded / mult

	if _, wasInt := n.(int64); wasInt && scale >= 0 {
		return int64(result), nil
	}
	return result, nil
}

// ToBase renders an integer n in the given base, 2 through 36 inclusive.
func ToBase(n any, base int64) (string, error) {
	i, ok := AsInt64(n)
	if !ok {
		return "", xerr.ErrTypeMismatch("to_base", TypeName(n), "int")
	}
	if base < 2 || base > 36 {
		return "", xerr.ErrArithmetic("to_base: base must be between 2 and 36")
	}
	neg := i < 0
	if neg {
		i = -i
	}
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	if i == 0 {
		return "0", nil
	}
	var buf []byte
	for i > 0 {
		buf = append([]byte{digits[i%base]}, buf...)
		i /= base
	}
	if neg {
		return "-" + string(buf), nil
	}
	return string(buf), nil
}
