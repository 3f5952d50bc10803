package value

// Equal implements JSON-structural equality: two values are equal only if
// they share the same variant and the same content. An integer and a float
// holding the same magnitude are NOT equal, unlike a loose numeric
// comparison: int64(1) != float64(1.0). missing is only equal to itself,
// and never to null.
func Equal(a, b any) bool {
	a, b = normalizeInt(a), normalizeInt(b)

	switch {
	case IsMissing(a) || IsMissing(b):
		return IsMissing(a) && IsMissing(b)
	case IsNull(a) || IsNull(b):
		return IsNull(a) && IsNull(b)
	}

	switch at := a.(type) {
	case bool:
		bt, ok := b.(bool)
		return ok && at == bt
	case int64:
		bt, ok := b.(int64)
		return ok && at == bt
	case float64:
		bt, ok := b.(float64)
		return ok && at == bt
	case string:
		bt, ok := b.(string)
		return ok && at == bt
	case []any:
		bt, ok := b.([]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !Equal(at[i], bt[i]) {
				return false
			}
		}
		return true
	default:
		ao, aok := AsObject(a)
		bo, bok := AsObject(b)
		if !aok || !bok {
			return false
		}
		if ao.Len() != bo.Len() {
			return false
		}
		equal := true
		ao.Range(func(k string, v any) bool {
			bv, ok := bo.Get(k)
			if !ok || !Equal(v, bv) {
				equal = false
				return false
			}
			return true
		})
		return equal
	}
}

// normalizeInt collapses the plain `int` the YAML decoder produces for
// scalar integers down to int64, so the int64 variant case in Equal (and
// elsewhere) sees one consistent Go type for the integer variant.
func normalizeInt(v any) any {
	if i, ok := v.(int); ok {
		return int64(i)
	}
	return v
}
