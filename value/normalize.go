package value

// Normalize deep-walks a decoded YAML/JSON value, converting every plain
// `int` (what both gopkg.in/yaml.v3 and, for small-enough numbers,
// encoding/json can hand back) to int64, so the rest of the engine only
// ever has to deal with one integer Go type for the int variant.
func Normalize(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Normalize(e)
		}
		return out
	default:
		return v
	}
}
