package ops

import (
	"strings"

	"github.com/binaek/gocoll/collection"

	"github.com/vinhphatfsg/rulemorph/refpath"
	"github.com/vinhphatfsg/rulemorph/value"
	"github.com/vinhphatfsg/rulemorph/xerr"
)

func init() {
	register([]string{"merge"}, opMerge)
	register([]string{"deep_merge"}, opDeepMerge)
	register([]string{"get"}, opGet)
	register([]string{"pick"}, opPick)
	register([]string{"omit"}, opOmit)
	register([]string{"keys"}, opKeys)
	register([]string{"values"}, opValues)
	register([]string{"entries"}, opEntries)
	register([]string{"from_entries"}, opFromEntries)
	register([]string{"object_flatten"}, opObjectFlatten)
	register([]string{"object_unflatten"}, opObjectUnflatten)
	register([]string{"len"}, opLen)
}

// opMerge implements `merge`: a shallow, right-wins merge of the pipe
// object with the argument object.
func opMerge(c Call) (any, error) {
	lhs, ok := value.AsObject(c.Pipe)
	if !ok {
		return nil, xerr.ErrTypeMismatch("merge", value.TypeName(c.Pipe), "object")
	}
	rhsArg, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	rhs, ok := value.AsObject(rhsArg)
	if !ok {
		return nil, xerr.ErrTypeMismatch("merge", value.TypeName(rhsArg), "object")
	}
	out := lhs.Clone()
	rhs.Range(func(k string, v any) bool {
		out.Set(k, v)
		return true
	})
	return out, nil
}

// opDeepMerge implements `deep_merge`: nested objects merge recursively,
// key-by-key; arrays (and any other variant) are replaced wholesale by
// the right-hand value.
func opDeepMerge(c Call) (any, error) {
	lhs, ok := value.AsObject(c.Pipe)
	if !ok {
		return nil, xerr.ErrTypeMismatch("deep_merge", value.TypeName(c.Pipe), "object")
	}
	rhsArg, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	rhs, ok := value.AsObject(rhsArg)
	if !ok {
		return nil, xerr.ErrTypeMismatch("deep_merge", value.TypeName(rhsArg), "object")
	}
	return deepMerge(lhs, rhs), nil
}

func deepMerge(a, b *value.Object) *value.Object {
	out := a.Clone()
	b.Range(func(k string, bv any) bool {
		if av, ok := out.Get(k); ok {
			if ao, aIsObj := value.AsObject(av); aIsObj {
				if bo, bIsObj := value.AsObject(bv); bIsObj {
					out.Set(k, deepMerge(ao, bo))
					return true
				}
			}
		}
		out.Set(k, bv)
		return true
	})
	return out
}

// opGet implements `get(path)`: path addresses into the pipe value
// itself (not into @input/@out/etc.), reusing the reference-path grammar
// for dotted fields and bracketed indices/keys.
func opGet(c Call) (any, error) {
	pathArg, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	pathStr, err := value.CastString(pathArg)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("get", value.TypeName(pathArg), "string path")
	}
	p, err := refpath.Parse(pathStr)
	if err != nil {
		return nil, err
	}
	return refpath.WalkSegments(c.Pipe, p), nil
}

// opPick and opOmit address top-level keys only: `paths` is a list of
// field names, not nested dotted paths, matching the granularity `keys`/
// `entries`/`object_flatten` already expose for deeper structure.
func opPick(c Call) (any, error) {
	obj, ok := value.AsObject(c.Pipe)
	if !ok {
		return nil, xerr.ErrTypeMismatch("pick", value.TypeName(c.Pipe), "object")
	}
	names, err := stringArgs(c)
	if err != nil {
		return nil, err
	}
	out := value.NewObject()
	for _, name := range names {
		if v, ok := obj.Get(name); ok {
			out.Set(name, v)
		}
	}
	return out, nil
}

func opOmit(c Call) (any, error) {
	obj, ok := value.AsObject(c.Pipe)
	if !ok {
		return nil, xerr.ErrTypeMismatch("omit", value.TypeName(c.Pipe), "object")
	}
	names, err := stringArgs(c)
	if err != nil {
		return nil, err
	}
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := value.NewObject()
	obj.Range(func(k string, v any) bool {
		if !drop[k] {
			out.Set(k, v)
		}
		return true
	})
	return out, nil
}

func stringArgs(c Call) ([]string, error) {
	args, err := c.EvalArgs()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(args))
	for i, a := range args {
		s, err := value.CastString(a)
		if err != nil {
			return nil, xerr.ErrTypeMismatch("pick/omit", value.TypeName(a), "string field name")
		}
		out[i] = s
	}
	return out, nil
}

func opKeys(c Call) (any, error) {
	obj, ok := value.AsObject(c.Pipe)
	if !ok {
		return nil, xerr.ErrTypeMismatch("keys", value.TypeName(c.Pipe), "object")
	}
	ks := obj.Keys()
	out := make([]any, len(ks))
	for i, k := range ks {
		out[i] = k
	}
	return out, nil
}

func opValues(c Call) (any, error) {
	obj, ok := value.AsObject(c.Pipe)
	if !ok {
		return nil, xerr.ErrTypeMismatch("values", value.TypeName(c.Pipe), "object")
	}
	ks := obj.Keys()
	out := make([]any, len(ks))
	for i, k := range ks {
		out[i], _ = obj.Get(k)
	}
	return out, nil
}

// opEntries builds an array of [key, value] pairs in key order, via
// gocoll's fluent Map over the object's key slice.
func opEntries(c Call) (any, error) {
	obj, ok := value.AsObject(c.Pipe)
	if !ok {
		return nil, xerr.ErrTypeMismatch("entries", value.TypeName(c.Pipe), "object")
	}
	pairs := collection.Map(
		collection.From(obj.Keys()...),
		func(k string) any {
			v, _ := obj.Get(k)
			return []any{k, v}
		},
	).Elements()
	return pairs, nil
}

func opFromEntries(c Call) (any, error) {
	arr, ok := c.Pipe.([]any)
	if !ok {
		return nil, xerr.ErrTypeMismatch("from_entries", value.TypeName(c.Pipe), "array of [key,value] pairs")
	}
	out := value.NewObject()
	for _, e := range arr {
		pair, ok := e.([]any)
		if !ok || len(pair) != 2 {
			return nil, xerr.ErrTypeMismatch("from_entries", value.TypeName(e), "[key,value] pair")
		}
		k, err := value.CastString(pair[0])
		if err != nil {
			return nil, xerr.ErrTypeMismatch("from_entries", value.TypeName(pair[0]), "string key")
		}
		out.Set(k, pair[1])
	}
	return out, nil
}

// opObjectFlatten flattens nested objects into dot-path keys, e.g.
// {"a":{"b":1}} -> {"a.b":1}. Arrays are treated as leaf values, not
// flattened further, matching `deep_merge`'s "arrays are replaced"
// stance on array opacity.
func opObjectFlatten(c Call) (any, error) {
	obj, ok := value.AsObject(c.Pipe)
	if !ok {
		return nil, xerr.ErrTypeMismatch("object_flatten", value.TypeName(c.Pipe), "object")
	}
	out := value.NewObject()
	flattenInto(out, "", obj)
	return out, nil
}

func flattenInto(out *value.Object, prefix string, obj *value.Object) {
	obj.Range(func(k string, v any) bool {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := value.AsObject(v); ok {
			flattenInto(out, key, nested)
		} else {
			out.Set(key, v)
		}
		return true
	})
}

// opObjectUnflatten is object_flatten's inverse: dot-path keys become
// nested objects.
func opObjectUnflatten(c Call) (any, error) {
	obj, ok := value.AsObject(c.Pipe)
	if !ok {
		return nil, xerr.ErrTypeMismatch("object_unflatten", value.TypeName(c.Pipe), "object")
	}
	out := value.NewObject()
	obj.Range(func(k string, v any) bool {
		parts := strings.Split(k, ".")
		setNested(out, parts, v)
		return true
	})
	return out, nil
}

func setNested(out *value.Object, parts []string, v any) {
	if len(parts) == 1 {
		out.Set(parts[0], v)
		return
	}
	head, rest := parts[0], parts[1:]
	existing, ok := out.Get(head)
	var child *value.Object
	if ok {
		child, _ = value.AsObject(existing)
	}
	if child == nil {
		child = value.NewObject()
	}
	setNested(child, rest, v)
	out.Set(head, child)
}

// opLen implements `len` over strings, arrays, and objects.
func opLen(c Call) (any, error) {
	switch v := c.Pipe.(type) {
	case string:
		return int64(len([]rune(v))), nil
	case []any:
		return int64(len(v)), nil
	default:
		if obj, ok := value.AsObject(v); ok {
			return int64(obj.Len()), nil
		}
		return nil, xerr.ErrTypeMismatch("len", value.TypeName(c.Pipe), "string, array, or object")
	}
}
