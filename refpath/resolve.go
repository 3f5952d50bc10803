package refpath

import "github.com/vinhphatfsg/rulemorph/value"

// Env is the environment a path resolves against: the record engine's
// per-record scopes plus whatever `let` bindings are lexically visible at
// the point of resolution.
type Env struct {
	Input   any
	Context any
	Out     any

	HasItem   bool
	Item      any
	ItemIndex int

	// HasDollar/Dollar track the pipe value `$` resolves to: the value a
	// nested pipeline (an If branch, a Let binding's expr, a Map body) was
	// seeded with. A fresh top-level Env has HasDollar false, so `$` at
	// the very start of a pipeline with no enclosing pipe value is
	// value.Missing.
	HasDollar bool
	Dollar    any

	// Let holds bindings visible at this point in the pipeline. Callers
	// build a fresh Env (or a shallow copy with Let replaced) per `let`
	// step so earlier bindings remain visible to later ones without
	// mutating a shared map out from under a sibling branch.
	Let map[string]any
}

// WithLet returns a copy of env with name bound to v, added to (not
// replacing) any existing bindings, matching the pipe interpreter's
// "later bindings see earlier ones" rule.
func (e *Env) WithLet(name string, v any) *Env {
	next := *e
	merged := make(map[string]any, len(e.Let)+1)
	for k, val := range e.Let {
		merged[k] = val
	}
	merged[name] = v
	next.Let = merged
	return &next
}

// WithItem returns a copy of env with @item bound to item at position
// index, the scope a `map` step (or an array op evaluating a pipeline per
// element) runs its body pipeline in.
func (e *Env) WithItem(item any, index int) *Env {
	next := *e
	next.HasItem = true
	next.Item = item
	next.ItemIndex = index
	return &next
}

// WithDollar returns a copy of env with `$` bound to v, the scope a
// nested pipeline (an If branch, a Let binding's expr, a Map body) runs
// in, seeded with whatever pipe value was current when it was entered.
func (e *Env) WithDollar(v any) *Env {
	next := *e
	next.HasDollar = true
	next.Dollar = v
	return &next
}

// Resolve evaluates path against env. Resolution is total: an absent
// object key, an out-of-range array index, or indexing into a non-object
// value yields value.Missing, never an error.
func Resolve(env *Env, path *Path) any {
	if env == nil {
		return value.Missing
	}

	if path.ItemIndex {
		if !env.HasItem {
			return value.Missing
		}
		return int64(env.ItemIndex)
	}

	var base any
	switch path.Namespace {
	case NSInput:
		base = env.Input
	case NSContext:
		base = env.Context
	case NSOut:
		base = env.Out
	case NSItem:
		if !env.HasItem {
			return value.Missing
		}
		base = env.Item
	case NSLet:
		v, ok := env.Let[path.LetName]
		if !ok {
			return value.Missing
		}
		base = v
	default:
		return value.Missing
	}

	return walk(base, path.Segments)
}

// WalkSegments applies path's segments to base directly, ignoring its
// namespace. Used where a path addresses into a value itself rather than
// into one of Env's namespaces: the `get` op, finalize's sort key, a
// network rule's `select`, and JSON input's `records_path`.
func WalkSegments(base any, path *Path) any {
	return walk(base, path.Segments)
}

func walk(base any, segs []Segment) any {
	cur := base
	for _, seg := range segs {
		if value.IsMissing(cur) {
			return value.Missing
		}
		switch seg.Kind {
		case SegField, SegKey:
			cur = accessField(cur, seg.Field)
		case SegIndex:
			cur = accessIndex(cur, seg.Index)
		}
	}
	return cur
}

func accessField(obj any, field string) any {
	switch o := obj.(type) {
	case *value.Object:
		if v, ok := o.Get(field); ok {
			return v
		}
		return value.Missing
	case map[string]any:
		if v, ok := o[field]; ok {
			return v
		}
		return value.Missing
	default:
		return value.Missing
	}
}

func accessIndex(obj any, idx int) any {
	arr, ok := obj.([]any)
	if !ok {
		return value.Missing
	}
	i := idx
	if i < 0 {
		i += len(arr)
	}
	if i < 0 || i >= len(arr) {
		return value.Missing
	}
	return arr[i]
}
