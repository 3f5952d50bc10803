package ops

import (
	"strings"

	"golang.org/x/exp/slices"

	"github.com/vinhphatfsg/rulemorph/value"
	"github.com/vinhphatfsg/rulemorph/xerr"
)

func init() {
	register([]string{"filter"}, opFilter)
	register([]string{"map"}, opArrayMap)
	register([]string{"flat_map"}, opFlatMap)
	register([]string{"flatten"}, opFlatten)
	register([]string{"take"}, opTake)
	register([]string{"drop"}, opDrop)
	register([]string{"slice"}, opSlice)
	register([]string{"chunk"}, opChunk)
	register([]string{"zip"}, opZip)
	register([]string{"zip_with"}, opZipWith)
	register([]string{"unzip"}, opUnzip)
	register([]string{"group_by"}, opGroupBy)
	register([]string{"key_by"}, opKeyBy)
	register([]string{"partition"}, opPartition)
	register([]string{"unique"}, opUnique)
	register([]string{"distinct_by"}, opDistinctBy)
	register([]string{"sort_by"}, opSortBy)
	register([]string{"find"}, opFind)
	register([]string{"find_index"}, opFindIndex)
	register([]string{"index_of"}, opIndexOf)
	register([]string{"contains"}, opContains)
	register([]string{"sum"}, opSum)
	register([]string{"avg"}, opAvg)
	register([]string{"min"}, opMin)
	register([]string{"max"}, opMax)
	register([]string{"reduce"}, opReduce)
	register([]string{"fold"}, opFold)
	register([]string{"first"}, opFirst)
	register([]string{"last"}, opLast)
}

func asArray(op string, v any) ([]any, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, xerr.ErrTypeMismatch(op, value.TypeName(v), "array")
	}
	return arr, nil
}

// predicateAt evaluates arg pipeline i with @item bound to el at position
// idx. The result must be bool or missing (treated as false); anything
// else is a TypeMismatch.
func predicateAt(c Call, argIdx int, el any, idx int) (bool, error) {
	if argIdx >= len(c.Args) {
		return false, xerr.ErrValidation("", "", "missing predicate argument")
	}
	env := c.Env.WithItem(el, idx)
	res, err := c.Eval(&c.Args[argIdx], env)
	if err != nil {
		return false, err
	}
	if value.IsMissing(res) {
		return false, nil
	}
	b, ok := res.(bool)
	if !ok {
		return false, xerr.ErrTypeMismatch("predicate", value.TypeName(res), "bool or missing")
	}
	return b, nil
}

func opFilter(c Call) (any, error) {
	arr, err := asArray("filter", c.Pipe)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(arr))
	for i, el := range arr {
		ok, err := predicateAt(c, 0, el, i)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, el)
		}
	}
	return out, nil
}

// opArrayMap implements the `map(pipeline)` registry op, the same
// per-element evaluation the pipe interpreter's dedicated Map step uses
// (missing results omitted), exposed as a callable op so it can compose
// inside reduce/fold/sort_by bodies without needing the outer step form.
func opArrayMap(c Call) (any, error) {
	arr, err := asArray("map", c.Pipe)
	if err != nil {
		if value.IsMissing(c.Pipe) {
			return value.Missing, nil
		}
		return nil, err
	}
	out := make([]any, 0, len(arr))
	for i, el := range arr {
		env := c.Env.WithItem(el, i)
		res, err := c.Eval(&c.Args[0], env)
		if err != nil {
			return nil, err
		}
		if value.IsMissing(res) {
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

func opFlatMap(c Call) (any, error) {
	mapped, err := opArrayMap(c)
	if err != nil {
		return nil, err
	}
	if value.IsMissing(mapped) {
		return mapped, nil
	}
	arr := mapped.([]any)
	out := make([]any, 0, len(arr))
	for _, el := range arr {
		if sub, ok := el.([]any); ok {
			out = append(out, sub...)
		} else {
			out = append(out, el)
		}
	}
	return out, nil
}

func opFlatten(c Call) (any, error) {
	arr, err := asArray("flatten", c.Pipe)
	if err != nil {
		return nil, err
	}
	depth := int64(1)
	if d, err := c.EvalArg(0); err == nil && !value.IsMissing(d) {
		depth, err = value.CastInt(d)
		if err != nil {
			return nil, xerr.ErrTypeMismatch("flatten", value.TypeName(d), "int depth")
		}
	}
	return flattenN(arr, depth), nil
}

func flattenN(arr []any, depth int64) []any {
	if depth <= 0 {
		return arr
	}
	out := make([]any, 0, len(arr))
	for _, el := range arr {
		if sub, ok := el.([]any); ok {
			out = append(out, flattenN(sub, depth-1)...)
		} else {
			out = append(out, el)
		}
	}
	return out
}

func opTake(c Call) (any, error) { return takeDrop(c, true) }
func opDrop(c Call) (any, error) { return takeDrop(c, false) }

func takeDrop(c Call, take bool) (any, error) {
	arr, err := asArray("take/drop", c.Pipe)
	if err != nil {
		return nil, err
	}
	nArg, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	n, err := value.CastInt(nArg)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("take/drop", value.TypeName(nArg), "int count")
	}
	l := int64(len(arr))
	if n < 0 {
		n = l + n
		if n < 0 {
			n = 0
		}
		if take {
			return append([]any{}, arr[n:]...), nil
		}
		return append([]any{}, arr[:n]...), nil
	}
	if n > l {
		n = l
	}
	if take {
		return append([]any{}, arr[:n]...), nil
	}
	return append([]any{}, arr[n:]...), nil
}

func opSlice(c Call) (any, error) {
	arr, err := asArray("slice", c.Pipe)
	if err != nil {
		return nil, err
	}
	sArg, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	start, err := value.CastInt(sArg)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("slice", value.TypeName(sArg), "int start")
	}
	end := int64(len(arr))
	if eArg, err := c.EvalArg(1); err == nil && !value.IsMissing(eArg) {
		end, err = value.CastInt(eArg)
		if err != nil {
			return nil, xerr.ErrTypeMismatch("slice", value.TypeName(eArg), "int end")
		}
	}
	l := int64(len(arr))
	if start < 0 {
		start += l
	}
	if end < 0 {
		end += l
	}
	start = clamp(start, 0, l)
	end = clamp(end, 0, l)
	if end < start {
		end = start
	}
	return append([]any{}, arr[start:end]...), nil
}

func clamp(n, lo, hi int64) int64 {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func opChunk(c Call) (any, error) {
	arr, err := asArray("chunk", c.Pipe)
	if err != nil {
		return nil, err
	}
	nArg, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	n, err := value.CastInt(nArg)
	if err != nil || n <= 0 {
		return nil, xerr.ErrTypeMismatch("chunk", value.TypeName(nArg), "positive int size")
	}
	var out []any
	for i := 0; i < len(arr); i += int(n) {
		end := i + int(n)
		if end > len(arr) {
			end = len(arr)
		}
		out = append(out, append([]any{}, arr[i:end]...))
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

func opZip(c Call) (any, error) {
	a, err := asArray("zip", c.Pipe)
	if err != nil {
		return nil, err
	}
	otherArg, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	b, err := asArray("zip", otherArg)
	if err != nil {
		return nil, err
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]any, n)
	for i := 0; i < n; i++ {
		out[i] = []any{a[i], b[i]}
	}
	return out, nil
}

func opZipWith(c Call) (any, error) {
	a, err := asArray("zip_with", c.Pipe)
	if err != nil {
		return nil, err
	}
	otherArg, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	b, err := asArray("zip_with", otherArg)
	if err != nil {
		return nil, err
	}
	if len(c.Args) < 2 {
		return nil, xerr.ErrValidation("", "", "zip_with requires (other, pipeline)")
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]any, n)
	for i := 0; i < n; i++ {
		env := c.Env.WithItem([]any{a[i], b[i]}, i)
		res, err := c.Eval(&c.Args[1], env)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}

func opUnzip(c Call) (any, error) {
	pairs, err := asArray("unzip", c.Pipe)
	if err != nil {
		return nil, err
	}
	left := make([]any, 0, len(pairs))
	right := make([]any, 0, len(pairs))
	for _, p := range pairs {
		pair, ok := p.([]any)
		if !ok || len(pair) != 2 {
			return nil, xerr.ErrTypeMismatch("unzip", value.TypeName(p), "[a,b] pair")
		}
		left = append(left, pair[0])
		right = append(right, pair[1])
	}
	return []any{left, right}, nil
}

// keyOf evaluates the keyExpr pipeline with @item bound, then casts the
// result to a string for use as an object key (group_by/key_by both
// build string-keyed objects).
func keyOf(c Call, argIdx int, el any, idx int) (string, error) {
	env := c.Env.WithItem(el, idx)
	res, err := c.Eval(&c.Args[argIdx], env)
	if err != nil {
		return "", err
	}
	return value.CastString(res)
}

func opGroupBy(c Call) (any, error) {
	arr, err := asArray("group_by", c.Pipe)
	if err != nil {
		return nil, err
	}
	out := value.NewObject()
	for i, el := range arr {
		k, err := keyOf(c, 0, el, i)
		if err != nil {
			return nil, err
		}
		existing, ok := out.Get(k)
		var group []any
		if ok {
			group = existing.([]any)
		}
		group = append(group, el)
		out.Set(k, group)
	}
	return out, nil
}

// opKeyBy implements `key_by`: the last element with a given key wins.
func opKeyBy(c Call) (any, error) {
	arr, err := asArray("key_by", c.Pipe)
	if err != nil {
		return nil, err
	}
	out := value.NewObject()
	for i, el := range arr {
		k, err := keyOf(c, 0, el, i)
		if err != nil {
			return nil, err
		}
		out.Set(k, el)
	}
	return out, nil
}

func opPartition(c Call) (any, error) {
	arr, err := asArray("partition", c.Pipe)
	if err != nil {
		return nil, err
	}
	var yes, no []any
	for i, el := range arr {
		ok, err := predicateAt(c, 0, el, i)
		if err != nil {
			return nil, err
		}
		if ok {
			yes = append(yes, el)
		} else {
			no = append(no, el)
		}
	}
	if yes == nil {
		yes = []any{}
	}
	if no == nil {
		no = []any{}
	}
	return []any{yes, no}, nil
}

func opUnique(c Call) (any, error) {
	arr, err := asArray("unique", c.Pipe)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(arr))
	for _, el := range arr {
		if !slices.ContainsFunc(out, func(seen any) bool { return value.Equal(seen, el) }) {
			out = append(out, el)
		}
	}
	return out, nil
}

func opDistinctBy(c Call) (any, error) {
	arr, err := asArray("distinct_by", c.Pipe)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(arr))
	seenKeys := make([]string, 0, len(arr))
	for i, el := range arr {
		k, err := keyOf(c, 0, el, i)
		if err != nil {
			return nil, err
		}
		if slices.Contains(seenKeys, k) {
			continue
		}
		seenKeys = append(seenKeys, k)
		out = append(out, el)
	}
	return out, nil
}

// opSortBy implements `sort_by(keyExpr)` with a stable sort: elements
// whose keys compare equal keep their relative input order.
func opSortBy(c Call) (any, error) {
	arr, err := asArray("sort_by", c.Pipe)
	if err != nil {
		return nil, err
	}
	type keyed struct {
		key any
		el  any
	}
	ks := make([]keyed, len(arr))
	for i, el := range arr {
		env := c.Env.WithItem(el, i)
		k, err := c.Eval(&c.Args[0], env)
		if err != nil {
			return nil, err
		}
		ks[i] = keyed{key: k, el: el}
	}
	var sortErr error
	slices.SortStableFunc(ks, func(a, b keyed) int {
		if sortErr != nil {
			return 0
		}
		cmp, err := value.Compare(a.key, b.key)
		if err != nil {
			sortErr = err
			return 0
		}
		return cmp
	})
	if sortErr != nil {
		return nil, sortErr
	}
	out := make([]any, len(ks))
	for i, k := range ks {
		out[i] = k.el
	}
	return out, nil
}

func opFind(c Call) (any, error) {
	arr, err := asArray("find", c.Pipe)
	if err != nil {
		return nil, err
	}
	for i, el := range arr {
		ok, err := predicateAt(c, 0, el, i)
		if err != nil {
			return nil, err
		}
		if ok {
			return el, nil
		}
	}
	return value.Missing, nil
}

func opFindIndex(c Call) (any, error) {
	arr, err := asArray("find_index", c.Pipe)
	if err != nil {
		return nil, err
	}
	for i, el := range arr {
		ok, err := predicateAt(c, 0, el, i)
		if err != nil {
			return nil, err
		}
		if ok {
			return int64(i), nil
		}
	}
	return value.Missing, nil
}

func opIndexOf(c Call) (any, error) {
	arr, err := asArray("index_of", c.Pipe)
	if err != nil {
		return nil, err
	}
	needle, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	for i, el := range arr {
		if value.Equal(el, needle) {
			return int64(i), nil
		}
	}
	return value.Missing, nil
}

// opContains accepts an array (element membership via value.Equal), a
// string (substring), or an object (key membership).
func opContains(c Call) (any, error) {
	needle, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	switch p := c.Pipe.(type) {
	case []any:
		for _, el := range p {
			if value.Equal(el, needle) {
				return true, nil
			}
		}
		return false, nil
	case string:
		s, err := value.CastString(needle)
		if err != nil {
			return nil, xerr.ErrTypeMismatch("contains", value.TypeName(needle), "string")
		}
		return strings.Contains(p, s), nil
	default:
		if obj, ok := value.AsObject(p); ok {
			key, err := value.CastString(needle)
			if err != nil {
				return nil, xerr.ErrTypeMismatch("contains", value.TypeName(needle), "string key")
			}
			_, ok := obj.Get(key)
			return ok, nil
		}
		return nil, xerr.ErrTypeMismatch("contains", value.TypeName(c.Pipe), "array, string, or object")
	}
}

func numericElements(op string, arr []any) ([]float64, error) {
	out := make([]float64, len(arr))
	for i, el := range arr {
		f, ok := value.AsFloat64(el)
		if !ok {
			return nil, xerr.ErrTypeMismatch(op, value.TypeName(el), "numeric element")
		}
		out[i] = f
	}
	return out, nil
}

func opSum(c Call) (any, error) {
	arr, err := asArray("sum", c.Pipe)
	if err != nil {
		return nil, err
	}
	nums, err := numericElements("sum", arr)
	if err != nil {
		return nil, err
	}
	allInt := true
	for _, el := range arr {
		if _, ok := value.AsInt64(el); !ok {
			allInt = false
			break
		}
	}
	var sum float64
	for _, n := range nums {
		sum += n
	}
	if allInt {
		return int64(sum), nil
	}
	return sum, nil
}

func opAvg(c Call) (any, error) {
	arr, err := asArray("avg", c.Pipe)
	if err != nil {
		return nil, err
	}
	if len(arr) == 0 {
		return value.Missing, nil
	}
	nums, err := numericElements("avg", arr)
	if err != nil {
		return nil, err
	}
	var sum float64
	for _, n := range nums {
		sum += n
	}
	return sum / float64(len(nums)), nil
}

func opMin(c Call) (any, error) { return minMax(c, "min", true) }
func opMax(c Call) (any, error) { return minMax(c, "max", false) }

func minMax(c Call, op string, wantMin bool) (any, error) {
	arr, err := asArray(op, c.Pipe)
	if err != nil {
		return nil, err
	}
	if len(arr) == 0 {
		return value.Missing, nil
	}
	best := arr[0]
	for _, el := range arr[1:] {
		cmp, err := value.Compare(el, best)
		if err != nil {
			return nil, err
		}
		if (wantMin && cmp < 0) || (!wantMin && cmp > 0) {
			best = el
		}
	}
	return best, nil
}

// opReduce implements `reduce(accumExpr)`: the first element seeds the
// accumulator; accumExpr runs once per remaining element with `@item`
// bound to that element and the running accumulator visible as the
// let-variable `@acc` (this engine's documented choice of binding name,
// recorded in DESIGN.md). An empty array reduces to missing.
func opReduce(c Call) (any, error) {
	arr, err := asArray("reduce", c.Pipe)
	if err != nil {
		return nil, err
	}
	if len(arr) == 0 {
		return value.Missing, nil
	}
	acc := arr[0]
	for i, el := range arr[1:] {
		env := c.Env.WithItem(el, i+1).WithLet("acc", acc)
		next, err := c.Eval(&c.Args[0], env)
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

// opFold implements `fold(init, accumExpr)`: like reduce but with an
// explicit seed, so it is well-defined for an empty array.
func opFold(c Call) (any, error) {
	arr, err := asArray("fold", c.Pipe)
	if err != nil {
		return nil, err
	}
	acc, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	if len(c.Args) < 2 {
		return nil, xerr.ErrValidation("", "", "fold requires (init, accumExpr)")
	}
	for i, el := range arr {
		env := c.Env.WithItem(el, i).WithLet("acc", acc)
		next, err := c.Eval(&c.Args[1], env)
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

func opFirst(c Call) (any, error) {
	arr, err := asArray("first", c.Pipe)
	if err != nil {
		return nil, err
	}
	if len(arr) == 0 {
		return value.Missing, nil
	}
	return arr[0], nil
}

func opLast(c Call) (any, error) {
	arr, err := asArray("last", c.Pipe)
	if err != nil {
		return nil, err
	}
	if len(arr) == 0 {
		return value.Missing, nil
	}
	return arr[len(arr)-1], nil
}
