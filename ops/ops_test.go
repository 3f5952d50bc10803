package ops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinhphatfsg/rulemorph/ops"
	"github.com/vinhphatfsg/rulemorph/refpath"
	"github.com/vinhphatfsg/rulemorph/ruleast"
	"github.com/vinhphatfsg/rulemorph/value"
)

// evalPipeline is a minimal stand-in for the pipe interpreter, just
// enough to drive op calls end-to-end in isolation from the rest of the
// engine: it resolves Start, then threads the value through each Op
// step via ops.Lookup. If/Let/Map pipe steps are out of scope here since
// this package does not depend on pipe/.
func evalPipeline(p *ruleast.Pipeline, env *refpath.Env) (any, error) {
	var cur any
	switch p.Start.Kind {
	case ruleast.StartReference:
		cur = refpath.Resolve(env, p.Start.Path)
	case ruleast.StartDollar:
		cur = value.Missing
	default:
		cur = p.Start.Literal
	}

	for _, step := range p.Steps {
		if step.Kind != ruleast.StepOp {
			return nil, assertNever("only op steps are supported in this test harness")
		}
		op, ok := ops.Lookup(step.Op.Name)
		if !ok {
			return nil, assertNever("unknown op " + step.Op.Name)
		}
		res, err := op(ops.Call{Pipe: cur, Args: step.Op.Args, Env: env, Eval: evalPipeline})
		if err != nil {
			return nil, err
		}
		cur = res
	}
	return cur, nil
}

type testError string

func (e testError) Error() string { return string(e) }

func assertNever(msg string) error { return testError(msg) }

func lit(v any) ruleast.Pipeline {
	start, _ := ruleast.ParseStart(v, ruleast.Position{})
	return ruleast.Pipeline{Start: start}
}

func ref(path string) ruleast.Pipeline {
	p, err := refpath.Parse(path)
	if err != nil {
		panic(err)
	}
	return ruleast.Pipeline{Start: ruleast.Start{Kind: ruleast.StartReference, Path: p}}
}

func withOp(start ruleast.Pipeline, name string, args ...ruleast.Pipeline) ruleast.Pipeline {
	start.Steps = append(start.Steps, ruleast.PipeStep{
		Kind: ruleast.StepOp,
		Op:   &ruleast.OpStep{Name: name, Args: args},
	})
	return start
}

func run(t *testing.T, p ruleast.Pipeline, env *refpath.Env) any {
	t.Helper()
	if env == nil {
		env = &refpath.Env{}
	}
	v, err := evalPipeline(&p, env)
	require.NoError(t, err)
	return v
}

func TestString_TrimLowerUpperConcat(t *testing.T) {
	assert.Equal(t, "hi", run(t, withOp(lit("  hi  "), "trim")))
	assert.Equal(t, "hi", run(t, withOp(lit("HI"), "lowercase")))
	assert.Equal(t, "HI", run(t, withOp(lit("hi"), "uppercase")))
	assert.Equal(t, "ab", run(t, withOp(lit("a"), "concat", lit("b"))))
}

func TestString_ReplaceSplitPad(t *testing.T) {
	assert.Equal(t, "xbxbx", run(t, withOp(lit("ababa"), "replace", lit("a"), lit("x"))))
	assert.Equal(t, "xbaba", run(t, withOp(lit("ababa"), "replace", lit("a"), lit("x"), lit("first"))))

	v := run(t, withOp(lit("a,b,c"), "split", lit(",")))
	assert.Equal(t, []any{"a", "b", "c"}, v)

	assert.Equal(t, "007", run(t, withOp(lit("7"), "pad_start", lit(int64(3)), lit("0"))))
}

func TestNumeric_ArithAndRound(t *testing.T) {
	assert.Equal(t, int64(3), run(t, withOp(lit(int64(1)), "+", lit(int64(2)))))
	assert.Equal(t, float64(3), run(t, withOp(lit(int64(1)), "add", lit(float64(2)))))
	assert.Equal(t, float64(3), run(t, withOp(lit(float64(2.5)), "round")))
	s := run(t, withOp(lit(int64(255)), "to_base", lit(int64(16))))
	assert.Equal(t, "ff", s)
}

func TestComparison_EqGt(t *testing.T) {
	assert.Equal(t, false, run(t, withOp(lit(int64(1)), "eq", lit("1"))), "eq(1,\"1\") must be false")
	assert.Equal(t, false, run(t, withOp(lit("2"), "gt", lit("10"))), "numeric-looking strings compare numerically, not lexicographically")
}

func TestLogical(t *testing.T) {
	assert.Equal(t, true, run(t, withOp(lit(true), "and", lit(true))))
	assert.Equal(t, true, run(t, withOp(lit(false), "or", lit(true))))
	assert.Equal(t, false, run(t, withOp(lit(true), "not"))))
}

func TestJSON_MergeDeepMerge(t *testing.T) {
	a := map[string]any{"x": int64(1), "nested": map[string]any{"a": int64(1)}}
	b := map[string]any{"y": int64(2), "nested": map[string]any{"b": int64(2)}}

	merged := run(t, withOp(lit(a), "merge", lit(b)))
	mo, ok := value.AsObject(merged)
	require.True(t, ok)
	_, hasNestedA := func() (any, bool) {
		n, ok := mo.Get("nested")
		if !ok {
			return nil, false
		}
		no, _ := value.AsObject(n)
		return no.Get("a")
	}()
	assert.False(t, hasNestedA, "shallow merge must replace `nested` wholesale, not merge its keys")

	deep := run(t, withOp(lit(a), "deep_merge", lit(b)))
	do, ok := value.AsObject(deep)
	require.True(t, ok)
	dn, _ := do.Get("nested")
	dno, _ := value.AsObject(dn)
	va, _ := dno.Get("a")
	vb, _ := dno.Get("b")
	assert.Equal(t, int64(1), va)
	assert.Equal(t, int64(2), vb)
}

func TestJSON_GetPickOmitKeysLen(t *testing.T) {
	obj := map[string]any{"a": int64(1), "b": int64(2), "c": int64(3)}

	got := run(t, withOp(lit(obj), "get", lit("b")))
	assert.Equal(t, int64(2), got)

	picked := run(t, withOp(lit(obj), "pick", lit("a"), lit("c")))
	po, _ := value.AsObject(picked)
	assert.Equal(t, []string{"a", "c"}, po.Keys())

	omitted := run(t, withOp(lit(obj), "omit", lit("b")))
	oo, _ := value.AsObject(omitted)
	assert.ElementsMatch(t, []string{"a", "c"}, oo.Keys())

	keys := run(t, withOp(lit(obj), "keys"))
	assert.ElementsMatch(t, []any{"a", "b", "c"}, keys)

	l := run(t, withOp(lit(obj), "len"))
	assert.Equal(t, int64(3), l)
}

func TestJSON_EntriesFromEntries(t *testing.T) {
	obj := value.NewObject()
	obj.Set("z", int64(1))
	obj.Set("a", int64(2))

	entries := run(t, withOp(lit(obj), "entries"))
	assert.Equal(t, []any{[]any{"z", int64(1)}, []any{"a", int64(2)}}, entries)

	back := run(t, withOp(lit(entries), "from_entries"))
	bo, _ := value.AsObject(back)
	assert.Equal(t, []string{"z", "a"}, bo.Keys())
}

func TestJSON_ObjectFlattenUnflatten(t *testing.T) {
	nested := map[string]any{"a": map[string]any{"b": int64(1)}}
	flat := run(t, withOp(lit(nested), "object_flatten"))
	fo, _ := value.AsObject(flat)
	v, ok := fo.Get("a.b")
	require.True(t, ok)
	assert.Equal(t, int64(1), v)

	back := run(t, withOp(lit(flat), "object_unflatten"))
	bo, _ := value.AsObject(back)
	a, ok := bo.Get("a")
	require.True(t, ok)
	ao, _ := value.AsObject(a)
	b, ok := ao.Get("b")
	require.True(t, ok)
	assert.Equal(t, int64(1), b)
}

func itemGtOne() ruleast.Pipeline {
	return withOp(ref("@item"), "gt", lit(int64(1)))
}

func TestArray_FilterTakeDropSlice(t *testing.T) {
	arr := []any{int64(1), int64(2), int64(3)}

	filtered := run(t, withOp(lit(arr), "filter", itemGtOne()))
	assert.Equal(t, []any{int64(2), int64(3)}, filtered)

	taken := run(t, withOp(lit(arr), "take", lit(int64(2))))
	assert.Equal(t, []any{int64(1), int64(2)}, taken)

	droppedFromTail := run(t, withOp(lit(arr), "drop", lit(int64(-1))))
	assert.Equal(t, []any{int64(1), int64(2)}, droppedFromTail)

	sliced := run(t, withOp(lit(arr), "slice", lit(int64(1)), lit(int64(3))))
	assert.Equal(t, []any{int64(2), int64(3)}, sliced)
}

func TestArray_MapFlattenChunk(t *testing.T) {
	arr := []any{int64(1), int64(2)}
	doubled := run(t, withOp(lit(arr), "map", withOp(ref("@item"), "+", lit(int64(1)))))
	assert.Equal(t, []any{int64(2), int64(3)}, doubled)

	nested := []any{[]any{int64(1), int64(2)}, []any{int64(3)}}
	flat := run(t, withOp(lit(nested), "flatten"))
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, flat)

	chunked := run(t, withOp(lit([]any{int64(1), int64(2), int64(3)}), "chunk", lit(int64(2))))
	assert.Equal(t, []any{[]any{int64(1), int64(2)}, []any{int64(3)}}, chunked)
}

func TestArray_SortByGroupByUnique(t *testing.T) {
	arr := []any{int64(3), int64(1), int64(2)}
	sorted := run(t, withOp(lit(arr), "sort_by", ref("@item")))
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, sorted)

	rows := []any{
		map[string]any{"kind": "a", "v": int64(1)},
		map[string]any{"kind": "b", "v": int64(2)},
		map[string]any{"kind": "a", "v": int64(3)},
	}
	grouped := run(t, withOp(lit(rows), "group_by", ref("@item.kind")))
	go_, ok := value.AsObject(grouped)
	require.True(t, ok)
	aGroup, _ := go_.Get("a")
	assert.Len(t, aGroup, 2)

	dup := []any{int64(1), int64(1), int64(2)}
	uniq := run(t, withOp(lit(dup), "unique"))
	assert.Equal(t, []any{int64(1), int64(2)}, uniq)
}

func TestArray_SumAvgMinMax(t *testing.T) {
	arr := []any{int64(1), int64(2), int64(3)}
	assert.Equal(t, int64(6), run(t, withOp(lit(arr), "sum")))
	assert.Equal(t, float64(2), run(t, withOp(lit(arr), "avg")))
	assert.Equal(t, int64(1), run(t, withOp(lit(arr), "min")))
	assert.Equal(t, int64(3), run(t, withOp(lit(arr), "max")))
}

func TestArray_ReduceFold(t *testing.T) {
	arr := []any{int64(1), int64(2), int64(3)}
	sum := run(t, withOp(lit(arr), "reduce", withOp(ref("@acc"), "+", ref("@item"))))
	assert.Equal(t, int64(6), sum)

	folded := run(t, withOp(lit(arr), "fold", lit(int64(10)), withOp(ref("@acc"), "+", ref("@item"))))
	assert.Equal(t, int64(16), folded)
}

func TestArray_FirstLastContainsIndexOf(t *testing.T) {
	arr := []any{int64(1), int64(2), int64(3)}
	assert.Equal(t, int64(1), run(t, withOp(lit(arr), "first")))
	assert.Equal(t, int64(3), run(t, withOp(lit(arr), "last")))
	assert.Equal(t, true, run(t, withOp(lit(arr), "contains", lit(int64(2)))))
	assert.Equal(t, int64(1), run(t, withOp(lit(arr), "index_of", lit(int64(2)))))
}

func TestLookup(t *testing.T) {
	table := []any{
		map[string]any{"code": "US", "name": "United States"},
		map[string]any{"code": "CA", "name": "Canada"},
	}
	result := run(t, withOp(lit(table), "lookup_first", lit("code"), lit("CA"), lit("name")))
	assert.Equal(t, "Canada", result)

	empty := run(t, withOp(lit(table), "lookup_first", lit("code"), lit("XX")))
	assert.True(t, value.IsMissing(empty))
}

func TestCast(t *testing.T) {
	assert.Equal(t, "3", run(t, withOp(lit(int64(3)), "to_string")))
	assert.Equal(t, int64(3), run(t, withOp(lit("3"), "int")))
	assert.Equal(t, float64(3.5), run(t, withOp(lit("3.5"), "float")))
	assert.Equal(t, true, run(t, withOp(lit("true"), "bool")))
}

func TestDate_FormatAndUnixtime(t *testing.T) {
	out := run(t, withOp(lit("2024-01-02"), "date_format", lit("date"), lit("2006/01/02")))
	assert.Equal(t, "2024/01/02", out)

	ts := run(t, withOp(lit("2024-01-02T00:00:00Z"), "to_unixtime"))
	assert.Equal(t, int64(1704153600), ts)
}
