package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinhphatfsg/rulemorph/engine"
	"github.com/vinhphatfsg/rulemorph/ruleast"
	"github.com/vinhphatfsg/rulemorph/trace"
	"github.com/vinhphatfsg/rulemorph/value"
)

func objRecord(fields map[string]any) *value.Object {
	o := value.NewObject()
	for k, v := range fields {
		o.Set(k, v)
	}
	return o
}

func pathStart(t *testing.T, ref string) ruleast.Start {
	t.Helper()
	s, err := ruleast.ParseStart(ref, ruleast.Position{})
	require.NoError(t, err)
	return s
}

func opStep(name string, args ...ruleast.Pipeline) ruleast.PipeStep {
	return ruleast.PipeStep{Kind: ruleast.StepOp, Op: &ruleast.OpStep{Name: name, Args: args}}
}

func TestRunFinalize_NilSpecPassesThrough(t *testing.T) {
	records := []any{objRecord(map[string]any{"v": 1})}
	rec := trace.NewRecorder(false)
	out, node, err := engine.RunFinalize(nil, records, rec)
	require.NoError(t, err)
	assert.Equal(t, records, out)
	assert.Nil(t, node)
}

func TestRunFinalize_FilterKeepsMatching(t *testing.T) {
	records := []any{
		objRecord(map[string]any{"v": int64(1)}),
		objRecord(map[string]any{"v": int64(2)}),
	}
	cond := &ruleast.Condition{
		Kind: ruleast.CondCompare,
		Compare: &ruleast.CompareCond{
			Op:  ruleast.OpGt,
			LHS: ruleast.Pipeline{Start: pathStart(t, "@item.v")},
			RHS: litPipeline(1),
		},
	}
	spec := &ruleast.Finalize{Filter: cond}

	rec := trace.NewRecorder(false)
	out, _, err := engine.RunFinalize(spec, records, rec)
	require.NoError(t, err)
	list, ok := out.([]any)
	require.True(t, ok)
	assert.Len(t, list, 1)
}

func TestRunFinalize_SortDescendingWithMissingKeysFirst(t *testing.T) {
	records := []any{
		objRecord(map[string]any{"v": int64(1)}),
		objRecord(map[string]any{}),
		objRecord(map[string]any{"v": int64(3)}),
	}
	spec := &ruleast.Finalize{Sort: &ruleast.SortSpec{By: "v", Order: ruleast.SortDesc}}

	rec := trace.NewRecorder(false)
	out, _, err := engine.RunFinalize(spec, records, rec)
	require.NoError(t, err)
	list := out.([]any)
	require.Len(t, list, 3)

	first := list[0].(*value.Object)
	_, hasV := first.Get("v")
	assert.False(t, hasV, "missing key should sort first in desc order")
}

func TestRunFinalize_OffsetAndLimit(t *testing.T) {
	records := []any{
		objRecord(map[string]any{"v": int64(1)}),
		objRecord(map[string]any{"v": int64(2)}),
		objRecord(map[string]any{"v": int64(3)}),
	}
	offset, limit := 1, 1
	spec := &ruleast.Finalize{Offset: &offset, Limit: &limit}

	rec := trace.NewRecorder(false)
	out, _, err := engine.RunFinalize(spec, records, rec)
	require.NoError(t, err)
	list := out.([]any)
	require.Len(t, list, 1)
	v, _ := list[0].(*value.Object).Get("v")
	assert.EqualValues(t, 2, v)
}

func TestRunFinalize_WrapProducesObjectWithFieldOrder(t *testing.T) {
	records := []any{objRecord(map[string]any{"v": int64(1)}), objRecord(map[string]any{"v": int64(2)})}
	spec := &ruleast.Finalize{
		Wrap: []ruleast.WrapField{
			{Key: "items", Expr: ruleast.Pipeline{Start: pathStart(t, "@out")}},
			{Key: "count", Expr: ruleast.Pipeline{Start: pathStart(t, "@out"), Steps: []ruleast.PipeStep{opStep("len")}}},
		},
	}

	rec := trace.NewRecorder(false)
	out, _, err := engine.RunFinalize(spec, records, rec)
	require.NoError(t, err)
	obj, ok := out.(*value.Object)
	require.True(t, ok)
	count, _ := obj.Get("count")
	assert.EqualValues(t, 2, count)
}
