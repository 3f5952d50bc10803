package pipe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinhphatfsg/rulemorph/pipe"
	"github.com/vinhphatfsg/rulemorph/refpath"
	"github.com/vinhphatfsg/rulemorph/ruleast"
	"github.com/vinhphatfsg/rulemorph/value"
)

func lit(v any) ruleast.Pipeline {
	start, _ := ruleast.ParseStart(v, ruleast.Position{})
	return ruleast.Pipeline{Start: start}
}

func dollar() ruleast.Pipeline {
	return ruleast.Pipeline{Start: ruleast.Start{Kind: ruleast.StartDollar}}
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

func compareCond(op ruleast.CompareOp, lhs, rhs ruleast.Pipeline) ruleast.Condition {
	return ruleast.Condition{
		Kind:    ruleast.CondCompare,
		Compare: &ruleast.CompareCond{Op: op, LHS: lhs, RHS: rhs},
	}
}

func run(t *testing.T, p ruleast.Pipeline, env *refpath.Env) any {
	t.Helper()
	if env == nil {
		env = &refpath.Env{}
	}
	v, err := pipe.Eval(&p, env)
	require.NoError(t, err)
	return v
}

func TestOpStep_Chained(t *testing.T) {
	p := withOp(withOp(lit("  Hi  "), "trim"), "uppercase")
	assert.Equal(t, "HI", run(t, p, nil))
}

func TestLetStep_LaterBindingsSeeEarlier(t *testing.T) {
	p := lit(int64(10))
	p.Steps = append(p.Steps, ruleast.PipeStep{
		Kind: ruleast.StepLet,
		Let: &ruleast.LetStep{
			Bindings: []ruleast.LetBinding{
				{Name: "base", Expr: dollar()},
				{Name: "doubled", Expr: withOp(ref("@base"), "+", ref("@base"))},
			},
		},
	})
	p = withOp(p, "+", ref("@doubled"))
	// base=10, doubled=base+base=20, final = cur(10) + doubled(20) = 30
	assert.Equal(t, int64(30), run(t, p, nil))
}

func TestIfStep_ThenBranchSeededWithDollar(t *testing.T) {
	p := lit(int64(120))
	p.Steps = append(p.Steps, ruleast.PipeStep{
		Kind: ruleast.StepIf,
		If: &ruleast.IfStep{
			Cond: compareCond(ruleast.OpGt, dollar(), lit(int64(100))),
			Then: withOp(dollar(), "*", lit(float64(0.9))),
		},
	})
	assert.Equal(t, float64(108), run(t, p, nil))
}

func TestIfStep_NoElsePassesThrough(t *testing.T) {
	p := lit(int64(50))
	p.Steps = append(p.Steps, ruleast.PipeStep{
		Kind: ruleast.StepIf,
		If: &ruleast.IfStep{
			Cond: compareCond(ruleast.OpGt, dollar(), lit(int64(100))),
			Then: withOp(dollar(), "*", lit(float64(0.9))),
		},
	})
	assert.Equal(t, int64(50), run(t, p, nil))
}

func TestMapStep_OmitsMissingResults(t *testing.T) {
	items := []any{
		map[string]any{"kind": "keep", "v": int64(1)},
		map[string]any{"kind": "drop", "v": int64(2)},
	}
	p := lit(items)
	p.Steps = append(p.Steps, ruleast.PipeStep{
		Kind: ruleast.StepMap,
		Map: &ruleast.MapStep{
			Body: ruleast.Pipeline{
				Start: ruleast.Start{Kind: ruleast.StartReference, Path: mustParse("@item")},
				Steps: []ruleast.PipeStep{
					{
						Kind: ruleast.StepIf,
						If: &ruleast.IfStep{
							Cond: compareCond(ruleast.OpEq, ref("@item.kind"), lit("drop")),
							Then: lit(value.Missing),
							Else: dollarPtr(),
						},
					},
				},
			},
		},
	})
	result := run(t, p, nil)
	arr, ok := result.([]any)
	require.True(t, ok)
	require.Len(t, arr, 1)
	obj, ok := value.AsObject(arr[0])
	require.True(t, ok)
	kind, _ := obj.Get("kind")
	assert.Equal(t, "keep", kind)
}

func TestMapStep_MissingInputYieldsMissing(t *testing.T) {
	p := lit(value.Missing)
	p.Steps = append(p.Steps, ruleast.PipeStep{
		Kind: ruleast.StepMap,
		Map:  &ruleast.MapStep{Body: dollar()},
	})
	assert.True(t, value.IsMissing(run(t, p, nil)))
}

func mustParse(s string) *refpath.Path {
	p, err := refpath.Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func dollarPtr() *ruleast.Pipeline {
	d := dollar()
	return &d
}
