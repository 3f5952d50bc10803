package condition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinhphatfsg/rulemorph/condition"
	"github.com/vinhphatfsg/rulemorph/refpath"
	"github.com/vinhphatfsg/rulemorph/ruleast"
)

// literalEval treats every pipeline as a bare start with no steps (a
// reference is resolved, anything else is its literal), enough to exercise the condition evaluator's own logic without
// pulling in the pipe interpreter.
func literalEval(p *ruleast.Pipeline, env *refpath.Env) (any, error) {
	switch p.Start.Kind {
	case ruleast.StartReference:
		return refpath.Resolve(env, p.Start.Path), nil
	default:
		return p.Start.Literal, nil
	}
}

func compareCond(op ruleast.CompareOp, lhs, rhs any) *ruleast.Condition {
	lhsStart, _ := ruleast.ParseStart(lhs, ruleast.Position{})
	rhsStart, _ := ruleast.ParseStart(rhs, ruleast.Position{})
	return &ruleast.Condition{
		Kind: ruleast.CondCompare,
		Compare: &ruleast.CompareCond{
			Op:  op,
			LHS: ruleast.Pipeline{Start: lhsStart},
			RHS: ruleast.Pipeline{Start: rhsStart},
		},
	}
}

func TestEq_TypeStrict(t *testing.T) {
	env := &refpath.Env{}
	ok, err := condition.Eval(compareCond(ruleast.OpEq, int64(1), "1"), env, literalEval)
	require.NoError(t, err)
	assert.False(t, ok, "eq(1, \"1\") must be false")

	ok, err = condition.Eval(compareCond(ruleast.OpEq, int64(1), float64(1.0)), env, literalEval)
	require.NoError(t, err)
	assert.False(t, ok, "eq(1, 1.0) must be false")
}

func TestGt_NumericAndLexicographic(t *testing.T) {
	env := &refpath.Env{}
	ok, err := condition.Eval(compareCond(ruleast.OpGt, "2", "10"), env, literalEval)
	require.NoError(t, err)
	assert.False(t, ok, "gt(\"2\",\"10\") compares numerically (2 < 10), not lexicographically")

	ok, err = condition.Eval(compareCond(ruleast.OpGt, "b", "aa"), env, literalEval)
	require.NoError(t, err)
	assert.True(t, ok, "gt(\"b\",\"aa\") falls back to lexicographic order")
}

func TestAll_ShortCircuitsOnFalse(t *testing.T) {
	env := &refpath.Env{}
	cond := &ruleast.Condition{
		Kind: ruleast.CondAll,
		All: []ruleast.Condition{
			*compareCond(ruleast.OpEq, int64(1), int64(2)),
			*compareCond(ruleast.OpMatch, "not-a-valid-group(", "("),
		},
	}
	ok, err := condition.Eval(cond, env, literalEval)
	require.NoError(t, err, "second operand is never evaluated once the first is false")
	assert.False(t, ok)
}

func TestAny_ShortCircuitsOnTrue(t *testing.T) {
	env := &refpath.Env{}
	cond := &ruleast.Condition{
		Kind: ruleast.CondAny,
		Any: []ruleast.Condition{
			*compareCond(ruleast.OpEq, int64(1), int64(1)),
		},
	}
	ok, err := condition.Eval(cond, env, literalEval)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatch(t *testing.T) {
	env := &refpath.Env{}
	ok, err := condition.Eval(compareCond(ruleast.OpMatch, "hello123", "[0-9]+"), env, literalEval)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalWhen_ErrorDemotesToSkip(t *testing.T) {
	env := &refpath.Env{}
	cond := compareCond(ruleast.OpGt, true, int64(1))
	pass, warn := condition.EvalWhen(cond, env, literalEval)
	assert.False(t, pass)
	assert.Error(t, warn)
}
