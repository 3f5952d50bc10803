// Package condition evaluates the condition AST: All/Any combinators
// and Compare predicates with their own type-coercion rules.
package condition

import (
	"regexp"

	"github.com/vinhphatfsg/rulemorph/refpath"
	"github.com/vinhphatfsg/rulemorph/ruleast"
	"github.com/vinhphatfsg/rulemorph/value"
	"github.com/vinhphatfsg/rulemorph/xerr"
)

// PipelineEvaluator evaluates an expression pipeline against env. The
// pipe interpreter supplies its own Eval as this function when it calls
// into condition.Eval (for example, from an `if` step's cond), avoiding
// an import cycle between the two packages.
type PipelineEvaluator func(p *ruleast.Pipeline, env *refpath.Env) (any, error)

// Eval evaluates cond against env, returning true, false, or an error.
// All is true-biased (short-circuits on the first false or error); Any
// is false-biased (short-circuits on the first true, propagates the
// first error only if every operand was false).
func Eval(cond *ruleast.Condition, env *refpath.Env, evalPipe PipelineEvaluator) (bool, error) {
	switch cond.Kind {
	case ruleast.CondAll:
		for i := range cond.All {
			ok, err := Eval(&cond.All[i], env, evalPipe)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case ruleast.CondAny:
		var firstErr error
		for i := range cond.Any {
			ok, err := Eval(&cond.Any[i], env, evalPipe)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if ok {
				return true, nil
			}
		}
		return false, firstErr
	case ruleast.CondCompare:
		return evalCompare(cond.Compare, env, evalPipe)
	default:
		return false, xerr.ErrValidation("", cond.Pos.String(), "unknown condition kind")
	}
}

// EvalWhen evaluates cond for use as a `when`/`record_when` guard: both
// false and error skip the enclosing construct, but the error is
// returned separately so the caller can demote it to a warning in the
// trace instead of failing the record.
func EvalWhen(cond *ruleast.Condition, env *refpath.Env, evalPipe PipelineEvaluator) (pass bool, warn error) {
	ok, err := Eval(cond, env, evalPipe)
	if err != nil {
		return false, err
	}
	return ok, nil
}

func evalCompare(cmp *ruleast.CompareCond, env *refpath.Env, evalPipe PipelineEvaluator) (bool, error) {
	lhs, err := evalPipe(&cmp.LHS, env)
	if err != nil {
		return false, err
	}
	rhs, err := evalPipe(&cmp.RHS, env)
	if err != nil {
		return false, err
	}

	switch cmp.Op {
	case ruleast.OpEq:
		return value.Equal(lhs, rhs), nil
	case ruleast.OpNe:
		return !value.Equal(lhs, rhs), nil
	case ruleast.OpGt:
		c, err := value.Compare(lhs, rhs)
		return c > 0, err
	case ruleast.OpGte:
		c, err := value.Compare(lhs, rhs)
		return c >= 0, err
	case ruleast.OpLt:
		c, err := value.Compare(lhs, rhs)
		return c < 0, err
	case ruleast.OpLte:
		c, err := value.Compare(lhs, rhs)
		return c <= 0, err
	case ruleast.OpMatch:
		return evalMatch(lhs, rhs)
	default:
		return false, xerr.ErrValidation("", "", "unknown comparison operator "+string(cmp.Op))
	}
}

func evalMatch(lhs, rhs any) (bool, error) {
	s, err := value.CastString(lhs)
	if err != nil {
		return false, xerr.ErrTypeMismatch("match", value.TypeName(lhs), "string")
	}
	pattern, err := value.CastString(rhs)
	if err != nil {
		return false, xerr.ErrTypeMismatch("match", value.TypeName(rhs), "string pattern")
	}
	re, err := regexp.CompilePOSIX(pattern)
	if err != nil {
		return false, xerr.ErrValidation("", "", "invalid match pattern: "+err.Error())
	}
	return re.MatchString(s), nil
}
