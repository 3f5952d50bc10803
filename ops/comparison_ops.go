package ops

import (
	"regexp"

	"github.com/vinhphatfsg/rulemorph/value"
	"github.com/vinhphatfsg/rulemorph/xerr"
)

// Comparison ops mirror the condition evaluator's Compare rules so a rule
// document can use `{eq:[...]}` inside a pipe expression (producing a
// boolean pipe value, e.g. for a later `and`/`not`) and not just inside a
// Condition AST node.
func init() {
	register([]string{"==", "eq"}, opEq)
	register([]string{"!=", "ne"}, opNe)
	register([]string{">", "gt"}, opGt)
	register([]string{">=", "gte"}, opGte)
	register([]string{"<", "lt"}, opLt)
	register([]string{"<=", "lte"}, opLte)
	register([]string{"~=", "match"}, opMatch)
}

func opEq(c Call) (any, error) {
	rhs, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	return value.Equal(c.Pipe, rhs), nil
}

func opNe(c Call) (any, error) {
	rhs, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	return !value.Equal(c.Pipe, rhs), nil
}

func compareOp(c Call, pred func(cmp int) bool) (any, error) {
	rhs, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	cmp, err := value.Compare(c.Pipe, rhs)
	if err != nil {
		return nil, err
	}
	return pred(cmp), nil
}

func opGt(c Call) (any, error)  { return compareOp(c, func(cmp int) bool { return cmp > 0 }) }
func opGte(c Call) (any, error) { return compareOp(c, func(cmp int) bool { return cmp >= 0 }) }
func opLt(c Call) (any, error)  { return compareOp(c, func(cmp int) bool { return cmp < 0 }) }
func opLte(c Call) (any, error) { return compareOp(c, func(cmp int) bool { return cmp <= 0 }) }

func opMatch(c Call) (any, error) {
	s, err := value.CastString(c.Pipe)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("match", value.TypeName(c.Pipe), "string")
	}
	patArg, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	pattern, err := value.CastString(patArg)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("match", value.TypeName(patArg), "string pattern")
	}
	re, err := regexp.CompilePOSIX(pattern)
	if err != nil {
		return nil, xerr.ErrValidation("", "", "invalid match pattern: "+err.Error())
	}
	return re.MatchString(s), nil
}
