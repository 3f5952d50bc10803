package ops

import (
	"github.com/vinhphatfsg/rulemorph/value"
	"github.com/vinhphatfsg/rulemorph/xerr"
)

func init() {
	register([]string{"and"}, opAnd)
	register([]string{"or"}, opOr)
	register([]string{"not"}, opNot)
}

func asBool(op string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, xerr.ErrTypeMismatch(op, value.TypeName(v), "bool")
	}
	return b, nil
}

func opAnd(c Call) (any, error) {
	lhs, err := asBool("and", c.Pipe)
	if err != nil {
		return nil, err
	}
	rhsArg, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	rhs, err := asBool("and", rhsArg)
	if err != nil {
		return nil, err
	}
	return lhs && rhs, nil
}

func opOr(c Call) (any, error) {
	lhs, err := asBool("or", c.Pipe)
	if err != nil {
		return nil, err
	}
	rhsArg, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	rhs, err := asBool("or", rhsArg)
	if err != nil {
		return nil, err
	}
	return lhs || rhs, nil
}

func opNot(c Call) (any, error) {
	b, err := asBool("not", c.Pipe)
	if err != nil {
		return nil, err
	}
	return !b, nil
}
