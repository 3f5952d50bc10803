package ops

import (
	"github.com/vinhphatfsg/rulemorph/value"
	"github.com/vinhphatfsg/rulemorph/xerr"
)

func init() {
	register([]string{"+", "add"}, opAdd)
	register([]string{"-", "subtract"}, opSub)
	register([]string{"*", "multiply"}, opMul)
	register([]string{"/", "divide"}, opDiv)
	register([]string{"round"}, opRound)
	register([]string{"to_base"}, opToBase)
}

func opAdd(c Call) (any, error) { return binaryArith(c, value.Add) }
func opSub(c Call) (any, error) { return binaryArith(c, value.Sub) }
func opMul(c Call) (any, error) { return binaryArith(c, value.Mul) }
func opDiv(c Call) (any, error) { return binaryArith(c, value.Div) }

func binaryArith(c Call, fn func(a, b any) (any, error)) (any, error) {
	rhs, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	return fn(c.Pipe, rhs)
}

// opRound implements round(scale?); scale defaults to 0.
func opRound(c Call) (any, error) {
	scale := int64(0)
	if v, err := c.EvalArg(0); err == nil && !value.IsMissing(v) {
		s, err := value.CastInt(v)
		if err != nil {
			return nil, xerr.ErrTypeMismatch("round", value.TypeName(v), "int scale")
		}
		scale = s
	}
	return value.Round(c.Pipe, scale)
}

func opToBase(c Call) (any, error) {
	baseArg, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	base, err := value.CastInt(baseArg)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("to_base", value.TypeName(baseArg), "int base")
	}
	return value.ToBase(c.Pipe, base)
}
