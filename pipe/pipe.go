// Package pipe interprets a Pipeline: it resolves a Start value, then
// threads it through each PipeStep (Op/Let/If/Map) in order. This is
// the package that hosts both ops/ and condition/: it instantiates
// ops.PipelineEvaluator and condition.PipelineEvaluator with its own
// Eval method so those packages never need to import pipe themselves.
package pipe

import (
	"github.com/vinhphatfsg/rulemorph/condition"
	"github.com/vinhphatfsg/rulemorph/ops"
	"github.com/vinhphatfsg/rulemorph/refpath"
	"github.com/vinhphatfsg/rulemorph/ruleast"
	"github.com/vinhphatfsg/rulemorph/value"
	"github.com/vinhphatfsg/rulemorph/xerr"
)

// Eval runs p against env: Start produces the initial pipe value, then
// each step transforms it in turn. It doubles as the
// ops.PipelineEvaluator/condition.PipelineEvaluator function both of
// those packages call back into for their own pipeline-valued
// arguments (op args, condition operands, if/map bodies).
func Eval(p *ruleast.Pipeline, env *refpath.Env) (any, error) {
	cur, err := evalStart(&p.Start, env)
	if err != nil {
		return nil, err
	}
	for i := range p.Steps {
		cur, env, err = evalStep(&p.Steps[i], cur, env)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func evalStart(s *ruleast.Start, env *refpath.Env) (any, error) {
	switch s.Kind {
	case ruleast.StartReference:
		return refpath.Resolve(env, s.Path), nil
	case ruleast.StartDollar:
		if env == nil || !env.HasDollar {
			return value.Missing, nil
		}
		return env.Dollar, nil
	default: // StartLit, StartLiteral
		return s.Literal, nil
	}
}

// evalStep executes one step against cur, returning the pipe value and
// environment (extended by a Let step) to carry into the next step.
func evalStep(step *ruleast.PipeStep, cur any, env *refpath.Env) (any, *refpath.Env, error) {
	switch step.Kind {
	case ruleast.StepOp:
		return evalOpStep(step.Op, step.Pos, cur, env)
	case ruleast.StepLet:
		return evalLetStep(step.Let, cur, env)
	case ruleast.StepIf:
		return evalIfStep(step.If, cur, env)
	case ruleast.StepMap:
		return evalMapStep(step.Map, cur, env)
	default:
		return nil, env, xerr.ErrValidation("", step.Pos.String(), "unknown pipe step kind")
	}
}

func evalOpStep(step *ruleast.OpStep, pos ruleast.Position, cur any, env *refpath.Env) (any, *refpath.Env, error) {
	op, ok := ops.Lookup(step.Name)
	if !ok {
		return nil, env, xerr.ErrValidation("", pos.String(), "unknown op "+step.Name)
	}
	res, err := op(ops.Call{Pipe: cur, Args: step.Args, Env: env, Eval: Eval})
	if err != nil {
		return nil, env, err
	}
	return res, env, nil
}

// evalLetStep extends env with each binding in order, evaluated against
// the previous env so later bindings see earlier ones, with `$` seeded
// to the pipe value as of entering the let step.
func evalLetStep(step *ruleast.LetStep, cur any, env *refpath.Env) (any, *refpath.Env, error) {
	seeded := env.WithDollar(cur)
	for _, b := range step.Bindings {
		v, err := Eval(&b.Expr, seeded)
		if err != nil {
			return nil, env, err
		}
		env = env.WithLet(b.Name, v)
		seeded = env.WithDollar(cur)
	}
	return cur, env, nil
}

// evalIfStep evaluates cond, then runs then/else as a nested pipeline
// seeded with the current pipe value; a false cond with no else passes
// the pipe value through unchanged.
func evalIfStep(step *ruleast.IfStep, cur any, env *refpath.Env) (any, *refpath.Env, error) {
	seeded := env.WithDollar(cur)
	ok, err := condition.Eval(&step.Cond, seeded, Eval)
	if err != nil {
		return nil, env, err
	}
	if ok {
		res, err := Eval(&step.Then, seeded)
		return res, env, err
	}
	if step.Else != nil {
		res, err := Eval(step.Else, seeded)
		return res, env, err
	}
	return cur, env, nil
}

// evalMapStep requires cur to be an array (missing input yields missing
// output without error); body runs once per element with `@item`/
// `@item.index` bound and `$` seeded to the element, and results that
// evaluate to missing are omitted from the output array.
func evalMapStep(step *ruleast.MapStep, cur any, env *refpath.Env) (any, *refpath.Env, error) {
	if value.IsMissing(cur) {
		return value.Missing, env, nil
	}
	arr, ok := cur.([]any)
	if !ok {
		return nil, env, xerr.ErrTypeMismatch("map", value.TypeName(cur), "array")
	}
	out := make([]any, 0, len(arr))
	for i, el := range arr {
		itemEnv := env.WithItem(el, i).WithDollar(el)
		res, err := Eval(&step.Body, itemEnv)
		if err != nil {
			return nil, env, err
		}
		if value.IsMissing(res) {
			continue
		}
		out = append(out, res)
	}
	return out, env, nil
}
