// Package ops implements the pipe interpreter's operation registry: one
// entry per named op in the registry table, each taking the current pipe
// value plus its argument pipelines and returning the next pipe value.
package ops

import (
	"github.com/vinhphatfsg/rulemorph/refpath"
	"github.com/vinhphatfsg/rulemorph/ruleast"
	"github.com/vinhphatfsg/rulemorph/value"
)

// PipelineEvaluator evaluates an expression pipeline against env. It has
// the same shape as condition.PipelineEvaluator; ops never imports pipe
// directly (pipe imports ops instead) so higher-order ops like filter and
// sort_by receive their own copy of the pipe interpreter's Eval method
// through this call, the same inversion this codebase uses between
// condition and pipe.
type PipelineEvaluator func(p *ruleast.Pipeline, env *refpath.Env) (any, error)

// Call bundles everything an op implementation needs: the current pipe
// value, its unevaluated argument pipelines (a plain op evaluates these
// itself via Eval against Env; a higher-order op like filter instead
// evaluates one of them per-element against a derived Env), the
// environment the op step is running in, and the evaluator callback.
type Call struct {
	Pipe any
	Args []ruleast.Pipeline
	Env  *refpath.Env
	Eval PipelineEvaluator
}

// EvalArgs eagerly evaluates every argument pipeline against c.Env, the
// convention for ops whose arguments are plain values rather than
// predicates or sub-pipelines.
func (c Call) EvalArgs() ([]any, error) {
	out := make([]any, len(c.Args))
	for i := range c.Args {
		v, err := c.Eval(&c.Args[i], c.Env)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// EvalArg evaluates the i'th argument pipeline against c.Env, or returns
// value.Missing if the op was called with fewer than i+1 arguments.
func (c Call) EvalArg(i int) (any, error) {
	if i >= len(c.Args) {
		return value.Missing, nil
	}
	return c.Eval(&c.Args[i], c.Env)
}

// Op is a single registry entry.
type Op func(c Call) (any, error)

// Registry maps an op name (including every alias) to its implementation.
var Registry = map[string]Op{}

func register(names []string, op Op) {
	for _, n := range names {
		Registry[n] = op
	}
}

// Lookup returns the op registered under name, and whether it exists.
func Lookup(name string) (Op, bool) {
	op, ok := Registry[name]
	return op, ok
}
