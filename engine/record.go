// Package engine drives a single input record through a rule document's
// mappings or steps program, the inter-rule caller and catch dispatch,
// network execution, and the finalize stage, instrumenting every step
// through an injected trace.Recorder.
package engine

import (
	"strings"

	"github.com/vinhphatfsg/rulemorph/condition"
	"github.com/vinhphatfsg/rulemorph/pipe"
	"github.com/vinhphatfsg/rulemorph/refpath"
	"github.com/vinhphatfsg/rulemorph/ruleast"
	"github.com/vinhphatfsg/rulemorph/trace"
	"github.com/vinhphatfsg/rulemorph/value"
	"github.com/vinhphatfsg/rulemorph/xerr"
)

// Caller resolves and invokes a rule file referenced by a branch, an
// endpoint/network catch, or a network body_rule. record.go depends only
// on this interface so it never needs to know about the loader's graph,
// the network transport, or the top-level Engine wiring; *Engine is the
// concrete implementation (caller.go, network.go).
type Caller interface {
	// CallRule returns the referenced rule's single-record result. A
	// normal/endpoint rule always yields an object; a network rule's
	// `select` may yield any value, so the caller coerces to an Object
	// only where the rule document requires one (branch merge/return).
	CallRule(ref, fromPath string, input, ctx any, rec *trace.Recorder, parent *trace.Node) (any, error)
}

// RunNormal drives a single input record through a normal rule's
// mappings-or-steps program, returning the output object, whether the
// record was skipped (record_when false — not a failure), or an error
// (a failed record).
func RunNormal(rule *ruleast.NormalRule, fromPath string, input, ctx any, caller Caller, rec *trace.Recorder, parent *trace.Node) (out *value.Object, skipped bool, err error) {
	env := &refpath.Env{Input: input, Context: ctx, Out: value.NewObject()}

	if rule.RecordWhen != nil {
		n, done := rec.Step("record_when", "")
		ok, cerr := condition.Eval(rule.RecordWhen, env, pipe.Eval)
		done()
		parent.Attach(n)
		if cerr != nil {
			n.SetSkipped().WithMeta("error", cerr.Error())
			return nil, true, nil
		}
		if !ok {
			n.SetSkipped()
			return nil, true, nil
		}
	}

	out = value.NewObject()
	if len(rule.Mappings) > 0 {
		if err := applyMappings(rule.Mappings, env, out, rec, parent); err != nil {
			return nil, false, err
		}
		return out, false, nil
	}

	return runSteps(rule.Steps, fromPath, env, out, caller, rec, parent)
}

// RunEndpointSteps drives an endpoint rule's steps program the same way
// a normal rule's steps program runs.
func RunEndpointSteps(steps []ruleast.RecordStep, fromPath string, input, ctx any, caller Caller, rec *trace.Recorder, parent *trace.Node) (*value.Object, bool, error) {
	env := &refpath.Env{Input: input, Context: ctx, Out: value.NewObject()}
	return runSteps(steps, fromPath, env, value.NewObject(), caller, rec, parent)
}

func runSteps(steps []ruleast.RecordStep, fromPath string, env *refpath.Env, out *value.Object, caller Caller, rec *trace.Recorder, parent *trace.Node) (*value.Object, bool, error) {
	env.Out = out
	for i := range steps {
		step := &steps[i]
		switch step.Kind {
		case ruleast.RecordMappings:
			n, done := rec.Step("mappings", "")
			err := applyMappings(step.Mappings, env, out, rec, n)
			done()
			parent.Attach(n)
			if err != nil {
				n.SetError(err)
				return nil, false, err
			}

		case ruleast.RecordWhen:
			n, done := rec.Step("record_when", "")
			ok, err := condition.Eval(step.RecordWhen, env, pipe.Eval)
			done()
			parent.Attach(n)
			if err != nil {
				n.SetError(err)
				return nil, false, err
			}
			if !ok {
				n.SetSkipped()
				return nil, true, nil
			}

		case ruleast.RecordAsserts:
			n, done := rec.Step("asserts", "")
			failed, err := evalAsserts(step.Asserts, env)
			done()
			parent.Attach(n)
			if err != nil {
				n.SetError(err)
				return nil, false, err
			}
			if failed != nil {
				n.SetError(failed).WithMeta("asserts_ok", false)
				return nil, false, failed
			}
			n.WithMeta("asserts_ok", true)

		case ruleast.RecordBranch:
			n, done := rec.Step("branch", step.Branch.Then)
			result, taken, terminal, err := runBranch(step.Branch, fromPath, env, caller, rec, n)
			done()
			parent.Attach(n)
			if err != nil {
				n.SetError(err)
				return nil, false, err
			}
			n.WithMeta("branch_taken", taken)
			if result != nil {
				if terminal {
					n.WithMeta("return", true)
					return result, false, nil
				}
				out = deepMergeObjects(out, result)
				env.Out = out
			}
		}
	}
	return out, false, nil
}

func evalAsserts(asserts []ruleast.AssertStep, env *refpath.Env) (failed error, err error) {
	for _, a := range asserts {
		ok, err := condition.Eval(&a.When, env, pipe.Eval)
		if err != nil {
			return nil, err
		}
		if ok {
			return xerr.ErrUserAssert(a.Code, a.Message), nil
		}
	}
	return nil, nil
}

// runBranch evaluates a branch step's when, calls the chosen rule (if
// any) with @input = @out, and reports which side was taken and whether
// the call is terminal (Return: true replaces the whole record).
func runBranch(b *ruleast.BranchStep, fromPath string, env *refpath.Env, caller Caller, rec *trace.Recorder, parent *trace.Node) (result *value.Object, taken string, terminal bool, err error) {
	ok, err := condition.Eval(&b.When, env, pipe.Eval)
	if err != nil {
		return nil, "", false, err
	}

	ref := b.Then
	taken = "then"
	if !ok {
		ref = b.Else
		taken = "else"
	}
	if ref == "" {
		return nil, "none", false, nil
	}

	out, _ := value.AsObject(env.Out)
	raw, err := caller.CallRule(ref, fromPath, out, env.Context, rec, parent)
	if err != nil {
		return nil, taken, false, err
	}
	result, ok = value.AsObject(raw)
	if !ok {
		return nil, taken, false, xerr.ErrTypeMismatch("branch "+ref, value.TypeName(raw), "object")
	}
	return result, taken, b.Return, nil
}

// applyMappings runs each mapping in order, writing resolved values
// into out; subsequent mappings observe writes of prior ones because
// they all share the same out via env.Out.
func applyMappings(mappings []ruleast.Mapping, env *refpath.Env, out *value.Object, rec *trace.Recorder, parent *trace.Node) error {
	env.Out = out
	for i := range mappings {
		if err := applyMapping(&mappings[i], env, out, rec, parent); err != nil {
			return err
		}
	}
	return nil
}

func applyMapping(m *ruleast.Mapping, env *refpath.Env, out *value.Object, rec *trace.Recorder, parent *trace.Node) error {
	n, done := rec.Step("mapping", m.Target)
	defer done()
	defer parent.Attach(n)

	if m.When != nil {
		ok, err := condition.Eval(m.When, env, pipe.Eval)
		if err != nil || !ok {
			n.SetSkipped()
			if err != nil {
				n.WithMeta("warning", err.Error())
			}
			return nil
		}
	}

	v, err := resolveMappingValue(m, env)
	if err != nil {
		n.SetError(err)
		return err
	}
	n.WithInput(m.Target)

	if value.IsMissing(v) {
		switch {
		case m.Default != nil:
			v = m.Default
		case m.Required:
			err := xerr.ErrReferenceMissing(m.Target, mappingSourceDesc(m))
			n.SetError(err)
			return err
		default:
			n.SetSkipped()
			return nil
		}
	}

	if m.Type != "" {
		cast, err := castValue(m.Type, v)
		if err != nil {
			n.SetError(err)
			return err
		}
		v = cast
	}

	if err := writeTarget(out, m.Target, v); err != nil {
		n.SetError(err)
		return err
	}
	n.WithOutput(v)
	return nil
}

func mappingSourceDesc(m *ruleast.Mapping) string {
	switch m.Kind {
	case ruleast.SourcePath:
		if m.Path != nil {
			return "source"
		}
	case ruleast.SourceExpr:
		return "expr"
	}
	return "value"
}

func resolveMappingValue(m *ruleast.Mapping, env *refpath.Env) (any, error) {
	switch m.Kind {
	case ruleast.SourcePath:
		return refpath.Resolve(env, m.Path), nil
	case ruleast.SourceValue:
		return m.Value, nil
	case ruleast.SourceExpr:
		return pipe.Eval(m.Expr, env)
	default:
		return nil, xerr.ErrValidation("", m.Pos.String(), "mapping has no value source")
	}
}

func castValue(kind string, v any) (any, error) {
	switch kind {
	case "string":
		return value.CastString(v)
	case "int":
		return value.CastInt(v)
	case "float":
		return value.CastFloat(v)
	case "bool":
		return value.CastBool(v)
	default:
		return nil, xerr.ErrValidation("", "", "unknown cast type "+kind)
	}
}

// writeTarget decomposes target into dotted object keys and writes v at
// the leaf, creating intermediate objects on demand. An intermediate
// segment that already holds a non-object value is a TypeMismatch.
func writeTarget(out *value.Object, target string, v any) error {
	segs := strings.Split(target, ".")
	cur := out
	for _, seg := range segs[:len(segs)-1] {
		existing, ok := cur.Get(seg)
		if !ok {
			child := value.NewObject()
			cur.Set(seg, child)
			cur = child
			continue
		}
		asObj, isObj := existing.(*value.Object)
		if !isObj {
			promoted, ok := value.AsObject(existing)
			if !ok {
				return xerr.ErrTypeMismatch("mapping target "+target, value.TypeName(existing), "object")
			}
			cur.Set(seg, promoted)
			asObj = promoted
		}
		cur = asObj
	}
	cur.Set(segs[len(segs)-1], v)
	return nil
}

// deepMergeObjects merges b into a: nested objects merge recursively,
// arrays and every other variant are replaced wholesale by b's value,
// mirroring ops.deep_merge's own merge semantics.
func deepMergeObjects(a, b *value.Object) *value.Object {
	out := a.Clone()
	b.Range(func(k string, bv any) bool {
		if av, ok := out.Get(k); ok {
			if ao, aIsObj := value.AsObject(av); aIsObj {
				if bo, bIsObj := value.AsObject(bv); bIsObj {
					out.Set(k, deepMergeObjects(ao, bo))
					return true
				}
			}
		}
		out.Set(k, bv)
		return true
	})
	return out
}
