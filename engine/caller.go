package engine

import (
	"errors"
	"path/filepath"
	"strconv"

	"github.com/vinhphatfsg/rulemorph/loader"
	"github.com/vinhphatfsg/rulemorph/ruleast"
	"github.com/vinhphatfsg/rulemorph/trace"
	"github.com/vinhphatfsg/rulemorph/value"
	"github.com/vinhphatfsg/rulemorph/xerr"
)

// Engine is the concrete Caller: it owns a loaded rule graph and a
// transport, and re-enters the record engine once per inter-rule call.
// The zero value is not usable; construct with New.
type Engine struct {
	graph     *loader.Graph
	transport Transport
}

// New wraps an already-loaded rule graph. RegisterTransport supplies the
// HTTP execution hook network rules need; a graph with no network rules
// never calls it.
func New(graph *loader.Graph) *Engine {
	return &Engine{graph: graph}
}

// RegisterTransport installs the HTTP execution hook used by `network`
// rules (the `register_transport` entry point).
func (e *Engine) RegisterTransport(t Transport) {
	e.transport = t
}

// Graph exposes the loaded rule graph, e.g. for BuildCallGraph.
func (e *Engine) Graph() *loader.Graph { return e.graph }

// CallRule resolves ref against fromPath's directory, re-enters the
// matching rule-type runner, and on failure consults that rule's catch
// map (when it has one) by exact -> pattern -> timeout -> default
// precedence.
func (e *Engine) CallRule(ref, fromPath string, input, ctx any, rec *trace.Recorder, parent *trace.Node) (any, error) {
	path := resolveRulePath(fromPath, ref)
	rule := e.graph.Rule(path)
	if rule == nil {
		return nil, xerr.ErrValidation(fromPath, "", "referenced rule not loaded: "+ref)
	}

	out, err := e.runRule(rule, path, input, ctx, rec, parent)
	if err == nil {
		return out, nil
	}

	catch := catchMapOf(rule)
	if catch == nil {
		return nil, err
	}
	catchRef, ok := dispatchCatch(catch, err)
	if !ok {
		return nil, err
	}
	catchInput := buildCatchInput(input, err)
	return e.CallRule(catchRef, path, catchInput, ctx, rec, parent)
}

func (e *Engine) runRule(rule *ruleast.Rule, path string, input, ctx any, rec *trace.Recorder, parent *trace.Node) (any, error) {
	switch rule.Type {
	case ruleast.RuleEndpoint:
		out, skipped, err := RunEndpointSteps(rule.Endpoint.Steps, path, input, ctx, e, rec, parent)
		if err != nil {
			return nil, err
		}
		if skipped {
			return value.NewObject(), nil
		}
		return out, nil

	case ruleast.RuleNetwork:
		return RunNetwork(rule.Network, path, input, ctx, e.transport, e, rec, parent)

	default: // ruleast.RuleNormal
		out, skipped, err := RunNormal(rule.Normal, path, input, ctx, e, rec, parent)
		if err != nil {
			return nil, err
		}
		if skipped {
			return value.NewObject(), nil
		}
		return out, nil
	}
}

func catchMapOf(rule *ruleast.Rule) map[string]string {
	switch rule.Type {
	case ruleast.RuleEndpoint:
		if rule.Endpoint != nil {
			return rule.Endpoint.Catch
		}
	case ruleast.RuleNetwork:
		if rule.Network != nil {
			return rule.Network.Catch
		}
	}
	return nil
}

// dispatchCatch applies exact -> 4xx/5xx -> timeout -> default
// precedence over the candidates the failing error actually carries.
func dispatchCatch(catch map[string]string, err error) (string, bool) {
	var netErr *networkError
	if errors.As(err, &netErr) {
		if netErr.timeout {
			if ref, ok := catch["timeout"]; ok && ref != "" {
				return ref, true
			}
		} else if netErr.status != 0 {
			if ref, ok := catch[strconv.Itoa(netErr.status)]; ok && ref != "" {
				return ref, true
			}
			if ref, ok := catch[statusPattern(netErr.status)]; ok && ref != "" {
				return ref, true
			}
		}
	}
	if ref, ok := catch["default"]; ok && ref != "" {
		return ref, true
	}
	return "", false
}

func statusPattern(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

// buildCatchInput sets @input = {error:{code,message}, ...original_env}:
// the original input's fields survive alongside error.
func buildCatchInput(original any, cause error) *value.Object {
	out := value.NewObject()
	if obj, ok := value.AsObject(original); ok {
		obj.Range(func(k string, v any) bool {
			out.Set(k, v)
			return true
		})
	}
	errObj := value.NewObject()
	errObj.Set("code", errorCode(cause))
	errObj.Set("message", cause.Error())
	out.Set("error", errObj)
	return out
}

func errorCode(err error) string {
	switch e := err.(type) {
	case xerr.UserAssert:
		return e.Code
	case xerr.ParseError:
		return "parse_error"
	case xerr.ValidationError:
		return "validation_error"
	case xerr.ReferenceMissing:
		return "reference_missing"
	case xerr.TypeMismatch:
		return "type_mismatch"
	case xerr.ArithmeticError:
		return "arithmetic_error"
	case xerr.ExternalError:
		return "external_error"
	case xerr.Timeout:
		return "timeout"
	default:
		var netErr *networkError
		if errors.As(err, &netErr) {
			if netErr.timeout {
				return "timeout"
			}
			return "external_error"
		}
		return "error"
	}
}

func resolveRulePath(fromPath, ref string) string {
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Clean(filepath.Join(filepath.Dir(fromPath), ref))
}
