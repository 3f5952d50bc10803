package loader

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/vinhphatfsg/rulemorph/ruleast"
	"github.com/vinhphatfsg/rulemorph/version"
	"github.com/vinhphatfsg/rulemorph/xerr"
)

// MaxPipelineDepth bounds nested If/Map recursion in a single pipeline.
const MaxPipelineDepth = 64

// Validate performs the rule loader's static checks against a single
// already-parsed document. It does not follow rule references; Load
// does that and additionally checks for cycles across the whole graph.
func Validate(rule *ruleast.Rule) error {
	if rule.Version != 2 {
		return xerr.ErrValidation(rule.Path, "version", "only version 2 rule documents are supported")
	}

	if err := validateEngineConstraint(rule); err != nil {
		return err
	}

	switch rule.Type {
	case ruleast.RuleNormal:
		return validateNormal(rule.Path, rule.Normal)
	case ruleast.RuleEndpoint:
		return validateEndpoint(rule.Path, rule.Endpoint)
	case ruleast.RuleNetwork:
		return validateNetwork(rule.Path, rule.Network)
	default:
		return xerr.ErrValidation(rule.Path, "type", "unknown rule type "+string(rule.Type))
	}
}

func validateEngineConstraint(rule *ruleast.Rule) error {
	if rule.Engine == "" {
		return nil
	}
	c, err := semver.NewConstraint(rule.Engine)
	if err != nil {
		return xerr.ErrValidation(rule.Path, "engine", "invalid engine version constraint: "+err.Error())
	}
	running, err := semver.NewVersion(version.GetVersionInfo().GitVersion)
	if err != nil {
		// an unreleased/dev build has no parseable semver; constraints
		// against it cannot be enforced, so we don't fail the rule.
		return nil
	}
	if !c.Check(running) {
		return xerr.ErrValidation(rule.Path, "engine", "rule requires engine "+rule.Engine+", running "+running.String())
	}
	return nil
}

func validateNormal(path string, n *ruleast.NormalRule) error {
	if n == nil {
		return xerr.ErrValidation(path, "", "normal rule body missing")
	}
	hasMappings := len(n.Mappings) > 0
	hasSteps := len(n.Steps) > 0
	if hasMappings == hasSteps {
		return xerr.ErrValidation(path, "", "a normal rule must set exactly one of mappings or steps")
	}
	if hasSteps && n.RecordWhen != nil {
		return xerr.ErrValidation(path, "record_when", "top-level record_when is not allowed alongside steps")
	}

	for i := range n.Mappings {
		if err := validateMapping(path, &n.Mappings[i]); err != nil {
			return err
		}
	}
	for i := range n.Steps {
		if err := validateRecordStep(path, &n.Steps[i]); err != nil {
			return err
		}
	}

	if n.Finalize != nil {
		if err := validateFinalize(path, n.Finalize); err != nil {
			return err
		}
	}
	return nil
}

func validateEndpoint(path string, e *ruleast.EndpointRule) error {
	if e == nil {
		return xerr.ErrValidation(path, "", "endpoint rule body missing")
	}
	if e.Method == "" || e.Path == "" {
		return xerr.ErrValidation(path, "", "endpoint rule requires method and path")
	}
	for i := range e.Steps {
		if err := validateRecordStep(path, &e.Steps[i]); err != nil {
			return err
		}
	}
	return validateCatchMap(path, e.Catch)
}

func validateNetwork(path string, net *ruleast.NetworkRule) error {
	if net == nil {
		return xerr.ErrValidation(path, "", "network rule body missing")
	}
	if net.Request.Method == "" {
		return xerr.ErrValidation(path, "request.method", "network rule requires a method")
	}
	if net.Request.Timeout != "" {
		if err := validateDuration(net.Request.Timeout); err != nil {
			return xerr.ErrValidation(path, "request.timeout", err.Error())
		}
	}
	if r := net.Request.Retry; r != nil {
		switch r.Backoff {
		case "", "fixed", "linear", "exponential":
		default:
			return xerr.ErrValidation(path, "request.retry.backoff", "unknown backoff strategy "+r.Backoff)
		}
	}
	return validateCatchMap(path, net.Catch)
}

func validateCatchMap(path string, catch map[string]string) error {
	for k := range catch {
		switch k {
		case "timeout", "default", "4xx", "5xx":
			continue
		default:
			if _, err := parseStatusCode(k); err != nil {
				return xerr.ErrValidation(path, "catch", "invalid catch key "+k)
			}
		}
	}
	return nil
}

func parseStatusCode(s string) (int, error) {
	n := 0
	if len(s) == 0 {
		return 0, xerr.ErrValidation("", "catch", "empty catch key")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, xerr.ErrValidation("", "catch", "catch key must be an integer status code, 4xx, 5xx, timeout, or default")
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

func validateDuration(s string) error {
	trimmed := strings.TrimSuffix(strings.TrimSuffix(s, "ms"), "s")
	if trimmed == s {
		return xerr.ErrValidation("", "", "duration must end in 'ms' or 's'")
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return xerr.ErrValidation("", "", "duration must be numeric with an 'ms'/'s' suffix")
		}
	}
	if trimmed == "" || trimmed == "0" {
		return xerr.ErrValidation("", "", "duration must be greater than zero")
	}
	return nil
}

func validateMapping(path string, m *ruleast.Mapping) error {
	if m.Target == "" {
		return xerr.ErrValidation(path, m.Pos.String(), "mapping target must not be empty")
	}
	if err := validateTargetPath(m.Target); err != nil {
		return xerr.ErrValidation(path, m.Pos.String(), err.Error())
	}
	if m.When != nil {
		if err := validateConditionDepth(path, m.When, 0); err != nil {
			return err
		}
	}
	if m.Kind == ruleast.SourceExpr && m.Expr != nil {
		if err := validatePipelineDepth(path, m.Expr, 0); err != nil {
			return err
		}
	}
	return nil
}

// validateTargetPath enforces that a target decomposes into object keys
// only: dotted identifiers, no bracket segments.
func validateTargetPath(target string) error {
	for _, seg := range strings.Split(target, ".") {
		if seg == "" {
			return xerr.ErrValidation("", "", "target path has an empty segment")
		}
		for _, r := range seg {
			ok := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			if !ok {
				return xerr.ErrValidation("", "", "target path segments must be plain object keys, got "+target)
			}
		}
	}
	return nil
}

func validateRecordStep(path string, s *ruleast.RecordStep) error {
	switch s.Kind {
	case ruleast.RecordMappings:
		for i := range s.Mappings {
			if err := validateMapping(path, &s.Mappings[i]); err != nil {
				return err
			}
		}
	case ruleast.RecordWhen:
		return validateConditionDepth(path, s.RecordWhen, 0)
	case ruleast.RecordAsserts:
		for _, a := range s.Asserts {
			if err := validateConditionDepth(path, &a.When, 0); err != nil {
				return err
			}
		}
	case ruleast.RecordBranch:
		if s.Branch == nil || s.Branch.Then == "" {
			return xerr.ErrValidation(path, s.Pos.String(), "branch requires then")
		}
	}
	return nil
}

func validateFinalize(path string, f *ruleast.Finalize) error {
	if f.Sort != nil && f.Sort.By == "" {
		return xerr.ErrValidation(path, "finalize.sort", "sort.by must not be empty")
	}
	if f.Limit != nil && *f.Limit < 0 {
		return xerr.ErrValidation(path, "finalize.limit", "limit must be non-negative")
	}
	if f.Offset != nil && *f.Offset < 0 {
		return xerr.ErrValidation(path, "finalize.offset", "offset must be non-negative")
	}
	for _, w := range f.Wrap {
		if err := validatePipelineDepth(path, &w.Expr, 0); err != nil {
			return err
		}
	}
	return nil
}

func validatePipelineDepth(path string, p *ruleast.Pipeline, depth int) error {
	if depth > MaxPipelineDepth {
		return xerr.ErrValidation(path, "", "pipeline nesting exceeds the maximum depth")
	}
	for _, step := range p.Steps {
		switch step.Kind {
		case ruleast.StepIf:
			if err := validateConditionDepth(path, &step.If.Cond, depth+1); err != nil {
				return err
			}
			if err := validatePipelineDepth(path, &step.If.Then, depth+1); err != nil {
				return err
			}
			if step.If.Else != nil {
				if err := validatePipelineDepth(path, step.If.Else, depth+1); err != nil {
					return err
				}
			}
		case ruleast.StepMap:
			if err := validatePipelineDepth(path, &step.Map.Body, depth+1); err != nil {
				return err
			}
		case ruleast.StepOp:
			for _, arg := range step.Op.Args {
				if err := validatePipelineDepth(path, &arg, depth+1); err != nil {
					return err
				}
			}
		case ruleast.StepLet:
			for _, b := range step.Let.Bindings {
				if err := validatePipelineDepth(path, &b.Expr, depth+1); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateConditionDepth(path string, c *ruleast.Condition, depth int) error {
	if depth > MaxPipelineDepth {
		return xerr.ErrValidation(path, "", "condition nesting exceeds the maximum depth")
	}
	switch c.Kind {
	case ruleast.CondAll:
		for i := range c.All {
			if err := validateConditionDepth(path, &c.All[i], depth+1); err != nil {
				return err
			}
		}
	case ruleast.CondAny:
		for i := range c.Any {
			if err := validateConditionDepth(path, &c.Any[i], depth+1); err != nil {
				return err
			}
		}
	case ruleast.CondCompare:
		if c.Compare == nil {
			return xerr.ErrValidation(path, "", "comparison condition missing operands")
		}
		if err := validatePipelineDepth(path, &c.Compare.LHS, depth+1); err != nil {
			return err
		}
		if err := validatePipelineDepth(path, &c.Compare.RHS, depth+1); err != nil {
			return err
		}
	}
	return nil
}
