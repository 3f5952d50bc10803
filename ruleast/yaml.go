package ruleast

import (
	"fmt"

	"github.com/vinhphatfsg/rulemorph/refpath"
	"github.com/vinhphatfsg/rulemorph/value"
	"github.com/vinhphatfsg/rulemorph/xerr"
	"gopkg.in/yaml.v3"
)

func pos(n *yaml.Node) Position { return Position{Line: n.Line, Column: n.Column} }

// mappingPairs returns a YAML mapping node's key/value children as
// parallel slices, preserving document order (unlike decoding straight
// into a Go map, which gopkg.in/yaml.v3 does not order).
func mappingPairs(n *yaml.Node) (keys []string, vals []*yaml.Node, err error) {
	if n.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("expected a mapping at %s, got %v", pos(n), n.Kind)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		var k string
		if err := n.Content[i].Decode(&k); err != nil {
			return nil, nil, err
		}
		keys = append(keys, k)
		vals = append(vals, n.Content[i+1])
	}
	return keys, vals, nil
}

func keyIndex(keys []string, name string) int {
	for i, k := range keys {
		if k == name {
			return i
		}
	}
	return -1
}

func decodeRaw(n *yaml.Node) (any, error) {
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return value.Normalize(v), nil
}

// UnmarshalYAML decodes a Pipeline. A scalar or mapping node with no
// sequence wrapper is a start-only pipeline (no steps); a sequence node
// is `[start, step...]`.
func (p *Pipeline) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			return xerr.ErrParse("", pos(n).String(), "empty pipeline")
		}
		raw, err := decodeRaw(n.Content[0])
		if err != nil {
			return err
		}
		start, err := ParseStart(raw, pos(n.Content[0]))
		if err != nil {
			return err
		}
		p.Start = start
		p.Steps = nil
		for _, stepNode := range n.Content[1:] {
			var step PipeStep
			if err := step.UnmarshalYAML(stepNode); err != nil {
				return err
			}
			p.Steps = append(p.Steps, step)
		}
		return nil
	default:
		raw, err := decodeRaw(n)
		if err != nil {
			return err
		}
		start, err := ParseStart(raw, pos(n))
		if err != nil {
			return err
		}
		p.Start = start
		p.Steps = nil
		return nil
	}
}

// UnmarshalYAML decodes one pipeline step: a bare scalar op name, a
// single-key shorthand `{op: [args]}`, the explicit `{op, args}` form,
// or one of the reserved `let`/`if`/`map` keywords.
func (s *PipeStep) UnmarshalYAML(n *yaml.Node) error {
	s.Pos = pos(n)

	if n.Kind == yaml.ScalarNode {
		var name string
		if err := n.Decode(&name); err != nil {
			return err
		}
		s.Kind = StepOp
		s.Op = &OpStep{Name: name}
		return nil
	}

	keys, vals, err := mappingPairs(n)
	if err != nil {
		return err
	}

	if i := keyIndex(keys, "op"); i >= 0 {
		var name string
		if err := vals[i].Decode(&name); err != nil {
			return err
		}
		op := &OpStep{Name: name}
		if j := keyIndex(keys, "args"); j >= 0 {
			args, err := decodePipelineList(vals[j])
			if err != nil {
				return err
			}
			op.Args = args
		}
		s.Kind = StepOp
		s.Op = op
		return nil
	}

	if len(keys) != 1 {
		return xerr.ErrParse("", pos(n).String(), "malformed pipeline step: expected a single key (op name, let, if, or map)")
	}

	switch keys[0] {
	case "let":
		bindings, err := decodeLetBindings(vals[0])
		if err != nil {
			return err
		}
		s.Kind = StepLet
		s.Let = &LetStep{Bindings: bindings}
		return nil
	case "if":
		ifStep, err := decodeIfStep(vals[0])
		if err != nil {
			return err
		}
		s.Kind = StepIf
		s.If = ifStep
		return nil
	case "map":
		var body Pipeline
		if err := body.UnmarshalYAML(vals[0]); err != nil {
			return err
		}
		s.Kind = StepMap
		s.Map = &MapStep{Body: body}
		return nil
	default:
		args, err := decodeShorthandArgs(vals[0])
		if err != nil {
			return err
		}
		s.Kind = StepOp
		s.Op = &OpStep{Name: keys[0], Args: args}
		return nil
	}
}

func decodePipelineList(n *yaml.Node) ([]Pipeline, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, xerr.ErrParse("", pos(n).String(), "expected a list of argument expressions")
	}
	out := make([]Pipeline, 0, len(n.Content))
	for _, c := range n.Content {
		var p Pipeline
		if err := p.UnmarshalYAML(c); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// decodeShorthandArgs accepts either a list of args, null (no args), or
// a single bare scalar (treated as a one-element args list).
func decodeShorthandArgs(n *yaml.Node) ([]Pipeline, error) {
	if n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind == yaml.SequenceNode {
		return decodePipelineList(n)
	}
	var p Pipeline
	if err := p.UnmarshalYAML(n); err != nil {
		return nil, err
	}
	return []Pipeline{p}, nil
}

func decodeLetBindings(n *yaml.Node) ([]LetBinding, error) {
	keys, vals, err := mappingPairs(n)
	if err != nil {
		return nil, err
	}
	out := make([]LetBinding, 0, len(keys))
	for i, k := range keys {
		var expr Pipeline
		if err := expr.UnmarshalYAML(vals[i]); err != nil {
			return nil, err
		}
		out = append(out, LetBinding{Name: k, Expr: expr})
	}
	return out, nil
}

func decodeIfStep(n *yaml.Node) (*IfStep, error) {
	keys, vals, err := mappingPairs(n)
	if err != nil {
		return nil, err
	}
	step := &IfStep{}
	for i, k := range keys {
		switch k {
		case "cond":
			var c Condition
			if err := c.UnmarshalYAML(vals[i]); err != nil {
				return nil, err
			}
			step.Cond = c
		case "then":
			var p Pipeline
			if err := p.UnmarshalYAML(vals[i]); err != nil {
				return nil, err
			}
			step.Then = p
		case "else":
			var p Pipeline
			if err := p.UnmarshalYAML(vals[i]); err != nil {
				return nil, err
			}
			step.Else = &p
		}
	}
	return step, nil
}

// UnmarshalYAML decodes a Condition: `{all: [...]}`, `{any: [...]}`, a
// comparison shorthand `{<op>: [lhs, rhs]}`, or the explicit
// `{op, lhs, rhs}` form.
func (c *Condition) UnmarshalYAML(n *yaml.Node) error {
	c.Pos = pos(n)
	keys, vals, err := mappingPairs(n)
	if err != nil {
		return err
	}

	if i := keyIndex(keys, "op"); i >= 0 {
		var opName string
		if err := vals[i].Decode(&opName); err != nil {
			return err
		}
		op, ok := CanonicalCompareOp(opName)
		if !ok {
			return xerr.ErrParse("", pos(n).String(), "unknown comparison operator "+opName)
		}
		cmp := &CompareCond{Op: op}
		if j := keyIndex(keys, "lhs"); j >= 0 {
			if err := cmp.LHS.UnmarshalYAML(vals[j]); err != nil {
				return err
			}
		}
		if j := keyIndex(keys, "rhs"); j >= 0 {
			if err := cmp.RHS.UnmarshalYAML(vals[j]); err != nil {
				return err
			}
		}
		c.Kind = CondCompare
		c.Compare = cmp
		return nil
	}

	if len(keys) != 1 {
		return xerr.ErrParse("", pos(n).String(), "malformed condition: expected a single key (all, any, or a comparison operator)")
	}

	switch keys[0] {
	case "all":
		conds, err := decodeConditionList(vals[0])
		if err != nil {
			return err
		}
		c.Kind = CondAll
		c.All = conds
		return nil
	case "any":
		conds, err := decodeConditionList(vals[0])
		if err != nil {
			return err
		}
		c.Kind = CondAny
		c.Any = conds
		return nil
	default:
		op, ok := CanonicalCompareOp(keys[0])
		if !ok {
			return xerr.ErrParse("", pos(n).String(), "unknown comparison operator "+keys[0])
		}
		pair := vals[0]
		if pair.Kind != yaml.SequenceNode || len(pair.Content) != 2 {
			return xerr.ErrParse("", pos(n).String(), "comparison shorthand requires a two-element [lhs, rhs] list")
		}
		cmp := &CompareCond{Op: op}
		if err := cmp.LHS.UnmarshalYAML(pair.Content[0]); err != nil {
			return err
		}
		if err := cmp.RHS.UnmarshalYAML(pair.Content[1]); err != nil {
			return err
		}
		c.Kind = CondCompare
		c.Compare = cmp
		return nil
	}
}

func decodeConditionList(n *yaml.Node) ([]Condition, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, xerr.ErrParse("", pos(n).String(), "expected a list of conditions")
	}
	out := make([]Condition, 0, len(n.Content))
	for _, c := range n.Content {
		var cond Condition
		if err := cond.UnmarshalYAML(c); err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

// UnmarshalYAML decodes a Mapping entry.
func (m *Mapping) UnmarshalYAML(n *yaml.Node) error {
	m.Pos = pos(n)
	keys, vals, err := mappingPairs(n)
	if err != nil {
		return err
	}
	sourceSeen := 0
	for i, k := range keys {
		switch k {
		case "target":
			if err := vals[i].Decode(&m.Target); err != nil {
				return err
			}
		case "source":
			var s string
			if err := vals[i].Decode(&s); err != nil {
				return err
			}
			p, err := refpath.Parse(s)
			if err != nil {
				return err
			}
			m.Kind = SourcePath
			m.Path = p
			sourceSeen++
		case "value":
			raw, err := decodeRaw(vals[i])
			if err != nil {
				return err
			}
			m.Kind = SourceValue
			m.Value = raw
			sourceSeen++
		case "expr":
			var p Pipeline
			if err := p.UnmarshalYAML(vals[i]); err != nil {
				return err
			}
			m.Kind = SourceExpr
			m.Expr = &p
			sourceSeen++
		case "type":
			if err := vals[i].Decode(&m.Type); err != nil {
				return err
			}
		case "required":
			if err := vals[i].Decode(&m.Required); err != nil {
				return err
			}
		case "default":
			raw, err := decodeRaw(vals[i])
			if err != nil {
				return err
			}
			m.Default = raw
		case "when":
			var c Condition
			if err := c.UnmarshalYAML(vals[i]); err != nil {
				return err
			}
			m.When = &c
		}
	}
	if sourceSeen != 1 {
		return xerr.ErrValidation("", pos(n).String(), "mapping must set exactly one of source, value, expr")
	}
	return nil
}

// UnmarshalYAML decodes one `steps` program entry.
func (r *RecordStep) UnmarshalYAML(n *yaml.Node) error {
	r.Pos = pos(n)
	keys, vals, err := mappingPairs(n)
	if err != nil {
		return err
	}
	if len(keys) != 1 {
		return xerr.ErrParse("", pos(n).String(), "steps entry must have exactly one of mappings, record_when, asserts, branch")
	}
	switch keys[0] {
	case "mappings":
		if vals[0].Kind != yaml.SequenceNode {
			return xerr.ErrParse("", pos(n).String(), "mappings must be a list")
		}
		ms := make([]Mapping, 0, len(vals[0].Content))
		for _, c := range vals[0].Content {
			var m Mapping
			if err := m.UnmarshalYAML(c); err != nil {
				return err
			}
			ms = append(ms, m)
		}
		r.Kind = RecordMappings
		r.Mappings = ms
		return nil
	case "record_when":
		var c Condition
		if err := c.UnmarshalYAML(vals[0]); err != nil {
			return err
		}
		r.Kind = RecordWhen
		r.RecordWhen = &c
		return nil
	case "asserts":
		if vals[0].Kind != yaml.SequenceNode {
			return xerr.ErrParse("", pos(n).String(), "asserts must be a list")
		}
		as := make([]AssertStep, 0, len(vals[0].Content))
		for _, c := range vals[0].Content {
			aKeys, aVals, err := mappingPairs(c)
			if err != nil {
				return err
			}
			var a AssertStep
			for i, k := range aKeys {
				switch k {
				case "when":
					var cond Condition
					if err := cond.UnmarshalYAML(aVals[i]); err != nil {
						return err
					}
					a.When = cond
				case "error":
					eKeys, eVals, err := mappingPairs(aVals[i])
					if err != nil {
						return err
					}
					for j, ek := range eKeys {
						switch ek {
						case "code":
							_ = eVals[j].Decode(&a.Code)
						case "message":
							_ = eVals[j].Decode(&a.Message)
						}
					}
				}
			}
			as = append(as, a)
		}
		r.Kind = RecordAsserts
		r.Asserts = as
		return nil
	case "branch":
		bKeys, bVals, err := mappingPairs(vals[0])
		if err != nil {
			return err
		}
		branch := &BranchStep{}
		for i, k := range bKeys {
			switch k {
			case "when":
				var c Condition
				if err := c.UnmarshalYAML(bVals[i]); err != nil {
					return err
				}
				branch.When = c
			case "then":
				_ = bVals[i].Decode(&branch.Then)
			case "else":
				_ = bVals[i].Decode(&branch.Else)
			case "return":
				_ = bVals[i].Decode(&branch.Return)
			}
		}
		r.Kind = RecordBranch
		r.Branch = branch
		return nil
	default:
		return xerr.ErrParse("", pos(n).String(), "unknown steps entry key "+keys[0])
	}
}

// UnmarshalYAML decodes a `finalize` block.
func (f *Finalize) UnmarshalYAML(n *yaml.Node) error {
	keys, vals, err := mappingPairs(n)
	if err != nil {
		return err
	}
	for i, k := range keys {
		switch k {
		case "filter":
			var c Condition
			if err := c.UnmarshalYAML(vals[i]); err != nil {
				return err
			}
			f.Filter = &c
		case "sort":
			sKeys, sVals, err := mappingPairs(vals[i])
			if err != nil {
				return err
			}
			spec := &SortSpec{Order: SortAsc}
			for j, sk := range sKeys {
				switch sk {
				case "by":
					_ = sVals[j].Decode(&spec.By)
				case "order":
					var o string
					_ = sVals[j].Decode(&o)
					if o == string(SortDesc) {
						spec.Order = SortDesc
					}
				}
			}
			f.Sort = spec
		case "offset":
			var o int
			if err := vals[i].Decode(&o); err != nil {
				return err
			}
			f.Offset = &o
		case "limit":
			var l int
			if err := vals[i].Decode(&l); err != nil {
				return err
			}
			f.Limit = &l
		case "wrap":
			wKeys, wVals, err := mappingPairs(vals[i])
			if err != nil {
				return err
			}
			fields := make([]WrapField, 0, len(wKeys))
			for j, wk := range wKeys {
				var p Pipeline
				if err := p.UnmarshalYAML(wVals[j]); err != nil {
					return err
				}
				fields = append(fields, WrapField{Key: wk, Expr: p})
			}
			f.Wrap = fields
		default:
			return xerr.ErrValidation("", pos(n).String(), "unknown finalize key "+k)
		}
	}
	return nil
}

