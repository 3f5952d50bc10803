package ruleast

import (
	"strings"

	"github.com/vinhphatfsg/rulemorph/refpath"
)

// StartKind discriminates the four forms a pipeline's start value can
// take.
type StartKind int

const (
	// StartReference resolves a refpath.Path against the environment.
	StartReference StartKind = iota
	// StartDollar is `$`, the pipeline's current value.
	StartDollar
	// StartLit is a `lit:`-prefixed string, yielding the remainder
	// verbatim as a literal string (escapes a value that would
	// otherwise look like a reference or `$`).
	StartLit
	// StartLiteral is any other scalar, array, or object: it evaluates
	// to itself.
	StartLiteral
)

// Start is the first element of a Pipeline.
type Start struct {
	Kind    StartKind
	Path    *refpath.Path // StartReference
	Literal any           // StartLit (string), StartLiteral (any)
	Pos     Position
}

// ParseStart classifies a raw YAML scalar/value into a Start. Only
// strings can be references, `$`, or `lit:`-escaped; every other YAML
// value (numbers, bools, null, arrays, objects) is always a literal.
func ParseStart(raw any, pos Position) (Start, error) {
	s, isString := raw.(string)
	if !isString {
		return Start{Kind: StartLiteral, Literal: raw, Pos: pos}, nil
	}
	switch {
	case s == "$":
		return Start{Kind: StartDollar, Pos: pos}, nil
	case strings.HasPrefix(s, "lit:"):
		return Start{Kind: StartLit, Literal: strings.TrimPrefix(s, "lit:"), Pos: pos}, nil
	case strings.HasPrefix(s, "@"):
		p, err := refpath.Parse(s)
		if err != nil {
			return Start{}, err
		}
		return Start{Kind: StartReference, Path: p, Pos: pos}, nil
	default:
		return Start{Kind: StartLiteral, Literal: s, Pos: pos}, nil
	}
}

// Pipeline is `(start, step...)`, the unit every expr/source/value
// position in a rule document ultimately reduces to.
type Pipeline struct {
	Start Start
	Steps []PipeStep
}

// PipeStepKind discriminates the four step forms a pipeline can contain.
type PipeStepKind int

const (
	StepOp PipeStepKind = iota
	StepLet
	StepIf
	StepMap
)

// PipeStep is one element of a Pipeline's step list.
type PipeStep struct {
	Kind PipeStepKind
	Op   *OpStep
	Let  *LetStep
	If   *IfStep
	Map  *MapStep
	Pos  Position
}

// OpStep invokes a registered operation by name with argument
// sub-pipelines evaluated against the environment (not the current pipe
// value).
type OpStep struct {
	Name string
	Args []Pipeline
}

// LetStep extends the environment with one or more bindings, evaluated
// in order so later bindings can reference earlier ones.
type LetStep struct {
	Bindings []LetBinding
}

// LetBinding is a single `name: expr` entry inside a `let` step.
type LetBinding struct {
	Name string
	Expr Pipeline
}

// IfStep branches on a Condition, running Then or Else (if present; a
// missing Else passes the pipe value through unchanged) as a nested
// pipeline seeded with the current pipe value.
type IfStep struct {
	Cond Condition
	Then Pipeline
	Else *Pipeline
}

// MapStep runs Body once per element of the current pipe value, which
// must be an array (or `missing`).
type MapStep struct {
	Body Pipeline
}
