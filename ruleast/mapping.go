package ruleast

import "github.com/vinhphatfsg/rulemorph/refpath"

// ValueSource discriminates which of `source`/`value`/`expr` a Mapping
// uses; exactly one is ever populated, enforced by the loader's static
// validation.
type ValueSource int

const (
	SourcePath ValueSource = iota
	SourceValue
	SourceExpr
)

// Mapping is a single `target <- value` rule within a `mappings` list.
type Mapping struct {
	Target string // dotted path of object keys, write-side only

	Kind  ValueSource
	Path  *refpath.Path // SourcePath
	Value any           // SourceValue, a literal
	Expr  *Pipeline     // SourceExpr

	Type     string // optional cast name: string/int/float/bool
	Required bool
	Default  any
	When     *Condition

	Pos Position
}
