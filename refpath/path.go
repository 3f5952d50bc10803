// Package refpath parses and resolves the dotted/bracketed reference
// paths used throughout rule documents: `@input.items[0].name`,
// `@out.total`, `@a` (a let-binding), or a bare `id` (shorthand for
// `@input.id`).
package refpath

// SegmentKind discriminates the three ways a path can step into a value.
type SegmentKind int

const (
	// SegField is a dotted identifier: `.name`.
	SegField SegmentKind = iota
	// SegIndex is a bracketed integer: `[0]`.
	SegIndex
	// SegKey is a bracketed quoted string: `["k"]` or `['k']`.
	SegKey
)

// Segment is one step of a parsed path.
type Segment struct {
	Kind  SegmentKind
	Field string // SegField, SegKey
	Index int    // SegIndex
}

// Namespace identifies which scope a path's first token resolves against.
type Namespace int

const (
	// NSInput is the current input record.
	NSInput Namespace = iota
	// NSContext is the caller-supplied context value.
	NSContext
	// NSOut is the accumulated output object for the current record.
	NSOut
	// NSItem is the current element inside a `map` step body.
	NSItem
	// NSLet is a lexically-bound `let` variable, named by LetName.
	NSLet
)

// Path is a parsed reference: a namespace plus zero or more segments
// stepping into the value that namespace resolves to.
type Path struct {
	Namespace Namespace
	LetName   string // set only when Namespace == NSLet
	Segments  []Segment

	// ItemIndex is true for the exact path `@item.index`, the synthetic
	// 0-based position of the current `map` element, which is not a
	// field lookup on the item value itself.
	ItemIndex bool

	raw string
}

// String returns the original path text, for error messages and trace
// metadata.
func (p *Path) String() string { return p.raw }

func namespaceName(ns Namespace) string {
	switch ns {
	case NSInput:
		return "input"
	case NSContext:
		return "context"
	case NSOut:
		return "out"
	case NSItem:
		return "item"
	case NSLet:
		return "let"
	default:
		return "unknown"
	}
}
