package ruleast

// ConditionKind discriminates the three condition forms.
type ConditionKind int

const (
	CondAll ConditionKind = iota
	CondAny
	CondCompare
)

// CompareOp is one of the seven comparison operators a Compare condition
// can use; match is the POSIX-ERE predicate.
type CompareOp string

const (
	OpEq    CompareOp = "eq"
	OpNe    CompareOp = "ne"
	OpGt    CompareOp = "gt"
	OpGte   CompareOp = "gte"
	OpLt    CompareOp = "lt"
	OpLte   CompareOp = "lte"
	OpMatch CompareOp = "match"
)

// canonicalCompareOp maps the symbolic aliases from the op table
// (`==`,`!=`,`<`,`<=`,`>`,`>=`,`~=`) onto the canonical names above.
var canonicalCompareOp = map[string]CompareOp{
	"eq": OpEq, "==": OpEq,
	"ne": OpNe, "!=": OpNe,
	"gt": OpGt, ">": OpGt,
	"gte": OpGte, ">=": OpGte,
	"lt": OpLt, "<": OpLt,
	"lte": OpLte, "<=": OpLte,
	"match": OpMatch, "~=": OpMatch,
}

// CanonicalCompareOp resolves a raw YAML key to its canonical CompareOp,
// reporting whether it named a known comparison operator.
func CanonicalCompareOp(raw string) (CompareOp, bool) {
	op, ok := canonicalCompareOp[raw]
	return op, ok
}

// Condition is `All([...])`, `Any([...])`, or a single `Compare`.
type Condition struct {
	Kind    ConditionKind
	All     []Condition
	Any     []Condition
	Compare *CompareCond
	Pos     Position
}

// CompareCond is `{op, lhs: Expr, rhs: Expr}`.
type CompareCond struct {
	Op  CompareOp
	LHS Pipeline
	RHS Pipeline
}
