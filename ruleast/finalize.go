package ruleast

// SortOrder is `asc` or `desc`.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortSpec is `finalize.sort`: a stable sort by a dotted path, with
// missing keys sorting last in asc order and first in desc order.
type SortSpec struct {
	By    string
	Order SortOrder
}

// WrapField is one `key: expr` entry of `finalize.wrap`, kept as an
// ordered list (not a map) so the wrapped object's field order matches
// the order the rule document wrote them in.
type WrapField struct {
	Key  string
	Expr Pipeline
}

// Finalize is the post-record-sequence pipeline: filter, then sort, then
// offset/limit, then wrap. Each stage is optional; the order is fixed
// regardless of which stages are present.
type Finalize struct {
	Filter *Condition
	Sort   *SortSpec
	Offset *int
	Limit  *int
	Wrap   []WrapField
}
