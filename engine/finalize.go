package engine

import (
	"sort"

	"github.com/vinhphatfsg/rulemorph/condition"
	"github.com/vinhphatfsg/rulemorph/pipe"
	"github.com/vinhphatfsg/rulemorph/refpath"
	"github.com/vinhphatfsg/rulemorph/ruleast"
	"github.com/vinhphatfsg/rulemorph/trace"
	"github.com/vinhphatfsg/rulemorph/value"
)

// RunFinalize applies the fixed filter -> sort -> offset/limit -> wrap
// pipeline to a fully materialized record sequence. A nil spec
// passes records through unchanged. The result is either the (possibly
// filtered/sorted/paginated) array, or, if wrap is set, a single object.
// The returned node captures the finalize stage's own input/output/status
// for transform_with_trace's FinalizeTrace.
func RunFinalize(spec *ruleast.Finalize, records []any, rec *trace.Recorder) (any, *trace.Node, error) {
	n, done := rec.Step("finalize", "")
	defer done()
	n.WithInput(records)

	if spec == nil {
		n.WithOutput(records)
		return records, n, nil
	}

	out := records

	if spec.Filter != nil {
		filtered, err := finalizeFilter(spec.Filter, out)
		if err != nil {
			n.SetError(err)
			return nil, n, err
		}
		out = filtered
	}

	if spec.Sort != nil {
		out = finalizeSort(spec.Sort, out)
	}

	if spec.Offset != nil {
		out = finalizeOffset(*spec.Offset, out)
	}
	if spec.Limit != nil {
		out = finalizeLimit(*spec.Limit, out)
	}

	if len(spec.Wrap) > 0 {
		wrapped, err := finalizeWrap(spec.Wrap, out)
		if err != nil {
			n.SetError(err)
			return nil, n, err
		}
		n.WithOutput(wrapped)
		return wrapped, n, nil
	}

	n.WithOutput(out)
	return out, n, nil
}

func finalizeFilter(cond *ruleast.Condition, records []any) ([]any, error) {
	out := make([]any, 0, len(records))
	for _, rv := range records {
		env := &refpath.Env{HasItem: true, Item: rv}
		ok, err := condition.Eval(cond, env, pipe.Eval)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rv)
		}
	}
	return out, nil
}

// finalizeSort performs a stable sort by spec.By, a dotted path into
// each element; missing keys sort last in asc order, first in desc.
func finalizeSort(spec *ruleast.SortSpec, records []any) []any {
	out := make([]any, len(records))
	copy(out, records)

	path, err := refpath.Parse(spec.By)
	if err != nil {
		return out
	}
	desc := spec.Order == ruleast.SortDesc

	keyOf := func(rv any) any {
		obj, ok := value.AsObject(rv)
		if !ok {
			return value.Missing
		}
		return refpath.WalkSegments(obj, path)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := keyOf(out[i]), keyOf(out[j])
		iMissing, jMissing := value.IsMissing(ki), value.IsMissing(kj)
		switch {
		case iMissing && jMissing:
			return false
		case iMissing:
			return desc
		case jMissing:
			return !desc
		}
		cmp, err := value.Compare(ki, kj)
		if err != nil {
			return false
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
	return out
}

func finalizeOffset(offset int, records []any) []any {
	if offset <= 0 || offset >= len(records) {
		if offset >= len(records) {
			return []any{}
		}
		return records
	}
	return records[offset:]
}

func finalizeLimit(limit int, records []any) []any {
	if limit < len(records) {
		return records[:limit]
	}
	return records
}

// finalizeWrap replaces the array with an object whose fields are each
// evaluated as a pipeline against an env with @out bound to the
// (already filtered/sorted/paginated) array, in the field order the
// rule document wrote them.
func finalizeWrap(fields []ruleast.WrapField, records []any) (*value.Object, error) {
	env := &refpath.Env{Out: records}
	out := value.NewObject()
	for _, f := range fields {
		v, err := pipe.Eval(&f.Expr, env)
		if err != nil {
			return nil, err
		}
		if err := writeTarget(out, f.Key, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}
