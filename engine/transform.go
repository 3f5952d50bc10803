package engine

import (
	"bytes"
	"strconv"
	"time"

	"github.com/fatih/structs"

	"github.com/vinhphatfsg/rulemorph/input"
	"github.com/vinhphatfsg/rulemorph/loader"
	"github.com/vinhphatfsg/rulemorph/ruleast"
	"github.com/vinhphatfsg/rulemorph/trace"
	"github.com/vinhphatfsg/rulemorph/value"
	"github.com/vinhphatfsg/rulemorph/xerr"
)

// ParseRule parses a rule document's raw YAML text, the `parse_rule`
// entry of the library API.
func ParseRule(text []byte, path string) (*ruleast.Rule, error) {
	return loader.ParseRule(text, path)
}

// ValidateRule statically validates an already-parsed rule document; it
// is idempotent, matching `validate_rule`'s contract.
func ValidateRule(rule *ruleast.Rule) error {
	return loader.Validate(rule)
}

// LoadGraph parses entryPath and every rule file it transitively
// references, then wraps the result in an Engine ready to Transform.
func LoadGraph(entryPath string) (*Engine, error) {
	g, err := loader.Load(entryPath)
	if err != nil {
		return nil, err
	}
	return New(g), nil
}

// RecordStream is the materialized result of a transform call: an
// implementation is free to stream, but a `sort` in finalize forces
// buffering, so this engine always returns the fully
// computed result, wrapped to satisfy the streaming contract.
type RecordStream struct {
	records []any
	wrapped bool
	pos     int
}

// Next yields the next record of the finalized array, one element at a
// time, matching the record engine's "fresh output per record" lifecycle
// even though this implementation materializes everything up front. A
// wrapped result (a single object) is not returned by Next, only by All.
func (s *RecordStream) Next() (any, bool, error) {
	if s.wrapped || s.pos >= len(s.records) {
		return nil, false, nil
	}
	v := s.records[s.pos]
	s.pos++
	return v, true, nil
}

// All returns the complete result: an array, or (if the rule's finalize
// has a `wrap`) a single object.
func (s *RecordStream) All() any {
	if s.wrapped && len(s.records) == 1 {
		return s.records[0]
	}
	return s.records
}

// flattenContext turns an arbitrary Go context argument into the plain
// map @context resolves fields against: a struct is flattened field by
// field via fatih/structs; anything else that is already object-shaped
// passes through; nil yields an empty object.
func flattenContext(ctx any) any {
	if ctx == nil {
		return value.NewObject()
	}
	if obj, ok := value.AsObject(ctx); ok {
		return obj
	}
	if structs.IsStruct(ctx) {
		return value.ObjectFromMap(structs.Map(ctx))
	}
	return ctx
}

// Transform drives every input record through rule's program and
// applies its finalize stage, with tracing disabled (the plain
// `transform` entry point).
func (e *Engine) Transform(rule *ruleast.Rule, inputBytes []byte, ctx any) (*RecordStream, error) {
	stream, _, _, err := e.run(rule, inputBytes, ctx, trace.NewRecorder(false))
	return stream, err
}

// TransformWithTrace is Transform plus a full trace.Document capturing
// every step of every record and the finalize stage (the
// `transform_with_trace` entry point).
func (e *Engine) TransformWithTrace(rule *ruleast.Rule, inputBytes []byte, ctx any, when time.Time) (*RecordStream, *trace.Document, error) {
	rec := trace.NewRecorder(true)
	stream, records, finNode, err := e.run(rule, inputBytes, ctx, rec)
	if err != nil && stream == nil {
		return nil, nil, err
	}

	doc := trace.NewDocument(ruleRefOf(rule), rule.Path, when)
	doc.Records = records
	if finNode != nil {
		doc.Finalize = &trace.FinalizeTrace{
			Nodes:  finNode.Children,
			Input:  finNode.Input,
			Output: finNode.Output,
			Status: finNode.Status,
		}
	}
	return stream, doc, nil
}

// run is the shared body of Transform/TransformWithTrace: read every
// input record, run it through the rule's mappings/steps program,
// collect survivors, then apply finalize once over the whole sequence.
func (e *Engine) run(rule *ruleast.Rule, inputBytes []byte, ctx any, rec *trace.Recorder) (*RecordStream, []trace.TraceRecord, *trace.Node, error) {
	normal := rule.Normal
	if normal == nil {
		return nil, nil, nil, xerr.ErrValidation(rule.Path, "", "transform requires a normal rule at the entry point")
	}

	flatCtx := flattenContext(ctx)

	src, err := input.Open(bytes.NewReader(inputBytes), normal.Input)
	if err != nil {
		return nil, nil, nil, err
	}

	var survivors []any
	var traceRecords []trace.TraceRecord
	index := 0
	for {
		rv, ok, err := src.Next()
		if err != nil {
			return nil, nil, nil, err
		}
		if !ok {
			break
		}

		recNode, done := rec.Step("record", "")
		out, skipped, rerr := RunNormal(normal, rule.Path, rv, flatCtx, e, rec, recNode)
		done()

		if rec.Enabled() {
			tr := trace.TraceRecord{Index: index, Input: rv, Nodes: recNode.Children, DurationUs: recNode.DurationUs}
			switch {
			case rerr != nil:
				tr.Status = trace.StatusError
			case skipped:
				tr.Status = trace.StatusSkipped
			default:
				tr.Status = trace.StatusOK
				tr.Output = out
			}
			traceRecords = append(traceRecords, tr)
		}

		index++
		if rerr != nil || skipped {
			continue
		}
		survivors = append(survivors, out)
	}

	result, finNode, ferr := RunFinalize(normal.Finalize, survivors, rec)
	if ferr != nil {
		return nil, traceRecords, finNode, ferr
	}

	stream := &RecordStream{}
	if arr, ok := result.([]any); ok {
		stream.records = arr
	} else {
		stream.records = []any{result}
		stream.wrapped = true
	}

	return stream, traceRecords, finNode, nil
}

func ruleRefOf(rule *ruleast.Rule) trace.RuleRef {
	return trace.RuleRef{
		Path:    rule.Path,
		Type:    string(rule.Type),
		Version: strconv.Itoa(rule.Version),
	}
}
