// Package trace builds the per-record, per-step trace document: a Node
// per evaluated step, nested under a TraceRecord per input record,
// nested under a Document per transform_with_trace call. The
// node-building API (New/Attach/WithOutput/SetError) is built to this
// engine's rule/step/op vocabulary.
package trace

import (
	"time"

	"github.com/google/uuid"
)

// Node is one step-trace entry: a mapping, a condition check, an op
// invocation, or a branch call. Op invocations additionally populate
// PipeValue/Args/PipeSteps for the op's own intra-op transitions;
// branch calls populate ChildTrace with the sub-rule's own RuleTrace.
type Node struct {
	Kind       string         `json:"kind"`
	Label      string         `json:"label,omitempty"`
	Status     string         `json:"status"`
	DurationUs int64          `json:"duration_us"`
	Input      any            `json:"input,omitempty"`
	Output     any            `json:"output,omitempty"`
	PipeValue  any            `json:"pipe_value,omitempty"`
	Args       []any          `json:"args,omitempty"`
	PipeSteps  []*Node        `json:"pipe_steps,omitempty"`
	Children   []*Node        `json:"children,omitempty"`
	Error      string         `json:"error,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	ChildTrace *RuleTrace     `json:"child_trace,omitempty"`

	start time.Time
}

// Status values a Node can carry.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// DoneFn stops a node's timer; call it when the step it represents has
// finished executing.
type DoneFn func()

// New starts a node of the given kind/label, returning it with a DoneFn
// that records elapsed time when called.
func New(kind, label string) (*Node, DoneFn) {
	n := &Node{Kind: kind, Label: label, Status: StatusOK, start: time.Now()}
	return n, func() {
		n.DurationUs = time.Since(n.start).Microseconds()
	}
}

// Recorder gates trace-node creation behind a single enabled flag, so
// the engine can call Step unconditionally at every mapping/op/branch
// site and pay nothing when the caller used transform (no trace) rather
// than transform_with_trace: a disabled Recorder returns a nil Node
// (every Node method is nil-safe) and a no-op DoneFn.
type Recorder struct {
	enabled bool
}

// NewRecorder returns a Recorder; enabled false makes every Step call
// free of allocation.
func NewRecorder(enabled bool) *Recorder {
	return &Recorder{enabled: enabled}
}

// Enabled reports whether this Recorder is actually building nodes.
func (r *Recorder) Enabled() bool {
	return r != nil && r.enabled
}

// Step starts a node the same way New does, or returns (nil, no-op) if
// the recorder is disabled.
func (r *Recorder) Step(kind, label string) (*Node, DoneFn) {
	if !r.Enabled() {
		return nil, func() {}
	}
	return New(kind, label)
}

// Every Node method tolerates a nil receiver and is a no-op in that
// case, so callers can chain unconditionally (`n.WithInput(x).
// WithOutput(y)`) whether or not a Recorder is actually recording.

// WithInput sets the node's input snapshot and returns it for chaining.
func (n *Node) WithInput(v any) *Node {
	if n == nil {
		return n
	}
	n.Input = v
	return n
}

// WithOutput sets the node's output snapshot and returns it for chaining.
func (n *Node) WithOutput(v any) *Node {
	if n == nil {
		return n
	}
	n.Output = v
	return n
}

// WithPipeValue records an op node's pipe value (the value the op ran
// against, distinct from its evaluated Args).
func (n *Node) WithPipeValue(v any) *Node {
	if n == nil {
		return n
	}
	n.PipeValue = v
	return n
}

// WithArgs records an op node's evaluated argument values.
func (n *Node) WithArgs(args []any) *Node {
	if n == nil {
		return n
	}
	n.Args = args
	return n
}

// Attach appends children (for nested steps: mappings inside a step,
// the branches of an if, the body of a map) and returns the node.
func (n *Node) Attach(children ...*Node) *Node {
	if n == nil || len(children) == 0 {
		return n
	}
	n.Children = append(n.Children, children...)
	return n
}

// AttachPipeSteps appends intra-op pipe-step traces (e.g. a lookup op's
// internal table scan) and returns the node.
func (n *Node) AttachPipeSteps(steps ...*Node) *Node {
	if n == nil || len(steps) == 0 {
		return n
	}
	n.PipeSteps = append(n.PipeSteps, steps...)
	return n
}

// WithMeta sets one meta key (rule_ref, branch_taken, record_when,
// asserts_ok, etc.) and returns the node.
func (n *Node) WithMeta(key string, v any) *Node {
	if n == nil {
		return n
	}
	if n.Meta == nil {
		n.Meta = map[string]any{}
	}
	n.Meta[key] = v
	return n
}

// SetError marks the node as failed and records the error's message; a
// nil error leaves the node's status untouched.
func (n *Node) SetError(err error) *Node {
	if n == nil || err == nil {
		return n
	}
	n.Status = StatusError
	n.Error = err.Error()
	return n
}

// SetSkipped marks the node as skipped (a `when`/`record_when` guard
// evaluated false, or a demoted condition-evaluation error).
func (n *Node) SetSkipped() *Node {
	if n == nil {
		return n
	}
	n.Status = StatusSkipped
	return n
}

// RuleRef identifies the rule document a RuleTrace belongs to.
type RuleRef struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Type    string `json:"type"`
	Version string `json:"version"`
}

// TraceRecord is one input record's trace: its position in the stream,
// outcome, timing, IO snapshot, and step-trace tree.
type TraceRecord struct {
	Index      int     `json:"index"`
	Status     string  `json:"status"`
	DurationUs int64   `json:"duration_us"`
	Input      any     `json:"input,omitempty"`
	Output     any     `json:"output,omitempty"`
	Nodes      []*Node `json:"nodes,omitempty"`
}

// RuleTrace is the trace of every invocation of one rule file: used both
// at the top of a Document and nested under a branch-call Node's
// ChildTrace, since a sub-rule invocation is traced the same way a
// top-level transform is.
type RuleTrace struct {
	Rule    RuleRef       `json:"rule"`
	Records []TraceRecord `json:"records"`
}

// FinalizeTrace is the trace of a rule's finalize stage, run once after
// every record has been produced.
type FinalizeTrace struct {
	Nodes  []*Node `json:"nodes,omitempty"`
	Input  any     `json:"input,omitempty"`
	Output any     `json:"output,omitempty"`
	Status string  `json:"status"`
}

// Document is the complete trace of one transform_with_trace call.
type Document struct {
	TraceID    string         `json:"trace_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Rule       RuleRef        `json:"rule"`
	RuleSource string         `json:"rule_source,omitempty"`
	Records    []TraceRecord  `json:"records"`
	Finalize   *FinalizeTrace `json:"finalize,omitempty"`
}

// NewDocument starts a Document for rule, stamping a fresh trace id.
func NewDocument(rule RuleRef, ruleSource string, timestamp time.Time) *Document {
	return &Document{
		TraceID:    uuid.NewString(),
		Timestamp:  timestamp,
		Rule:       rule,
		RuleSource: ruleSource,
	}
}

// Sink persists a serialized trace document; the engine writes through
// an injected Sink rather than owning file layout itself.
type Sink interface {
	Write(traceID string, body []byte) error
}

// NopSink discards every trace. Used by transform (as opposed to
// transform_with_trace) so tracing has no IO cost when the caller never
// asked for a trace document.
type NopSink struct{}

func (NopSink) Write(string, []byte) error { return nil }
