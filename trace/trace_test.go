package trace_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinhphatfsg/rulemorph/trace"
)

func TestNode_WithInputOutputAndStatus(t *testing.T) {
	n, done := trace.New("op", "uppercase")
	n.WithInput("hi").WithOutput("HI")
	done()

	assert.Equal(t, "op", n.Kind)
	assert.Equal(t, "uppercase", n.Label)
	assert.Equal(t, trace.StatusOK, n.Status)
	assert.Equal(t, "hi", n.Input)
	assert.Equal(t, "HI", n.Output)
	assert.GreaterOrEqual(t, n.DurationUs, int64(0))
}

func TestNode_SetError(t *testing.T) {
	n, done := trace.New("mapping", "target")
	n.SetError(errors.New("boom"))
	done()

	assert.Equal(t, trace.StatusError, n.Status)
	assert.Equal(t, "boom", n.Error)
}

func TestNode_SetErrorNilIsNoop(t *testing.T) {
	n, _ := trace.New("mapping", "target")
	n.SetError(nil)
	assert.Equal(t, trace.StatusOK, n.Status)
}

func TestNode_AttachAndPipeSteps(t *testing.T) {
	parent, _ := trace.New("op", "lookup")
	child1, _ := trace.New("scan", "table")
	child2, _ := trace.New("scan", "cache-hit")
	parent.Attach(child1)
	parent.AttachPipeSteps(child2)

	assert.Len(t, parent.Children, 1)
	assert.Len(t, parent.PipeSteps, 1)
}

func TestNode_NilReceiverIsSafe(t *testing.T) {
	var n *trace.Node
	assert.NotPanics(t, func() {
		n.WithInput(1).WithOutput(2).WithMeta("k", "v").SetError(errors.New("x")).SetSkipped()
	})
}

func TestRecorder_DisabledReturnsNilNode(t *testing.T) {
	r := trace.NewRecorder(false)
	n, done := r.Step("op", "trim")
	assert.Nil(t, n)
	assert.NotPanics(t, done)
	assert.False(t, r.Enabled())
}

func TestRecorder_EnabledBuildsRealNode(t *testing.T) {
	r := trace.NewRecorder(true)
	n, done := r.Step("op", "trim")
	require.NotNil(t, n)
	done()
	assert.Equal(t, "trim", n.Label)
	assert.True(t, r.Enabled())
}

func TestNewDocument_StampsTraceID(t *testing.T) {
	doc := trace.NewDocument(trace.RuleRef{Name: "r1"}, "", time.Now())
	assert.NotEmpty(t, doc.TraceID)
	assert.Equal(t, "r1", doc.Rule.Name)
}

func TestNopSink_DiscardsWrites(t *testing.T) {
	var s trace.Sink = trace.NopSink{}
	assert.NoError(t, s.Write("id", []byte("{}")))
}
