package engine_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinhphatfsg/rulemorph/engine"
	"github.com/vinhphatfsg/rulemorph/value"
)

func TestCallRule_EndpointCatchByDefaultOnAssertFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fallback.yaml", `
version: 2
input:
  format: json
mappings:
  - target: handled
    value: true
`)
	p := writeFile(t, dir, "route.yaml", `
version: 2
type: endpoint
method: GET
path: /widgets
catch:
  default: ./fallback.yaml
steps:
  - asserts:
      - when: {eq: [1, 1]}
        error:
          code: not_found
          message: always fails
`)
	eng, err := engine.LoadGraph(p)
	require.NoError(t, err)

	rule := eng.Graph().Rule(p)
	require.NotNil(t, rule.Endpoint)

	out, err := eng.CallRule(p, p, map[string]any{}, nil, nil, nil)
	require.NoError(t, err)
	obj, ok := out.(*value.Object)
	require.True(t, ok)
	handled, _ := obj.Get("handled")
	assert.Equal(t, true, handled)
}

func TestBuildCallGraph_IncludesCatchEdge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fallback.yaml", `
version: 2
input:
  format: json
mappings:
  - target: handled
    value: true
`)
	p := writeFile(t, dir, "route.yaml", `
version: 2
type: network
request:
  method: GET
  url: "https://example.test"
catch:
  default: ./fallback.yaml
`)
	eng, err := engine.LoadGraph(p)
	require.NoError(t, err)

	doc := engine.BuildCallGraph(eng.Graph())
	require.Len(t, doc.Nodes, 2)

	found := false
	for _, e := range doc.Edges {
		if e.Label == "catch: default" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestResolveRulePath_RelativeToCallerDirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeFile(t, sub, "helper.yaml", `
version: 2
input:
  format: json
mappings:
  - target: v
    value: 1
`)
	p := writeFile(t, sub, "rule.yaml", `
version: 2
input:
  format: json
steps:
  - branch:
      when: {eq: [1, 1]}
      then: ./helper.yaml
`)
	eng, err := engine.LoadGraph(p)
	require.NoError(t, err)

	rule := eng.Graph().Rule(p)
	stream, err := eng.Transform(rule, []byte(`[{}]`), nil)
	require.NoError(t, err)
	out, ok := stream.All().([]any)
	require.True(t, ok)
	require.Len(t, out, 1)
}
