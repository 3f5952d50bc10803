package loader_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinhphatfsg/rulemorph/loader"
	"github.com/vinhphatfsg/rulemorph/ruleast"
	"github.com/vinhphatfsg/rulemorph/xerr"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_SimpleRule(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "rule.yaml", `
version: 2
input:
  format: json
mappings:
  - target: name
    source: "@input.n"
`)
	g, err := loader.Load(p)
	require.NoError(t, err)
	rule := g.Rule(p)
	require.NotNil(t, rule)
	assert.Equal(t, ruleast.RuleNormal, rule.Type)
	require.Len(t, rule.Normal.Mappings, 1)
	assert.Equal(t, "name", rule.Normal.Mappings[0].Target)
}

func TestLoad_RejectsCycle(t *testing.T) {
	dir := t.TempDir()
	aPath := filepath.Join(dir, "a.yaml")
	bPath := filepath.Join(dir, "b.yaml")

	writeFile(t, dir, "a.yaml", `
version: 2
input:
  format: json
steps:
  - branch:
      when: {eq: ["@out.x", 1]}
      then: ./b.yaml
`)
	writeFile(t, dir, "b.yaml", `
version: 2
input:
  format: json
steps:
  - branch:
      when: {eq: ["@out.x", 1]}
      then: ./a.yaml
`)

	_, err := loader.Load(aPath)
	require.Error(t, err)
	var cyc xerr.CycleError
	assert.ErrorAs(t, err, &cyc)
	_ = bPath
}

func TestLoad_RejectsMappingsAndStepsTogether(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "rule.yaml", `
version: 2
input:
  format: json
mappings:
  - target: a
    value: 1
steps:
  - mappings:
      - target: b
        value: 2
`)
	_, err := loader.Load(p)
	require.Error(t, err)
	var verr xerr.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestLoad_RejectsTopLevelRecordWhenWithSteps(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "rule.yaml", `
version: 2
input:
  format: json
record_when: {eq: ["@input.a", 1]}
steps:
  - mappings:
      - target: b
        value: 2
`)
	_, err := loader.Load(p)
	require.Error(t, err)
}
