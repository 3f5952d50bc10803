package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinhphatfsg/rulemorph/config"
)

func TestLoad_MissingFileReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "rulemorph.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_OverlaysFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "rulemorph.toml")
	require.NoError(t, os.WriteFile(p, []byte(`
max_pipeline_depth = 32

[cache]
capacity = 2048
default_ttl = "1m"
`), 0o644))

	cfg, err := config.Load(p)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.MaxPipelineDepth)
	assert.Equal(t, 2048, cfg.Cache.Capacity)
	assert.Equal(t, time.Minute, cfg.DefaultTTLDuration())
}

func TestDefaultTTLDuration_EmptyDisablesCaching(t *testing.T) {
	cfg := config.Config{}
	assert.Equal(t, time.Duration(0), cfg.DefaultTTLDuration())
}
