// Package config loads engine tuning values (cache sizing/TTL and
// pipeline/condition nesting ceilings) from an optional rulemorph.toml
// with the pelletier/go-toml/v2 decoder. No other package reads them:
// the lookup ops' cache and the loader's depth ceiling use their own
// constants.
package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/vinhphatfsg/rulemorph/constants"
)

// Config holds the values a rulemorph.toml can set: cache sizing/TTL and
// maximum pipeline/condition nesting depths. The lookup ops' cache
// (capacity 4096, TTL 5m) and loader.Validate's ceiling
// (loader.MaxPipelineDepth) are fixed and do not read a Config.
type Config struct {
	Cache             CacheConfig `toml:"cache"`
	MaxPipelineDepth  int         `toml:"max_pipeline_depth"`
	MaxConditionDepth int         `toml:"max_condition_depth"`
}

// CacheConfig describes a bounded LRU cache.New instance: its capacity
// and default entry TTL.
type CacheConfig struct {
	Capacity   int    `toml:"capacity"`
	DefaultTTL string `toml:"default_ttl"` // Go duration string such as "30s" or "1m"; empty disables caching
}

// Default mirrors the loader's own hardcoded ceiling (64) so a config
// file is optional: Load returns Default unchanged when no config file
// is found.
func Default() Config {
	return Config{
		Cache:             CacheConfig{Capacity: 1024, DefaultTTL: "30s"},
		MaxPipelineDepth:  64,
		MaxConditionDepth: 64,
	}
}

// Load reads path (typically rulemorph.toml next to the rule root) and
// overlays it onto Default. A missing file is not an error; any other
// read or decode failure is.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(err, "read "+constants.APPNAME+" config")
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse "+constants.APPNAME+" config")
	}
	return cfg, nil
}

// DefaultTTLDuration parses Cache.DefaultTTL, returning 0 (no caching)
// when it is empty or malformed.
func (c Config) DefaultTTLDuration() time.Duration {
	d, err := parseDuration(c.Cache.DefaultTTL)
	if err != nil {
		return 0
	}
	return d
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
