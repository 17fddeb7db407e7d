// Package config loads the optional vitrine.yaml runtime configuration and
// resolves it against engine defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// Version is the engine version templates can gate on.
const Version = "v0.4.0"

// Config represents the optional vitrine.yaml configuration.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Layout   LayoutConfig   `yaml:"layout"`
	Cache    CacheConfig    `yaml:"cache"`
}

// EngineConfig contains engine compatibility settings.
type EngineConfig struct {
	// MinVersion is the lowest engine version the template set requires,
	// e.g. "v0.3.0". Empty means no requirement.
	MinVersion string `yaml:"min_version,omitempty"`
}

// PipelineConfig contains render-pipeline settings.
type PipelineConfig struct {
	FlushTimeoutMS int `yaml:"flush_timeout_ms,omitempty"`
	PoolCapacity   int `yaml:"pool_capacity,omitempty"`
}

// LayoutConfig contains layout-node-pool settings.
type LayoutConfig struct {
	WarmNodes int `yaml:"warm_nodes,omitempty"`
}

// CacheConfig bounds the renderer's per-view and prototype caches.
type CacheConfig struct {
	Views      int `yaml:"views,omitempty"`
	Prototypes int `yaml:"prototypes,omitempty"`
}

// Resolved contains resolved configuration values with defaults applied.
type Resolved struct {
	FlushTimeout   time.Duration
	PoolCapacity   int
	WarmNodes      int
	ViewCache      int
	PrototypeCache int
}

// Defaults returns the resolved configuration with no file present.
func Defaults() Resolved {
	return Resolved{
		FlushTimeout:   100 * time.Millisecond,
		PoolCapacity:   8,
		WarmNodes:      64,
		ViewCache:      128,
		PrototypeCache: 64,
	}
}

// LoadOptional reads vitrine.yaml from dir if present. A missing file is
// not an error and yields the zero config.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, "vitrine.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read vitrine.yaml: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse vitrine.yaml: %w", err)
	}
	return &cfg, nil
}

// Resolve applies defaults and validates the engine version requirement.
func (c *Config) Resolve() (Resolved, error) {
	resolved := Defaults()
	if c == nil {
		return resolved, nil
	}
	if min := c.Engine.MinVersion; min != "" {
		if !semver.IsValid(min) {
			return resolved, fmt.Errorf("engine.min_version %q is not a valid semantic version", min)
		}
		if semver.Compare(Version, min) < 0 {
			return resolved, fmt.Errorf("engine %s is older than required %s", Version, min)
		}
	}
	if c.Pipeline.FlushTimeoutMS > 0 {
		resolved.FlushTimeout = time.Duration(c.Pipeline.FlushTimeoutMS) * time.Millisecond
	}
	if c.Pipeline.PoolCapacity > 0 {
		resolved.PoolCapacity = c.Pipeline.PoolCapacity
	}
	if c.Layout.WarmNodes > 0 {
		resolved.WarmNodes = c.Layout.WarmNodes
	}
	if c.Cache.Views > 0 {
		resolved.ViewCache = c.Cache.Views
	}
	if c.Cache.Prototypes > 0 {
		resolved.PrototypeCache = c.Cache.Prototypes
	}
	return resolved, nil
}
