package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	got := Defaults()
	if got.FlushTimeout != 100*time.Millisecond {
		t.Errorf("FlushTimeout = %v", got.FlushTimeout)
	}
	if got.PoolCapacity != 8 || got.WarmNodes != 64 {
		t.Errorf("PoolCapacity/WarmNodes = %d/%d", got.PoolCapacity, got.WarmNodes)
	}
	if got.ViewCache != 128 || got.PrototypeCache != 64 {
		t.Errorf("caches = %d/%d", got.ViewCache, got.PrototypeCache)
	}
}

func TestLoadOptional_MissingFile(t *testing.T) {
	cfg, err := LoadOptional(t.TempDir())
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	resolved, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved != Defaults() {
		t.Errorf("resolved = %+v, want defaults", resolved)
	}
}

func TestLoadOptional_ParsesAndResolves(t *testing.T) {
	dir := t.TempDir()
	raw := []byte(`
engine:
  min_version: v0.2.0
pipeline:
  flush_timeout_ms: 250
  pool_capacity: 3
layout:
  warm_nodes: 16
cache:
  views: 10
`)
	if err := os.WriteFile(filepath.Join(dir, "vitrine.yaml"), raw, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadOptional(dir)
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	resolved, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.FlushTimeout != 250*time.Millisecond {
		t.Errorf("FlushTimeout = %v", resolved.FlushTimeout)
	}
	if resolved.PoolCapacity != 3 || resolved.WarmNodes != 16 {
		t.Errorf("PoolCapacity/WarmNodes = %d/%d", resolved.PoolCapacity, resolved.WarmNodes)
	}
	if resolved.ViewCache != 10 {
		t.Errorf("ViewCache = %d", resolved.ViewCache)
	}
	// Unset values keep their defaults.
	if resolved.PrototypeCache != Defaults().PrototypeCache {
		t.Errorf("PrototypeCache = %d, want default", resolved.PrototypeCache)
	}
}

func TestLoadOptional_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "vitrine.yaml"), []byte("pipeline: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOptional(dir); err == nil {
		t.Fatal("malformed yaml must error")
	}
}

func TestResolve_VersionGate(t *testing.T) {
	tooNew := &Config{Engine: EngineConfig{MinVersion: "v99.0.0"}}
	if _, err := tooNew.Resolve(); err == nil {
		t.Error("min_version newer than the engine must error")
	}

	invalid := &Config{Engine: EngineConfig{MinVersion: "latest"}}
	if _, err := invalid.Resolve(); err == nil {
		t.Error("non-semver min_version must error")
	}

	satisfied := &Config{Engine: EngineConfig{MinVersion: "v0.1.0"}}
	if _, err := satisfied.Resolve(); err != nil {
		t.Errorf("satisfied gate errored: %v", err)
	}

	exact := &Config{Engine: EngineConfig{MinVersion: Version}}
	if _, err := exact.Resolve(); err != nil {
		t.Errorf("exact-version gate errored: %v", err)
	}
}

func TestResolve_NilConfig(t *testing.T) {
	var cfg *Config
	resolved, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("nil config Resolve: %v", err)
	}
	if resolved != Defaults() {
		t.Errorf("resolved = %+v, want defaults", resolved)
	}
}
