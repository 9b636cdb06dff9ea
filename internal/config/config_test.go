package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("Version = %d", cfg.Version)
	}
	if cfg.Analysis.ChunkSize != 32 {
		t.Errorf("ChunkSize = %d", cfg.Analysis.ChunkSize)
	}
	if cfg.Cache.Path != ".tokopt/analysis-cache.json" {
		t.Errorf("Cache.Path = %q", cfg.Cache.Path)
	}
	if !cfg.Telemetry.Enabled {
		t.Error("telemetry should default to enabled")
	}
	if cfg.Logging.Format != "human" || cfg.Logging.Level != "info" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
}

func TestLoadConfigReadsFile(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".tokopt"), 0755); err != nil {
		t.Fatal(err)
	}
	content := `{
		"version": 1,
		"analysis": {"chunkSize": 8, "workers": 2, "excludes": ["generated"]},
		"logging": {"format": "json", "level": "debug"}
	}`
	if err := os.WriteFile(filepath.Join(root, ".tokopt", "config.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Analysis.ChunkSize != 8 || cfg.Analysis.Workers != 2 {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if len(cfg.Analysis.Excludes) != 1 || cfg.Analysis.Excludes[0] != "generated" {
		t.Errorf("excludes = %v", cfg.Analysis.Excludes)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("format = %q", cfg.Logging.Format)
	}
	// Unset keys keep their defaults.
	if cfg.Watch.PollIntervalMs != 2000 {
		t.Errorf("PollIntervalMs = %d", cfg.Watch.PollIntervalMs)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Analysis.Workers = 4
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Analysis.Workers != 4 {
		t.Errorf("Workers = %d after round trip", loaded.Analysis.Workers)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	cfg.Version = 2
	if err := cfg.Validate(); err == nil {
		t.Error("unsupported version accepted")
	}

	cfg = DefaultConfig()
	cfg.Analysis.ChunkSize = -1
	if err := cfg.Validate(); err == nil {
		t.Error("negative chunk size accepted")
	}
}

func TestPathResolution(t *testing.T) {
	cfg := DefaultConfig()
	root := "/proj"
	if got := cfg.CachePath(root); got != filepath.Join(root, ".tokopt", "analysis-cache.json") {
		t.Errorf("CachePath = %q", got)
	}
	cfg.Telemetry.DbPath = "/var/lib/tokopt/metrics.db"
	if got := cfg.TelemetryDbPath(root); got != "/var/lib/tokopt/metrics.db" {
		t.Errorf("absolute path rewritten: %q", got)
	}
}
