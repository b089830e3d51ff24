package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Run.ChunkSize != 10 {
		t.Errorf("default chunk size = %d, want 10", cfg.Run.ChunkSize)
	}
	if cfg.Run.Store != "memory" {
		t.Errorf("default store = %q, want memory", cfg.Run.Store)
	}
	if cfg.Storage.Backend != "local" {
		t.Errorf("default storage backend = %q, want local", cfg.Storage.Backend)
	}
	if cfg.Refine.MinTolerance != 1.0 || cfg.Refine.MaxTolerance != 10.0 {
		t.Errorf("default refine params wrong: %+v", cfg.Refine)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
logging:
  format: json
  level: debug
run:
  chunk_size: 25
  max_workers: 8
  store: bucket
  store_bucket_url: file:///tmp/objects
  index_dir: /data/index
refine:
  min_tolerance: 2.0
  max_tolerance: 20.0
storage:
  backend: local
  local_dir: /data/results
catalog:
  postgres_dsn: postgres://catalog
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Errorf("logging not loaded: %+v", cfg.Logging)
	}
	if cfg.Run.ChunkSize != 25 || cfg.Run.MaxWorkers != 8 {
		t.Errorf("run not loaded: %+v", cfg.Run)
	}
	if cfg.Run.Store != "bucket" || cfg.Run.StoreBucketURL != "file:///tmp/objects" {
		t.Errorf("store not loaded: %+v", cfg.Run)
	}
	if cfg.Refine.MinTolerance != 2.0 || cfg.Refine.MaxTolerance != 20.0 {
		t.Errorf("refine not loaded: %+v", cfg.Refine)
	}
	// Unset fields keep their defaults.
	if cfg.Refine.ToleranceStep != 5.0 {
		t.Errorf("tolerance step = %v, want default 5.0", cfg.Refine.ToleranceStep)
	}
	if cfg.Catalog.PostgresDSN != "postgres://catalog" {
		t.Errorf("catalog not loaded: %+v", cfg.Catalog)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("IPOD_CHUNK_SIZE", "50")
	t.Setenv("IPOD_LOG_LEVEL", "warn")
	t.Setenv("IPOD_SEQUENTIAL", "true")
	t.Setenv("IPOD_CATALOG_DSN", "postgres://from-env")

	path := writeConfig(t, `
run:
  chunk_size: 25
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Run.ChunkSize != 50 {
		t.Errorf("env did not override chunk size: %d", cfg.Run.ChunkSize)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("env did not override log level: %q", cfg.Logging.Level)
	}
	if !cfg.Run.Sequential {
		t.Error("env did not enable sequential mode")
	}
	if cfg.Catalog.PostgresDSN != "postgres://from-env" {
		t.Errorf("env did not set catalog DSN: %q", cfg.Catalog.PostgresDSN)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Run.ChunkSize = 0 }},
		{"negative workers", func(c *Config) { c.Run.MaxWorkers = -1 }},
		{"unknown store", func(c *Config) { c.Run.Store = "redis" }},
		{"bucket store without url", func(c *Config) { c.Run.Store = "bucket" }},
		{"unknown storage backend", func(c *Config) { c.Storage.Backend = "ftp" }},
		{"non-positive tolerance", func(c *Config) { c.Refine.MinTolerance = 0 }},
		{"inverted tolerances", func(c *Config) { c.Refine.MaxTolerance = 0.5 }},
		{"non-positive step", func(c *Config) { c.Refine.ToleranceStep = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted an invalid config")
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("Validate rejected the default config: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("Load succeeded on a missing file")
	}
}
