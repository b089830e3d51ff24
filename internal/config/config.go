// Package config loads run configuration from a YAML file with environment
// variable overrides for deployment-specific settings.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/B612-Asteroid-Institute/ipod/internal/catalog"
	"github.com/B612-Asteroid-Institute/ipod/internal/refine"
	"github.com/B612-Asteroid-Institute/ipod/internal/storage"
)

// Config is the top-level run configuration.
type Config struct {
	Logging LoggingConfig  `yaml:"logging"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Inputs  InputsConfig   `yaml:"inputs"`
	Run     RunConfig      `yaml:"run"`
	Refine  refine.Params  `yaml:"refine"`
	Storage storage.Config `yaml:"storage"`
	Catalog catalog.Config `yaml:"catalog"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Format string `yaml:"format"` // "json" | "text"
	Level  string `yaml:"level"`  // "debug" | "info" | "warn" | "error"
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // e.g. ":9090"
}

// InputsConfig names the parquet input tables. Members and observations are
// optional; both must be set for observations to flow into refinement.
type InputsConfig struct {
	OrbitsPath       string `yaml:"orbits_path"`
	MembersPath      string `yaml:"members_path"`
	ObservationsPath string `yaml:"observations_path"`
}

// RunConfig shapes the execution of a run.
type RunConfig struct {
	// ChunkSize bounds how many orbit IDs one task receives.
	ChunkSize int `yaml:"chunk_size"`

	// MaxWorkers sets the worker pool size. 0 means one per CPU.
	MaxWorkers int `yaml:"max_workers"`

	// Sequential disables the worker pool entirely.
	Sequential bool `yaml:"sequential"`

	// Store selects the shared object store: "memory" or "bucket".
	Store string `yaml:"store"`

	// StoreBucketURL and StorePrefix configure the bucket store.
	StoreBucketURL string `yaml:"store_bucket_url"`
	StorePrefix    string `yaml:"store_prefix"`

	// IndexDir is the precovery index directory, opened read-only by each
	// chunk task.
	IndexDir string `yaml:"index_dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
		Run: RunConfig{
			ChunkSize:   10,
			Store:       "memory",
			StorePrefix: "objects/",
		},
		Refine: refine.DefaultParams(),
		Storage: storage.Config{
			Backend:  "local",
			LocalDir: "./data",
			Prefix:   "results/",
		},
	}
}

// Load reads configuration from an optional YAML file, then applies
// environment overrides. An empty path uses the defaults alone.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides deployment-specific settings from the environment.
func applyEnv(cfg *Config) {
	setString(&cfg.Logging.Format, "IPOD_LOG_FORMAT")
	setString(&cfg.Logging.Level, "IPOD_LOG_LEVEL")
	setString(&cfg.Metrics.Address, "IPOD_METRICS_ADDRESS")
	setString(&cfg.Inputs.OrbitsPath, "IPOD_ORBITS_PATH")
	setString(&cfg.Inputs.MembersPath, "IPOD_MEMBERS_PATH")
	setString(&cfg.Inputs.ObservationsPath, "IPOD_OBSERVATIONS_PATH")
	setString(&cfg.Run.Store, "IPOD_STORE")
	setString(&cfg.Run.StoreBucketURL, "IPOD_STORE_BUCKET_URL")
	setString(&cfg.Run.IndexDir, "IPOD_INDEX_DIR")
	setString(&cfg.Storage.Backend, "IPOD_STORAGE_BACKEND")
	setString(&cfg.Storage.LocalDir, "IPOD_STORAGE_LOCAL_DIR")
	setString(&cfg.Storage.BucketURL, "IPOD_STORAGE_BUCKET_URL")
	setString(&cfg.Catalog.PostgresDSN, "IPOD_CATALOG_DSN")
	setInt(&cfg.Run.ChunkSize, "IPOD_CHUNK_SIZE")
	setInt(&cfg.Run.MaxWorkers, "IPOD_MAX_WORKERS")

	if v := os.Getenv("IPOD_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = v == "true"
	}
	if v := os.Getenv("IPOD_SEQUENTIAL"); v != "" {
		cfg.Run.Sequential = v == "true"
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

// Validate checks the configuration for internally inconsistent settings.
func (c Config) Validate() error {
	if c.Run.ChunkSize < 1 {
		return fmt.Errorf("run.chunk_size must be at least 1, got %d", c.Run.ChunkSize)
	}
	if c.Run.MaxWorkers < 0 {
		return fmt.Errorf("run.max_workers must not be negative, got %d", c.Run.MaxWorkers)
	}

	switch c.Run.Store {
	case "memory":
	case "bucket":
		if c.Run.StoreBucketURL == "" {
			return fmt.Errorf("run.store_bucket_url required for bucket store")
		}
	default:
		return fmt.Errorf("unknown object store %q (want memory or bucket)", c.Run.Store)
	}

	switch c.Storage.Backend {
	case "local", "bucket":
	default:
		return fmt.Errorf("unknown storage backend %q (want local or bucket)", c.Storage.Backend)
	}

	if c.Refine.MinTolerance <= 0 {
		return fmt.Errorf("refine.min_tolerance must be positive, got %g", c.Refine.MinTolerance)
	}
	if c.Refine.MaxTolerance < c.Refine.MinTolerance {
		return fmt.Errorf("refine.max_tolerance %g below min_tolerance %g",
			c.Refine.MaxTolerance, c.Refine.MinTolerance)
	}
	if c.Refine.ToleranceStep <= 0 {
		return fmt.Errorf("refine.tolerance_step must be positive, got %g", c.Refine.ToleranceStep)
	}

	return nil
}
