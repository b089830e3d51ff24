package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ResultRef describes where one table of a precovery run is published.
type ResultRef struct {
	RunID string // unique run identifier
	Table string // "fitted_orbits" | "fitted_orbit_members" | "precovery_candidates" | "search_summary"
}

// Path returns the storage path for this table's parquet file.
func (r ResultRef) Path(prefix string) string {
	return fmt.Sprintf("%sruns/%s/%s.parquet", prefix, r.RunID, r.Table)
}

// ManifestPath returns the storage path for the run's manifest.
func (r ResultRef) ManifestPath(prefix string) string {
	return fmt.Sprintf("%sruns/%s/_manifest.json", prefix, r.RunID)
}

// DirPath returns the directory path for the run.
func (r ResultRef) DirPath(prefix string) string {
	return fmt.Sprintf("%sruns/%s", prefix, r.RunID)
}

// Manifest describes the contents of a published run directory.
type Manifest struct {
	Run       RunInfo              `json:"run"`
	Tables    map[string]TableInfo `json:"tables"`
	Producer  ProducerInfo         `json:"producer"`
	CreatedAt time.Time            `json:"created_at"`
}

// RunInfo describes the run the tables belong to.
type RunInfo struct {
	RunID         string `json:"run_id"`
	Orbits        int64  `json:"orbits"`
	Candidates    int64  `json:"candidates"`
	SchemaVersion string `json:"schema_version"`
}

// TableInfo describes a single published table.
type TableInfo struct {
	File     string `json:"file"`
	Checksum string `json:"checksum"`
	RowCount int64  `json:"row_count"`
	ByteSize int64  `json:"byte_size"`
}

// ProducerInfo describes the software that produced the run.
type ProducerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	GitSHA  string `json:"git_sha,omitempty"`
}

// MarshalJSON returns the manifest as JSON bytes.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	type Alias Manifest
	return json.MarshalIndent((*Alias)(m), "", "  ")
}

// ResultStore abstracts writing published run artifacts to storage.
type ResultStore interface {
	// WriteParquet writes parquet bytes to storage.
	WriteParquet(ctx context.Context, ref ResultRef, parquetBytes []byte) error

	// WriteManifest writes a manifest file to storage.
	WriteManifest(ctx context.Context, ref ResultRef, manifest *Manifest) error

	// Exists checks if the run's manifest already exists.
	Exists(ctx context.Context, ref ResultRef) (bool, error)

	// URI returns the canonical URI for the given key.
	// For local: file:///path, bucket backends: the bucket URL plus key.
	URI(key string) string

	// Close releases any resources.
	Close() error
}

// Config configures the result storage backend.
type Config struct {
	Backend string `yaml:"backend"` // "local" | "bucket"

	// Local filesystem
	LocalDir string `yaml:"local_dir"`

	// Bucket (file://, gs://, s3://; s3 also works for B2, R2, MinIO)
	BucketURL string `yaml:"bucket_url"`

	// Common
	Prefix string `yaml:"prefix"` // path prefix within bucket or local dir
}

// NewResultStore creates a storage backend based on configuration.
func NewResultStore(ctx context.Context, cfg Config) (ResultStore, error) {
	switch cfg.Backend {
	case "local":
		if cfg.LocalDir == "" {
			return nil, fmt.Errorf("local_dir required for local backend")
		}
		return NewLocalStore(cfg.LocalDir, cfg.Prefix)
	case "bucket":
		if cfg.BucketURL == "" {
			return nil, fmt.Errorf("bucket_url required for bucket backend")
		}
		return NewBucketStore(ctx, cfg.BucketURL, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
