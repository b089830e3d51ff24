// Package catalog records precovery runs in an external catalog so published
// results can be discovered and audited.
package catalog

import (
	"context"
	"time"
)

// RunRecord describes one completed precovery run.
type RunRecord struct {
	RunID string

	// Input and output sizes
	Orbits     int64
	Candidates int64

	// Execution shape
	ChunkSize int
	Workers   int

	// Published artifacts
	SchemaVersion string
	StoragePath   string
	StorageURI    string

	// Producer
	ProducerVersion string
	ProducerGitSHA  string

	// Outcome
	StartedAt    time.Time
	FinishedAt   time.Time
	Success      bool
	ErrorMessage string
}

// Recorder persists run records.
type Recorder interface {
	// RecordRun upserts a run record keyed by run ID.
	RecordRun(ctx context.Context, rec RunRecord) error

	// LastRun returns the most recently finished run, or nil if none exist.
	LastRun(ctx context.Context) (*RunRecord, error)

	// Close releases any resources.
	Close() error
}

// Config holds catalog configuration.
type Config struct {
	// PostgresDSN enables the Postgres recorder when non-empty. An empty
	// DSN selects the no-op recorder.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// NewRecorder creates a recorder based on configuration.
func NewRecorder(ctx context.Context, cfg Config) (Recorder, error) {
	if cfg.PostgresDSN == "" {
		return NoopRecorder{}, nil
	}
	return NewPostgresRecorder(ctx, cfg)
}

// NoopRecorder discards all records. Used when no catalog is configured.
type NoopRecorder struct{}

// RecordRun discards the record.
func (NoopRecorder) RecordRun(ctx context.Context, rec RunRecord) error { return nil }

// LastRun reports no previous run.
func (NoopRecorder) LastRun(ctx context.Context) (*RunRecord, error) { return nil, nil }

// Close is a no-op.
func (NoopRecorder) Close() error { return nil }
