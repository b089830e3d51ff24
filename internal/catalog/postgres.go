package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/B612-Asteroid-Institute/ipod/internal/metrics"
)

//go:embed schema.sql
var schemaSQL string

// PostgresRecorder implements Recorder using PostgreSQL.
type PostgresRecorder struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgresRecorder creates a new PostgreSQL run recorder.
func NewPostgresRecorder(ctx context.Context, cfg Config) (*PostgresRecorder, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	poolCfg.MaxConns = 5
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRecorder{
		pool: pool,
		log:  slog.With("component", "catalog"),
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	r.log.Info("connected to PostgreSQL catalog")
	return r, nil
}

// RecordRun upserts a run record keyed by run ID.
func (r *PostgresRecorder) RecordRun(ctx context.Context, rec RunRecord) error {
	query := `
		INSERT INTO _meta_runs (
			run_id, orbits, candidates, chunk_size, workers,
			schema_version, storage_path, storage_uri,
			producer_version, producer_git_sha,
			started_at, finished_at, success, error_message
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (run_id)
		DO UPDATE SET
			orbits = EXCLUDED.orbits,
			candidates = EXCLUDED.candidates,
			finished_at = EXCLUDED.finished_at,
			success = EXCLUDED.success,
			error_message = EXCLUDED.error_message,
			created_at = NOW()
	`

	var storageURI *string
	if rec.StorageURI != "" {
		storageURI = &rec.StorageURI
	}
	var gitSHA *string
	if rec.ProducerGitSHA != "" {
		gitSHA = &rec.ProducerGitSHA
	}
	var errMsg *string
	if rec.ErrorMessage != "" {
		errMsg = &rec.ErrorMessage
	}

	_, err := r.pool.Exec(ctx, query,
		rec.RunID,
		rec.Orbits,
		rec.Candidates,
		rec.ChunkSize,
		rec.Workers,
		rec.SchemaVersion,
		rec.StoragePath,
		storageURI,
		rec.ProducerVersion,
		gitSHA,
		rec.StartedAt,
		rec.FinishedAt,
		rec.Success,
		errMsg,
	)
	if err != nil {
		if m := metrics.Get(); m != nil {
			m.IncCatalogErrors()
		}
		return fmt.Errorf("record run: %w", err)
	}

	r.log.Info("recorded run", "run_id", rec.RunID, "success", rec.Success)
	return nil
}

// LastRun returns the most recently finished run, or nil if none exist.
func (r *PostgresRecorder) LastRun(ctx context.Context) (*RunRecord, error) {
	query := `
		SELECT run_id, orbits, candidates, chunk_size, workers,
		       schema_version, storage_path, COALESCE(storage_uri, ''),
		       producer_version, COALESCE(producer_git_sha, ''),
		       started_at, finished_at, success, COALESCE(error_message, '')
		FROM _meta_runs
		ORDER BY finished_at DESC
		LIMIT 1
	`

	var rec RunRecord
	err := r.pool.QueryRow(ctx, query).Scan(
		&rec.RunID, &rec.Orbits, &rec.Candidates, &rec.ChunkSize, &rec.Workers,
		&rec.SchemaVersion, &rec.StoragePath, &rec.StorageURI,
		&rec.ProducerVersion, &rec.ProducerGitSHA,
		&rec.StartedAt, &rec.FinishedAt, &rec.Success, &rec.ErrorMessage,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last run: %w", err)
	}
	return &rec, nil
}

// Close releases database connections.
func (r *PostgresRecorder) Close() error {
	r.pool.Close()
	return nil
}
