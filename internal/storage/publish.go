package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/B612-Asteroid-Institute/ipod/internal/metrics"
	"github.com/B612-Asteroid-Institute/ipod/internal/orbits"
)

// PublishResults writes a run's four result tables and its manifest to the
// store. Tables are written before the manifest, so a manifest's presence
// means the run directory is complete.
func PublishResults(ctx context.Context, store ResultStore, runID string, rs *orbits.ResultSet, producer ProducerInfo) (*Manifest, error) {
	log := slog.With("component", "storage", "run_id", runID)
	start := time.Now()

	manifest := &Manifest{
		Run: RunInfo{
			RunID:         runID,
			Orbits:        int64(rs.Orbits.Len()),
			Candidates:    int64(rs.Candidates.Len()),
			SchemaVersion: orbits.SchemaVersion,
		},
		Tables:    make(map[string]TableInfo),
		Producer:  producer,
		CreatedAt: time.Now().UTC(),
	}

	if err := publishTable(ctx, store, runID, manifest, rs.Orbits.Rows()); err != nil {
		return nil, err
	}
	if err := publishTable(ctx, store, runID, manifest, rs.Members.Rows()); err != nil {
		return nil, err
	}
	if err := publishTable(ctx, store, runID, manifest, rs.Candidates.Rows()); err != nil {
		return nil, err
	}
	if err := publishTable(ctx, store, runID, manifest, rs.Summaries.Rows()); err != nil {
		return nil, err
	}

	ref := ResultRef{RunID: runID}
	if err := store.WriteManifest(ctx, ref, manifest); err != nil {
		if m := metrics.Get(); m != nil {
			m.IncStorageErrors("manifest")
		}
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	log.Info("published run results",
		"tables", len(manifest.Tables),
		"duration", time.Since(start).String(),
	)
	return manifest, nil
}

// tableRow constrains publishable row types to those carrying a canonical
// table name.
type tableRow interface {
	TableName() string
}

// publishTable encodes one table, writes it, and records its manifest entry.
func publishTable[T tableRow](ctx context.Context, store ResultStore, runID string, manifest *Manifest, rows []T) error {
	var zero T
	name := zero.TableName()

	data, err := EncodeParquet(rows)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	ref := ResultRef{RunID: runID, Table: name}
	if err := store.WriteParquet(ctx, ref, data); err != nil {
		if m := metrics.Get(); m != nil {
			m.IncStorageErrors("parquet")
		}
		return fmt.Errorf("write %s: %w", name, err)
	}

	manifest.Tables[name] = TableInfo{
		File:     name + ".parquet",
		Checksum: ComputeChecksum(data),
		RowCount: int64(len(rows)),
		ByteSize: int64(len(data)),
	}
	return nil
}
