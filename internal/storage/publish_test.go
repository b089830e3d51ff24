package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/B612-Asteroid-Institute/ipod/internal/orbits"
)

func TestEncodeDecodeParquet(t *testing.T) {
	rows := []orbits.FittedOrbit{
		{OrbitID: "a", EpochMJD: 60000, RADeg: 10.5, NumObs: 4, Success: true},
		{OrbitID: "b", EpochMJD: 60010, RADeg: 200.25, NumObs: 7},
	}

	data, err := EncodeParquet(rows)
	if err != nil {
		t.Fatalf("EncodeParquet failed: %v", err)
	}

	decoded, err := DecodeParquet[orbits.FittedOrbit](data)
	if err != nil {
		t.Fatalf("DecodeParquet failed: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d rows, want 2", len(decoded))
	}
	if decoded[0] != rows[0] || decoded[1] != rows[1] {
		t.Errorf("rows did not round-trip: %+v", decoded)
	}
}

func TestEncodeParquetEmpty(t *testing.T) {
	data, err := EncodeParquet([]orbits.SearchSummary{})
	if err != nil {
		t.Fatalf("EncodeParquet of empty slice failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty table produced no bytes; a valid zero-row file is expected")
	}

	decoded, err := DecodeParquet[orbits.SearchSummary](data)
	if err != nil {
		t.Fatalf("DecodeParquet failed: %v", err)
	}
	if len(decoded) != 0 {
		t.Errorf("decoded %d rows from empty table", len(decoded))
	}
}

func testResultSet() *orbits.ResultSet {
	rs := orbits.EmptyResultSet()
	rs.Orbits.Append(orbits.FittedOrbit{OrbitID: "a", Success: true})
	rs.Members.Append(
		orbits.FittedOrbitMember{OrbitID: "a", ObsID: "o1"},
		orbits.FittedOrbitMember{OrbitID: "a", ObsID: "o2"},
	)
	rs.Candidates.Append(orbits.PrecoveryCandidate{OrbitID: "a", ObsID: "o2"})
	rs.Summaries.Append(orbits.SearchSummary{OrbitID: "a", ObsFound: 1})
	return rs
}

func TestPublishResultsLocal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "results/")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	producer := ProducerInfo{Name: "ipod", Version: "test"}

	manifest, err := PublishResults(ctx, store, "run-1", testResultSet(), producer)
	if err != nil {
		t.Fatalf("PublishResults failed: %v", err)
	}

	if len(manifest.Tables) != 4 {
		t.Fatalf("manifest has %d tables, want 4", len(manifest.Tables))
	}
	if manifest.Run.Orbits != 1 || manifest.Run.Candidates != 1 {
		t.Errorf("manifest run info wrong: %+v", manifest.Run)
	}
	if manifest.Run.SchemaVersion != orbits.SchemaVersion {
		t.Errorf("manifest schema version = %q", manifest.Run.SchemaVersion)
	}

	// Every table file exists and matches its manifest checksum.
	for name, info := range manifest.Tables {
		path := filepath.Join(dir, "results/runs/run-1", info.File)
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read published table %s: %v", name, err)
		}
		if int64(len(data)) != info.ByteSize {
			t.Errorf("table %s byte size %d, manifest says %d", name, len(data), info.ByteSize)
		}
		if !VerifyChecksum(data, info.Checksum) {
			t.Errorf("table %s fails checksum verification", name)
		}
	}

	if manifest.Tables["fitted_orbit_members"].RowCount != 2 {
		t.Errorf("members row count = %d, want 2", manifest.Tables["fitted_orbit_members"].RowCount)
	}

	// The written manifest parses back to the same content.
	raw, err := os.ReadFile(filepath.Join(dir, "results/runs/run-1/_manifest.json"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var onDisk Manifest
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	if onDisk.Run.RunID != "run-1" || len(onDisk.Tables) != 4 {
		t.Errorf("on-disk manifest wrong: %+v", onDisk)
	}

	exists, err := store.Exists(ctx, ResultRef{RunID: "run-1"})
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("Exists reports published run as missing")
	}

	exists, err = store.Exists(ctx, ResultRef{RunID: "other"})
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Exists reports unpublished run as present")
	}
}

func TestPublishResultsBucket(t *testing.T) {
	dir := t.TempDir()
	store, err := NewBucketStore(context.Background(), "file://"+dir, "results/")
	if err != nil {
		t.Fatalf("NewBucketStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := PublishResults(ctx, store, "run-2", testResultSet(), ProducerInfo{Name: "ipod"}); err != nil {
		t.Fatalf("PublishResults failed: %v", err)
	}

	exists, err := store.Exists(ctx, ResultRef{RunID: "run-2"})
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("Exists reports published run as missing")
	}

	if _, err := os.Stat(filepath.Join(dir, "results/runs/run-2/fitted_orbits.parquet")); err != nil {
		t.Errorf("published parquet missing from bucket: %v", err)
	}
}

func TestComputeChecksum(t *testing.T) {
	data := []byte("hello")
	sum := ComputeChecksum(data)
	if sum[:7] != "sha256:" {
		t.Errorf("checksum %q lacks sha256: prefix", sum)
	}
	if !VerifyChecksum(data, sum) {
		t.Error("checksum does not verify against its own data")
	}
	if VerifyChecksum([]byte("other"), sum) {
		t.Error("checksum verified against different data")
	}
}
