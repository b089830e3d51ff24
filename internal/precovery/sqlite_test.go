package precovery

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/B612-Asteroid-Institute/ipod/internal/orbits"
)

// writeTestIndex creates an index database with the given version and a few
// detections along (and off) a linear track through (10, 5) deg at MJD 60000.
func writeTestIndex(t *testing.T, dir, version string) {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("create test index: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE index_metadata (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
		`CREATE TABLE detections (
			obs_id     TEXT PRIMARY KEY,
			mjd        REAL NOT NULL,
			mjd_days   INTEGER NOT NULL,
			mjd_nanos  INTEGER NOT NULL,
			ra_deg     REAL NOT NULL,
			dec_deg    REAL NOT NULL,
			mag        REAL NOT NULL,
			obscode    TEXT NOT NULL,
			dataset_id TEXT NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}

	if _, err := db.Exec(
		`INSERT INTO index_metadata (key, value) VALUES ('version', ?)`, version); err != nil {
		t.Fatalf("insert version: %v", err)
	}

	type det struct {
		obsID  string
		mjd    float64
		raDeg  float64
		decDeg float64
	}
	dets := []det{
		{"on-track-1", 60000.0, 10.0, 5.0},
		{"on-track-2", 60001.0, 10.1, 5.0},
		{"off-track", 60000.5, 25.0, -40.0},
		{"out-of-window", 60100.0, 20.0, 5.0},
	}
	for _, d := range dets {
		days := math.Floor(d.mjd)
		nanos := int64((d.mjd - days) * 86400e9)
		if _, err := db.Exec(
			`INSERT INTO detections (obs_id, mjd, mjd_days, mjd_nanos, ra_deg, dec_deg, mag, obscode, dataset_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.obsID, d.mjd, int64(days), nanos, d.raDeg, d.decDeg, 21.5, "X05", "test"); err != nil {
			t.Fatalf("insert detection %s: %v", d.obsID, err)
		}
	}
}

func trackOrbit() orbits.FittedOrbit {
	return orbits.FittedOrbit{
		OrbitID:     "track",
		EpochMJD:    60000,
		RADeg:       10.0,
		DecDeg:      5.0,
		RAVelDegDay: 0.1,
	}
}

func TestOpenMissingIndex(t *testing.T) {
	_, err := Open(t.TempDir())
	if err == nil {
		t.Fatal("Open succeeded on a directory with no index")
	}
	// The index is never created on open.
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open error = %v, want a missing-file error", err)
	}
}

func TestOpenVersionMismatchTolerated(t *testing.T) {
	dir := t.TempDir()
	writeTestIndex(t, dir, "1")

	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open rejected a version mismatch: %v", err)
	}
	db.Close()
}

func TestFindMatches(t *testing.T) {
	dir := t.TempDir()
	writeTestIndex(t, dir, IndexVersion)

	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	lo, hi := 59999.0, 60002.0
	window := TimeWindow{MinMJD: &lo, MaxMJD: &hi}

	// Half a degree of tolerance keeps the on-track detections and drops
	// the off-track one; the out-of-window detection never enters.
	matches, err := db.FindMatches(context.Background(), trackOrbit(), window, 0.5)
	if err != nil {
		t.Fatalf("FindMatches failed: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("FindMatches returned %d detections, want 2: %+v", len(matches), matches)
	}
	if matches[0].ObsID != "on-track-1" || matches[1].ObsID != "on-track-2" {
		t.Errorf("matches out of time order: %+v", matches)
	}
	if matches[0].ObservatoryCode != "X05" || matches[0].DatasetID != "test" {
		t.Errorf("detection fields not populated: %+v", matches[0])
	}
}

func TestFindMatchesUnboundedWindow(t *testing.T) {
	dir := t.TempDir()
	writeTestIndex(t, dir, IndexVersion)

	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	// No bounds: a huge tolerance returns everything in time order.
	matches, err := db.FindMatches(context.Background(), trackOrbit(), TimeWindow{}, 180)
	if err != nil {
		t.Fatalf("FindMatches failed: %v", err)
	}
	if len(matches) != 4 {
		t.Errorf("FindMatches returned %d detections, want 4", len(matches))
	}
}

func TestAngularSeparationDeg(t *testing.T) {
	tests := []struct {
		name      string
		ra1, dec1 float64
		ra2, dec2 float64
		want      float64
		tol       float64
	}{
		{"identical", 10, 5, 10, 5, 0, 1e-12},
		{"one degree of dec", 10, 5, 10, 6, 1, 1e-9},
		{"ra at equator", 10, 0, 11, 0, 1, 1e-9},
		{"ra off equator shrinks", 10, 60, 11, 60, 0.5, 1e-3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AngularSeparationDeg(tt.ra1, tt.dec1, tt.ra2, tt.dec2)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("AngularSeparationDeg = %v, want %v within %v", got, tt.want, tt.tol)
			}
		})
	}
}
