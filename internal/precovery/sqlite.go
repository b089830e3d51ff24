package precovery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/B612-Asteroid-Institute/ipod/internal/orbits"
)

// IndexVersion is the index format version this package was written
// against. Version skew is tolerated with a warning.
const IndexVersion = "2"

// indexFile is the database file inside an index directory.
const indexFile = "index.db"

// DB is a SQLite-backed precovery index opened read-only.
type DB struct {
	db  *sql.DB
	dir string
	log *slog.Logger
}

// Open opens the precovery index in dir read-only. The index is never
// created here; a missing database is an error. A version mismatch is
// logged and allowed.
func Open(dir string) (*DB, error) {
	path := filepath.Join(dir, indexFile)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("precovery index %s: %w", path, err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_query_only=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open precovery index: %w", err)
	}

	d := &DB{db: db, dir: dir, log: slog.With("component", "precovery", "dir", dir)}

	version, err := d.readVersion()
	if err != nil {
		db.Close()
		return nil, err
	}
	if version != IndexVersion {
		d.log.Warn("index version mismatch, continuing",
			"have", version, "want", IndexVersion)
	}

	return d, nil
}

func (d *DB) readVersion() (string, error) {
	var version string
	err := d.db.QueryRow(
		`SELECT value FROM index_metadata WHERE key = 'version'`,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read index version: %w", err)
	}
	return version, nil
}

// FindMatches queries detections inside the time window and keeps those
// within tolDeg of the orbit's predicted position at each detection epoch.
func (d *DB) FindMatches(ctx context.Context, orbit orbits.FittedOrbit, window TimeWindow, tolDeg float64) ([]Detection, error) {
	minMJD := math.Inf(-1)
	if window.MinMJD != nil {
		minMJD = *window.MinMJD
	}
	maxMJD := math.Inf(1)
	if window.MaxMJD != nil {
		maxMJD = *window.MaxMJD
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT obs_id, mjd_days, mjd_nanos, ra_deg, dec_deg, mag, obscode, dataset_id
		 FROM detections
		 WHERE mjd >= ? AND mjd <= ?
		 ORDER BY mjd_days, mjd_nanos, obscode`,
		minMJD, maxMJD)
	if err != nil {
		return nil, fmt.Errorf("query detections: %w", err)
	}
	defer rows.Close()

	var out []Detection
	for rows.Next() {
		var det Detection
		if err := rows.Scan(&det.ObsID, &det.MJDDays, &det.MJDNanos,
			&det.RADeg, &det.DecDeg, &det.Mag,
			&det.ObservatoryCode, &det.DatasetID); err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}

		raPred, decPred := orbits.Predict(orbit, det.MJD())
		if AngularSeparationDeg(raPred, decPred, det.RADeg, det.DecDeg) <= tolDeg {
			out = append(out, det)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detections: %w", err)
	}
	return out, nil
}

// Close releases the database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// AngularSeparationDeg returns the great-circle separation in degrees
// between two (RA, Dec) positions given in degrees.
func AngularSeparationDeg(ra1, dec1, ra2, dec2 float64) float64 {
	const degToRad = math.Pi / 180

	d1 := dec1 * degToRad
	d2 := dec2 * degToRad
	dRA := (ra2 - ra1) * degToRad
	dDec := d2 - d1

	// Haversine, stable at small separations.
	a := math.Sin(dDec/2)*math.Sin(dDec/2) +
		math.Cos(d1)*math.Cos(d2)*math.Sin(dRA/2)*math.Sin(dRA/2)
	return 2 * math.Asin(math.Min(1, math.Sqrt(a))) / degToRad
}
