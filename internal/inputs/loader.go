// Package inputs loads run inputs from parquet files on disk.
package inputs

import (
	"fmt"
	"log/slog"

	"github.com/parquet-go/parquet-go"

	"github.com/B612-Asteroid-Institute/ipod/internal/orbits"
)

// LoadOrbits reads a fitted-orbit table from a parquet file.
func LoadOrbits(path string) (*orbits.Orbits, error) {
	rows, err := load[orbits.FittedOrbit](path, "orbits")
	if err != nil {
		return nil, err
	}
	return orbits.NewOrbits(rows), nil
}

// LoadMembers reads an orbit-membership table from a parquet file. An empty
// path means the table was not supplied and yields a nil table.
func LoadMembers(path string) (*orbits.Members, error) {
	if path == "" {
		return nil, nil
	}
	rows, err := load[orbits.FittedOrbitMember](path, "orbit members")
	if err != nil {
		return nil, err
	}
	return orbits.NewMembers(rows), nil
}

// LoadObservations reads an observation table from a parquet file. An empty
// path means the table was not supplied and yields a nil table.
func LoadObservations(path string) (*orbits.Observations, error) {
	if path == "" {
		return nil, nil
	}
	rows, err := load[orbits.Observation](path, "observations")
	if err != nil {
		return nil, err
	}
	return orbits.NewObservations(rows), nil
}

func load[T any](path, what string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, fmt.Errorf("read %s from %s: %w", what, path, err)
	}
	slog.Debug("loaded input table", "table", what, "path", path, "rows", len(rows))
	return rows, nil
}
