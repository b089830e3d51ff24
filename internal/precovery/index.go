// Package precovery exposes the read-only precovery index consumed by the
// refinement routine: a position-based search over prior detections.
package precovery

import (
	"context"

	"github.com/B612-Asteroid-Institute/ipod/internal/orbits"
)

// Detection is one archival detection returned by a search.
type Detection struct {
	ObsID           string
	MJDDays         int64
	MJDNanos        int64
	RADeg           float64
	DecDeg          float64
	Mag             float64
	ObservatoryCode string
	DatasetID       string
}

// MJD returns the detection time as a fractional MJD.
func (d Detection) MJD() float64 {
	return float64(d.MJDDays) + float64(d.MJDNanos)/86400e9
}

// TimeWindow bounds a search in time. A nil bound is unbounded on that side.
type TimeWindow struct {
	MinMJD *float64
	MaxMJD *float64
}

// Contains reports whether the given MJD falls inside the window.
func (w TimeWindow) Contains(mjd float64) bool {
	if w.MinMJD != nil && mjd < *w.MinMJD {
		return false
	}
	if w.MaxMJD != nil && mjd > *w.MaxMJD {
		return false
	}
	return true
}

// Index is a read-only precovery search index. A worker opens one handle at
// chunk start and must close it exactly once on every exit path.
type Index interface {
	// FindMatches returns detections inside the window whose angular
	// separation from the orbit's predicted position at the detection
	// epoch is within tolDeg degrees.
	FindMatches(ctx context.Context, orbit orbits.FittedOrbit, window TimeWindow, tolDeg float64) ([]Detection, error)

	// Close releases the index's underlying file resources.
	Close() error
}

// Opener opens a fresh index handle. Each chunk worker calls it once.
type Opener func() (Index, error)
