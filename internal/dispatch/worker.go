package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/B612-Asteroid-Institute/ipod/internal/logging"
	"github.com/B612-Asteroid-Institute/ipod/internal/metrics"
	"github.com/B612-Asteroid-Institute/ipod/internal/orbits"
)

// RunChunk processes one contiguous slice of orbit identifiers through the
// refinement routine and returns the chunk's four accumulated batches.
//
// The precovery index is opened once per chunk and released on every exit
// path. Each identifier must select exactly one candidate row; the first
// per-item failure is logged with the offending identifier and returned,
// aborting the remainder of the chunk. No partial-chunk result is produced.
func RunChunk(ctx context.Context, ids []string, orb *orbits.Orbits, members *orbits.Members, observations *orbits.Observations, cfg WorkerConfig) (*orbits.ResultSet, error) {
	log := logging.ChunkLogger(logging.GenerateCorrelationID(), len(ids))

	index, err := cfg.OpenIndex()
	if err != nil {
		return nil, fmt.Errorf("open precovery index: %w", err)
	}
	defer index.Close()

	acc := orbits.EmptyResultSet()

	for _, orbitID := range ids {
		candidate, err := orb.Select(orbitID)
		if err != nil {
			log.Error("error processing orbit", "orbit_id", orbitID, "error", err)
			return nil, err
		}

		// Observations flow into refinement only when both the membership
		// and observation tables are present; a lone table degrades to a
		// database-only search.
		var obsSet *orbits.ObservationSet
		if members != nil && observations != nil {
			obsIDs := members.ObsIDsFor(orbitID)
			rows := observations.SelectByIDs(obsIDs)
			obsSet = orbits.BuildObservationSet(rows)
		}

		start := time.Now()
		result, err := cfg.Refiner.Refine(ctx, candidate, obsSet, index, cfg.Params)
		if err != nil {
			log.Error("error processing orbit", "orbit_id", orbitID, "error", err)
			return nil, fmt.Errorf("refine orbit %s: %w", orbitID, err)
		}

		if m := metrics.Get(); m != nil {
			m.ObserveRefineDuration(time.Since(start).Seconds())
			m.IncOrbitsRefined()
		}

		// Merge compacts each collection whenever an append leaves it
		// fragmented, bounding concatenation overhead across the chunk.
		acc.Merge(result)
	}

	return acc, nil
}
