package dispatch

import (
	"context"
	"log/slog"

	"github.com/B612-Asteroid-Institute/ipod/internal/chunk"
	"github.com/B612-Asteroid-Institute/ipod/internal/metrics"
	"github.com/B612-Asteroid-Institute/ipod/internal/orbits"
)

// runSequential executes the plan's chunks synchronously, in submission
// order, in the calling process. Inputs are used by direct value reference;
// nothing is placed in a shared store. Failure semantics match the
// distributed path: the first per-item error aborts the run.
func runSequential(ctx context.Context, st *tracker, plan chunk.Plan, ids []string, orb *orbits.Orbits, members *orbits.Members, observations *orbits.Observations, cfg WorkerConfig, acc *orbits.ResultSet) error {
	log := slog.With("component", "dispatch")

	for i := 0; i < plan.Count(); i++ {
		r := plan.At(i)

		st.to(StateDispatching)
		result, err := RunChunk(ctx, ids[r.Start:r.End], orb, members, observations, cfg)
		if err != nil {
			if m := metrics.Get(); m != nil {
				m.IncChunksFailed()
			}
			return err
		}

		st.to(StateMerging)
		acc.Merge(result)

		if m := metrics.Get(); m != nil {
			m.IncChunksProcessed()
		}
	}

	log.Debug("sequential run complete", "chunks", plan.Count())
	return nil
}
