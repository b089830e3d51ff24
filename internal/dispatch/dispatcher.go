package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/B612-Asteroid-Institute/ipod/internal/chunk"
	"github.com/B612-Asteroid-Institute/ipod/internal/metrics"
	"github.com/B612-Asteroid-Institute/ipod/internal/orbits"
	"github.com/B612-Asteroid-Institute/ipod/internal/runtime"
)

// maxInFlight returns ceil(1.5 × workers): enough outstanding chunk tasks
// to keep workers saturated despite uneven chunk durations, without an
// unbounded backlog.
func maxInFlight(workers int) int {
	return (3*workers + 1) / 2
}

// Dispatcher submits chunk tasks to the runtime in chunk order, caps the
// number simultaneously in flight, and merges completed results as they
// arrive. Completion order is unconstrained; merging is commutative, so the
// final totals do not depend on it.
type Dispatcher struct {
	rt  runtime.Runtime
	log *slog.Logger
}

// NewDispatcher creates a dispatcher over the given runtime.
func NewDispatcher(rt runtime.Runtime) *Dispatcher {
	return &Dispatcher{rt: rt, log: slog.With("component", "dispatch")}
}

// Run submits every range in the plan, draining at least one completion
// whenever the outstanding set reaches ceil(1.5×W), then drains the
// remainder. Each completed quadruple is merged into acc. The first failed
// task aborts the run; no further results are merged.
func (d *Dispatcher) Run(ctx context.Context, st *tracker, plan chunk.Plan, idsRef, orbitsRef runtime.Ref, membersRef, obsRef *runtime.Ref, cfg WorkerConfig, acc *orbits.ResultSet) error {
	bound := maxInFlight(d.rt.Workers())
	var outstanding []*runtime.Future

	merged := 0
	for i := 0; i < plan.Count(); i++ {
		r := plan.At(i)

		st.to(StateDispatching)
		fut, err := d.rt.Submit(ctx, d.chunkTask(r, idsRef, orbitsRef, membersRef, obsRef, cfg))
		if err != nil {
			return fmt.Errorf("submit chunk %d [%d,%d): %w", r.Index, r.Start, r.End, err)
		}
		outstanding = append(outstanding, fut)

		if m := metrics.Get(); m != nil {
			m.SetInFlightChunks(float64(len(outstanding)))
		}

		if len(outstanding) >= bound {
			if err := d.mergeNext(ctx, st, &outstanding, acc); err != nil {
				return err
			}
			merged++
		}
	}

	for len(outstanding) > 0 {
		if err := d.mergeNext(ctx, st, &outstanding, acc); err != nil {
			return err
		}
		merged++
	}

	d.log.Debug("all chunks merged", "chunks", merged)
	return nil
}

// chunkTask builds the task closure for one range. The shared inputs are
// dereferenced inside the task, on the worker.
func (d *Dispatcher) chunkTask(r chunk.Range, idsRef, orbitsRef runtime.Ref, membersRef, obsRef *runtime.Ref, cfg WorkerConfig) runtime.Task {
	store := d.rt.Store()
	return func(ctx context.Context) (*orbits.ResultSet, error) {
		ids, err := Reference[[]string](idsRef).Materialize(ctx, store)
		if err != nil {
			return nil, err
		}
		orb, err := Reference[*orbits.Orbits](orbitsRef).Materialize(ctx, store)
		if err != nil {
			return nil, err
		}

		var members *orbits.Members
		if membersRef != nil {
			if members, err = Reference[*orbits.Members](*membersRef).Materialize(ctx, store); err != nil {
				return nil, err
			}
		}
		var observations *orbits.Observations
		if obsRef != nil {
			if observations, err = Reference[*orbits.Observations](*obsRef).Materialize(ctx, store); err != nil {
				return nil, err
			}
		}

		return RunChunk(ctx, ids[r.Start:r.End], orb, members, observations, cfg)
	}
}

// mergeNext blocks for one completion, merges it, and removes it from the
// outstanding set.
func (d *Dispatcher) mergeNext(ctx context.Context, st *tracker, outstanding *[]*runtime.Future, acc *orbits.ResultSet) error {
	ready, remaining := d.rt.Wait(*outstanding, 1)
	// Wait may report more than one completion; take one and leave the
	// rest outstanding so they are merged on later passes.
	*outstanding = append(remaining, ready[1:]...)

	result, err := d.rt.Get(ctx, ready[0])
	if err != nil {
		if m := metrics.Get(); m != nil {
			m.IncChunksFailed()
		}
		return fmt.Errorf("chunk task failed: %w", err)
	}

	st.to(StateMerging)
	acc.Merge(result)

	if m := metrics.Get(); m != nil {
		m.IncChunksProcessed()
		m.SetInFlightChunks(float64(len(*outstanding)))
	}
	return nil
}
