package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	goruntime "runtime"
	"time"

	"github.com/B612-Asteroid-Institute/ipod/internal/chunk"
	"github.com/B612-Asteroid-Institute/ipod/internal/metrics"
	"github.com/B612-Asteroid-Institute/ipod/internal/orbits"
	"github.com/B612-Asteroid-Institute/ipod/internal/runtime"
)

// DefaultChunkSize is the nominal identifiers-per-chunk bound.
const DefaultChunkSize = 10

// Run performs iterative precovery and differential correction on the input
// orbits, distributing identifier chunks across the runtime's workers.
// Without a runtime, or with a single-worker one, chunks run sequentially
// in-process.
//
// Inputs may be local values or references to objects already placed in the
// runtime's shared store. The returned quadruple is never nil; with no input
// work it holds four empty collections and neither the dispatcher nor the
// refinement routine is invoked. Any per-item or task failure aborts the
// whole run.
func Run(ctx context.Context, orbitsIn Input[*orbits.Orbits], membersIn Input[*orbits.Members], obsIn Input[*orbits.Observations], opts Options) (*orbits.ResultSet, error) {
	start := time.Now()
	log := slog.With("component", "dispatch")
	st := newTracker(log)

	log.Info("running iterative precovery and differential correction")

	var store runtime.ObjectStore
	if opts.Runtime != nil {
		store = opts.Runtime.Store()
	} else if orbitsIn.IsRef() || membersIn.IsRef() || obsIn.IsRef() {
		return nil, fmt.Errorf("reference inputs require a runtime")
	}

	orbitTable, err := orbitsIn.Materialize(ctx, store)
	if err != nil {
		return nil, err
	}
	memberTable, err := membersIn.Materialize(ctx, store)
	if err != nil {
		return nil, err
	}
	obsTable, err := obsIn.Materialize(ctx, store)
	if err != nil {
		return nil, err
	}

	st.to(StatePlanning)

	if orbitTable == nil || orbitTable.Len() == 0 {
		log.Info("received no orbits or orbit members")
		st.to(StateDone)
		return orbits.EmptyResultSet(), nil
	}

	ids := orbitTable.IDs()
	chunkSize := opts.ChunkSize
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}

	acc := orbits.EmptyResultSet()

	if opts.Runtime != nil && opts.Runtime.Workers() > 1 {
		if err := runDistributed(ctx, st, ids, orbitsIn, membersIn, obsIn, memberTable, obsTable, chunkSize, opts, acc); err != nil {
			st.to(StateAborted)
			return nil, err
		}
	} else {
		// A single-worker runtime gains nothing from broadcast and task
		// submission overhead; run its chunks in-process.
		workers := opts.MaxWorkers
		if opts.Runtime != nil {
			workers = opts.Runtime.Workers()
		}
		if workers < 1 {
			workers = goruntime.NumCPU()
		}
		plan := chunk.NewPlan(len(ids), workers, chunkSize)
		if err := runSequential(ctx, st, plan, ids, orbitTable, memberTable, obsTable, opts.Worker, acc); err != nil {
			st.to(StateAborted)
			return nil, err
		}
	}

	st.to(StateDone)
	if m := metrics.Get(); m != nil {
		m.AddCandidatesFound(float64(acc.Candidates.Len()))
	}
	log.Info("iteratively precovered and differentially corrected orbits",
		"orbits", acc.Orbits.Len(),
		"candidates", acc.Candidates.Len(),
		"duration", time.Since(start).String(),
	)
	return acc, nil
}

// runDistributed broadcasts the shared inputs, plans the chunks against the
// runtime's worker count, and drives the bounded-concurrency dispatcher.
func runDistributed(ctx context.Context, st *tracker, ids []string, orbitsIn Input[*orbits.Orbits], membersIn Input[*orbits.Members], obsIn Input[*orbits.Observations], memberTable *orbits.Members, obsTable *orbits.Observations, chunkSize int, opts Options, acc *orbits.ResultSet) error {
	b := NewBroadcaster(opts.Runtime.Store())
	defer func() {
		// Explicit release bounds shared-store growth across runs; it must
		// happen on the abort path too.
		if err := b.Release(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("failed to release shared-store references", "error", err)
		}
	}()

	_, idsRef, err := place(ctx, b, Value(ids), "orbit_ids")
	if err != nil {
		return err
	}
	_, orbitsRef, err := place(ctx, b, orbitsIn, "orbits")
	if err != nil {
		return err
	}

	var membersRef *runtime.Ref
	if memberTable != nil {
		_, ref, err := place(ctx, b, membersIn, "orbit_members")
		if err != nil {
			return err
		}
		membersRef = &ref
	}
	var obsRef *runtime.Ref
	if obsTable != nil {
		_, ref, err := place(ctx, b, obsIn, "observations")
		if err != nil {
			return err
		}
		obsRef = &ref
	}

	workers := opts.Runtime.Workers()
	plan := chunk.NewPlan(len(ids), workers, chunkSize)
	slog.Info("distributing orbits",
		"chunk_size", plan.Size(),
		"chunks", plan.Count(),
		"workers", workers,
	)

	return NewDispatcher(opts.Runtime).Run(ctx, st, plan, idsRef, orbitsRef, membersRef, obsRef, opts.Worker, acc)
}
