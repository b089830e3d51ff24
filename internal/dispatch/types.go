// Package dispatch is the orchestration core: it broadcasts shared inputs,
// plans chunks, runs per-chunk workers under bounded concurrency (or
// sequentially when no runtime is available), and streams chunk results
// into the run's four accumulated batches.
package dispatch

import (
	"log/slog"

	"github.com/B612-Asteroid-Institute/ipod/internal/precovery"
	"github.com/B612-Asteroid-Institute/ipod/internal/refine"
	"github.com/B612-Asteroid-Institute/ipod/internal/runtime"
)

// RunState tracks the lifecycle of one orchestration run.
type RunState int

const (
	StateEmpty RunState = iota
	StatePlanning
	StateDispatching
	StateMerging
	StateDone
	StateAborted
)

// String returns the state name.
func (s RunState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePlanning:
		return "planning"
	case StateDispatching:
		return "dispatching"
	case StateMerging:
		return "merging"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// tracker records state transitions for one run.
type tracker struct {
	state RunState
	log   *slog.Logger
}

func newTracker(log *slog.Logger) *tracker {
	return &tracker{state: StateEmpty, log: log}
}

func (t *tracker) to(s RunState) {
	if t.state == s {
		return
	}
	t.log.Debug("run state", "from", t.state.String(), "to", s.String())
	t.state = s
}

// WorkerConfig is everything a chunk worker needs besides its identifier
// range and the shared tables.
type WorkerConfig struct {
	Refiner   refine.Refiner
	OpenIndex precovery.Opener
	Params    refine.Params
}

// Options configures a run of the orchestration entry point.
type Options struct {
	// Runtime is the distributed runtime; nil selects the sequential
	// fallback path.
	Runtime runtime.Runtime

	// ChunkSize is the nominal (maximum) identifiers per chunk.
	ChunkSize int

	// MaxWorkers sizes the sequential path's chunk planning when no
	// runtime is present; 0 means all local cores.
	MaxWorkers int

	Worker WorkerConfig
}
