package dispatch

import (
	"context"
	"log/slog"

	"github.com/B612-Asteroid-Institute/ipod/internal/runtime"
)

// Broadcaster places large read-mostly inputs into the shared object store
// at most once per run. References it placed itself are recorded so they can
// be released explicitly at the end of dispatch; pre-existing references
// supplied by the caller pass through unrecorded and are the caller's to
// free.
type Broadcaster struct {
	store  runtime.ObjectStore
	placed []runtime.Ref
	log    *slog.Logger
}

// NewBroadcaster creates a broadcaster over the runtime's object store.
func NewBroadcaster(store runtime.ObjectStore) *Broadcaster {
	return &Broadcaster{store: store, log: slog.With("component", "broadcast")}
}

// place resolves an input to (local value, shared reference). A value input
// is placed in the store and its reference recorded for release; a
// reference input is read back locally and passed through unchanged.
func place[T any](ctx context.Context, b *Broadcaster, in Input[T], name string) (T, runtime.Ref, error) {
	var zero T
	if in.IsRef() {
		v, err := in.Materialize(ctx, b.store)
		if err != nil {
			return zero, runtime.Ref{}, err
		}
		b.log.Info("retrieved input from the object store", "input", name)
		return v, *in.ref, nil
	}

	v, err := in.Materialize(ctx, b.store)
	if err != nil {
		return zero, runtime.Ref{}, err
	}
	ref, err := b.store.Put(ctx, v)
	if err != nil {
		return zero, runtime.Ref{}, err
	}
	b.placed = append(b.placed, ref)
	b.log.Info("placed input in the object store", "input", name)
	return v, ref, nil
}

// Release frees every reference this run placed. Required cleanup: shared
// store growth across repeated runs is bounded only by explicit release.
func (b *Broadcaster) Release(ctx context.Context) error {
	if len(b.placed) == 0 {
		return nil
	}
	if err := b.store.Free(ctx, b.placed); err != nil {
		return err
	}
	b.log.Info("removed references from the object store", "count", len(b.placed))
	b.placed = nil
	return nil
}
