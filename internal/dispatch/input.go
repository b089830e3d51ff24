package dispatch

import (
	"context"
	"fmt"

	"github.com/B612-Asteroid-Institute/ipod/internal/runtime"
)

// Input is a tagged value-or-reference: a caller may hand the orchestrator
// either a local value or a reference to one already placed in the shared
// store. It is resolved exactly once at the broadcaster boundary.
type Input[T any] struct {
	value    T
	ref      *runtime.Ref
	hasValue bool
}

// Value wraps a local value.
func Value[T any](v T) Input[T] {
	return Input[T]{value: v, hasValue: true}
}

// Reference wraps a pre-placed shared-store reference.
func Reference[T any](ref runtime.Ref) Input[T] {
	return Input[T]{ref: &ref}
}

// IsRef reports whether the input is a reference.
func (in Input[T]) IsRef() bool { return in.ref != nil }

// Materialize resolves the input to a local value. References are read back
// from the store; values pass through.
func (in Input[T]) Materialize(ctx context.Context, store runtime.ObjectStore) (T, error) {
	if in.hasValue {
		return in.value, nil
	}
	var zero T
	if in.ref == nil {
		return zero, nil
	}
	obj, err := store.Get(ctx, *in.ref)
	if err != nil {
		return zero, fmt.Errorf("materialize reference %s: %w", in.ref.Key, err)
	}
	v, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("reference %s holds %T, not the expected type", in.ref.Key, obj)
	}
	return v, nil
}
