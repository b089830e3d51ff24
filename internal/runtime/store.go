// Package runtime provides the distributed-runtime boundary the dispatcher
// depends on: a shared object store plus task submission, wait, and result
// retrieval. The orchestration core uses only this surface.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a reference does not resolve to a stored
// object.
var ErrNotFound = errors.New("object not found")

// Ref is an opaque, lightweight handle standing for a value placed in the
// shared store. Dereferencing is idempotent and returns the same logical
// value on every worker.
type Ref struct {
	Key string
}

// ObjectStore is the shared-object surface of the runtime: place a value
// once, read it many times, free it explicitly.
type ObjectStore interface {
	// Put places a value and returns its reference.
	Put(ctx context.Context, value any) (Ref, error)

	// Get returns the value behind a reference.
	Get(ctx context.Context, ref Ref) (any, error)

	// Free releases the given references. Freeing bounds shared-store
	// growth across repeated runs; it is a required cleanup step.
	Free(ctx context.Context, refs []Ref) error
}

// MemStore is an in-process object store for the local runtime.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string]any
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string]any)}
}

// Put places a value in the store.
func (s *MemStore) Put(ctx context.Context, value any) (Ref, error) {
	key := uuid.New().String()
	s.mu.Lock()
	s.objects[key] = value
	s.mu.Unlock()
	return Ref{Key: key}, nil
}

// Get returns the value behind a reference.
func (s *MemStore) Get(ctx context.Context, ref Ref) (any, error) {
	s.mu.RLock()
	v, ok := s.objects[ref.Key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref.Key)
	}
	return v, nil
}

// Free removes the referenced values from the store.
func (s *MemStore) Free(ctx context.Context, refs []Ref) error {
	s.mu.Lock()
	for _, r := range refs {
		delete(s.objects, r.Key)
	}
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored objects.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
