package runtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/B612-Asteroid-Institute/ipod/internal/orbits"
)

// Task is one unit of submitted work: a chunk computation producing a
// result quadruple.
type Task func(ctx context.Context) (*orbits.ResultSet, error)

// Future is the handle for a submitted task. It completes exactly once.
type Future struct {
	done   bool
	result *orbits.ResultSet
	err    error
}

// Runtime is the task surface of the distributed runtime boundary.
type Runtime interface {
	// Store returns the runtime's shared object store.
	Store() ObjectStore

	// Submit schedules a task and returns its future.
	Submit(ctx context.Context, task Task) (*Future, error)

	// Wait blocks until at least n of the given futures are complete and
	// partitions them into (ready, remaining).
	Wait(futures []*Future, n int) (ready, remaining []*Future)

	// Get returns the result of a completed future, blocking if needed.
	Get(ctx context.Context, f *Future) (*orbits.ResultSet, error)

	// Workers returns the worker count the runtime schedules onto.
	Workers() int
}

// ErrClosed is returned when submitting to a closed runtime.
var ErrClosed = errors.New("runtime closed")

type submission struct {
	ctx  context.Context
	task Task
	fut  *Future
}

// Local is an in-process runtime: a fixed pool of single-threaded workers
// fed from a queue. Futures complete in whatever order workers finish;
// completion is signalled through a condition variable so Wait can block
// for "at least one of these".
type Local struct {
	workers int
	store   ObjectStore
	queue   chan submission
	log     *slog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	closed bool
}

// NewLocal creates a local runtime with the given worker count and object
// store. A nil store defaults to an in-memory store.
func NewLocal(workers int, store ObjectStore) *Local {
	if workers < 1 {
		workers = 1
	}
	if store == nil {
		store = NewMemStore()
	}
	l := &Local{
		workers: workers,
		store:   store,
		queue:   make(chan submission, workers*4),
		log:     slog.With("component", "runtime"),
	}
	l.cond = sync.NewCond(&l.mu)
	for i := 0; i < workers; i++ {
		go l.workerLoop(i)
	}
	return l
}

func (l *Local) workerLoop(id int) {
	for sub := range l.queue {
		result, err := sub.task(sub.ctx)

		l.mu.Lock()
		sub.fut.result = result
		sub.fut.err = err
		sub.fut.done = true
		l.cond.Broadcast()
		l.mu.Unlock()
	}
}

// Store returns the runtime's shared object store.
func (l *Local) Store() ObjectStore { return l.store }

// Workers returns the pool size.
func (l *Local) Workers() int { return l.workers }

// Submit schedules a task onto the pool.
func (l *Local) Submit(ctx context.Context, task Task) (*Future, error) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	fut := &Future{}
	select {
	case l.queue <- submission{ctx: ctx, task: task, fut: fut}:
		return fut, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Wait blocks until at least n of the given futures have completed, then
// partitions them into (ready, remaining). n is clamped to len(futures).
func (l *Local) Wait(futures []*Future, n int) (ready, remaining []*Future) {
	if n > len(futures) {
		n = len(futures)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		ready = ready[:0]
		remaining = remaining[:0]
		for _, f := range futures {
			if f.done {
				ready = append(ready, f)
			} else {
				remaining = append(remaining, f)
			}
		}
		if len(ready) >= n {
			return ready, remaining
		}
		l.cond.Wait()
	}
}

// Get returns the result of a future, blocking until it completes.
func (l *Local) Get(ctx context.Context, f *Future) (*orbits.ResultSet, error) {
	l.mu.Lock()
	for !f.done {
		l.cond.Wait()
	}
	result, err := f.result, f.err
	l.mu.Unlock()
	return result, err
}

// Close stops accepting submissions and lets in-flight tasks finish.
func (l *Local) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()
	close(l.queue)
}
