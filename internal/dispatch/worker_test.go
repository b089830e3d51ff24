package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/B612-Asteroid-Institute/ipod/internal/orbits"
	"github.com/B612-Asteroid-Institute/ipod/internal/precovery"
)

func TestRunChunkClosesIndexOnFailure(t *testing.T) {
	refiner := newFakeRefiner()
	refiner.failIDs["orbit-b"] = true
	idx := &fakeIndex{}
	orb, _, _ := testInputs(3)

	_, err := RunChunk(context.Background(), orb.IDs(), orb, nil, nil, testWorker(refiner, idx))
	if err == nil {
		t.Fatal("RunChunk succeeded despite failing orbit")
	}
	if idx.closed != 1 {
		t.Errorf("index closed %d times, want 1", idx.closed)
	}
}

func TestRunChunkOpenIndexError(t *testing.T) {
	refiner := newFakeRefiner()
	orb, _, _ := testInputs(2)

	boom := errors.New("no such index")
	cfg := WorkerConfig{
		Refiner:   refiner,
		OpenIndex: func() (precovery.Index, error) { return nil, boom },
	}

	_, err := RunChunk(context.Background(), orb.IDs(), orb, nil, nil, cfg)
	if !errors.Is(err, boom) {
		t.Fatalf("RunChunk error = %v, want open error", err)
	}
	if refiner.callCount() != 0 {
		t.Errorf("refiner invoked %d times after failed open, want 0", refiner.callCount())
	}
}

func TestRunChunkUnknownOrbit(t *testing.T) {
	refiner := newFakeRefiner()
	idx := &fakeIndex{}
	orb, _, _ := testInputs(2)

	_, err := RunChunk(context.Background(), []string{"orbit-a", "nope"}, orb, nil, nil, testWorker(refiner, idx))
	if !errors.Is(err, orbits.ErrOrbitNotFound) {
		t.Fatalf("RunChunk error = %v, want ErrOrbitNotFound", err)
	}
	if idx.closed != 1 {
		t.Errorf("index closed %d times, want 1", idx.closed)
	}
}

func TestRunChunkProducesNoPartialResults(t *testing.T) {
	refiner := newFakeRefiner()
	refiner.failIDs["orbit-c"] = true
	idx := &fakeIndex{}
	orb, _, _ := testInputs(3)

	result, err := RunChunk(context.Background(), orb.IDs(), orb, nil, nil, testWorker(refiner, idx))
	if err == nil {
		t.Fatal("RunChunk succeeded despite failing orbit")
	}
	if result != nil {
		t.Error("failed chunk returned a partial result set")
	}
}
