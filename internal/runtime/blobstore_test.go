package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/B612-Asteroid-Institute/ipod/internal/orbits"
)

func openTestBlobStore(t *testing.T) *BlobStore {
	t.Helper()
	dir := t.TempDir()
	store, err := OpenBlobStore(context.Background(), "file://"+dir, "objects/")
	if err != nil {
		t.Fatalf("OpenBlobStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBlobStoreRoundTrip(t *testing.T) {
	store := openTestBlobStore(t)
	ctx := context.Background()

	table := orbits.NewOrbits([]orbits.FittedOrbit{
		{OrbitID: "a", EpochMJD: 60000, RADeg: 12.5, DecDeg: -3.25},
		{OrbitID: "b", EpochMJD: 60010, RADeg: 200.0, DecDeg: 45.0},
	})

	ref, err := store.Put(ctx, table)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	v, err := store.Get(ctx, ref)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	got, ok := v.(*orbits.Orbits)
	if !ok {
		t.Fatalf("Get returned %T, want *orbits.Orbits", v)
	}
	if got.Len() != 2 {
		t.Fatalf("decoded table has %d rows, want 2", got.Len())
	}
	if got.Rows()[1].RADeg != 200.0 {
		t.Errorf("decoded row mismatch: %+v", got.Rows()[1])
	}
}

func TestBlobStorePutIDs(t *testing.T) {
	store := openTestBlobStore(t)
	ctx := context.Background()

	ref, err := store.Put(ctx, []string{"orbit-1", "orbit-2", "orbit-3"})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	v, err := store.Get(ctx, ref)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	ids, ok := v.([]string)
	if !ok || len(ids) != 3 || ids[2] != "orbit-3" {
		t.Errorf("Get returned %T %v", v, v)
	}
}

func TestBlobStoreFree(t *testing.T) {
	store := openTestBlobStore(t)
	ctx := context.Background()

	ref, err := store.Put(ctx, []string{"x"})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := store.Free(ctx, []Ref{ref}); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	if _, err := store.Get(ctx, ref); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Free error = %v, want ErrNotFound", err)
	}
}
