package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/rigmatch/internal/domain/catalog"
	"github.com/okian/rigmatch/internal/domain/model"
)

func buildSnapshot(t *testing.T, seq uint64, n int) *catalog.Snapshot {
	t.Helper()
	comps := make([]model.Component, n)
	for i := range comps {
		comps[i] = model.Component{
			ID:       i + 1,
			Category: model.CategoryPSU,
			Brand:    "brand",
			Specs:    model.PSUSpecs{Wattage: model.Float(float64(500 + 50*i))},
		}
	}
	snap, err := catalog.Build(comps, seq)
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}
	return snap
}

func TestSnapshotStore_PublishAndCurrent(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	if store.Current() != nil {
		t.Fatal("expected no snapshot before publish")
	}
	if count := store.Count(); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}

	first := buildSnapshot(t, store.NextSeq(), 3)
	if err := store.Publish(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Current() != first {
		t.Error("expected first snapshot to be current")
	}
	if count := store.Count(); count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}

	second := buildSnapshot(t, store.NextSeq(), 5)
	if err := store.Publish(ctx, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Current() != second {
		t.Error("expected second snapshot to be current")
	}
}

func TestSnapshotStore_RejectsStale(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	old := buildSnapshot(t, store.NextSeq(), 2)
	newer := buildSnapshot(t, store.NextSeq(), 4)
	if err := store.Publish(ctx, newer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Publish(ctx, old); !errors.Is(err, ErrStaleSnapshot) {
		t.Errorf("expected ErrStaleSnapshot, got %v", err)
	}
	if store.Current() != newer {
		t.Error("stale publish must not replace the current snapshot")
	}
	if err := store.Publish(ctx, nil); !errors.Is(err, ErrNilSnapshot) {
		t.Errorf("expected ErrNilSnapshot, got %v", err)
	}
}

func TestSnapshotStore_RestoredSeqAdvancesAllocator(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	restored := buildSnapshot(t, 41, 2)
	if err := store.Publish(ctx, restored); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next := store.NextSeq(); next != 42 {
		t.Errorf("expected next seq 42, got %d", next)
	}
}

func TestSnapshotStore_ConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()
	if err := store.Publish(ctx, buildSnapshot(t, store.NextSeq(), 2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := store.Current()
				// every reader sees a self-consistent snapshot
				if snap.Len() != snap.Index.Len() || snap.Len() != len(snap.Texts) {
					t.Errorf("inconsistent snapshot: %d components, %d rows", snap.Len(), snap.Index.Len())
					return
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		if err := store.Publish(ctx, buildSnapshot(t, store.NextSeq(), 2+i%5)); err != nil {
			t.Errorf("publish %d: %v", i, err)
		}
	}
	close(stop)
	wg.Wait()
}
