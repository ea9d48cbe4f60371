package repository

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/okian/rigmatch/internal/domain/catalog"
	"github.com/okian/rigmatch/internal/domain/model"
	"github.com/okian/rigmatch/pkg/logger"
	"github.com/okian/rigmatch/pkg/metrics"
)

// SnapshotStore publishes immutable catalog snapshots through an atomic
// pointer. Readers never block and always see a complete snapshot.
type SnapshotStore struct {
	// snapshot is atomic pointer to the published catalog
	snapshot atomic.Pointer[catalog.Snapshot]
	seq      atomic.Uint64
	log      logger.Logger
}

// NewSnapshotStore constructs an empty store with configuration options.
func NewSnapshotStore(opts ...Option) *SnapshotStore {
	s := &SnapshotStore{log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextSeq allocates the sequence number for the next snapshot build.
func (s *SnapshotStore) NextSeq() uint64 {
	return s.seq.Add(1)
}

// Current returns the published snapshot or nil.
func (s *SnapshotStore) Current() *catalog.Snapshot {
	return s.snapshot.Load()
}

// Publish swaps in snap unless a snapshot with the same or a newer
// sequence number is already published.
func (s *SnapshotStore) Publish(ctx context.Context, snap *catalog.Snapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}
	for {
		cur := s.snapshot.Load()
		if cur != nil && snap.Seq <= cur.Seq {
			return fmt.Errorf("%w: seq %d, published %d", ErrStaleSnapshot, snap.Seq, cur.Seq)
		}
		if s.snapshot.CompareAndSwap(cur, snap) {
			break
		}
	}
	// keep allocation ahead of restored snapshots
	for {
		n := s.seq.Load()
		if n >= snap.Seq || s.seq.CompareAndSwap(n, snap.Seq) {
			break
		}
	}

	counts := snap.Counts()
	for _, c := range model.Categories() {
		metrics.UpdateCatalogComponents(c.String(), counts[c])
	}
	metrics.RecordSnapshotPublished(snap.Seq, snap.Index.VocabularySize(), snap.BuiltAt)
	s.log.Info(ctx, "snapshot published",
		logger.String("version", snap.Version),
		logger.Int64("seq", int64(snap.Seq)),
		logger.Int("components", snap.Len()),
		logger.Int("vocabulary", snap.Index.VocabularySize()))
	return nil
}

// Count returns the number of components in the current snapshot.
func (s *SnapshotStore) Count() int {
	return s.Current().Len()
}
