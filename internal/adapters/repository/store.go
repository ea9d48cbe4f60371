// Package repository holds the currently published catalog snapshot.
package repository

import (
	"context"

	"github.com/okian/rigmatch/internal/domain/catalog"
)

// Store provides access to the published catalog snapshot.
type Store interface {
	// Current returns the published snapshot, or nil before the first publish.
	Current() *catalog.Snapshot
	// Publish replaces the current snapshot. Older sequence numbers are
	// rejected with ErrStaleSnapshot.
	Publish(ctx context.Context, s *catalog.Snapshot) error
	// Count returns the number of components in the current snapshot.
	Count() int
}
