// Package inventory answers whether a component is stocked in the live
// inventory and loads the stocked components into the catalog.
package inventory

import (
	"context"
	"sync"

	"github.com/okian/rigmatch/internal/domain/model"
)

// Oracle answers whether a component is present in the live inventory.
type Oracle interface {
	Exists(ctx context.Context, id int, category model.Category) (bool, error)
}

// StaticOracle is an in-memory key set.
type StaticOracle struct {
	mu   sync.RWMutex
	keys map[model.Key]struct{}
}

// NewStaticOracle returns an oracle that reports keys as present.
func NewStaticOracle(keys ...model.Key) *StaticOracle {
	o := &StaticOracle{keys: make(map[model.Key]struct{}, len(keys))}
	for _, k := range keys {
		o.keys[k] = struct{}{}
	}
	return o
}

// Add marks k as present.
func (o *StaticOracle) Add(k model.Key) {
	o.mu.Lock()
	o.keys[k] = struct{}{}
	o.mu.Unlock()
}

// Exists implements Oracle.
func (o *StaticOracle) Exists(_ context.Context, id int, category model.Category) (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.keys[model.Key{ID: id, Category: category}]
	return ok, nil
}
