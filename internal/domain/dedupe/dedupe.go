// Package dedupe tracks idempotency keys of inventory writes so a retried
// sync does not insert the same component twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 10000

// Entry is the recorded state of one key.
type Entry struct {
	// Done is false while the first request with the key is still running.
	Done bool
	// ComponentID is the stored id once Done.
	ComponentID int
}

// Deduper records idempotency keys to ensure at-most-once inventory writes.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it as
	// pending if not. It returns the existing entry and true if key was
	// already seen.
	SeenAndRecord(ctx context.Context, key string) (Entry, bool)

	// Complete marks key done with the component id it produced.
	Complete(ctx context.Context, key string, componentID int)

	// Unrecord removes a key whose write failed, allowing it to be retried.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type record struct {
	key   string
	entry Entry
}

// inMemoryDeduper keeps at most maxSize keys and evicts the oldest first.
// maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front is the most recently added
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) (Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		return el.Value.(*record).entry, true
	}
	if d.maxSize > 0 {
		for len(d.seen) >= d.maxSize {
			d.evictOldest()
		}
	}
	d.seen[key] = d.order.PushFront(&record{key: key})
	d.size.Add(1)
	return Entry{}, false
}

func (d *inMemoryDeduper) Complete(_ context.Context, key string, componentID int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		el.Value.(*record).entry = Entry{Done: true, ComponentID: componentID}
	}
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
		d.size.Add(-1)
	}
}

// evictOldest drops the least recently added key. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	el := d.order.Back()
	if el == nil {
		return
	}
	d.order.Remove(el)
	delete(d.seen, el.Value.(*record).key)
	d.size.Add(-1)
}

// Size returns the current number of keys in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
