// Package queue carries rebuild requests to the rebuild worker.
//
// The queue is small and bounded. A rebuild always reads the latest catalog,
// so a request arriving while the queue is full is folded into the newest
// pending request instead of being rejected.
package queue

import (
	"context"
	"sync"

	"github.com/okian/rigmatch/internal/domain/model"
	"github.com/okian/rigmatch/pkg/metrics"
)

const defaultQueueCapacity = 1

// Request is the payload flowing through the queue.
type Request = model.RebuildRequest

// Result reports what happened to an enqueued request.
type Result struct {
	// ID of the pending request that will serve the caller. It differs from
	// the submitted id when the request was coalesced.
	ID        string
	Coalesced bool
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds r, or coalesces it into the newest pending request when
	// the queue is full.
	Enqueue(ctx context.Context, r Request) (Result, error)

	// Dequeue returns a channel that will receive requests as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Request

	// Len returns the number of pending requests.
	Len(ctx context.Context) int

	// Close stops accepting requests and closes the dequeue channel.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	requests chan Request
	capacity int

	mu     sync.Mutex
	last   string // id of the newest request handed to the channel
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.requests = make(chan Request, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a request to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return Result{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return Result{}, ErrClosed
	}

	select {
	case q.requests <- r:
		q.last = r.ID
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.requests))
		return Result{ID: r.ID}, nil
	default:
		// full: the newest request is still waiting and will observe the
		// catalog state this caller wants rebuilt
		metrics.RecordQueueCoalesced()
		return Result{ID: q.last, Coalesced: true}, nil
	}
}

// Dequeue returns a channel that will receive requests as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Request {
	out := make(chan Request)
	go func() {
		defer close(out)
		for {
			select {
			case r, ok := <-q.requests:
				if !ok {
					return
				}
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.requests))
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of pending requests.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.requests)
	metrics.UpdateQueueSize(size)
	return size
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int { return q.capacity }

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.requests)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
