// Package worker runs queued catalog rebuilds.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/rigmatch/internal/domain/model"
	"github.com/okian/rigmatch/pkg/logger"
	"github.com/okian/rigmatch/pkg/metrics"
)

// Request abstracts what the worker reads off the queue.
type Request = model.RebuildRequest

// Rebuilder rebuilds and publishes the catalog snapshot.
type Rebuilder interface {
	Rebuild(ctx context.Context, r Request) error
}

// RebuilderFunc adapts a function to Rebuilder.
type RebuilderFunc func(ctx context.Context, r Request) error

// Rebuild implements Rebuilder.
func (f RebuilderFunc) Rebuild(ctx context.Context, r Request) error { return f(ctx, r) }

// Queue defines how the worker receives requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Request
}

// Worker consumes rebuild requests.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called
	// or the queue is closed.
	Run(ctx context.Context)

	// Shutdown stops the worker after the rebuild in progress, if any.
	Shutdown(ctx context.Context) error
}

// RebuildWorker is the single consumer of the rebuild queue. Rebuilds run
// one at a time in arrival order.
type RebuildWorker struct {
	queue     Queue
	rebuilder Rebuilder
	name      string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewRebuildWorker creates a worker with configuration options.
func NewRebuildWorker(queue Queue, rebuilder Rebuilder, opts ...Option) *RebuildWorker {
	w := &RebuildWorker{
		queue:     queue,
		rebuilder: rebuilder,
		name:      "rebuild-worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the worker loop.
func (w *RebuildWorker) Run(ctx context.Context) {
	defer close(w.done)

	// the dequeue goroutine stops with this context
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-requests:
			if !ok {
				return
			}
			if err := w.process(ctx, r); err != nil {
				w.logger.Error(ctx, "rebuild failed", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *RebuildWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out", logger.String("worker", w.name))
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *RebuildWorker) process(ctx context.Context, r Request) error { //nolint:gocritic // hugeParam: Request must be passed by value for channel semantics
	w.logger.Info(ctx, "rebuild started",
		logger.String("request_id", r.ID),
		logger.String("reason", r.Reason),
		logger.Duration("waited", time.Since(r.RequestedAt)))

	if err := w.rebuilder.Rebuild(ctx, r); err != nil {
		metrics.RecordErrorByComponent("worker", "rebuild_error")
		return fmt.Errorf("rebuild %s: %w", r.ID, err)
	}
	return nil
}
