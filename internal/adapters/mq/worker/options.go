package worker

import (
	"github.com/okian/rigmatch/pkg/logger"
)

// Option applies a configuration option to the RebuildWorker.
type Option func(*RebuildWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *RebuildWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *RebuildWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}
