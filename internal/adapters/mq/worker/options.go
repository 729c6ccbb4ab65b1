// Package worker defines worker contracts for asynchronous subject checks.
package worker

import (
	"github.com/okian/statwatch/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithTopSkillChanges sets how many skill changes are surfaced per update.
func WithTopSkillChanges(n int) Option {
	return func(w *InMemoryWorker) {
		if n > 0 {
			w.topSkillChanges = n
		}
	}
}
