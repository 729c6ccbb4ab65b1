package reconciler

import (
	"time"

	"github.com/okian/statwatch/pkg/logger"
)

// Option applies a configuration option to the Reconciler.
type Option func(*Reconciler)

// WithInterval sets how often slots are reconciled.
func WithInterval(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithCategoryName sets the grouping category the slots live under.
func WithCategoryName(name string) Option {
	return func(r *Reconciler) {
		if name != "" {
			r.category = name
		}
	}
}

// WithLogger sets a custom logger for the reconciler.
func WithLogger(logger logger.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}
