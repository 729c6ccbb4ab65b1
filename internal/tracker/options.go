package tracker

import (
	"time"

	"github.com/okian/statwatch/pkg/logger"
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithInterval sets how often the subscription list is re-checked.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithLogger sets a custom logger for the tracker.
func WithLogger(logger logger.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}
