package repository

import "fmt"

// openOptions holds SQLite connection pragmas applied via the DSN.
type openOptions struct {
	journalMode   string
	busyTimeoutMS int
	synchronous   string
}

func defaultOpenOptions() openOptions {
	return openOptions{
		journalMode:   "WAL",
		busyTimeoutMS: 5000,
		synchronous:   "NORMAL",
	}
}

func (o openOptions) dsnParams() string {
	return fmt.Sprintf("?_journal_mode=%s&_busy_timeout=%d&_synchronous=%s",
		o.journalMode, o.busyTimeoutMS, o.synchronous)
}

// Option applies a configuration option to Open.
type Option func(*openOptions)

// WithJournalMode overrides the SQLite journal mode (default WAL).
func WithJournalMode(mode string) Option {
	return func(o *openOptions) {
		if mode != "" {
			o.journalMode = mode
		}
	}
}

// WithBusyTimeout sets the SQLite busy timeout in milliseconds.
func WithBusyTimeout(ms int) Option {
	return func(o *openOptions) {
		if ms > 0 {
			o.busyTimeoutMS = ms
		}
	}
}
