// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file backing snapshots, subscriptions
	// and display slots.
	DBPath string `koanf:"db_path"`

	// ProviderBaseURL is the base URL of the profile provider.
	ProviderBaseURL string `koanf:"provider_base_url"`

	// ProviderTimeoutMS bounds a single provider request.
	ProviderTimeoutMS int `koanf:"provider_timeout_ms"`

	// PollIntervalMinutes sets how often the tracker re-checks every
	// subscription. The first run happens immediately at startup.
	PollIntervalMinutes int `koanf:"poll_interval_minutes"`

	// ReconcileIntervalMinutes sets how often aggregate display slots are
	// reconciled.
	ReconcileIntervalMinutes int `koanf:"reconcile_interval_minutes"`

	// WorkerCount sets the number of check workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory check-job queue.
	QueueSize int `koanf:"queue_size"`

	// NotifyWebhookURL, when set, delivers notification records as JSON to
	// this endpoint. Empty means records are only logged.
	NotifyWebhookURL string `koanf:"notify_webhook_url"`

	// NotifyTimeoutMS bounds a single notification dispatch.
	NotifyTimeoutMS int `koanf:"notify_timeout_ms"`

	// DisplayBaseURL is the base URL of the display resource API. Empty
	// disables the aggregate reconciler.
	DisplayBaseURL string `koanf:"display_base_url"`

	// DisplayCategory names the grouping container holding the stat slots.
	DisplayCategory string `koanf:"display_category"`

	// DisplayTimeoutMS bounds a single display API request.
	DisplayTimeoutMS int `koanf:"display_timeout_ms"`

	// TopSkillChanges caps how many skill changes a notification shows.
	TopSkillChanges int `koanf:"top_skill_changes"`
}

// Default interval and sizing constants.
const (
	defaultPollIntervalMinutes      = 24 * 60
	defaultReconcileIntervalMinutes = 10
	defaultTimeoutMS                = 10_000
	defaultQueueSize                = 1024
	defaultTopSkillChanges          = 5
)

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use and currently
// unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                 "info",
		Addr:                     ":9080",
		DBPath:                   "statwatch.db",
		ProviderBaseURL:          "https://players.tarkov.dev",
		ProviderTimeoutMS:        defaultTimeoutMS,
		PollIntervalMinutes:      defaultPollIntervalMinutes,
		ReconcileIntervalMinutes: defaultReconcileIntervalMinutes,
		WorkerCount:              runtime.NumCPU(),
		QueueSize:                defaultQueueSize,
		NotifyTimeoutMS:          defaultTimeoutMS,
		DisplayCategory:          "tracker stats",
		DisplayTimeoutMS:         defaultTimeoutMS,
		TopSkillChanges:          defaultTopSkillChanges,
	}
}
