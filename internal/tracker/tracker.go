// Package tracker schedules periodic re-checks of every active subscription.
//
// Each tick pulls the provider's bulk version index once, walks the
// subscription list, and enqueues one check job per subscription that may
// have new data. The heavy lifting (fetch, diff, notify, persist) happens in
// the worker pool; the tracker only decides what is worth checking.
package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/statwatch/internal/domain/model"
	"github.com/okian/statwatch/pkg/logger"
	"github.com/okian/statwatch/pkg/metrics"
)

// Default scheduler configuration constants.
const (
	defaultPollInterval   = 24 * time.Hour
	trackerShutdownWindow = 5 * time.Second
)

// Store lists the subscriptions to re-check.
type Store interface {
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
}

// VersionIndex exposes the provider's bulk update markers.
type VersionIndex interface {
	KnownVersions(ctx context.Context) (map[string]string, error)
}

// Queue accepts check jobs for the worker pool.
type Queue interface {
	Enqueue(ctx context.Context, j model.CheckJob) bool
}

// Tracker runs the polling loop.
type Tracker struct {
	store    Store
	versions VersionIndex
	queue    Queue
	interval time.Duration

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// New creates a tracker with configuration options.
func New(store Store, versions VersionIndex, queue Queue, opts ...Option) *Tracker {
	t := &Tracker{
		store:    store,
		versions: versions,
		queue:    queue,
		interval: defaultPollInterval,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("tracker"),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Run starts the polling loop. The first tick fires immediately so a fresh
// process does not wait a full interval before checking anything. Run blocks
// until ctx is canceled or Shutdown is called.
func (t *Tracker) Run(ctx context.Context) {
	defer close(t.done)

	t.tick(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.shutdown:
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

// Shutdown stops the polling loop and waits for the current tick to finish.
func (t *Tracker) Shutdown(ctx context.Context) error {
	close(t.shutdown)

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("tracker shutdown timed out: %w", ctx.Err())
	case <-time.After(trackerShutdownWindow):
		return fmt.Errorf("tracker shutdown timed out after %s", trackerShutdownWindow)
	}
}

// tick enqueues one check job per subscription that may have new data.
// A failure for one subject never blocks the rest of the list.
func (t *Tracker) tick(ctx context.Context) {
	metrics.RecordPollTick()

	subs, err := t.store.ListSubscriptions(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("tracker", "list_error")
		t.logger.Error(ctx, "listing subscriptions failed", logger.Error(err))
		return
	}
	metrics.UpdateTrackedSubjects(len(subs))

	if len(subs) == 0 {
		return
	}

	// The bulk index is an optimization; when it is unavailable every
	// subscription is checked the expensive way.
	index, err := t.versions.KnownVersions(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("tracker", "index_error")
		t.logger.Warn(ctx, "bulk version index unavailable, checking all subjects",
			logger.Error(err),
		)
		index = nil
	}

	enqueued := 0
	for _, sub := range subs {
		known, indexed := index[sub.SubjectID]
		if index != nil && !indexed {
			// The provider has no update marker for this subject; there is
			// nothing to compare against, so skip until it shows up.
			t.logger.Warn(ctx, "subject missing from bulk index, skipping",
				logger.String("subjectID", sub.SubjectID),
			)
			continue
		}

		// Cheap gate: the index says the subject has not changed since the
		// last delivered notification.
		if indexed && known == sub.LastNotifiedVersion && sub.LastNotifiedVersion != "" {
			metrics.RecordVersionGateSkip()
			continue
		}

		job := model.CheckJob{Subscription: sub, KnownVersion: known}
		if !t.queue.Enqueue(ctx, job) {
			t.logger.Warn(ctx, "queue rejected check job",
				logger.String("subjectID", sub.SubjectID),
			)
			continue
		}
		enqueued++
	}

	t.logger.Info(ctx, "poll tick complete",
		logger.Int("subscriptions", len(subs)),
		logger.Int("enqueued", enqueued),
	)
}
