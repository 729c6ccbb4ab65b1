// Package worker defines worker contracts for asynchronous subject checks.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/statwatch/internal/adapters/mq/queue"
	"github.com/okian/statwatch/internal/adapters/notify"
	"github.com/okian/statwatch/internal/adapters/repository"
	"github.com/okian/statwatch/internal/domain/diff"
	"github.com/okian/statwatch/internal/domain/inflight"
	"github.com/okian/statwatch/internal/domain/model"
	"github.com/okian/statwatch/pkg/logger"
	"github.com/okian/statwatch/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	defaultTopSkillChanges  = 5
	poolShutdownTimeout     = 30 * time.Second
)

// Job abstracts what workers read off the queue.
// Using the model.CheckJob type for consistency.
type Job = model.CheckJob

// Fetcher retrieves the current snapshot for a subject.
type Fetcher interface {
	FetchProfile(ctx context.Context, subjectID string) (model.ProfileSnapshot, error)
}

// Store persists snapshots and subscription bookkeeping.
type Store interface {
	LoadSnapshot(ctx context.Context, subjectID string) (model.ProfileSnapshot, error)
	SaveSnapshot(ctx context.Context, snap model.ProfileSnapshot) error
	UpdateSubscription(ctx context.Context, sub model.Subscription) error
}

// Sink delivers change notifications to subscribers.
type Sink interface {
	Notify(ctx context.Context, subscriberID string, rec notify.Record) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes check jobs using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will process any remaining jobs before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing check jobs.
type InMemoryWorker struct {
	queue   Queue
	fetcher Fetcher
	store   Store
	sink    Sink
	guard   inflight.Guard
	name    string

	// Presentation configuration
	topSkillChanges int

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, fetcher Fetcher, store Store, sink Sink, guard inflight.Guard, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:           queue,
		fetcher:         fetcher,
		store:           store,
		sink:            sink,
		guard:           guard,
		name:            "worker", // default name
		topSkillChanges: defaultTopSkillChanges,
		shutdown:        make(chan struct{}),
		done:            make(chan struct{}),
		logger:          logger.Get().Named("worker"), // will be updated by options
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	// Set up logger with worker name if not already set
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	jobChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}

			// Process the job
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing check job",
					logger.String("subjectID", job.Subscription.SubjectID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	// Signal shutdown
	close(w.shutdown)

	// Wait for worker to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob handles a single check job end to end: fetch the live
// snapshot, apply the version gate, compute the delta against the stored
// snapshot, notify the subscriber, and persist the new snapshot.
func (w *InMemoryWorker) processJob(ctx context.Context, job queue.Job) error { //nolint:gocritic // hugeParam: Job must be passed by value for channel semantics
	subjectID := job.Subscription.SubjectID

	// Only one check per subject may be in flight at a time.
	if !w.guard.Acquire(ctx, subjectID) {
		w.logger.Debug(ctx, "check already in flight, skipping",
			logger.String("subjectID", subjectID),
		)
		return nil
	}
	defer func() {
		w.guard.Release(ctx, subjectID)
		metrics.UpdateInflightSubjects(w.guard.Size())
	}()
	metrics.UpdateInflightSubjects(w.guard.Size())

	// Track overall check latency
	start := time.Now()
	defer func() {
		metrics.RecordCheckLatency(float64(time.Since(start).Milliseconds()))
	}()
	metrics.RecordSubjectChecked()

	// Cheap version gate: if the bulk index already told us the subject
	// has not changed since the last notification, skip the fetch.
	if job.KnownVersion != "" && job.KnownVersion == job.Subscription.LastNotifiedVersion {
		metrics.RecordVersionGateSkip()
		return nil
	}

	current, err := w.fetcher.FetchProfile(ctx, subjectID)
	if err != nil {
		metrics.RecordErrorByComponent("worker", "fetch_error")
		return fmt.Errorf("fetching profile for %s: %w", subjectID, err)
	}

	previous, err := w.store.LoadSnapshot(ctx, subjectID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return w.establishBaseline(ctx, job, current)
	case err != nil:
		metrics.RecordErrorByComponent("worker", "store_error")
		return fmt.Errorf("loading snapshot for %s: %w", subjectID, err)
	}

	// A second gate against the stored snapshot covers subjects the bulk
	// index did not mention.
	if previous.Version != "" && previous.Version == current.Version {
		metrics.RecordVersionGateSkip()
		return nil
	}

	delta := diff.Compute(current, previous)
	if delta.Empty() {
		// Nothing material changed; keep the stored version current so the
		// gate holds on the next tick, but send nothing.
		return w.persist(ctx, job, current)
	}
	metrics.RecordDeltaDetected()

	rec := notify.NewUpdateRecord(job.Subscription.SubscriberID, current, delta, w.topSkillChanges)
	if err := w.sink.Notify(ctx, job.Subscription.SubscriberID, rec); err != nil {
		// Delivery failure must not lose the snapshot; the subscriber may
		// receive a duplicate summary next time, never a gap.
		metrics.RecordNotificationFailure()
		metrics.RecordErrorByComponent("worker", "delivery_error")
		w.logger.Error(ctx, "notification delivery failed",
			logger.String("subscriberID", job.Subscription.SubscriberID),
			logger.Error(err),
		)
	} else {
		metrics.RecordNotificationSent()
	}

	return w.persist(ctx, job, current)
}

// establishBaseline stores the first snapshot seen for a subject and sends
// the baseline notification. No delta is computed on first sight.
func (w *InMemoryWorker) establishBaseline(ctx context.Context, job queue.Job, current model.ProfileSnapshot) error {
	metrics.RecordBaselineEstablished()

	rec := notify.NewBaselineRecord(job.Subscription.SubscriberID, current)
	if err := w.sink.Notify(ctx, job.Subscription.SubscriberID, rec); err != nil {
		metrics.RecordNotificationFailure()
		w.logger.Error(ctx, "baseline notification delivery failed",
			logger.String("subscriberID", job.Subscription.SubscriberID),
			logger.Error(err),
		)
	} else {
		metrics.RecordNotificationSent()
	}

	return w.persist(ctx, job, current)
}

// persist saves the snapshot and advances the subscription's notified
// version so subsequent ticks gate on it.
func (w *InMemoryWorker) persist(ctx context.Context, job queue.Job, current model.ProfileSnapshot) error {
	if err := w.store.SaveSnapshot(ctx, current); err != nil {
		metrics.RecordErrorByComponent("worker", "store_error")
		return fmt.Errorf("saving snapshot for %s: %w", current.SubjectID, err)
	}

	sub := job.Subscription
	sub.LastNotifiedVersion = current.Version
	if err := w.store.UpdateSubscription(ctx, sub); err != nil {
		// The subscription may have been removed mid-check; that is fine.
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		metrics.RecordErrorByComponent("worker", "store_error")
		return fmt.Errorf("updating subscription for %s: %w", sub.SubscriberID, err)
	}
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, fetcher Fetcher, store Store, sink Sink, guard inflight.Guard, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(
			queue,
			fetcher,
			store,
			sink,
			guard,
			workerOpts...,
		)
	}

	// Initialize worker metrics
	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new jobs
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Warn(ctx, "error closing queue during shutdown", logger.Error(err))
		}
	}

	// Then shut down each worker, respecting the overall deadline
	deadline, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for _, worker := range p.workers {
		if err := worker.Shutdown(deadline); err != nil {
			return fmt.Errorf("worker shutdown failed: %w", err)
		}
	}
	return nil
}
