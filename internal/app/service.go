// Package service provides the core business service that wires the tracking
// pipeline together and implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	checkqueue "github.com/okian/statwatch/internal/adapters/mq/queue"
	workerpool "github.com/okian/statwatch/internal/adapters/mq/worker"
	"github.com/okian/statwatch/internal/adapters/notify"
	"github.com/okian/statwatch/internal/adapters/repository"
	"github.com/okian/statwatch/internal/domain/inflight"
	"github.com/okian/statwatch/internal/domain/model"
	"github.com/okian/statwatch/pkg/logger"
	"github.com/okian/statwatch/pkg/metrics"
)

// Provider is the slice of the profile provider the service consumes.
type Provider interface {
	FetchProfile(ctx context.Context, subjectID string) (model.ProfileSnapshot, error)
	ResolveSubjectID(ctx context.Context, displayName string) (string, error)
	KnownVersions(ctx context.Context) (map[string]string, error)
}

// Service owns the check queue, the worker pool, and the subscription
// command surface.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	provider   Provider
	sink       notify.Sink
	checkQueue checkqueue.Queue
	guard      inflight.Guard
	workerPool *workerpool.Pool

	// Configuration
	workerCount     int
	queueSize       int
	topSkillChanges int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the check queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithTopSkillChanges sets how many skill changes notifications surface.
func WithTopSkillChanges(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topSkillChanges = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service over the given store, provider, and sink.
func New(store repository.Store, provider Provider, sink notify.Sink, opts ...Option) *Service {
	s := &Service{
		store:           store,
		provider:        provider,
		sink:            sink,
		workerCount:     runtime.NumCPU(),
		queueSize:       1024,
		topSkillChanges: 5,
		logger:          nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the queue and the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting tracking service...")

	s.guard = inflight.NewInMemoryGuard()
	s.checkQueue = checkqueue.NewInMemoryQueue(
		checkqueue.WithCapacity(s.queueSize),
		checkqueue.WithBufferSize(s.queueSize),
	)

	s.workerPool = workerpool.NewPool(
		s.workerCount,
		s.checkQueue,
		s.provider,
		s.store,
		s.sink,
		s.guard,
		workerpool.WithTopSkillChanges(s.topSkillChanges),
	)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "tracking service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping tracking service...")

	if s.workerPool != nil {
		if err := s.workerPool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "tracking service stopped")
}

// Enqueue submits a check job for asynchronous processing.
func (s *Service) Enqueue(ctx context.Context, j model.CheckJob) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return false
	}
	return s.checkQueue.Enqueue(ctx, j)
}

// Track resolves a display name to a subject and starts tracking it for the
// subscriber. The subscriber immediately receives a baseline notification.
// A subscriber already tracking a subject gets repository.ErrConflict.
func (s *Service) Track(ctx context.Context, subscriberID, displayName string) (model.Subscription, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return model.Subscription{}, ErrNotStarted
	}

	subjectID, err := s.provider.ResolveSubjectID(ctx, displayName)
	if err != nil {
		return model.Subscription{}, fmt.Errorf("%w: %q: %w", ErrUnknownSubject, displayName, err)
	}

	versions, err := s.provider.KnownVersions(ctx)
	if err != nil {
		return model.Subscription{}, fmt.Errorf("fetching version index: %w", err)
	}
	version, ok := versions[subjectID]
	if !ok {
		return model.Subscription{}, fmt.Errorf("%w: %s", ErrNoVersionMarker, subjectID)
	}

	sub := model.Subscription{
		SubscriberID:        subscriberID,
		SubjectID:           subjectID,
		LastNotifiedVersion: version,
		CreatedAt:           time.Now().UTC(),
	}
	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		return model.Subscription{}, err
	}

	// Establish the baseline now rather than waiting for the next tick.
	snap, err := s.provider.FetchProfile(ctx, subjectID)
	if err != nil {
		// The subscription stands; the scheduler will baseline later.
		s.logger.Warn(ctx, "baseline fetch failed, deferring to scheduler",
			logger.String("subjectID", subjectID),
			logger.Error(err),
		)
		return sub, nil
	}
	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		s.logger.Error(ctx, "baseline snapshot save failed",
			logger.String("subjectID", subjectID),
			logger.Error(err),
		)
		return sub, nil
	}
	metrics.RecordBaselineEstablished()

	rec := notify.NewBaselineRecord(subscriberID, snap)
	if err := s.sink.Notify(ctx, subscriberID, rec); err != nil {
		metrics.RecordNotificationFailure()
		s.logger.Error(ctx, "baseline notification failed",
			logger.String("subscriberID", subscriberID),
			logger.Error(err),
		)
	} else {
		metrics.RecordNotificationSent()
	}

	return sub, nil
}

// Untrack stops tracking for the subscriber and deletes the stored snapshot.
// Untracking a subscriber with no subscription is a no-op.
func (s *Service) Untrack(ctx context.Context, subscriberID string) error {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	sub, err := s.store.GetSubscription(ctx, subscriberID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading subscription: %w", err)
	}

	if err := s.store.DeleteSubscription(ctx, subscriberID); err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}
	if err := s.store.DeleteSnapshot(ctx, sub.SubjectID); err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}

	s.logger.Info(ctx, "subscription removed",
		logger.String("subscriberID", subscriberID),
		logger.String("subjectID", sub.SubjectID),
	)
	return nil
}

// Subscriptions lists every active subscription.
func (s *Service) Subscriptions(ctx context.Context) ([]model.Subscription, error) {
	return s.store.ListSubscriptions(ctx)
}

// Stats returns the current rendered summary for the subscriber's tracked
// subject, fetched live from the provider.
func (s *Service) Stats(ctx context.Context, subscriberID string) (notify.Summary, error) {
	sub, err := s.store.GetSubscription(ctx, subscriberID)
	if err != nil {
		return notify.Summary{}, err
	}

	snap, err := s.provider.FetchProfile(ctx, sub.SubjectID)
	if err != nil {
		return notify.Summary{}, fmt.Errorf("fetching profile: %w", err)
	}
	return notify.Summarize(snap), nil
}

// QueueLen reports the number of pending check jobs.
func (s *Service) QueueLen(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return 0
	}
	return s.checkQueue.Len(ctx)
}
