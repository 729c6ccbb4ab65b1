// Package reconciler converges external display resources toward the current
// cross-subject aggregates.
//
// Each run recomputes the desired label for every display slot (average
// level, average K/D, average survival percentage, tracked-subject count) and
// converges the external resource toward it: create when no resource id is
// persisted, relabel when one is, recreate when the external side deleted the
// resource out from under us.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/statwatch/internal/adapters/display"
	"github.com/okian/statwatch/internal/adapters/repository"
	"github.com/okian/statwatch/internal/domain/model"
	"github.com/okian/statwatch/internal/domain/stats"
	"github.com/okian/statwatch/pkg/logger"
	"github.com/okian/statwatch/pkg/metrics"
)

// Default reconciler configuration constants.
const (
	defaultInterval     = 10 * time.Minute
	defaultCategoryName = "tracker stats"
	shutdownWindow      = 5 * time.Second
)

// Store provides the subscription list and the persisted slot map.
type Store interface {
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	GetSlot(ctx context.Context, metric string) (string, error)
	PutSlot(ctx context.Context, metric, resourceID string) error
}

// Fetcher retrieves the current snapshot for a subject.
type Fetcher interface {
	FetchProfile(ctx context.Context, subjectID string) (model.ProfileSnapshot, error)
}

// aggregate holds the cross-subject averages for one run.
type aggregate struct {
	avgLevel    float64
	avgKD       float64
	avgSurvival float64
	tracked     int
}

// Reconciler runs the periodic slot convergence loop.
type Reconciler struct {
	store    Store
	fetcher  Fetcher
	manager  display.Manager
	interval time.Duration
	category string

	// Serializes runs; an overlapping tick is skipped, never queued.
	running sync.Mutex

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// New creates a reconciler with configuration options.
func New(store Store, fetcher Fetcher, manager display.Manager, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:    store,
		fetcher:  fetcher,
		manager:  manager,
		interval: defaultInterval,
		category: defaultCategoryName,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("reconciler"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run starts the reconciliation loop. The first run fires immediately. Run
// blocks until ctx is canceled or Shutdown is called.
func (r *Reconciler) Run(ctx context.Context) {
	defer close(r.done)

	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.shutdown:
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// Shutdown stops the loop and waits for an in-flight run to finish.
func (r *Reconciler) Shutdown(ctx context.Context) error {
	close(r.shutdown)

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("reconciler shutdown timed out: %w", ctx.Err())
	case <-time.After(shutdownWindow):
		return fmt.Errorf("reconciler shutdown timed out after %s", shutdownWindow)
	}
}

// RunOnce performs a single reconciliation pass. Overlapping calls are
// skipped rather than queued: a second run over the same data would converge
// to the same state anyway.
func (r *Reconciler) RunOnce(ctx context.Context) {
	if !r.running.TryLock() {
		metrics.RecordReconcileSkip()
		r.logger.Debug(ctx, "reconciliation already running, skipping")
		return
	}
	defer r.running.Unlock()

	metrics.RecordReconcileRun()
	start := time.Now()
	defer func() {
		metrics.RecordReconcileDuration(float64(time.Since(start).Milliseconds()))
	}()

	agg, err := r.computeAggregate(ctx)
	if err != nil {
		metrics.RecordReconcileError()
		r.logger.Error(ctx, "aggregate computation failed", logger.Error(err))
		return
	}

	categoryID, err := r.manager.EnsureCategory(ctx, r.category)
	if err != nil {
		metrics.RecordReconcileError()
		metrics.RecordErrorByComponent("reconciler", "category_error")
		r.logger.Error(ctx, "category reconciliation failed", logger.Error(err))
		return
	}

	for _, metric := range model.SlotMetrics {
		if err := r.reconcileSlot(ctx, categoryID, metric, r.label(metric, agg)); err != nil {
			metrics.RecordReconcileError()
			metrics.RecordErrorByComponent("reconciler", "slot_error")
			r.logger.Error(ctx, "slot reconciliation failed",
				logger.String("metric", metric),
				logger.Error(err),
			)
			// One broken slot must not block the rest.
		}
	}
}

// computeAggregate fetches every tracked subject's current snapshot and
// averages over the subset that fetched successfully. Failed subjects are
// excluded from the averages, not counted as zero.
func (r *Reconciler) computeAggregate(ctx context.Context) (aggregate, error) {
	subs, err := r.store.ListSubscriptions(ctx)
	if err != nil {
		return aggregate{}, fmt.Errorf("listing subscriptions: %w", err)
	}

	var agg aggregate
	var sumLevel, sumKD, sumSurvival float64
	for _, sub := range subs {
		snap, err := r.fetcher.FetchProfile(ctx, sub.SubjectID)
		if err != nil {
			r.logger.Warn(ctx, "excluding subject from aggregate",
				logger.String("subjectID", sub.SubjectID),
				logger.Error(err),
			)
			continue
		}

		sumLevel += float64(stats.LevelFromExperience(snap.Experience))
		sumKD += stats.KDRatio(snap)
		sumSurvival += stats.SurvivalPercent(snap)
		agg.tracked++
	}

	if agg.tracked > 0 {
		n := float64(agg.tracked)
		agg.avgLevel = sumLevel / n
		agg.avgKD = sumKD / n
		agg.avgSurvival = sumSurvival / n
	}
	return agg, nil
}

// reconcileSlot converges one display slot toward the desired label.
func (r *Reconciler) reconcileSlot(ctx context.Context, categoryID, metric, label string) error {
	resourceID, err := r.store.GetSlot(ctx, metric)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return r.createSlot(ctx, categoryID, metric, label)
	case err != nil:
		return fmt.Errorf("loading slot %s: %w", metric, err)
	}

	err = r.manager.RelabelResource(ctx, resourceID, label)
	if err == nil {
		metrics.RecordSlotRelabel()
		return nil
	}
	if !errors.Is(err, display.ErrNotFound) {
		return fmt.Errorf("relabeling slot %s: %w", metric, err)
	}

	// The external resource vanished; recreate it and re-persist the id.
	r.logger.Warn(ctx, "display resource vanished, recreating",
		logger.String("metric", metric),
		logger.String("resourceID", resourceID),
	)
	metrics.RecordSlotRecreate()
	return r.createSlot(ctx, categoryID, metric, label)
}

// createSlot creates the external resource and persists its id.
func (r *Reconciler) createSlot(ctx context.Context, categoryID, metric, label string) error {
	resourceID, err := r.manager.CreateResource(ctx, categoryID, label)
	if err != nil {
		return fmt.Errorf("creating slot %s: %w", metric, err)
	}
	if err := r.store.PutSlot(ctx, metric, resourceID); err != nil {
		return fmt.Errorf("persisting slot %s: %w", metric, err)
	}
	metrics.RecordSlotCreate()
	return nil
}

// label renders the desired resource label for one metric.
func (r *Reconciler) label(metric string, agg aggregate) string {
	switch metric {
	case model.SlotAvgLevel:
		return fmt.Sprintf("lvl: %.0f", agg.avgLevel)
	case model.SlotAvgKD:
		return fmt.Sprintf("kd: %.2f", agg.avgKD)
	case model.SlotAvgSurvival:
		return fmt.Sprintf("sr: %.2f%%", agg.avgSurvival)
	case model.SlotTrackedCount:
		return "tracked: " + strconv.Itoa(agg.tracked)
	default:
		return metric
	}
}
