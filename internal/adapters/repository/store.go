// Package repository defines the persistent tracker store interface and its
// SQLite implementation. The store exclusively owns snapshot, subscription
// and display-slot persistence; no other component mutates this state
// directly.
package repository

import (
	"context"

	"github.com/okian/statwatch/internal/domain/model"
)

// Store provides durable access to tracker state.
type Store interface {
	// LoadSnapshot returns the last persisted snapshot for a subject.
	// Returns ErrNotFound when the subject has no stored snapshot yet.
	LoadSnapshot(ctx context.Context, subjectID string) (model.ProfileSnapshot, error)

	// SaveSnapshot atomically replaces the stored snapshot for the
	// snapshot's subject. A concurrent LoadSnapshot never observes a torn
	// write.
	SaveSnapshot(ctx context.Context, snap model.ProfileSnapshot) error

	// DeleteSnapshot removes a subject's snapshot. Idempotent.
	DeleteSnapshot(ctx context.Context, subjectID string) error

	// GetSubscription returns the subscription owned by a subscriber.
	// Returns ErrNotFound when the subscriber tracks nothing.
	GetSubscription(ctx context.Context, subscriberID string) (model.Subscription, error)

	// CreateSubscription persists a new subscription. Returns ErrConflict
	// when the subscriber already has one; existing subscriptions are never
	// overwritten.
	CreateSubscription(ctx context.Context, sub model.Subscription) error

	// UpdateSubscription replaces the stored subscription for its
	// subscriber, typically to advance LastNotifiedVersion.
	UpdateSubscription(ctx context.Context, sub model.Subscription) error

	// DeleteSubscription removes a subscriber's subscription. Idempotent.
	DeleteSubscription(ctx context.Context, subscriberID string) error

	// ListSubscriptions returns every active subscription. Iteration order
	// is undefined but stable within one call.
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)

	// GetSlot returns the external resource id persisted for a display slot
	// metric. Returns ErrNotFound when the slot has never been created.
	GetSlot(ctx context.Context, metric string) (string, error)

	// PutSlot persists the external resource id for a display slot metric.
	PutSlot(ctx context.Context, metric, resourceID string) error

	// DeleteSlot removes a display slot mapping. Idempotent.
	DeleteSlot(ctx context.Context, metric string) error

	// Close releases the underlying database.
	Close() error
}
