package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/statwatch/internal/domain/model"
	"github.com/okian/statwatch/pkg/metrics"
	_ "modernc.org/sqlite" // sqlite driver
)

const timeFormat = time.RFC3339Nano

// schema creates the three tables the store owns. Snapshots are stored as a
// JSON document next to the version column so the version gate never needs to
// decode the document.
const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	subject_id TEXT PRIMARY KEY,
	version    TEXT NOT NULL,
	data       TEXT NOT NULL,
	fetched_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS subscriptions (
	subscriber_id         TEXT PRIMARY KEY,
	subject_id            TEXT NOT NULL,
	last_notified_version TEXT NOT NULL DEFAULT '',
	created_at            TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS display_slots (
	metric      TEXT PRIMARY KEY,
	resource_id TEXT NOT NULL
);
`

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite store at the provided path.
// This is the only fatal-at-startup persistence operation; everything after
// a successful Open degrades per call.
func Open(path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: storage path is required", ErrStorage)
	}

	o := defaultOpenOptions()
	for _, opt := range opts {
		opt(&o)
	}

	dsn := filepath.Clean(path) + o.dsnParams()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite db: %w", ErrStorage, err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite db: %w", ErrStorage, err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply schema: %w", ErrStorage, err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying SQLite database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func observe(start time.Time, err error) {
	metrics.RecordStoreLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordStoreError()
	}
}

// LoadSnapshot returns the last persisted snapshot for a subject.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, subjectID string) (snap model.ProfileSnapshot, err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	var data string
	row := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE subject_id = ?`, subjectID)
	if err = row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf("snapshot for %s: %w", subjectID, ErrNotFound)
			return model.ProfileSnapshot{}, err
		}
		err = fmt.Errorf("%w: load snapshot: %w", ErrStorage, err)
		return model.ProfileSnapshot{}, err
	}

	if err = json.Unmarshal([]byte(data), &snap); err != nil {
		err = fmt.Errorf("%w: decode snapshot: %w", ErrStorage, err)
		return model.ProfileSnapshot{}, err
	}
	return snap, nil
}

// SaveSnapshot atomically replaces the stored snapshot via a single upsert.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap model.ProfileSnapshot) (err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	if strings.TrimSpace(snap.SubjectID) == "" {
		return fmt.Errorf("%w: snapshot subject id is required", ErrStorage)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %w", ErrStorage, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (subject_id, version, data, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(subject_id) DO UPDATE SET
			version = excluded.version,
			data = excluded.data,
			fetched_at = excluded.fetched_at`,
		snap.SubjectID, snap.Version, string(data), snap.FetchedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("%w: save snapshot: %w", ErrStorage, err)
	}
	return nil
}

// DeleteSnapshot removes a subject's snapshot. Deleting an absent snapshot
// is not an error.
func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, subjectID string) (err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	if _, err = s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE subject_id = ?`, subjectID); err != nil {
		return fmt.Errorf("%w: delete snapshot: %w", ErrStorage, err)
	}
	return nil
}

// GetSubscription returns the subscription owned by subscriberID.
func (s *SQLiteStore) GetSubscription(ctx context.Context, subscriberID string) (sub model.Subscription, err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	var createdAt string
	row := s.db.QueryRowContext(ctx, `
		SELECT subscriber_id, subject_id, last_notified_version, created_at
		FROM subscriptions WHERE subscriber_id = ?`, subscriberID)
	if err = row.Scan(&sub.SubscriberID, &sub.SubjectID, &sub.LastNotifiedVersion, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf("subscription for %s: %w", subscriberID, ErrNotFound)
			return model.Subscription{}, err
		}
		err = fmt.Errorf("%w: get subscription: %w", ErrStorage, err)
		return model.Subscription{}, err
	}
	sub.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	return sub, nil
}

// CreateSubscription persists a new subscription, rejecting a second active
// subscription for the same subscriber.
func (s *SQLiteStore) CreateSubscription(ctx context.Context, sub model.Subscription) (err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (subscriber_id, subject_id, last_notified_version, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(subscriber_id) DO NOTHING`,
		sub.SubscriberID, sub.SubjectID, sub.LastNotifiedVersion, sub.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("%w: create subscription: %w", ErrStorage, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: create subscription: %w", ErrStorage, err)
	}
	if affected == 0 {
		return fmt.Errorf("subscriber %s: %w", sub.SubscriberID, ErrConflict)
	}
	return nil
}

// UpdateSubscription replaces the stored subscription for its subscriber.
func (s *SQLiteStore) UpdateSubscription(ctx context.Context, sub model.Subscription) (err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET subject_id = ?, last_notified_version = ?
		WHERE subscriber_id = ?`,
		sub.SubjectID, sub.LastNotifiedVersion, sub.SubscriberID)
	if err != nil {
		return fmt.Errorf("%w: update subscription: %w", ErrStorage, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: update subscription: %w", ErrStorage, err)
	}
	if affected == 0 {
		return fmt.Errorf("subscriber %s: %w", sub.SubscriberID, ErrNotFound)
	}
	return nil
}

// DeleteSubscription removes a subscriber's subscription. Idempotent.
func (s *SQLiteStore) DeleteSubscription(ctx context.Context, subscriberID string) (err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	if _, err = s.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE subscriber_id = ?`, subscriberID); err != nil {
		return fmt.Errorf("%w: delete subscription: %w", ErrStorage, err)
	}
	return nil
}

// ListSubscriptions returns every active subscription.
func (s *SQLiteStore) ListSubscriptions(ctx context.Context) (subs []model.Subscription, err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT subscriber_id, subject_id, last_notified_version, created_at
		FROM subscriptions ORDER BY subscriber_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list subscriptions: %w", ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var sub model.Subscription
		var createdAt string
		if err = rows.Scan(&sub.SubscriberID, &sub.SubjectID, &sub.LastNotifiedVersion, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan subscription: %w", ErrStorage, err)
		}
		sub.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		subs = append(subs, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list subscriptions: %w", ErrStorage, err)
	}
	return subs, nil
}

// GetSlot returns the persisted external resource id for a display slot.
func (s *SQLiteStore) GetSlot(ctx context.Context, metric string) (resourceID string, err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	row := s.db.QueryRowContext(ctx,
		`SELECT resource_id FROM display_slots WHERE metric = ?`, metric)
	if err = row.Scan(&resourceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf("slot %s: %w", metric, ErrNotFound)
			return "", err
		}
		err = fmt.Errorf("%w: get slot: %w", ErrStorage, err)
		return "", err
	}
	return resourceID, nil
}

// PutSlot persists the external resource id for a display slot metric.
func (s *SQLiteStore) PutSlot(ctx context.Context, metric, resourceID string) (err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO display_slots (metric, resource_id) VALUES (?, ?)
		ON CONFLICT(metric) DO UPDATE SET resource_id = excluded.resource_id`,
		metric, resourceID)
	if err != nil {
		return fmt.Errorf("%w: put slot: %w", ErrStorage, err)
	}
	return nil
}

// DeleteSlot removes a display slot mapping. Idempotent.
func (s *SQLiteStore) DeleteSlot(ctx context.Context, metric string) (err error) {
	start := time.Now()
	defer func() { observe(start, err) }()

	if _, err = s.db.ExecContext(ctx,
		`DELETE FROM display_slots WHERE metric = ?`, metric); err != nil {
		return fmt.Errorf("%w: delete slot: %w", ErrStorage, err)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
