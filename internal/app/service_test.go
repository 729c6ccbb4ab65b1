package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	notify "github.com/okian/statwatch/internal/adapters/notify"
	provider "github.com/okian/statwatch/internal/adapters/provider"
	repository "github.com/okian/statwatch/internal/adapters/repository"
	service "github.com/okian/statwatch/internal/app"
	model "github.com/okian/statwatch/internal/domain/model"
	logging "github.com/okian/statwatch/pkg/logger"
)

// memStore is an in-memory repository.Store for service tests.
type memStore struct {
	snapshots map[string]model.ProfileSnapshot
	subs      map[string]model.Subscription
	slots     map[string]string
	mu        sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		snapshots: make(map[string]model.ProfileSnapshot),
		subs:      make(map[string]model.Subscription),
		slots:     make(map[string]string),
	}
}

func (m *memStore) LoadSnapshot(_ context.Context, subjectID string) (model.ProfileSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[subjectID]
	if !ok {
		return model.ProfileSnapshot{}, repository.ErrNotFound
	}
	return snap, nil
}

func (m *memStore) SaveSnapshot(_ context.Context, snap model.ProfileSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snap.SubjectID] = snap
	return nil
}

func (m *memStore) DeleteSnapshot(_ context.Context, subjectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, subjectID)
	return nil
}

func (m *memStore) GetSubscription(_ context.Context, subscriberID string) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[subscriberID]
	if !ok {
		return model.Subscription{}, repository.ErrNotFound
	}
	return sub, nil
}

func (m *memStore) CreateSubscription(_ context.Context, sub model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.subs[sub.SubscriberID]; exists {
		return repository.ErrConflict
	}
	m.subs[sub.SubscriberID] = sub
	return nil
}

func (m *memStore) UpdateSubscription(_ context.Context, sub model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.subs[sub.SubscriberID]; !exists {
		return repository.ErrNotFound
	}
	m.subs[sub.SubscriberID] = sub
	return nil
}

func (m *memStore) DeleteSubscription(_ context.Context, subscriberID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, subscriberID)
	return nil
}

func (m *memStore) ListSubscriptions(_ context.Context) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		out = append(out, sub)
	}
	return out, nil
}

func (m *memStore) GetSlot(_ context.Context, metric string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.slots[metric]
	if !ok {
		return "", repository.ErrNotFound
	}
	return id, nil
}

func (m *memStore) PutSlot(_ context.Context, metric, resourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[metric] = resourceID
	return nil
}

func (m *memStore) DeleteSlot(_ context.Context, metric string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, metric)
	return nil
}

func (m *memStore) Close() error { return nil }

type mockProvider struct {
	names    map[string]string // lowercase nickname -> subject id
	versions map[string]string
	profiles map[string]model.ProfileSnapshot
	fetchErr error
}

func (mp *mockProvider) FetchProfile(_ context.Context, subjectID string) (model.ProfileSnapshot, error) {
	if mp.fetchErr != nil {
		return model.ProfileSnapshot{}, mp.fetchErr
	}
	return mp.profiles[subjectID], nil
}

func (mp *mockProvider) ResolveSubjectID(_ context.Context, displayName string) (string, error) {
	if id, ok := mp.names[displayName]; ok {
		return id, nil
	}
	return "", provider.ErrNotFound
}

func (mp *mockProvider) KnownVersions(_ context.Context) (map[string]string, error) {
	return mp.versions, nil
}

type recordingSink struct {
	records []notify.Record
	mu      sync.Mutex
}

func (rs *recordingSink) Notify(_ context.Context, _ string, rec notify.Record) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.records = append(rs.records, rec)
	return nil
}

func (rs *recordingSink) delivered() []notify.Record {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]notify.Record, len(rs.records))
	copy(out, rs.records)
	return out
}

func newTestService(t *testing.T) (*service.Service, *memStore, *mockProvider, *recordingSink) {
	t.Helper()
	_ = logging.Init()

	store := newMemStore()
	prov := &mockProvider{
		names:    map[string]string{"Nikita": "alpha"},
		versions: map[string]string{"alpha": "100"},
		profiles: map[string]model.ProfileSnapshot{
			"alpha": {
				SubjectID:  "alpha",
				Version:    "100",
				Nickname:   "Nikita",
				Experience: 14256,
				Counters: map[string]int64{
					model.CounterKills:  30,
					model.CounterDeaths: 10,
				},
				FetchedAt: time.Now().UTC(),
			},
		},
	}
	sink := &recordingSink{}

	svc := service.New(store, prov, sink, service.WithWorkerCount(1), service.WithQueueSize(16))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("starting service: %v", err)
	}
	t.Cleanup(svc.Stop)

	return svc, store, prov, sink
}

func TestServiceTrack(t *testing.T) {
	convey.Convey("Given a running service", t, func() {
		svc, store, _, sink := newTestService(t)
		ctx := context.Background()

		convey.Convey("When a subscriber tracks a known nickname", func() {
			sub, err := svc.Track(ctx, "user-1", "Nikita")

			convey.Convey("Then the subscription is seeded with the current version", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(sub.SubjectID, convey.ShouldEqual, "alpha")
				convey.So(sub.LastNotifiedVersion, convey.ShouldEqual, "100")
			})

			convey.Convey("Then the baseline snapshot is stored and announced", func() {
				convey.So(err, convey.ShouldBeNil)
				_, loadErr := store.LoadSnapshot(ctx, "alpha")
				convey.So(loadErr, convey.ShouldBeNil)

				recs := sink.delivered()
				convey.So(recs, convey.ShouldHaveLength, 1)
				convey.So(recs[0].Kind, convey.ShouldEqual, notify.KindBaseline)
				convey.So(recs[0].Summary.Level, convey.ShouldEqual, 5)
			})

			convey.Convey("Then a second track for the same subscriber conflicts", func() {
				convey.So(err, convey.ShouldBeNil)
				_, err2 := svc.Track(ctx, "user-1", "Nikita")
				convey.So(errors.Is(err2, repository.ErrConflict), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the nickname cannot be resolved", func() {
			_, err := svc.Track(ctx, "user-1", "nobody")

			convey.Convey("Then the command is rejected", func() {
				convey.So(errors.Is(err, service.ErrUnknownSubject), convey.ShouldBeTrue)
			})
		})
	})
}

func TestServiceTrackNoVersionMarker(t *testing.T) {
	convey.Convey("Given a subject absent from the version index", t, func() {
		svc, _, prov, _ := newTestService(t)
		prov.names["Ghost"] = "beta"

		convey.Convey("When a subscriber tries to track it", func() {
			_, err := svc.Track(context.Background(), "user-1", "Ghost")

			convey.Convey("Then tracking is rejected", func() {
				convey.So(errors.Is(err, service.ErrNoVersionMarker), convey.ShouldBeTrue)
			})
		})
	})
}

func TestServiceUntrack(t *testing.T) {
	convey.Convey("Given a subscriber with an active subscription", t, func() {
		svc, store, _, _ := newTestService(t)
		ctx := context.Background()

		_, err := svc.Track(ctx, "user-1", "Nikita")
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the subscriber untracks", func() {
			convey.So(svc.Untrack(ctx, "user-1"), convey.ShouldBeNil)

			convey.Convey("Then both the subscription and the snapshot are gone", func() {
				_, subErr := store.GetSubscription(ctx, "user-1")
				convey.So(errors.Is(subErr, repository.ErrNotFound), convey.ShouldBeTrue)

				_, snapErr := store.LoadSnapshot(ctx, "alpha")
				convey.So(errors.Is(snapErr, repository.ErrNotFound), convey.ShouldBeTrue)
			})

			convey.Convey("Then untracking again is a no-op", func() {
				convey.So(svc.Untrack(ctx, "user-1"), convey.ShouldBeNil)
			})
		})
	})
}

func TestServiceStats(t *testing.T) {
	convey.Convey("Given a tracked subject", t, func() {
		svc, _, _, _ := newTestService(t)
		ctx := context.Background()

		_, err := svc.Track(ctx, "user-1", "Nikita")
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the subscriber requests current stats", func() {
			summary, err := svc.Stats(ctx, "user-1")

			convey.Convey("Then the live summary is returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(summary.Nickname, convey.ShouldEqual, "Nikita")
				convey.So(summary.Level, convey.ShouldEqual, 5)
				convey.So(summary.KDRatio, convey.ShouldEqual, 3.0)
			})
		})

		convey.Convey("When a stranger requests stats", func() {
			_, err := svc.Stats(ctx, "user-999")

			convey.Convey("Then the request fails with not found", func() {
				convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
			})
		})
	})
}
