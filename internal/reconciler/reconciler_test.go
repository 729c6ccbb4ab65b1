package reconciler_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	display "github.com/okian/statwatch/internal/adapters/display"
	repository "github.com/okian/statwatch/internal/adapters/repository"
	model "github.com/okian/statwatch/internal/domain/model"
	reconciler "github.com/okian/statwatch/internal/reconciler"
	logging "github.com/okian/statwatch/pkg/logger"
)

type mockStore struct {
	subs  []model.Subscription
	slots map[string]string
	mu    sync.Mutex
}

func newMockStore(subs ...model.Subscription) *mockStore {
	return &mockStore{subs: subs, slots: make(map[string]string)}
}

func (ms *mockStore) ListSubscriptions(_ context.Context) ([]model.Subscription, error) {
	return ms.subs, nil
}

func (ms *mockStore) GetSlot(_ context.Context, metric string) (string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	id, ok := ms.slots[metric]
	if !ok {
		return "", repository.ErrNotFound
	}
	return id, nil
}

func (ms *mockStore) PutSlot(_ context.Context, metric, resourceID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.slots[metric] = resourceID
	return nil
}

func (ms *mockStore) slot(metric string) string {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.slots[metric]
}

type mockFetcher struct {
	profiles map[string]model.ProfileSnapshot
	errors   map[string]error
	gate     chan struct{}
	calls    int
	mu       sync.Mutex
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		profiles: make(map[string]model.ProfileSnapshot),
		errors:   make(map[string]error),
	}
}

func (mf *mockFetcher) FetchProfile(_ context.Context, subjectID string) (model.ProfileSnapshot, error) {
	if mf.gate != nil {
		<-mf.gate
	}
	mf.mu.Lock()
	defer mf.mu.Unlock()
	mf.calls++
	if err, exists := mf.errors[subjectID]; exists {
		return model.ProfileSnapshot{}, err
	}
	return mf.profiles[subjectID], nil
}

func (mf *mockFetcher) callCount() int {
	mf.mu.Lock()
	defer mf.mu.Unlock()
	return mf.calls
}

// fakeManager is an in-memory stand-in for the external display API.
type fakeManager struct {
	categories map[string]string
	resources  map[string]resource
	nextID     int
	mu         sync.Mutex
}

type resource struct {
	categoryID string
	label      string
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		categories: make(map[string]string),
		resources:  make(map[string]resource),
	}
}

func (fm *fakeManager) EnsureCategory(_ context.Context, name string) (string, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if id, ok := fm.categories[name]; ok {
		return id, nil
	}
	fm.nextID++
	id := "cat-" + strconv.Itoa(fm.nextID)
	fm.categories[name] = id
	return id, nil
}

func (fm *fakeManager) CreateResource(_ context.Context, categoryID, label string) (string, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	fm.nextID++
	id := "res-" + strconv.Itoa(fm.nextID)
	fm.resources[id] = resource{categoryID: categoryID, label: label}
	return id, nil
}

func (fm *fakeManager) RelabelResource(_ context.Context, resourceID, label string) error {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	res, ok := fm.resources[resourceID]
	if !ok {
		return display.ErrNotFound
	}
	res.label = label
	fm.resources[resourceID] = res
	return nil
}

func (fm *fakeManager) DeleteResource(_ context.Context, resourceID string) error {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	delete(fm.resources, resourceID)
	return nil
}

func (fm *fakeManager) resourceCount() int {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return len(fm.resources)
}

func (fm *fakeManager) labelOf(resourceID string) string {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.resources[resourceID].label
}

func subjectSnapshot(subjectID string) model.ProfileSnapshot {
	return model.ProfileSnapshot{
		SubjectID:  subjectID,
		Version:    "1",
		Experience: 14256, // level 5
		Counters: map[string]int64{
			model.CounterKills:    30,
			model.CounterDeaths:   10,
			model.CounterRaids:    20,
			model.CounterSurvived: 11,
		},
	}
}

func TestReconcilerCreatesSlots(t *testing.T) {
	convey.Convey("Given one tracked subject and no persisted slots", t, func() {
		_ = logging.Init()
		store := newMockStore(model.Subscription{SubscriberID: "user-1", SubjectID: "alpha"})
		fetcher := newMockFetcher()
		fetcher.profiles["alpha"] = subjectSnapshot("alpha")
		manager := newFakeManager()

		r := reconciler.New(store, fetcher, manager)

		convey.Convey("When one pass runs", func() {
			r.RunOnce(context.Background())

			convey.Convey("Then every slot gets a resource with the computed label", func() {
				convey.So(manager.resourceCount(), convey.ShouldEqual, len(model.SlotMetrics))

				convey.So(manager.labelOf(store.slot(model.SlotAvgLevel)), convey.ShouldEqual, "lvl: 5")
				convey.So(manager.labelOf(store.slot(model.SlotAvgKD)), convey.ShouldEqual, "kd: 3.00")
				convey.So(manager.labelOf(store.slot(model.SlotAvgSurvival)), convey.ShouldEqual, "sr: 55.00%")
				convey.So(manager.labelOf(store.slot(model.SlotTrackedCount)), convey.ShouldEqual, "tracked: 1")
			})
		})
	})
}

func TestReconcilerConvergence(t *testing.T) {
	convey.Convey("Given a reconciler that already ran once", t, func() {
		_ = logging.Init()
		store := newMockStore(model.Subscription{SubscriberID: "user-1", SubjectID: "alpha"})
		fetcher := newMockFetcher()
		fetcher.profiles["alpha"] = subjectSnapshot("alpha")
		manager := newFakeManager()

		r := reconciler.New(store, fetcher, manager)
		r.RunOnce(context.Background())
		firstID := store.slot(model.SlotAvgKD)

		convey.Convey("When a second pass runs over identical data", func() {
			r.RunOnce(context.Background())

			convey.Convey("Then no duplicate resources appear and ids are stable", func() {
				convey.So(manager.resourceCount(), convey.ShouldEqual, len(model.SlotMetrics))
				convey.So(store.slot(model.SlotAvgKD), convey.ShouldEqual, firstID)
				convey.So(manager.labelOf(firstID), convey.ShouldEqual, "kd: 3.00")
			})
		})

		convey.Convey("When a resource vanishes externally", func() {
			vanished := store.slot(model.SlotAvgKD)
			convey.So(manager.DeleteResource(context.Background(), vanished), convey.ShouldBeNil)

			r.RunOnce(context.Background())

			convey.Convey("Then the slot is recreated under a fresh id", func() {
				recreated := store.slot(model.SlotAvgKD)
				convey.So(recreated, convey.ShouldNotEqual, vanished)
				convey.So(manager.labelOf(recreated), convey.ShouldEqual, "kd: 3.00")
				convey.So(manager.resourceCount(), convey.ShouldEqual, len(model.SlotMetrics))
			})
		})
	})
}

func TestReconcilerExcludesFailedSubjects(t *testing.T) {
	convey.Convey("Given two tracked subjects, one failing to fetch", t, func() {
		_ = logging.Init()
		store := newMockStore(
			model.Subscription{SubscriberID: "user-1", SubjectID: "alpha"},
			model.Subscription{SubscriberID: "user-2", SubjectID: "broken"},
		)
		fetcher := newMockFetcher()
		fetcher.profiles["alpha"] = subjectSnapshot("alpha")
		fetcher.errors["broken"] = errors.New("provider unreachable")
		manager := newFakeManager()

		r := reconciler.New(store, fetcher, manager)

		convey.Convey("When one pass runs", func() {
			r.RunOnce(context.Background())

			convey.Convey("Then the failed subject is excluded, not counted as zero", func() {
				convey.So(manager.labelOf(store.slot(model.SlotTrackedCount)), convey.ShouldEqual, "tracked: 1")
				convey.So(manager.labelOf(store.slot(model.SlotAvgKD)), convey.ShouldEqual, "kd: 3.00")
			})
		})
	})
}

func TestReconcilerSingleFlight(t *testing.T) {
	convey.Convey("Given a reconciler with a slow provider", t, func() {
		_ = logging.Init()
		store := newMockStore(model.Subscription{SubscriberID: "user-1", SubjectID: "alpha"})
		fetcher := newMockFetcher()
		fetcher.profiles["alpha"] = subjectSnapshot("alpha")
		fetcher.gate = make(chan struct{})
		manager := newFakeManager()

		r := reconciler.New(store, fetcher, manager)

		convey.Convey("When a second run starts while the first is in flight", func() {
			done := make(chan struct{})
			go func() {
				r.RunOnce(context.Background())
				close(done)
			}()

			// Give the first run time to take the lock and block on the fetch.
			time.Sleep(50 * time.Millisecond)
			r.RunOnce(context.Background())

			close(fetcher.gate)
			<-done

			convey.Convey("Then the overlapping run was skipped", func() {
				convey.So(fetcher.callCount(), convey.ShouldEqual, 1)
				convey.So(manager.resourceCount(), convey.ShouldEqual, len(model.SlotMetrics))
			})
		})
	})
}
