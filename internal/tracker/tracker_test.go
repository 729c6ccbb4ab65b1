package tracker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	model "github.com/okian/statwatch/internal/domain/model"
	tracker "github.com/okian/statwatch/internal/tracker"
	logging "github.com/okian/statwatch/pkg/logger"
)

type mockStore struct {
	subs []model.Subscription
	err  error
}

func (ms *mockStore) ListSubscriptions(_ context.Context) ([]model.Subscription, error) {
	if ms.err != nil {
		return nil, ms.err
	}
	return ms.subs, nil
}

type mockIndex struct {
	versions map[string]string
	err      error
}

func (mi *mockIndex) KnownVersions(_ context.Context) (map[string]string, error) {
	if mi.err != nil {
		return nil, mi.err
	}
	return mi.versions, nil
}

type recordingQueue struct {
	jobs   []model.CheckJob
	reject map[string]bool
	mu     sync.Mutex
}

func (rq *recordingQueue) Enqueue(_ context.Context, j model.CheckJob) bool {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	if rq.reject[j.Subscription.SubjectID] {
		return false
	}
	rq.jobs = append(rq.jobs, j)
	return true
}

func (rq *recordingQueue) enqueued() []model.CheckJob {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	out := make([]model.CheckJob, len(rq.jobs))
	copy(out, rq.jobs)
	return out
}

func subscription(subscriberID, subjectID, lastNotified string) model.Subscription {
	return model.Subscription{
		SubscriberID:        subscriberID,
		SubjectID:           subjectID,
		LastNotifiedVersion: lastNotified,
	}
}

// runOneTick runs the tracker long enough for the immediate first tick and
// stops it.
func runOneTick(t *testing.T, tr *tracker.Tracker, q *recordingQueue, want int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go tr.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(q.enqueued()) >= want {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
}

func TestTrackerTick(t *testing.T) {
	convey.Convey("Given a tracker over three subscriptions", t, func() {
		_ = logging.Init()
		store := &mockStore{subs: []model.Subscription{
			subscription("user-1", "alpha", "100"),
			subscription("user-2", "beta", "200"),
			subscription("user-3", "gamma", ""),
		}}
		index := &mockIndex{versions: map[string]string{
			"alpha": "100", // unchanged
			"beta":  "201", // changed
			// gamma missing from the index
		}}
		q := &recordingQueue{}

		tr := tracker.New(store, index, q, tracker.WithInterval(time.Hour))

		convey.Convey("When the first tick runs", func() {
			runOneTick(t, tr, q, 1)

			convey.Convey("Then only subjects with possible new data are enqueued", func() {
				jobs := q.enqueued()
				convey.So(jobs, convey.ShouldHaveLength, 1)
				convey.So(jobs[0].Subscription.SubjectID, convey.ShouldEqual, "beta")
				convey.So(jobs[0].KnownVersion, convey.ShouldEqual, "201")
			})
		})
	})
}

func TestTrackerIndexFailure(t *testing.T) {
	convey.Convey("Given a tracker whose bulk index is unavailable", t, func() {
		_ = logging.Init()
		store := &mockStore{subs: []model.Subscription{
			subscription("user-1", "alpha", "100"),
			subscription("user-2", "beta", "200"),
		}}
		index := &mockIndex{err: errors.New("index down")}
		q := &recordingQueue{}

		tr := tracker.New(store, index, q, tracker.WithInterval(time.Hour))

		convey.Convey("When the tick runs", func() {
			runOneTick(t, tr, q, 2)

			convey.Convey("Then every subscription is enqueued without a version marker", func() {
				jobs := q.enqueued()
				convey.So(jobs, convey.ShouldHaveLength, 2)
				for _, j := range jobs {
					convey.So(j.KnownVersion, convey.ShouldEqual, "")
				}
			})
		})
	})
}

func TestTrackerFailureIsolation(t *testing.T) {
	convey.Convey("Given a queue that rejects one subject", t, func() {
		_ = logging.Init()
		store := &mockStore{subs: []model.Subscription{
			subscription("user-1", "alpha", ""),
			subscription("user-2", "beta", ""),
		}}
		index := &mockIndex{versions: map[string]string{"alpha": "1", "beta": "2"}}
		q := &recordingQueue{reject: map[string]bool{"alpha": true}}

		tr := tracker.New(store, index, q, tracker.WithInterval(time.Hour))

		convey.Convey("When the tick runs", func() {
			runOneTick(t, tr, q, 1)

			convey.Convey("Then the other subject is still enqueued", func() {
				jobs := q.enqueued()
				convey.So(jobs, convey.ShouldHaveLength, 1)
				convey.So(jobs[0].Subscription.SubjectID, convey.ShouldEqual, "beta")
			})
		})
	})
}

func TestTrackerListFailure(t *testing.T) {
	convey.Convey("Given a store that cannot list subscriptions", t, func() {
		_ = logging.Init()
		store := &mockStore{err: errors.New("db closed")}
		index := &mockIndex{}
		q := &recordingQueue{}

		tr := tracker.New(store, index, q, tracker.WithInterval(time.Hour))

		convey.Convey("When the tick runs", func() {
			ctx, cancel := context.WithCancel(context.Background())
			go tr.Run(ctx)
			time.Sleep(50 * time.Millisecond)
			cancel()

			convey.Convey("Then nothing is enqueued and the loop survives", func() {
				convey.So(q.enqueued(), convey.ShouldBeEmpty)
			})
		})
	})
}
