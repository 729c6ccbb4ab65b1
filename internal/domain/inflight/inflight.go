// Package inflight defines the per-subject single-flight guard.
//
// All work touching one subject within a tick must be strictly ordered, and
// an overlapping tick must not start a second unit of work for a subject the
// previous tick is still processing. The guard makes that a single atomic
// acquire/release pair keyed by subject id.
package inflight

import (
	"context"
	"sync"
	"sync/atomic"
)

// Guard tracks subjects with work currently in flight.
type Guard interface {
	// Acquire atomically claims the subject for the caller. It returns false
	// when another unit of work already holds the subject.
	Acquire(ctx context.Context, subjectID string) bool

	// Release frees the subject so a later tick can claim it. Releasing an
	// unclaimed subject is a no-op.
	Release(ctx context.Context, subjectID string)

	// Size returns the number of subjects currently claimed.
	Size() int64
}

// inMemoryGuard implements Guard with a mutex-protected set.
type inMemoryGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
	size   atomic.Int64
}

// NewInMemoryGuard creates a new in-memory guard.
func NewInMemoryGuard() Guard {
	return &inMemoryGuard{active: make(map[string]struct{})}
}

func (g *inMemoryGuard) Acquire(_ context.Context, subjectID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.active[subjectID]; held {
		return false
	}
	g.active[subjectID] = struct{}{}
	g.size.Add(1)
	return true
}

func (g *inMemoryGuard) Release(_ context.Context, subjectID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.active[subjectID]; held {
		delete(g.active, subjectID)
		g.size.Add(-1)
	}
}

func (g *inMemoryGuard) Size() int64 {
	return g.size.Load()
}
