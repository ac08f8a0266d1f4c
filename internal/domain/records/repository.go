package records

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const defaultLoadTimeout = 30 * time.Second

// Repository holds the current Snapshot. It is built once at startup and
// handed to the components that read or mutate records.
type Repository struct {
	store       Store
	logger      *zap.Logger
	loadTimeout time.Duration

	mu       sync.RWMutex
	current  *Snapshot
	stale    bool
	failures []LoadFailure

	group singleflight.Group
}

func NewRepository(store Store, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{store: store, logger: logger.Named("records.repository"), loadTimeout: defaultLoadTimeout}
}

func (r *Repository) Store() Store {
	return r.store
}

// Snapshot returns a copy of the current snapshot, loading it on first use
// and after Invalidate.
func (r *Repository) Snapshot(ctx context.Context) *Snapshot {
	r.mu.RLock()
	current, stale := r.current, r.stale
	r.mu.RUnlock()
	if current != nil && !stale {
		return current.Clone()
	}
	return r.Reload(ctx)
}

// Invalidate marks the current snapshot stale; the next read reloads.
func (r *Repository) Invalidate() {
	r.mu.Lock()
	r.stale = true
	r.mu.Unlock()
}

// Reload reads the store again and returns a copy of the result. Concurrent
// callers share one load. The load is detached from ctx cancellation and
// bounded by the repository's own timeout. Collections that fail keep their
// previously loaded contents.
func (r *Repository) Reload(ctx context.Context) *Snapshot {
	v, _, _ := r.group.Do("reload", func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.loadTimeout)
		defer cancel()
		snap, failures := LoadSnapshot(loadCtx, r.store, r.logger)

		r.mu.Lock()
		snap.carryOver(r.current, failures)
		r.current = snap
		r.stale = false
		r.failures = failures
		r.mu.Unlock()

		r.logger.Debug("snapshot reloaded",
			zap.Int("employees", len(snap.Employees)),
			zap.Int("failures", len(failures)))
		return snap, nil
	})
	return v.(*Snapshot).Clone()
}

// Failures reports the collections that failed during the last load.
func (r *Repository) Failures() []LoadFailure {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]LoadFailure(nil), r.failures...)
}

// Failed reports whether collection failed during the last load.
func (r *Repository) Failed(collection string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.failures {
		if f.Collection == collection {
			return true
		}
	}
	return false
}
