// Package cache provides the report cache: an in-process LRU with TTL and a
// Redis-backed variant sharing the same interface. Keys are namespaced by a
// Generation, so a write never deletes entries; stale generations simply
// stop being read and age out.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Cache stores report payloads by key. Implementations never fail loudly:
// a backend error reads as a miss and a failed Set is dropped.
type Cache[T any] interface {
	Get(ctx context.Context, key string) (T, bool)
	Set(ctx context.Context, key string, data T)
	Delete(ctx context.Context, key string)
}

// Sweeper is a cache holding entries that must be purged once expired.
type Sweeper interface {
	CleanExpired() int
}

// Manager periodically sweeps in-process caches so entries of superseded
// generations do not sit in memory until they are pushed out by size.
type Manager struct {
	sweepers []Sweeper

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(sweepers ...Sweeper) *Manager {
	return &Manager{sweepers: sweepers}
}

// Start launches the sweep loop. Calling Start on a running manager is a
// no-op.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go m.run(ctx, interval)
}

func (m *Manager) run(ctx context.Context, interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.DebugContext(ctx, "Swept report cache", "removed", n)
			}
		}
	}
}

// Sweep purges expired entries from every cache and returns how many went.
func (m *Manager) Sweep() int {
	removed := 0
	for _, s := range m.sweepers {
		removed += s.CleanExpired()
	}
	return removed
}

// Stop ends the sweep loop and waits for it. Safe to call more than once.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
