package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ytget/ytgate/internal/media"
)

// memoryEntry pairs the cached projection with its insertion time.
type memoryEntry struct {
	info     *media.Info
	storedAt time.Time
}

// Memory is an in-process Store. Expiry is enforced both lazily on read and
// by a background sweep; both paths use the same TTL.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	stopped sync.Once
}

// NewMemory creates a memory store and starts its sweep goroutine.
func NewMemory(ttl time.Duration) *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Get implements Store. Expired entries are deleted on sight.
func (m *Memory) Get(_ context.Context, key string) (*media.Info, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.now().Sub(e.storedAt) >= m.ttl {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the entry.
		if cur, still := m.entries[key]; still && m.now().Sub(cur.storedAt) >= m.ttl {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}
	return e.info, true
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key string, info *media.Info) {
	m.mu.Lock()
	m.entries[key] = memoryEntry{info: info, storedAt: m.now()}
	m.mu.Unlock()
}

// Close stops the sweep goroutine.
func (m *Memory) Close() error {
	m.stopped.Do(func() { close(m.stop) })
	return nil
}

// Len reports the number of live entries, for tests and the liveness payload.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) sweep() {
	interval := m.ttl
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			cutoff := m.now().Add(-m.ttl)
			m.mu.Lock()
			for k, e := range m.entries {
				if e.storedAt.Before(cutoff) {
					delete(m.entries, k)
				}
			}
			m.mu.Unlock()
		}
	}
}
