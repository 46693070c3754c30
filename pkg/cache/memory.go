package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// MemoryStore is a process-local store for single-instance deployments
// and tests. Expired entries are dropped lazily on Get and swept in
// bulk when the map grows past a threshold.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Fingerprint]memoryEntry
}

type memoryEntry struct {
	result    *types.MergedResult
	expiresAt time.Time
}

const sweepThreshold = 4096

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Fingerprint]memoryEntry)}
}

// Get returns the live entry for fp or ErrMiss.
func (m *MemoryStore) Get(_ context.Context, fp Fingerprint) (*types.MergedResult, error) {
	m.mu.RLock()
	e, ok := m.entries[fp]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrMiss
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, fp)
		m.mu.Unlock()
		return nil, ErrMiss
	}
	return e.result, nil
}

// Put stores result for ttl.
func (m *MemoryStore) Put(_ context.Context, fp Fingerprint, result *types.MergedResult, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) >= sweepThreshold {
		now := time.Now()
		for k, e := range m.entries {
			if now.After(e.expiresAt) {
				delete(m.entries, k)
			}
		}
	}
	m.entries[fp] = memoryEntry{result: result, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Invalidate drops the entry for fp.
func (m *MemoryStore) Invalidate(_ context.Context, fp Fingerprint) error {
	m.mu.Lock()
	delete(m.entries, fp)
	m.mu.Unlock()
	return nil
}

// InvalidatePrefix sweeps every entry whose hex fingerprint starts
// with prefix. An empty prefix empties the store.
func (m *MemoryStore) InvalidatePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for fp := range m.entries {
		if strings.HasPrefix(fp.String(), prefix) {
			delete(m.entries, fp)
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }

// Len returns the number of stored entries, including expired ones not
// yet swept.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
