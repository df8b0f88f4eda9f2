package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryBackend implements Backend using in-memory storage. This is the
// default backend and provides fast access with no persistence; all data
// is lost when the process exits.
//
// MemoryBackend is thread-safe using sync.RWMutex.
type MemoryBackend struct {
	states map[string]*State
	mu     sync.RWMutex

	// maxEntries caps the map before the oldest entry is evicted.
	maxEntries int
}

// DefaultMaxEntries is the default entry cap for the memory backend.
const DefaultMaxEntries = 10000

// NewMemoryBackend creates an in-memory backend with the default cap.
func NewMemoryBackend() *MemoryBackend {
	return NewMemoryBackendWithCapacity(DefaultMaxEntries)
}

// NewMemoryBackendWithCapacity creates an in-memory backend holding at
// most maxEntries states.
func NewMemoryBackendWithCapacity(maxEntries int) *MemoryBackend {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryBackend{
		states:     make(map[string]*State),
		maxEntries: maxEntries,
	}
}

// Save persists the state, evicting the least recently updated entry
// when the cap is reached.
func (m *MemoryBackend) Save(ctx context.Context, state *State) error {
	if state == nil || state.LimitID == "" {
		return fmt.Errorf("state must have a limit id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.states[state.LimitID]; ok {
		state.CreatedAt = existing.CreatedAt
	} else {
		if len(m.states) >= m.maxEntries {
			m.evictOldest()
		}
		if state.CreatedAt.IsZero() {
			state.CreatedAt = now
		}
	}
	state.LastUpdated = now

	m.states[state.LimitID] = state
	return nil
}

// Load returns the state for the limit, or nil when absent.
func (m *MemoryBackend) Load(ctx context.Context, limitID string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.states[limitID], nil
}

// Delete removes the state for the limit.
func (m *MemoryBackend) Delete(ctx context.Context, limitID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, limitID)
	return nil
}

// List returns all states.
func (m *MemoryBackend) List(ctx context.Context) ([]*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make([]*State, 0, len(m.states))
	for _, state := range m.states {
		states = append(states, state)
	}
	return states, nil
}

// Cleanup removes states not updated since the cutoff.
func (m *MemoryBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, state := range m.states {
		if state.LastUpdated.Before(olderThan) {
			delete(m.states, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close is a no-op for the memory backend.
func (m *MemoryBackend) Close() error {
	return nil
}

// evictOldest removes the entry with the oldest LastUpdated. Caller
// holds the write lock.
func (m *MemoryBackend) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, state := range m.states {
		if oldestID == "" || state.LastUpdated.Before(oldest) {
			oldestID = id
			oldest = state.LastUpdated
		}
	}
	if oldestID != "" {
		delete(m.states, oldestID)
	}
}
