package state

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	state   State
	expires time.Time
}

// MemoryStore is an in-process Store for tests and single-instance deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore constructs a MemoryStore. A non-positive ttl keeps states until cleared.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the state for a user or StateIdle when absent or expired.
func (m *MemoryStore) Get(_ context.Context, userID int64) (State, error) {
	m.mu.RLock()
	entry, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok {
		return StateIdle, nil
	}
	if !entry.expires.IsZero() && !m.now().Before(entry.expires) {
		m.mu.Lock()
		if cur, ok := m.sessions[userID]; ok && cur.expires.Equal(entry.expires) {
			delete(m.sessions, userID)
		}
		m.mu.Unlock()
		return StateIdle, nil
	}
	return entry.state, nil
}

// Set stores st for a user; setting StateIdle is equivalent to Clear.
func (m *MemoryStore) Set(ctx context.Context, userID int64, st State) error {
	if !Active(st) {
		return m.Clear(ctx, userID)
	}
	entry := memoryEntry{state: st}
	if m.ttl > 0 {
		entry.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.sessions[userID] = entry
	m.mu.Unlock()
	return nil
}

// Clear removes the state for a user.
func (m *MemoryStore) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
