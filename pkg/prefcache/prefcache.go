// Package prefcache remembers the last organization a user selected. It is a
// convenience hint only: session resolution always validates the cached value
// against the user's real membership set, so a stale or tampered entry can
// never grant access to an organization the user does not belong to.
package prefcache

import "sync"

// Cache stores one selected organization id per user.
type Cache interface {
	// Get returns the cached selection for userID, if any.
	Get(userID string) (orgID string, ok bool)

	// Put records orgID as userID's current selection.
	Put(userID, orgID string) error

	// Clear forgets userID's selection (logout).
	Clear(userID string) error
}

// Memory is an in-process Cache. The zero value is not usable; call NewMemory.
type Memory struct {
	mu       sync.RWMutex
	selected map[string]string
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{selected: make(map[string]string)}
}

func (m *Memory) Get(userID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orgID, ok := m.selected[userID]
	return orgID, ok
}

func (m *Memory) Put(userID, orgID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.selected[userID] = orgID
	return nil
}

func (m *Memory) Clear(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.selected, userID)
	return nil
}
