package engine

import "sync"

// UserLocks is a thread-safe map of user_id → lock. Writers (order
// execution) take the lock exclusively; readers that need positions and cash
// from the same instant share it.
type UserLocks struct {
	mu    sync.RWMutex
	locks map[string]*sync.RWMutex
}

// NewUserLocks creates an empty lock table.
func NewUserLocks() *UserLocks {
	return &UserLocks{
		locks: make(map[string]*sync.RWMutex),
	}
}

// get returns the lock for the given user, creating one if it doesn't
// already exist.
func (l *UserLocks) get(userID string) *sync.RWMutex {
	l.mu.RLock()
	m, ok := l.locks[userID]
	l.mu.RUnlock()
	if ok {
		return m
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// Double-check after acquiring write lock.
	if m, ok = l.locks[userID]; ok {
		return m
	}
	m = &sync.RWMutex{}
	l.locks[userID] = m
	return m
}

// Lock acquires the user's lock exclusively and returns the release func.
func (l *UserLocks) Lock(userID string) func() {
	m := l.get(userID)
	m.Lock()
	return m.Unlock
}

// RLock acquires the user's lock shared and returns the release func.
func (l *UserLocks) RLock(userID string) func() {
	m := l.get(userID)
	m.RLock()
	return m.RUnlock
}
