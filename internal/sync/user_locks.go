package sync

import "sync"

// UserLocks serializes all mailbox-mutating work for one user. Sync passes
// and the snooze sweeper share the same lock set, so two concurrent
// notifications for a user, or a sweep racing a sync pass, are totally
// ordered. Work for different users proceeds in parallel.
type UserLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewUserLocks creates an empty lock set.
func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[string]*sync.Mutex)}
}

// Get returns the mutex for a user, creating it on first use. Locks are never
// removed; the per-user footprint is one mutex per ever-seen user, which is
// negligible next to their mail.
func (l *UserLocks) Get(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	return m
}
