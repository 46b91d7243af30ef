package sync

import "sync"

// userLocks serializes syncs per user. Two concurrent triggers for the same
// user would interleave upserts and double-count results, so the second one
// is rejected with ErrSyncInProgress instead of queued.
type userLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

var syncLocks = &userLocks{locks: make(map[uint]*sync.Mutex)}

func (l *userLocks) tryAcquire(userID uint) bool {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	return m.TryLock()
}

func (l *userLocks) release(userID uint) {
	l.mu.Lock()
	m := l.locks[userID]
	l.mu.Unlock()

	if m != nil {
		m.Unlock()
	}
}
