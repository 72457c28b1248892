package service

import "sync"

// userLocks serializes work per chat user. An entry lives only while some
// caller holds or waits on it.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// lock blocks until chatUserID is free and returns the matching unlock.
func (l *userLocks) lock(chatUserID string) func() {
	l.mu.Lock()
	ul, ok := l.locks[chatUserID]
	if !ok {
		ul = &userLock{}
		l.locks[chatUserID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()

		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, chatUserID)
		}
		l.mu.Unlock()
	}
}

func (l *userLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
