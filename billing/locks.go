package billing

import "sync"

// accountLocks serializes balance mutations per account. Locks are created
// on first use and never reclaimed; the set of active accounts is small
// relative to the life of the process.
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: map[string]*sync.Mutex{}}
}

func (l *accountLocks) Lock(accountID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[accountID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
