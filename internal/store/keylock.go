package store

import "sync"

// KeyLock provides mutual exclusion per token id. The session layer holds
// the key's lock across its read-modify-write sequences so a refresh that
// read a record before a concurrent logout can never write its stale copy
// back afterwards.
//
// Entries are reference counted and removed once the last holder unlocks,
// so the table does not grow with the total number of ids ever seen.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyLockEntry
}

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyLockEntry)}
}

// Lock acquires the lock for the given key and returns the matching
// unlock function.
func (l *KeyLock) Lock(key string) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &keyLockEntry{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
