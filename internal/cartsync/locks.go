package cartsync

import "sync"

// lockSet is the per-product busy map.
type lockSet struct {
	mu   sync.Mutex
	busy map[string]bool
}

func newLockSet() *lockSet {
	return &lockSet{busy: make(map[string]bool)}
}

// tryLock marks id busy. Returns false if it already was.
func (l *lockSet) tryLock(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy[id] {
		return false
	}
	l.busy[id] = true
	return true
}

func (l *lockSet) unlock(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.busy, id)
}

func (l *lockSet) isBusy(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.busy[id]
}
