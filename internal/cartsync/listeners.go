package cartsync

import (
	"slices"
	"sync"
)

// countListeners fans count-changed events out to subscribers.
type countListeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(int)
}

func (l *countListeners) add(fn func(int)) func() {
	l.mu.Lock()
	if l.fns == nil {
		l.fns = make(map[int]func(int))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *countListeners) fire(count int) {
	l.mu.Lock()
	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(int), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(count)
	}
}
