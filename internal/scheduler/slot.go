package scheduler

import (
	"sync"

	"github.com/roach88/cartsync/internal/cart"
)

// changeSlot holds the latest identity change not yet handled.
type changeSlot struct {
	mu      sync.Mutex
	pending bool
	latest  *cart.Identity
	signal  chan struct{} // buffered, size 1
}

func newChangeSlot() *changeSlot {
	return &changeSlot{signal: make(chan struct{}, 1)}
}

// put overwrites any unhandled change. Never blocks.
func (c *changeSlot) put(id *cart.Identity) {
	c.mu.Lock()
	c.latest = id
	c.pending = true
	c.mu.Unlock()

	select {
	case c.signal <- struct{}{}:
	default:
	}
}

// take returns the pending change, if any, and clears it.
func (c *changeSlot) take() (*cart.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending {
		return nil, false
	}
	id := c.latest
	c.latest = nil
	c.pending = false
	return id, true
}

func (c *changeSlot) wait() <-chan struct{} {
	return c.signal
}
