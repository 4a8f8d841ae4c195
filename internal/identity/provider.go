package identity

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/cartsync/internal/cart"
)

// Provider is the identity provider contract.
type Provider interface {
	// Current returns the signed-in identity, or nil when nobody is signed in.
	Current(ctx context.Context) (*cart.Identity, error)

	// CreateAnonymous mints a new anonymous identity and makes it current.
	CreateAnonymous(ctx context.Context) (cart.Identity, error)

	// Subscribe registers fn for identity changes. fn is called once with the
	// current identity before Subscribe returns, then on every change. A nil
	// identity means signed out. The returned cancel func is idempotent.
	Subscribe(fn func(*cart.Identity)) (cancel func())
}

// Authenticator is implemented by providers that support explicit sign-in.
type Authenticator interface {
	SignIn(ctx context.Context, credential string) (cart.Identity, error)
	SignOut(ctx context.Context) error
}

// Notifier fans identity changes out to subscribers.
//
// Callbacks run on the publishing goroutine, outside the notifier's lock, so
// a callback may call back into the provider.
type Notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func(*cart.Identity)
}

// Subscribe registers fn and returns its cancel func.
func (n *Notifier) Subscribe(fn func(*cart.Identity)) func() {
	n.mu.Lock()
	if n.subs == nil {
		n.subs = make(map[int]func(*cart.Identity))
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// Publish delivers id to every subscriber in registration order.
func (n *Notifier) Publish(id *cart.Identity) {
	n.mu.Lock()
	keys := make([]int, 0, len(n.subs))
	for k := range n.subs {
		keys = append(keys, k)
	}
	fns := make([]func(*cart.Identity), 0, len(keys))
	slices.Sort(keys)
	for _, k := range keys {
		fns = append(fns, n.subs[k])
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(copyIdentity(id))
	}
}

// Len returns the number of active subscribers.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

func copyIdentity(id *cart.Identity) *cart.Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
