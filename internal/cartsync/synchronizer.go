package cartsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/feedback"
	"github.com/roach88/cartsync/internal/metrics"
	"github.com/roach88/cartsync/internal/store"
)

// IdentitySource supplies the identity mutations are keyed by.
// *identity.Resolver implements it.
type IdentitySource interface {
	EnsureIdentity(ctx context.Context) (cart.Identity, error)
	Current() *cart.Identity
}

// Operation names, used for logging, metrics and button keys.
const (
	OpIncrement = "increment"
	OpDecrement = "decrement"
	OpRemove    = "remove"
	OpAdd       = "add"
	OpClear     = "clear"
)

// ErrClosed is returned by ClearCart after Close. Per-item operations on a
// closed synchronizer are dropped like busy ones.
var ErrClosed = errors.New("cartsync: synchronizer closed")

// Synchronizer is the cart synchronizer.
//
// Thread-safety: all methods are safe for concurrent use.
type Synchronizer struct {
	store    store.CartStore
	ids      IdentitySource
	feedback *feedback.Controller
	logger   *slog.Logger
	metrics  *metrics.Metrics

	locks     *lockSet
	listeners countListeners
	closed    atomic.Bool

	mu    sync.RWMutex
	cart  cart.Cart
	count int
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records mutations and refreshes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Synchronizer) {
		s.metrics = m
	}
}

// New creates a Synchronizer. A nil fb gets a controller on the real clock.
func New(st store.CartStore, ids IdentitySource, fb *feedback.Controller, opts ...Option) *Synchronizer {
	if fb == nil {
		fb = feedback.New()
	}
	s := &Synchronizer{
		store:    st,
		ids:      ids,
		feedback: fb,
		logger:   slog.Default(),
		locks:    newLockSet(),
		cart:     cart.Empty(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cart returns a copy of the last refreshed aggregate.
func (s *Synchronizer) Cart() cart.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

// Count returns the item count (sum of quantities) of the last refresh.
func (s *Synchronizer) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Busy reports whether a mutation for productID is in flight.
func (s *Synchronizer) Busy(productID string) bool {
	return s.locks.isBusy(cart.NormalizeProductID(productID))
}

// Feedback returns the feedback controller driven by this synchronizer.
func (s *Synchronizer) Feedback() *feedback.Controller {
	return s.feedback
}

// OnCountChange registers fn for count-changed events. fn runs on the
// goroutine that completed the refresh.
func (s *Synchronizer) OnCountChange(fn func(count int)) (cancel func()) {
	return s.listeners.add(fn)
}

// Close marks the synchronizer torn down and cancels feedback timers.
// Results of operations still in flight are dropped.
func (s *Synchronizer) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.feedback.Close()
}

// Reset empties the aggregate without touching the store (sign-out).
func (s *Synchronizer) Reset() {
	s.apply(cart.Empty())
}

// Refresh reads the bound identity's items and replaces the aggregate.
// With no bound identity the aggregate is emptied and the store untouched.
// On failure the previous aggregate is kept.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	id := s.ids.Current()
	if id == nil {
		s.apply(cart.Empty())
		return nil
	}
	return s.refresh(ctx, id.ID)
}

func (s *Synchronizer) refresh(ctx context.Context, identityID string) error {
	items, err := s.store.ListItems(ctx, identityID)
	if err != nil {
		s.metrics.Refresh(err, 0, 0)
		s.logger.Warn("refresh failed; keeping previous cart", "identity", identityID, "error", err)
		return err
	}
	if s.closed.Load() {
		s.logger.Debug("refresh result dropped: closed", "identity", identityID)
		return nil
	}
	if cur := s.ids.Current(); cur == nil || cur.ID != identityID {
		s.logger.Debug("refresh result dropped: identity changed", "identity", identityID)
		return nil
	}

	c := cart.New(items)
	s.metrics.Refresh(nil, c.Count(), c.Total.InexactFloat64())
	s.apply(c)
	return nil
}

// apply swaps in c and fires count-changed and badge feedback.
func (s *Synchronizer) apply(c cart.Cart) {
	s.mu.Lock()
	prev := s.count
	s.cart = c
	s.count = c.Count()
	next := s.count
	s.mu.Unlock()

	if next == prev {
		return
	}
	if next > prev && next > 0 {
		s.feedback.Pulse(feedback.BadgeKey)
	}
	s.listeners.fire(next)
}
