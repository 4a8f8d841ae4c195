package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/cartsync/internal/cart"
)

// CartInitializer creates the per-identity cart marker if it is absent.
// store.CartStore satisfies it.
type CartInitializer interface {
	EnsureCart(ctx context.Context, identityID string) error
}

// Resolver caches the identity the cart is bound to.
//
// Thread-safety: all methods are safe for concurrent use. EnsureIdentity
// holds createMu across the provider round-trip so only one anonymous
// identity is ever created per session.
type Resolver struct {
	provider Provider
	carts    CartInitializer
	logger   *slog.Logger

	createMu sync.Mutex

	mu       sync.RWMutex
	cached   *cart.Identity
	markerOK map[string]bool
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a resolver over provider. carts may be nil, in which
// case no cart marker is created.
func NewResolver(provider Provider, carts CartInitializer, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		provider: provider,
		carts:    carts,
		logger:   slog.Default(),
		markerOK: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Current returns the cached identity without contacting the provider.
func (r *Resolver) Current() *cart.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyIdentity(r.cached)
}

// EnsureIdentity returns the bound identity, creating an anonymous one if
// nobody is signed in. Errors carry cart.CodeIdentityUnavailable.
func (r *Resolver) EnsureIdentity(ctx context.Context) (cart.Identity, error) {
	if id := r.Current(); id != nil {
		return *id, nil
	}
	if r.provider == nil {
		return cart.Identity{}, cart.NewIdentityError("ensure identity", errors.New("no identity provider"))
	}

	r.createMu.Lock()
	defer r.createMu.Unlock()

	// Another caller may have finished while we waited.
	if id := r.Current(); id != nil {
		return *id, nil
	}

	current, err := r.provider.Current(ctx)
	if err != nil {
		return cart.Identity{}, asIdentityError("current", err)
	}
	if current != nil && !current.IsZero() {
		r.bind(ctx, current)
		return *current, nil
	}

	created, err := r.provider.CreateAnonymous(ctx)
	if err != nil {
		return cart.Identity{}, asIdentityError("create anonymous", err)
	}
	r.logger.Info("anonymous identity created", "identity", created.ID)
	r.bind(ctx, &created)
	return created, nil
}

// Adopt binds the identity delivered by a change event. A nil identity
// clears the cache (signed out).
func (r *Resolver) Adopt(ctx context.Context, id *cart.Identity) {
	if id == nil || id.IsZero() {
		r.mu.Lock()
		r.cached = nil
		r.mu.Unlock()
		return
	}
	r.bind(ctx, id)
}

func (r *Resolver) bind(ctx context.Context, id *cart.Identity) {
	r.mu.Lock()
	r.cached = copyIdentity(id)
	needMarker := r.carts != nil && !r.markerOK[id.ID]
	r.mu.Unlock()

	if !needMarker {
		return
	}
	if err := r.carts.EnsureCart(ctx, id.ID); err != nil {
		// Writes still work without the marker; retried on the next bind.
		r.logger.Warn("cart marker not created", "identity", id.ID, "error", err)
		return
	}
	r.mu.Lock()
	r.markerOK[id.ID] = true
	r.mu.Unlock()
}

func asIdentityError(op string, err error) error {
	var ce *cart.Error
	if errors.As(err, &ce) {
		return err
	}
	return cart.NewIdentityError(op, err)
}
