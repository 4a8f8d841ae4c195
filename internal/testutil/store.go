package testutil

import (
	"context"
	"sync"

	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/store"
)

// Operation names recorded by GatedStore.
const (
	OpList   = "list"
	OpUpsert = "upsert"
	OpSet    = "set"
	OpDelete = "delete"
	OpClear  = "clear"
	OpEnsure = "ensure"
)

// GatedStore wraps a CartStore. While held, write operations block before
// reaching the inner store until Release is called, which lets a test keep a
// mutation in flight. Reads and EnsureCart are never gated.
//
// Thread-safety: safe for concurrent use.
type GatedStore struct {
	inner store.CartStore

	mu      sync.Mutex
	gate    chan struct{}
	calls   map[string]int
	failing map[string]error
	entered chan string
}

var _ store.CartStore = (*GatedStore)(nil)

// NewGatedStore wraps inner with the gate open.
func NewGatedStore(inner store.CartStore) *GatedStore {
	return &GatedStore{
		inner:   inner,
		calls:   make(map[string]int),
		failing: make(map[string]error),
		entered: make(chan string, 64),
	}
}

// Hold closes the gate. Subsequent writes block until Release.
func (g *GatedStore) Hold() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gate == nil {
		g.gate = make(chan struct{})
	}
}

// Release opens the gate and unblocks every waiting write.
func (g *GatedStore) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gate != nil {
		close(g.gate)
		g.gate = nil
	}
}

// Entered receives the operation name each time a write blocks on the gate.
func (g *GatedStore) Entered() <-chan string {
	return g.entered
}

// Fail makes every call of op return err until Fail(op, nil).
func (g *GatedStore) Fail(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.failing, op)
		return
	}
	g.failing[op] = err
}

// Calls returns how many times op reached the wrapper.
func (g *GatedStore) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

// enter records the call, waits on the gate if gated, and returns an
// injected failure if any.
func (g *GatedStore) enter(ctx context.Context, op string, gated bool) error {
	g.mu.Lock()
	g.calls[op]++
	gate := g.gate
	g.mu.Unlock()

	if gated && gate != nil {
		select {
		case g.entered <- op:
		default:
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return cart.NewStoreError(op, "", ctx.Err())
		}
	}

	g.mu.Lock()
	err := g.failing[op]
	g.mu.Unlock()
	if err != nil {
		return cart.NewStoreError(op, "", err)
	}
	return nil
}

func (g *GatedStore) ListItems(ctx context.Context, identityID string) ([]cart.Item, error) {
	if err := g.enter(ctx, OpList, false); err != nil {
		return nil, err
	}
	return g.inner.ListItems(ctx, identityID)
}

func (g *GatedStore) UpsertOrIncrement(ctx context.Context, identityID string, item cart.Item) error {
	if err := g.enter(ctx, OpUpsert, true); err != nil {
		return err
	}
	return g.inner.UpsertOrIncrement(ctx, identityID, item)
}

func (g *GatedStore) SetQuantity(ctx context.Context, identityID, productID string, quantity int) error {
	if err := g.enter(ctx, OpSet, true); err != nil {
		return err
	}
	return g.inner.SetQuantity(ctx, identityID, productID, quantity)
}

func (g *GatedStore) DeleteItem(ctx context.Context, identityID, productID string) error {
	if err := g.enter(ctx, OpDelete, true); err != nil {
		return err
	}
	return g.inner.DeleteItem(ctx, identityID, productID)
}

func (g *GatedStore) ClearAll(ctx context.Context, identityID string) error {
	if err := g.enter(ctx, OpClear, true); err != nil {
		return err
	}
	return g.inner.ClearAll(ctx, identityID)
}

func (g *GatedStore) EnsureCart(ctx context.Context, identityID string) error {
	if err := g.enter(ctx, OpEnsure, false); err != nil {
		return err
	}
	return g.inner.EnsureCart(ctx, identityID)
}
