package cartsync

import (
	"context"
	"fmt"

	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/metrics"
)

// result is what a locked mutation reports back for feedback.
type result struct {
	toast   string
	addedTo bool // use the longer "added to cart" toast delay
}

type mutateFunc func(ctx context.Context, identityID string, it cart.Item) (result, error)

// withLock runs fn under the item's lock, refreshes, releases the lock, and
// only then emits the toast. applied is false when the item was busy (or the
// synchronizer closed); err is nil in that case.
func (s *Synchronizer) withLock(ctx context.Context, op, keyPrefix string, item cart.Item, fn mutateFunc) (applied bool, err error) {
	if err := item.Validate(); err != nil {
		return false, err
	}
	it := item
	it.ProductID = cart.NormalizeProductID(item.ProductID)

	if s.closed.Load() {
		return false, nil
	}
	if !s.locks.tryLock(it.ProductID) {
		s.metrics.Mutation(op, metrics.OutcomeSkipped)
		s.logger.Debug("mutation skipped: item busy", "op", op, "product", it.ProductID)
		return false, nil
	}

	s.feedback.Pulse(keyPrefix + it.ProductID)

	res, err := func() (result, error) {
		defer s.locks.unlock(it.ProductID)

		id, err := s.ids.EnsureIdentity(ctx)
		if err != nil {
			return result{}, err
		}
		res, err := fn(ctx, id.ID, it)
		if err != nil {
			return result{}, err
		}
		if err := s.refresh(ctx, id.ID); err != nil {
			return result{}, err
		}
		return res, nil
	}()
	if err != nil {
		s.metrics.Mutation(op, metrics.OutcomeFailed)
		s.logger.Warn("mutation failed", "op", op, "product", it.ProductID, "error", err)
		return true, err
	}

	s.metrics.Mutation(op, metrics.OutcomeApplied)
	s.logger.Debug("mutation applied", "op", op, "product", it.ProductID)
	s.emit(res)
	return true, nil
}

func (s *Synchronizer) emit(res result) {
	if res.toast == "" || s.closed.Load() {
		return
	}
	if res.addedTo {
		s.feedback.NotifyFor(res.toast, s.feedback.Delays().AddedToast)
		return
	}
	s.feedback.Notify(res.toast)
}

// Increment adds one to the item's quantity, creating it if absent.
func (s *Synchronizer) Increment(ctx context.Context, item cart.Item) (bool, error) {
	return s.withLock(ctx, OpIncrement, "inc-", item, func(ctx context.Context, uid string, it cart.Item) (result, error) {
		it.Quantity = 1
		if err := s.store.UpsertOrIncrement(ctx, uid, it); err != nil {
			return result{}, err
		}
		return result{toast: fmt.Sprintf("Increased %s quantity", displayName(it))}, nil
	})
}

// Decrement subtracts one from item.Quantity. Reaching zero deletes the item.
func (s *Synchronizer) Decrement(ctx context.Context, item cart.Item) (bool, error) {
	return s.withLock(ctx, OpDecrement, "dec-", item, func(ctx context.Context, uid string, it cart.Item) (result, error) {
		next := it.Quantity - 1
		if next <= 0 {
			if err := s.store.DeleteItem(ctx, uid, it.ProductID); err != nil {
				return result{}, err
			}
			return result{toast: fmt.Sprintf("%s removed from cart", displayName(it))}, nil
		}
		if err := s.store.SetQuantity(ctx, uid, it.ProductID, next); err != nil {
			return result{}, err
		}
		return result{toast: fmt.Sprintf("Decreased %s quantity", displayName(it))}, nil
	})
}

// RemoveItem deletes the item regardless of its quantity.
func (s *Synchronizer) RemoveItem(ctx context.Context, item cart.Item) (bool, error) {
	return s.withLock(ctx, OpRemove, "remove-", item, func(ctx context.Context, uid string, it cart.Item) (result, error) {
		if err := s.store.DeleteItem(ctx, uid, it.ProductID); err != nil {
			return result{}, err
		}
		return result{toast: fmt.Sprintf("%s removed from cart", displayName(it))}, nil
	})
}

// AddToCart is the product-list entry point: add one unit of a product that
// may or may not be in the cart yet.
func (s *Synchronizer) AddToCart(ctx context.Context, item cart.Item) (bool, error) {
	return s.withLock(ctx, OpAdd, "add-", item, func(ctx context.Context, uid string, it cart.Item) (result, error) {
		it.Quantity = 1
		if err := s.store.UpsertOrIncrement(ctx, uid, it); err != nil {
			return result{}, err
		}
		return result{toast: fmt.Sprintf("%s added to cart!", displayName(it)), addedTo: true}, nil
	})
}

// ClearCart deletes every item. It takes no item lock.
func (s *Synchronizer) ClearCart(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.feedback.Pulse(OpClear)

	id, err := s.ids.EnsureIdentity(ctx)
	if err == nil {
		err = s.store.ClearAll(ctx, id.ID)
	}
	if err == nil {
		err = s.refresh(ctx, id.ID)
	}
	if err != nil {
		s.metrics.Mutation(OpClear, metrics.OutcomeFailed)
		s.logger.Warn("clear failed", "error", err)
		return err
	}

	s.metrics.Mutation(OpClear, metrics.OutcomeApplied)
	s.emit(result{toast: "Cart cleared"})
	return nil
}

func displayName(it cart.Item) string {
	if it.Name != "" {
		return it.Name
	}
	return it.ProductID
}
