package store

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/cartsync/internal/cart"
)

const nowExpr = `strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`

// UpsertOrIncrement creates the item or atomically adds item.Quantity to it.
//
// The increment happens inside SQLite (ON CONFLICT DO UPDATE), so two
// writers racing on the same row both take effect. On the increment path
// only quantity and updated_at change; name, price and image_url keep the
// values from the first write.
func (s *Store) UpsertOrIncrement(ctx context.Context, identityID string, item cart.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	it := item.Normalized()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_items
		(identity_id, product_id, name, price, quantity, image_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, `+nowExpr+`)
		ON CONFLICT(identity_id, product_id) DO UPDATE SET
			quantity = cart_items.quantity + excluded.quantity,
			updated_at = excluded.updated_at
	`,
		identityID,
		it.ProductID,
		it.Name,
		it.Price.String(),
		it.Quantity,
		it.ImageURL,
	)
	if err != nil {
		return cart.NewStoreError("upsert", it.ProductID, err)
	}
	return nil
}

// SetQuantity merges quantity into an existing item, or deletes it when
// quantity <= 0. Setting a quantity on an absent item is a no-op: there is
// no document to merge into, and creating one without a name or price
// would store a partial item.
func (s *Store) SetQuantity(ctx context.Context, identityID, productID string, quantity int) error {
	pid := cart.NormalizeProductID(productID)
	if quantity <= 0 {
		return s.DeleteItem(ctx, identityID, pid)
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE cart_items
		SET quantity = ?, updated_at = `+nowExpr+`
		WHERE identity_id = ? AND product_id = ?
	`, quantity, identityID, pid)
	if err != nil {
		return cart.NewStoreError("set quantity", pid, err)
	}
	return nil
}

// DeleteItem removes an item. Idempotent.
func (s *Store) DeleteItem(ctx context.Context, identityID, productID string) error {
	pid := cart.NormalizeProductID(productID)
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE identity_id = ? AND product_id = ?
	`, identityID, pid)
	if err != nil {
		return cart.NewStoreError("delete", pid, err)
	}
	return nil
}

// ClearAll lists the identity's items and issues one delete per item
// concurrently. Deletes are independent: the first error is returned after
// all deletes have finished, and items whose delete failed stay in place.
func (s *Store) ClearAll(ctx context.Context, identityID string) error {
	items, err := s.ListItems(ctx, identityID)
	if err != nil {
		return err
	}

	var g errgroup.Group
	for _, it := range items {
		productID := it.ProductID
		g.Go(func() error {
			return s.DeleteItem(ctx, identityID, productID)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// EnsureCart inserts the cart marker row if it does not exist.
func (s *Store) EnsureCart(ctx context.Context, identityID string) error {
	if identityID == "" {
		return cart.NewPreconditionError("ensure cart", "", "identity id is empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO carts (identity_id) VALUES (?)
		ON CONFLICT(identity_id) DO NOTHING
	`, identityID)
	if err != nil {
		return cart.NewStoreError("ensure cart", "", err)
	}
	return nil
}
