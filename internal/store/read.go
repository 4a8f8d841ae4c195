package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/cartsync/internal/cart"
)

// sqliteTimeLayout matches strftime('%Y-%m-%dT%H:%M:%fZ', 'now').
const sqliteTimeLayout = "2006-01-02T15:04:05.000Z"

// ListItems returns all items for an identity ordered by product ID.
//
// Returns an empty slice (not nil) if the identity has no items.
func (s *Store) ListItems(ctx context.Context, identityID string) ([]cart.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, price, quantity, image_url, updated_at
		FROM cart_items
		WHERE identity_id = ?
		ORDER BY product_id COLLATE BINARY ASC
	`, identityID)
	if err != nil {
		return nil, cart.NewStoreError("list", "", fmt.Errorf("query cart items: %w", err))
	}
	defer rows.Close()

	items := []cart.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, cart.NewStoreError("list", "", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, cart.NewStoreError("list", "", fmt.Errorf("iterate cart items: %w", err))
	}

	return items, nil
}

// HasCart reports whether the cart marker exists for the identity.
func (s *Store) HasCart(ctx context.Context, identityID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM carts WHERE identity_id = ?`, identityID).Scan(&n)
	if err != nil {
		return false, cart.NewStoreError("has cart", "", err)
	}
	return n > 0, nil
}

// getItem returns a single item, or sql.ErrNoRows.
func (s *Store) getItem(ctx context.Context, identityID, productID string) (cart.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT product_id, name, price, quantity, image_url, updated_at
		FROM cart_items
		WHERE identity_id = ? AND product_id = ?
	`, identityID, productID)
	return scanItem(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (cart.Item, error) {
	var (
		it        cart.Item
		price     string
		updatedAt string
	)
	if err := row.Scan(&it.ProductID, &it.Name, &price, &it.Quantity, &it.ImageURL, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return cart.Item{}, err
		}
		return cart.Item{}, fmt.Errorf("scan cart item: %w", err)
	}

	p, err := decimal.NewFromString(price)
	if err != nil {
		return cart.Item{}, fmt.Errorf("parse price %q for %s: %w", price, it.ProductID, err)
	}
	it.Price = p

	ts, err := time.Parse(sqliteTimeLayout, updatedAt)
	if err != nil {
		return cart.Item{}, fmt.Errorf("parse updated_at %q for %s: %w", updatedAt, it.ProductID, err)
	}
	it.UpdatedAt = ts

	return it, nil
}
