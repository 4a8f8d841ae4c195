package store

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/roach88/cartsync/internal/cart"
)

// createTestStore creates a new file-backed store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestItem creates an item with a price given as a decimal string.
func createTestItem(productID, price string, quantity int) cart.Item {
	return cart.Item{
		ProductID: productID,
		Name:      productID,
		Price:     decimal.RequireFromString(price),
		Quantity:  quantity,
		ImageURL:  "https://img.example/" + productID + ".png",
	}
}
