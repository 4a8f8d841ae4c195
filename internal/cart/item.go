package cart

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Item is one line item in a cart.
//
// UpdatedAt is assigned by the store on every write and is opaque to the
// client; it is zero on items that have not been read back yet.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt,omitempty"`
}

// Subtotal returns Price x Quantity.
func (it Item) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Validate checks the fields a store needs to create the item.
// Quantity is not checked here: callers send deltas, and zero means "default 1".
func (it Item) Validate() error {
	if NormalizeProductID(it.ProductID) == "" {
		return NewPreconditionError("validate", it.ProductID, "product id is empty")
	}
	if it.Price.IsNegative() {
		return NewPreconditionError("validate", it.ProductID, "price must not be negative")
	}
	if it.Quantity < 0 {
		return NewPreconditionError("validate", it.ProductID, "quantity must not be negative")
	}
	return nil
}

// Normalized returns a copy with a normalized product ID and a quantity of
// at least 1.
func (it Item) Normalized() Item {
	it.ProductID = NormalizeProductID(it.ProductID)
	if it.Quantity <= 0 {
		it.Quantity = 1
	}
	return it
}

// NormalizeProductID trims surrounding whitespace and applies Unicode NFC so
// that visually identical IDs map to the same lock and document key.
func NormalizeProductID(id string) string {
	return norm.NFC.String(strings.TrimSpace(id))
}

// Identity is the partition key a cart is bound to.
type Identity struct {
	ID        string `json:"id" yaml:"identity_id"`
	Anonymous bool   `json:"anonymous" yaml:"anonymous"`
}

// IsZero reports whether the identity is unset.
func (id Identity) IsZero() bool {
	return id.ID == ""
}
