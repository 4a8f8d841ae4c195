package cart

import "github.com/shopspring/decimal"

// Cart is the computed aggregate over a store read.
//
// Items keep the order the store returned them in.
type Cart struct {
	Items []Item          `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// New builds the aggregate from a list of items.
// Items with a non-positive quantity are dropped since they cannot exist in
// the store. The returned Items slice is never nil.
func New(items []Item) Cart {
	out := make([]Item, 0, len(items))
	total := decimal.Zero
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		out = append(out, it)
		total = total.Add(it.Subtotal())
	}
	return Cart{Items: out, Total: total}
}

// Empty returns the aggregate for a cart with no items.
func Empty() Cart {
	return Cart{Items: []Item{}, Total: decimal.Zero}
}

// Count returns the sum of quantities, which drives the badge.
func (c Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Find returns the item with the given product ID.
func (c Cart) Find(productID string) (Item, bool) {
	id := NormalizeProductID(productID)
	for _, it := range c.Items {
		if it.ProductID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Clone returns a copy whose Items slice does not alias c.
func (c Cart) Clone() Cart {
	items := make([]Item, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items, Total: c.Total}
}
