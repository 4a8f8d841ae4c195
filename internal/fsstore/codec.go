package fsstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	"github.com/roach88/cartsync/internal/cart"
)

// createFields is the full document written when an item is first added.
func createFields(it cart.Item) map[string]any {
	return map[string]any{
		"name":      it.Name,
		"price":     it.Price.InexactFloat64(),
		"quantity":  it.Quantity,
		"imageUrl":  it.ImageURL,
		"updatedAt": firestore.ServerTimestamp,
	}
}

// incrementUpdates adds delta to quantity and stamps updatedAt server-side.
func incrementUpdates(delta int) []firestore.Update {
	if delta <= 0 {
		delta = 1
	}
	return []firestore.Update{
		{Path: "quantity", Value: firestore.Increment(delta)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	}
}

// itemFromData parses a cartItems document. Field types are read leniently
// since documents may have been written by other clients (e.g. a web app
// writing price as an integer). Documents without a positive quantity are
// skipped; they cannot exist under delete-at-zero.
func itemFromData(productID string, raw map[string]any) (cart.Item, bool) {
	pid := cart.NormalizeProductID(productID)
	if pid == "" || raw == nil {
		return cart.Item{}, false
	}

	qty := asInt(raw["quantity"])
	if qty <= 0 {
		return cart.Item{}, false
	}

	it := cart.Item{
		ProductID: pid,
		Name:      asString(raw["name"]),
		Price:     asDecimal(raw["price"]),
		Quantity:  qty,
		ImageURL:  asString(raw["imageUrl"]),
	}
	if ts, ok := asTime(raw["updatedAt"]); ok {
		it.UpdatedAt = ts
	}
	return it, true
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}

func asInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func asDecimal(v any) decimal.Decimal {
	switch t := v.(type) {
	case int64:
		return decimal.NewFromInt(t)
	case int:
		return decimal.NewFromInt(int64(t))
	case float64:
		return decimal.NewFromFloat(t)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	default:
		return time.Time{}, false
	}
}
