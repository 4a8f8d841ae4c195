package cli

import (
	"fmt"
	"strings"

	"github.com/roach88/cartsync/internal/cart"
)

// CartView is what cart commands print.
type CartView struct {
	Identity  string     `json:"identity,omitempty"`
	Anonymous bool       `json:"anonymous,omitempty"`
	Applied   *bool      `json:"applied,omitempty"`
	Toast     string     `json:"toast,omitempty"`
	Items     []ItemView `json:"items"`
	Count     int        `json:"count"`
	Total     string     `json:"total"`
}

// ItemView is one rendered line item.
type ItemView struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
	ImageURL  string `json:"image_url,omitempty"`
}

func (rt *Runtime) view() CartView {
	c := rt.Sync.Cart()
	v := CartView{
		Items: make([]ItemView, 0, len(c.Items)),
		Count: c.Count(),
		Total: c.Total.StringFixed(2),
	}
	if id := rt.Resolver.Current(); id != nil {
		v.Identity = id.ID
		v.Anonymous = id.Anonymous
	}
	if t := rt.Feedback.Toast(); t.Visible {
		v.Toast = t.Message
	}
	for _, it := range c.Items {
		v.Items = append(v.Items, itemView(it))
	}
	return v
}

func itemView(it cart.Item) ItemView {
	return ItemView{
		ProductID: it.ProductID,
		Name:      it.Name,
		Price:     it.Price.StringFixed(2),
		Quantity:  it.Quantity,
		Subtotal:  it.Subtotal().StringFixed(2),
		ImageURL:  it.ImageURL,
	}
}

// String renders the text form.
func (v CartView) String() string {
	var b strings.Builder
	if v.Applied != nil && !*v.Applied {
		b.WriteString("(skipped: item busy)\n")
	}
	if v.Toast != "" {
		fmt.Fprintf(&b, "%s\n", v.Toast)
	}
	switch {
	case v.Identity == "":
		b.WriteString("Signed out\n")
	case v.Anonymous:
		fmt.Fprintf(&b, "Cart of %s (anonymous)\n", v.Identity)
	default:
		fmt.Fprintf(&b, "Cart of %s\n", v.Identity)
	}
	if len(v.Items) == 0 {
		b.WriteString("  (empty)\n")
	}
	for _, it := range v.Items {
		fmt.Fprintf(&b, "  %-16s %-20s %3d x %8s = %8s\n", it.ProductID, it.Name, it.Quantity, it.Price, it.Subtotal)
	}
	fmt.Fprintf(&b, "Total: %s (%d %s)", v.Total, v.Count, plural(v.Count, "item", "items"))
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
