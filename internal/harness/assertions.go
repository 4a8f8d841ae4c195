package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Items    []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Items) > 0 {
		fmt.Fprintf(&buf, "\nCart:\n")
		for _, line := range e.Items {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}
	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	c := result.Cart
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Items: cartLines(result)}
	}

	switch a.Type {
	case AssertTotal:
		want, err := decimal.NewFromString(a.Total)
		if err != nil {
			return err
		}
		if !c.Total.Equal(want) {
			return fail("total "+want.StringFixed(2), "total "+c.Total.StringFixed(2))
		}

	case AssertCount:
		if got := c.Count(); a.Count == nil || got != *a.Count {
			return fail(fmt.Sprintf("count %d", deref(a.Count)), fmt.Sprintf("count %d", got))
		}

	case AssertQuantity:
		it, ok := c.Find(a.ProductID)
		if !ok {
			return fail(fmt.Sprintf("%s x%d", a.ProductID, a.Quantity), a.ProductID+" not in cart")
		}
		if it.Quantity != a.Quantity {
			return fail(fmt.Sprintf("%s x%d", a.ProductID, a.Quantity), fmt.Sprintf("%s x%d", it.ProductID, it.Quantity))
		}

	case AssertAbsent:
		if it, ok := c.Find(a.ProductID); ok {
			return fail(a.ProductID+" not in cart", fmt.Sprintf("%s x%d", it.ProductID, it.Quantity))
		}

	case AssertToast:
		got := result.Feedback.Toast
		if a.Message != "" && got.Message != a.Message {
			return fail(fmt.Sprintf("toast %q", a.Message), fmt.Sprintf("toast %q", got.Message))
		}
		if a.Visible != nil && got.Visible != *a.Visible {
			return fail(fmt.Sprintf("toast visible=%t", *a.Visible), fmt.Sprintf("toast visible=%t", got.Visible))
		}

	case AssertIdentity:
		id := result.Identity
		if a.Identity != nil {
			got := ""
			if id != nil {
				got = id.ID
			}
			if got != *a.Identity {
				return fail(fmt.Sprintf("identity %q", *a.Identity), fmt.Sprintf("identity %q", got))
			}
		}
		if a.Anonymous != nil {
			if id == nil {
				return fail(fmt.Sprintf("anonymous=%t", *a.Anonymous), "no identity")
			}
			if id.Anonymous != *a.Anonymous {
				return fail(fmt.Sprintf("anonymous=%t", *a.Anonymous), fmt.Sprintf("anonymous=%t", id.Anonymous))
			}
		}

	case AssertAnimations:
		got := result.Feedback.ActiveKeys()
		want := slices.Clone(a.Active)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			return fail(fmt.Sprintf("active %v", want), fmt.Sprintf("active %v", got))
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func cartLines(result *Result) []string {
	lines := make([]string, 0, len(result.Cart.Items))
	for _, it := range result.Cart.Items {
		lines = append(lines, fmt.Sprintf("%s x%d @ %s", it.ProductID, it.Quantity, it.Price.StringFixed(2)))
	}
	return lines
}

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
