package harness

import (
	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/feedback"
)

// TraceEvent records the observable state after one step. Step 0 is the
// state after setup.
type TraceEvent struct {
	Step      int    `json:"step"`
	Op        string `json:"op"`
	ProductID string `json:"product_id,omitempty"`

	// Applied is set for per-item operations: false means the request was
	// dropped (busy item or closed synchronizer).
	Applied *bool `json:"applied,omitempty"`

	// Error is the cart.ErrorCode of a failed step.
	Error string `json:"error,omitempty"`

	Identity string `json:"identity,omitempty"`

	// Toast is the visible toast message, if any.
	Toast string `json:"toast,omitempty"`

	// Active lists the Active animation keys, sorted.
	Active []string `json:"active"`

	Count int    `json:"count"`
	Total string `json:"total"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step behaved as expected and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, after the setup event.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Cart is the final aggregate.
	Cart cart.Cart `json:"cart"`

	// Feedback is the final toast and animation state.
	Feedback feedback.Snapshot `json:"feedback"`

	// Identity is the identity bound at the end, nil when signed out.
	Identity *cart.Identity `json:"identity,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Cart:   cart.Empty(),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
