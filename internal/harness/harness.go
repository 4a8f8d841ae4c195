package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/cartsync"
	"github.com/roach88/cartsync/internal/feedback"
	"github.com/roach88/cartsync/internal/identity"
	"github.com/roach88/cartsync/internal/store"
	"github.com/roach88/cartsync/internal/testutil"
)

// Epoch is the fake clock's start time for every run.
var Epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

// settleTimeout bounds how long an advance step waits for released timer
// callbacks to run.
const settleTimeout = 2 * time.Second

var errInjected = errors.New("injected failure")

// Harness is the scenario execution engine. Every run gets its own store,
// identity provider and fake clock.
type Harness struct {
	store    *store.Store
	gated    *testutil.GatedStore
	provider *identity.LocalProvider
	resolver *identity.Resolver
	feedback *feedback.Controller
	clock    clockwork.FakeClock
	sync     *cartsync.Synchronizer
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Create a fresh in-memory store and an in-memory session
//  2. Seed setup items and sign in the scenario identity, if any
//  3. Execute steps, recording a trace event after each
//  4. Evaluate assertions against the final state
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := clockwork.NewFakeClockAt(Epoch)
	provider, err := identity.NewLocalProvider("",
		identity.WithIDGenerator(identity.NewSequenceGenerator("anon")),
		identity.WithSessionClock(clock),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity provider: %w", err)
	}

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	gated := testutil.NewGatedStore(st)
	resolver := identity.NewResolver(provider, gated, identity.WithLogger(discard))
	fb := feedback.New(feedback.WithClock(clock))
	h := &Harness{
		store:    st,
		gated:    gated,
		provider: provider,
		resolver: resolver,
		feedback: fb,
		clock:    clock,
		sync:     cartsync.New(gated, resolver, fb, cartsync.WithLogger(discard)),
	}
	defer h.sync.Close()

	ctx := context.Background()
	result := NewResult()

	if err := h.setup(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	result.Trace = append(result.Trace, h.record(0, "setup", "", nil, nil))

	for i, step := range scenario.Steps {
		applied, err := h.execute(ctx, step)
		checkStep(result, i, step, err)
		result.Trace = append(result.Trace, h.record(i+1, step.Op, step.ProductID, applied, err))
	}

	result.Cart = h.sync.Cart()
	result.Feedback = h.feedback.Snapshot()
	result.Identity = h.resolver.Current()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) setup(ctx context.Context, scenario *Scenario) error {
	if scenario.Identity == "" {
		return nil
	}
	for i, si := range scenario.Setup {
		price, err := parsePrice(si.Price)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		it := cart.Item{
			ProductID: si.ProductID,
			Name:      si.Name,
			Price:     price,
			Quantity:  si.Quantity,
			ImageURL:  si.ImageURL,
		}
		if err := h.store.UpsertOrIncrement(ctx, scenario.Identity, it); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	return h.login(ctx, scenario.Identity)
}

// execute runs one step. applied is non-nil only for per-item operations.
func (h *Harness) execute(ctx context.Context, step Step) (*bool, error) {
	var (
		applied bool
		err     error
	)
	switch step.Op {
	case OpAdd:
		applied, err = h.sync.AddToCart(ctx, h.stepItem(step))
	case OpIncrement:
		applied, err = h.sync.Increment(ctx, h.stepItem(step))
	case OpDecrement:
		applied, err = h.sync.Decrement(ctx, h.stepItem(step))
	case OpRemove:
		applied, err = h.sync.RemoveItem(ctx, h.stepItem(step))
	case OpClear:
		return nil, h.sync.ClearCart(ctx)
	case OpRefresh:
		return nil, h.sync.Refresh(ctx)
	case OpAdvance:
		d, err := time.ParseDuration(step.Duration)
		if err != nil {
			return nil, err
		}
		h.clock.Advance(d)
		return nil, h.waitSettled()
	case OpLogin:
		return nil, h.login(ctx, step.Credential)
	case OpLogout:
		return nil, h.logout(ctx)
	case OpFail:
		h.gated.Fail(step.StoreOp, errInjected)
		return nil, nil
	case OpHeal:
		h.gated.Fail(step.StoreOp, nil)
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
	return &applied, err
}

// stepItem prefers the cart's copy of the item, the way a host passes the
// rendered line item back in.
func (h *Harness) stepItem(step Step) cart.Item {
	if it, ok := h.sync.Cart().Find(step.ProductID); ok {
		return it
	}
	price, _ := parsePrice(step.Price)
	return cart.Item{
		ProductID: step.ProductID,
		Name:      step.Name,
		Price:     price,
		Quantity:  step.Quantity,
	}
}

func (h *Harness) login(ctx context.Context, credential string) error {
	id, err := h.provider.SignIn(ctx, credential)
	if err != nil {
		return err
	}
	h.resolver.Adopt(ctx, &id)
	return h.sync.Refresh(ctx)
}

func (h *Harness) logout(ctx context.Context) error {
	if err := h.provider.SignOut(ctx); err != nil {
		return err
	}
	h.resolver.Adopt(ctx, nil)
	h.sync.Reset()
	return nil
}

// waitSettled blocks until every timer released by the last Advance has
// run its callback.
func (h *Harness) waitSettled() error {
	deadline := time.Now().Add(settleTimeout)
	for !h.feedback.Settled() {
		if time.Now().After(deadline) {
			return fmt.Errorf("feedback timers did not settle within %s", settleTimeout)
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}

func (h *Harness) record(step int, op, productID string, applied *bool, err error) TraceEvent {
	c := h.sync.Cart()
	snap := h.feedback.Snapshot()
	ev := TraceEvent{
		Step:      step,
		Op:        op,
		ProductID: cart.NormalizeProductID(productID),
		Applied:   applied,
		Error:     errorCode(err),
		Active:    snap.ActiveKeys(),
		Count:     c.Count(),
		Total:     c.Total.StringFixed(2),
	}
	if id := h.resolver.Current(); id != nil {
		ev.Identity = id.ID
	}
	if snap.Toast.Visible {
		ev.Toast = snap.Toast.Message
	}
	return ev
}

func checkStep(result *Result, index int, step Step, err error) {
	code := errorCode(err)
	switch {
	case err != nil && step.ExpectError == "":
		result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", index, step.Op, err))
	case code != step.ExpectError:
		result.AddError(fmt.Sprintf("steps[%d] %s: expected error %q, got %q", index, step.Op, step.ExpectError, code))
	}
}

// errorCode maps err to its cart.ErrorCode, "ERROR" for untyped errors.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var ce *cart.Error
	if errors.As(err, &ce) {
		return string(ce.Code)
	}
	return "ERROR"
}
