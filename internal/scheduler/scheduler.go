package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/roach88/cartsync/internal/cart"
)

// DefaultInterval is the poll interval while an identity is bound.
const DefaultInterval = 2 * time.Second

// ErrStarted is returned by Start on a scheduler that was already started
// or stopped.
var ErrStarted = errors.New("scheduler: already started")

// Subscriber is the subscription half of identity.Provider.
type Subscriber interface {
	Subscribe(fn func(*cart.Identity)) (cancel func())
}

// Binder adopts identities from change events. *identity.Resolver
// implements it.
type Binder interface {
	Adopt(ctx context.Context, id *cart.Identity)
	Current() *cart.Identity
}

// Refresher is what the scheduler drives. *cartsync.Synchronizer
// implements it.
type Refresher interface {
	Refresh(ctx context.Context) error
	Reset()
}

// Scheduler triggers refreshes on identity change and on a ticker.
type Scheduler struct {
	source   Subscriber
	binder   Binder
	target   Refresher
	clock    clockwork.Clock
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	started   bool
	stopped   bool
	cancelSub func()
	ticker    clockwork.Ticker
	cancel    context.CancelFunc
	done      chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the poll interval. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock sets the clock the ticker runs on.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a stopped Scheduler.
func New(source Subscriber, binder Binder, target Refresher, opts ...Option) *Scheduler {
	s := &Scheduler{
		source:   source,
		binder:   binder,
		target:   target,
		clock:    clockwork.NewRealClock(),
		interval: DefaultInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to identity changes, starts the ticker and the loop.
// The loop exits when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return ErrStarted
	}
	s.started = true

	changes := newChangeSlot()
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.ticker = s.clock.NewTicker(s.interval)
	// Subscribe delivers the current identity right away; it lands in the
	// slot and is handled as the loop's first event.
	s.cancelSub = s.source.Subscribe(changes.put)

	go s.loop(loopCtx, changes, s.ticker, s.done)

	s.logger.Debug("scheduler started", "interval", s.interval)
	return nil
}

// Stop releases the subscription and ticker, cancels any refresh in
// flight and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.cancelSub != nil {
		s.cancelSub()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
	s.logger.Debug("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, changes *changeSlot, ticker clockwork.Ticker, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes.wait():
			if id, ok := changes.take(); ok {
				s.handleChange(ctx, id)
			}
		case <-ticker.Chan():
			if s.binder.Current() == nil {
				continue
			}
			s.refresh(ctx, "poll")
		}
	}
}

func (s *Scheduler) handleChange(ctx context.Context, id *cart.Identity) {
	s.binder.Adopt(ctx, id)
	if id == nil || id.IsZero() {
		s.logger.Debug("identity cleared; resetting cart")
		s.target.Reset()
		return
	}
	s.logger.Debug("identity changed", "identity", id.ID)
	s.refresh(ctx, "identity change")
}

func (s *Scheduler) refresh(ctx context.Context, reason string) {
	if err := s.target.Refresh(ctx); err != nil && ctx.Err() == nil {
		s.logger.Warn("scheduled refresh failed", "reason", reason, "error", err)
	}
}
