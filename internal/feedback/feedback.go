package feedback

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// BadgeKey is the animation key of the cart count badge.
const BadgeKey = "badge"

// Default delays.
const (
	DefaultToastDelay      = 2500 * time.Millisecond
	DefaultAddedToastDelay = 3000 * time.Millisecond
	DefaultButtonDelay     = 250 * time.Millisecond
	DefaultBadgeDelay      = 500 * time.Millisecond
)

// AnimationState is the state of one animation key.
type AnimationState int

const (
	Normal AnimationState = iota
	Active
)

// String returns "normal" or "active".
func (s AnimationState) String() string {
	if s == Active {
		return "active"
	}
	return "normal"
}

// MarshalText renders the state by name in JSON and YAML output.
func (s AnimationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Toast is the single toast slot.
type Toast struct {
	Message string `json:"message"`
	Visible bool   `json:"visible"`
}

// Delays holds how long each kind of feedback stays up.
type Delays struct {
	Toast      time.Duration
	AddedToast time.Duration
	Button     time.Duration
	Badge      time.Duration
}

// DefaultDelays returns the stock delays.
func DefaultDelays() Delays {
	return Delays{
		Toast:      DefaultToastDelay,
		AddedToast: DefaultAddedToastDelay,
		Button:     DefaultButtonDelay,
		Badge:      DefaultBadgeDelay,
	}
}

// withDefaults fills zero fields from DefaultDelays.
func (d Delays) withDefaults() Delays {
	def := DefaultDelays()
	if d.Toast <= 0 {
		d.Toast = def.Toast
	}
	if d.AddedToast <= 0 {
		d.AddedToast = def.AddedToast
	}
	if d.Button <= 0 {
		d.Button = def.Button
	}
	if d.Badge <= 0 {
		d.Badge = def.Badge
	}
	return d
}

// Snapshot is a point-in-time copy of all feedback state.
type Snapshot struct {
	Toast      Toast                     `json:"toast"`
	Animations map[string]AnimationState `json:"animations,omitempty"`
}

// ActiveKeys returns the keys currently Active, sorted.
func (s Snapshot) ActiveKeys() []string {
	keys := make([]string, 0, len(s.Animations))
	for k, st := range s.Animations {
		if st == Active {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

type slot struct {
	gen   uint64
	timer clockwork.Timer
	due   time.Time
}

// arm stops the previous timer and returns the new generation.
func (s *slot) arm() uint64 {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	return s.gen
}

// overdue reports whether a timer is still armed past its deadline.
func (s *slot) overdue(now time.Time) bool {
	return s.timer != nil && !s.due.After(now)
}

func (s *slot) stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

type animation struct {
	slot
	state AnimationState
}

// Controller owns the toast and animation state.
//
// Thread-safety: all methods are safe for concurrent use.
type Controller struct {
	clock  clockwork.Clock
	delays Delays

	mu     sync.Mutex
	closed bool
	toast  Toast
	toastT slot
	anims  map[string]*animation
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock timers are armed on. Default: real clock.
func WithClock(c clockwork.Clock) Option {
	return func(ctl *Controller) {
		if c != nil {
			ctl.clock = c
		}
	}
}

// WithDelays overrides the delays. Zero fields keep their defaults.
func WithDelays(d Delays) Option {
	return func(ctl *Controller) {
		ctl.delays = d.withDefaults()
	}
}

// New creates a Controller.
func New(opts ...Option) *Controller {
	c := &Controller{
		clock:  clockwork.NewRealClock(),
		delays: DefaultDelays(),
		anims:  make(map[string]*animation),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Delays returns the effective delays.
func (c *Controller) Delays() Delays {
	return c.delays
}

// Notify shows message for the default toast delay.
func (c *Controller) Notify(message string) {
	c.NotifyFor(message, c.delays.Toast)
}

// NotifyFor shows message for d, replacing whatever the toast showed and
// cancelling its pending hide.
func (c *Controller) NotifyFor(message string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if d <= 0 {
		d = c.delays.Toast
	}
	c.toast = Toast{Message: message, Visible: true}
	gen := c.toastT.arm()
	c.toastT.due = c.clock.Now().Add(d)
	c.toastT.timer = c.clock.AfterFunc(d, func() { c.hideToast(gen) })
}

func (c *Controller) hideToast(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.toastT.gen {
		return
	}
	c.toast.Visible = false
	c.toastT.timer = nil
}

// Pulse sets key Active and returns it to Normal after the key's delay
// (Badge for BadgeKey, Button otherwise). Re-triggering re-arms the delay.
func (c *Controller) Pulse(key string) {
	d := c.delays.Button
	if key == BadgeKey {
		d = c.delays.Badge
	}
	c.PulseFor(key, d)
}

// PulseFor is Pulse with an explicit delay.
func (c *Controller) PulseFor(key string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if d <= 0 {
		d = c.delays.Button
	}
	a, ok := c.anims[key]
	if !ok {
		a = &animation{}
		c.anims[key] = a
	}
	a.state = Active
	gen := a.arm()
	a.due = c.clock.Now().Add(d)
	a.timer = c.clock.AfterFunc(d, func() { c.settle(key, gen) })
}

func (c *Controller) settle(key string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.anims[key]
	if c.closed || !ok || gen != a.gen {
		return
	}
	a.state = Normal
	a.timer = nil
}

// Toast returns the current toast.
func (c *Controller) Toast() Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.toast
}

// State returns the animation state of key. Unknown keys are Normal.
func (c *Controller) State(key string) AnimationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.anims[key]; ok {
		return a.state
	}
	return Normal
}

// Snapshot copies the toast and every animation that was ever triggered.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{Toast: c.toast}
	if len(c.anims) > 0 {
		s.Animations = make(map[string]AnimationState, len(c.anims))
		for k, a := range c.anims {
			s.Animations[k] = a.state
		}
	}
	return s
}

// Settled reports whether every timer whose deadline has passed on the
// controller's clock has run. Fake-clock callbacks fire on their own
// goroutines, so callers that advance time poll this before reading state.
func (c *Controller) Settled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	now := c.clock.Now()
	if c.toastT.overdue(now) {
		return false
	}
	for _, a := range c.anims {
		if a.overdue(now) {
			return false
		}
	}
	return true
}

// Close cancels every pending timer. Further triggers are ignored.
// Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.toastT.stop()
	for _, a := range c.anims {
		a.stop()
	}
}
