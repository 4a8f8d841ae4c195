// Package feedback drives the transient UI state around cart mutations: a
// single-slot toast and per-key animation flags (button presses, badge pulse).
//
// Every piece of state is a (value, timer) pair. Re-triggering replaces the
// timer instead of stacking another one, and each timer carries the
// generation it was armed for, so a timer that lost a race with a newer
// trigger can never undo that trigger.
//
// Time comes from an injected clockwork.Clock; tests drive it with
// clockwork.NewFakeClock.
package feedback
