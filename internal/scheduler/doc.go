// Package scheduler ties cart refreshes to identity changes and to a fixed
// polling cadence.
//
// A Scheduler subscribes to the identity provider and runs one loop
// goroutine. Identity changes are written into a latest-value slot and
// signalled on a buffered channel of size 1, so a burst of changes collapses
// into one wake-up and the provider never blocks on the scheduler. On
// every change the new identity is adopted by the resolver; the cart is then
// refreshed, or reset when the change is a sign-out. While an identity is
// bound, the poll ticker triggers a refresh every interval (2s by default).
//
// Start acquires the ticker and the subscription; Stop releases both. Stop
// is idempotent and safe to call whether or not Start ran or succeeded.
package scheduler
