// Package cartsync implements the cart synchronizer: the component the host
// calls to read and mutate the cart.
//
// Every mutation follows the same protocol:
//
//	acquire item lock -> ensure identity -> mutate store -> refresh -> release lock -> feedback
//
// # Per-item Locks
//
// At most one mutation per product ID is in flight. A second request for a
// busy product ID is dropped (applied=false, err=nil), never queued. The
// check-and-set is a mutex-guarded critical section, so it holds with real
// goroutines, and the lock is always released before the operation returns,
// including on failure.
//
// ClearCart takes no item lock. It may race per-item mutations; whichever
// write lands last wins and the next refresh shows the result.
//
// # Refresh
//
// The synchronizer never applies optimistic updates. Every mutation is
// followed by a full read of the store, and the aggregate is rebuilt from
// that read. A failed read keeps the previous aggregate. Results that arrive
// after Close, or for an identity that is no longer bound, are dropped.
//
// Every refresh that changes the item count fires the count-changed
// listeners; an increase to a positive count also pulses the badge.
package cartsync
