// Package harness runs cart scenarios against the real synchronizer.
//
// Each scenario executes against a fresh in-memory SQLite store, an
// in-memory identity session that mints "anon-1", "anon-2", ... and a fake
// clock, so traces are identical across runs and can be compared against
// golden files.
//
// # Scenario Format
//
//	name: add_then_increment
//	description: "Adding twice increments in place"
//	identity: user-1            # optional; signs in before the steps
//	setup:                      # optional; requires identity
//	  - { product_id: pear, name: Pear, price: "2.00", quantity: 1 }
//	steps:
//	  - { op: add, product_id: apple, name: Apple, price: "1.50" }
//	  - { op: increment, product_id: apple }
//	  - { op: advance, duration: 3s }
//	assertions:
//	  - { type: quantity, product_id: apple, quantity: 2 }
//	  - { type: total, total: "5.00" }
//
// # Step Operations
//
//   - add, increment, decrement, remove: per-item operations. Items already in
//     the cart are passed in as the cart holds them.
//   - clear, refresh: cart-wide operations.
//   - advance: moves the fake clock and waits for feedback timers to run.
//   - login, logout: sign a named identity in, or sign out.
//   - fail, heal: inject or clear a failure for one store operation
//     (list, upsert, set, delete, clear).
//
// A step may declare expect_error with a cart error code; any other error
// fails the scenario.
//
// # Assertion Types
//
//   - total, count: the aggregate's total and badge count
//   - quantity, absent: a single line item
//   - toast: message and/or visibility
//   - identity: bound identity ID ("" for signed out) and anonymous flag
//   - animations: the exact set of Active animation keys
//
// # Trace
//
// After setup (step 0) and after every step the harness records the visible
// toast, Active animation keys, count, total and bound identity. The golden
// file is that trace plus the final items as indented JSON.
package harness
