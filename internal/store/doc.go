// Package store provides the remote cart store contract and a SQLite-backed
// implementation of it.
//
// The store holds two tables:
//   - carts: one marker row per identity, created once on first sign-in
//   - cart_items: one row per (identity_id, product_id)
//
// # Write Semantics
//
// Upsert-or-increment is a single statement:
//
//	INSERT ... ON CONFLICT(identity_id, product_id)
//	DO UPDATE SET quantity = cart_items.quantity + excluded.quantity
//
// so concurrent writers (several synchronizers, several processes sharing
// the database file) never lose an increment. The client never does a
// read-modify-write on quantity.
//
// Delete-at-zero: SetQuantity with a quantity <= 0 deletes the row. The
// quantity column carries CHECK (quantity > 0), so a stored zero is
// impossible even for callers that bypass this package.
//
// Timestamps (created_at, updated_at) are assigned by SQLite, not by the
// client, mirroring a server timestamp in a remote document store.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
