// Package cart defines the domain types shared by every cartsync component.
//
// An Item is one line item owned by the remote store; the client only ever
// holds a transient, possibly-stale copy. A Cart is a pure projection rebuilt
// from the store on every refresh and is never persisted client-side.
//
// # Invariants
//
//   - Item.Quantity >= 1 while the item exists. A quantity that would become
//     zero or less means the item is deleted, never stored as zero.
//   - Cart.Total is always the sum of Price x Quantity over Items.
//   - Product IDs are normalized (trimmed, NFC) before they are used as lock
//     keys or document keys. See NormalizeProductID.
//
// Errors produced anywhere in the module are *Error values carrying one of
// the codes in errors.go.
package cart
