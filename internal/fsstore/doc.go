// Package fsstore implements store.CartStore on Cloud Firestore.
//
// Document layout:
//
//	carts/{identityId}                        {createdAt}
//	carts/{identityId}/cartItems/{productId}  {name, price, quantity, imageUrl, updatedAt}
//
// Quantities are incremented with firestore.Increment and timestamps are
// firestore.ServerTimestamp, so all arithmetic happens server-side.
package fsstore
