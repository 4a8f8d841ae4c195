// Package identity resolves the identity a cart is bound to.
//
// A Provider is the source of truth for who is signed in. It can report the
// current identity, mint an anonymous one, and push every change (sign-in,
// sign-out) to subscribers. Two providers ship with the package:
//
//   - LocalProvider mints UUIDv7 anonymous identities and persists the
//     session to a YAML file. It backs the SQLite store and the scenario
//     harness.
//   - FirebaseProvider mints anonymous users with the Firebase Admin Auth
//     API and signs users in by verifying Firebase ID tokens.
//
// The Resolver sits between a Provider and the synchronizer. It caches the
// bound identity, creates an anonymous one lazily on the first write, and
// makes sure the per-identity cart marker exists the first time an identity
// is bound.
//
// # Concurrency
//
// Resolver.EnsureIdentity is safe to call from many goroutines. Creation is
// serialized, so concurrent first writes share a single anonymous identity
// instead of each creating its own (and orphaning all but one cart).
package identity
