// Package testutil provides store wrappers for tests that need to observe or
// stall remote calls: holding a mutation in flight, injecting failures, and
// counting calls per operation.
package testutil
