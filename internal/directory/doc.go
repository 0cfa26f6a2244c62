// Package directory resolves user identities from the external user directory.
//
// Lookups compose as Cache -> Breaker -> Client, with the cache serving a fallback
// (an empty list by default) whenever the breaker reports the upstream unavailable.
// Readers always receive an immutable Snapshot; refreshes swap snapshots atomically.
package directory
