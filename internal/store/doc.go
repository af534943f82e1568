// Package store persists the lifecycle engine state.
//
// Two implementations of lifecycle.StateStore live here:
//   - Store: SQLite-backed, one checksummed blob row plus a revision log
//   - Memory: in-process, for tests and dry runs
//
// Both are exercised by the shared contract suite in storetest.
//
// # State Blob
//
// The state is encoded as RFC 8785 canonical JSON, so two saves of equal
// state produce identical bytes and identical checksums. Every save bumps
// a monotonically increasing revision and appends a row to state_revisions
// (revision, checksum, size, saved_at). Load recomputes the checksum and
// fails on mismatch rather than returning a corrupted state.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
