// Package syncqueue buffers domain mutations made while offline and drains
// them through a Syncer once connectivity returns.
//
// Items move pending -> syncing -> synced, or pending -> syncing -> failed.
// A failed item stays in the queue with its retry count and last error
// until RetryFailed puts it back to pending and a later drain succeeds.
// ClearSynced is the only operation that removes items, and it only
// removes synced ones, so no mutation disappears without an observable
// failure state.
//
// The queue records attempts and outcomes; it never schedules retries.
package syncqueue
