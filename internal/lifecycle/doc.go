// Package lifecycle owns the active deployment, its budget and savings
// tracker, the deployment history and the offline mutation queue, and
// exposes the operations that change them.
//
// Every mutating operation follows the same path:
//
//  1. clone the current state
//  2. apply the change to the clone (domain preconditions may reject it)
//  3. recompute every derived field
//  4. write the full state through the StateStore
//  5. swap the clone in
//
// A rejected or unsaved operation therefore leaves the in-memory state
// exactly as it was. Precondition failures are *deployment.Error values;
// callers that want silent no-op behaviour can discard them.
package lifecycle
