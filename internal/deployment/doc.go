// Package deployment models a service member's deployment and the
// financial figures derived from it.
//
// The package is pure: every function takes the instant it reasons about
// as a parameter and never reads a clock. Records carry cached derived
// fields (phase, pay totals, budget projections, savings totals) that are
// only ever written by the Compute* functions:
//
//   - ClassifyPhase maps key dates to one of five phases.
//   - ComputePayTotals turns special-pay toggles into monthly totals.
//   - ComputeBudgetTotals sums expense rows and projects savings.
//   - ComputeSavingsTotals folds snapshots into cumulative progress and
//     checks milestones.
//   - ComputeCountdown derives day and percentage statistics.
//
// Callers (the lifecycle manager) run all of them after every mutation so
// a stored derived field is never stale relative to its inputs.
package deployment
