// Package harness runs YAML lifecycle scenarios against a real
// lifecycle.Manager backed by an in-memory SQLite store.
//
// A scenario pins the clock, invokes engine operations in order, and
// asserts on the resulting trace and the final engine state:
//
//	name: worked_example
//	description: Ten-month combat tour with HFP and FSA
//	clock: "2024-04-01"
//	flow:
//	  - invoke: start_deployment
//	    args: {type: combat, departure: "2024-01-01", expected_return: "2024-10-01", country: Kuwait}
//	  - invoke: create_budget
//	    args: {normal_expenses: 4000, normal_savings: 500}
//	assertions:
//	  - type: final_state
//	    path: budget.deployment_monthly_expenses
//	    equals: 2000
//
// Every step records an invocation and a completion in the trace. A
// completion's output case is "ok" or the domain error code the operation
// returned (for example NO_BUDGET). Identities come from a sequence
// generator ("id-1", "id-2", ...) so traces are reproducible and can be
// compared against golden files with RunWithGolden.
//
// Queue items listed under sync_failures fail when drained; every other
// item syncs.
package harness
