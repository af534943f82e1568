// Package refdata compiles the read-only reference tables the deployment
// engine consults: special-pay rates, the combat zone tax exclusion cap,
// the estimated marginal tax rate, Savings Deposit Program terms and the
// default expense-adjustment template used to seed a deployment budget.
//
// The tables are written in CUE. defaults.cue is embedded and carries both
// the schema and default values; a reference directory may supply CUE
// files that override any default. Overrides are unified with the schema,
// so an unknown field or an out-of-range rate is rejected with a position.
//
// Example overlay (rates.cue):
//
//	package refdata
//
//	pay_rates: family_separation_allowance: 300
package refdata
