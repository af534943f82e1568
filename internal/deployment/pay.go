package deployment

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/deployfin/internal/refdata"
)

// CZTEStatus is the combat-zone tax exclusion treatment.
type CZTEStatus string

const (
	CZTENone   CZTEStatus = "none"
	CZTEFull   CZTEStatus = "full"
	CZTECapped CZTEStatus = "capped"
)

// Valid reports whether s is a known CZTE status.
func (s CZTEStatus) Valid() bool {
	switch s {
	case CZTENone, CZTEFull, CZTECapped:
		return true
	}
	return false
}

// PayAdjustments is the toggle set for deployment special pays.
//
// AdditionalMonthlyPay and EstimatedTaxSavings are derived. They are only
// ever written by Recompute.
type PayAdjustments struct {
	HostileFirePay            bool            `json:"hostile_fire_pay"`
	ImminentDangerPay         bool            `json:"imminent_danger_pay"`
	HardshipDutyPay           bool            `json:"hardship_duty_pay"`
	HardshipDutyRate          decimal.Decimal `json:"hardship_duty_rate"`
	FamilySeparationAllowance bool            `json:"family_separation_allowance"`
	CombatZoneTaxExclusion    CZTEStatus      `json:"combat_zone_tax_exclusion"`
	CommissionedOfficer       bool            `json:"commissioned_officer"`
	SavingsDepositProgram     bool            `json:"savings_deposit_program"`
	SavingsDepositAmount      decimal.Decimal `json:"savings_deposit_amount"`
	MonthlyTaxableIncome      decimal.Decimal `json:"monthly_taxable_income"`

	AdditionalMonthlyPay decimal.Decimal `json:"additional_monthly_pay"`
	EstimatedTaxSavings  decimal.Decimal `json:"estimated_tax_savings"`
}

// PayTotals is the output of ComputePayTotals.
type PayTotals struct {
	AdditionalMonthlyPay decimal.Decimal
	EstimatedTaxSavings  decimal.Decimal
}

// ComputePayTotals derives the monthly pay and tax figures from a toggle set.
//
// Hostile fire and imminent danger pay are mutually exclusive and paid once
// when either is set. Hardship duty pay only counts when a positive rate is
// supplied.
func ComputePayTotals(adj PayAdjustments, rates refdata.PayRates) PayTotals {
	pay := decimal.Zero
	switch {
	case adj.HostileFirePay:
		pay = pay.Add(rates.HostileFirePay)
	case adj.ImminentDangerPay:
		pay = pay.Add(rates.ImminentDangerPay)
	}
	if adj.FamilySeparationAllowance {
		pay = pay.Add(rates.FamilySeparationAllowance)
	}
	if adj.HardshipDutyPay && adj.HardshipDutyRate.IsPositive() {
		pay = pay.Add(adj.HardshipDutyRate)
	}

	return PayTotals{
		AdditionalMonthlyPay: pay,
		EstimatedTaxSavings:  EstimateTaxSavings(adj.CombatZoneTaxExclusion, adj.MonthlyTaxableIncome, rates),
	}
}

// EstimateTaxSavings returns the monthly tax avoided under a CZTE status.
// Capped exclusion limits the excluded income to the statutory monthly cap.
func EstimateTaxSavings(status CZTEStatus, monthlyTaxableIncome decimal.Decimal, rates refdata.PayRates) decimal.Decimal {
	income := monthlyTaxableIncome
	if income.IsNegative() {
		income = decimal.Zero
	}
	switch status {
	case CZTEFull:
		return income.Mul(rates.EstimatedTaxRate).Round(2)
	case CZTECapped:
		return decimal.Min(income, rates.CZTEMonthlyCap).Mul(rates.EstimatedTaxRate).Round(2)
	default:
		return decimal.Zero
	}
}

// EstimateSDPInterest returns one month of Savings Deposit Program interest
// on the enrolled deposit. The deposit earns interest up to the program
// maximum only.
func EstimateSDPInterest(adj PayAdjustments, rates refdata.PayRates) decimal.Decimal {
	if !adj.SavingsDepositProgram || !adj.SavingsDepositAmount.IsPositive() {
		return decimal.Zero
	}
	deposit := decimal.Min(adj.SavingsDepositAmount, rates.SDPMaxDeposit)
	return deposit.Mul(rates.SDPAnnualRate).Div(decimal.NewFromInt(12)).Round(2)
}

// Recompute stores fresh derived totals on adj.
func (adj *PayAdjustments) Recompute(rates refdata.PayRates) {
	t := ComputePayTotals(*adj, rates)
	adj.AdditionalMonthlyPay = t.AdditionalMonthlyPay
	adj.EstimatedTaxSavings = t.EstimatedTaxSavings
}

// EnableCombatZone turns on hostile fire pay and the exclusion matching the
// member's grade: capped for commissioned officers, full otherwise.
func (adj *PayAdjustments) EnableCombatZone() {
	adj.HostileFirePay = true
	if adj.CommissionedOfficer {
		adj.CombatZoneTaxExclusion = CZTECapped
	} else {
		adj.CombatZoneTaxExclusion = CZTEFull
	}
}

// DisableCombatZone clears every combat-zone benefit including SDP, which
// is only available in a combat zone.
func (adj *PayAdjustments) DisableCombatZone() {
	adj.HostileFirePay = false
	adj.ImminentDangerPay = false
	adj.CombatZoneTaxExclusion = CZTENone
	adj.SavingsDepositProgram = false
}

// PayAdjustmentsUpdate is a partial change to the pay toggles. Nil fields
// are left unchanged. Derived totals are not settable.
type PayAdjustmentsUpdate struct {
	HostileFirePay            *bool
	ImminentDangerPay         *bool
	HardshipDutyPay           *bool
	HardshipDutyRate          *decimal.Decimal
	FamilySeparationAllowance *bool
	CombatZoneTaxExclusion    *CZTEStatus
	CommissionedOfficer       *bool
	SavingsDepositProgram     *bool
	SavingsDepositAmount      *decimal.Decimal
	MonthlyTaxableIncome      *decimal.Decimal
}

// Apply returns adj with the update merged in. Totals are not recomputed.
func (u PayAdjustmentsUpdate) Apply(adj PayAdjustments) (PayAdjustments, error) {
	for _, amt := range []*decimal.Decimal{u.HardshipDutyRate, u.SavingsDepositAmount, u.MonthlyTaxableIncome} {
		if amt != nil && amt.IsNegative() {
			return adj, newError(ErrInvalidAmount, "pay amount %s is negative", amt)
		}
	}
	if u.CombatZoneTaxExclusion != nil && !u.CombatZoneTaxExclusion.Valid() {
		return adj, newError(ErrInvalidValue, "unknown CZTE status %q", *u.CombatZoneTaxExclusion)
	}

	setBool(&adj.HostileFirePay, u.HostileFirePay)
	setBool(&adj.ImminentDangerPay, u.ImminentDangerPay)
	setBool(&adj.HardshipDutyPay, u.HardshipDutyPay)
	setBool(&adj.FamilySeparationAllowance, u.FamilySeparationAllowance)
	setBool(&adj.CommissionedOfficer, u.CommissionedOfficer)
	setBool(&adj.SavingsDepositProgram, u.SavingsDepositProgram)
	if u.HardshipDutyRate != nil {
		adj.HardshipDutyRate = *u.HardshipDutyRate
	}
	if u.SavingsDepositAmount != nil {
		adj.SavingsDepositAmount = *u.SavingsDepositAmount
	}
	if u.MonthlyTaxableIncome != nil {
		adj.MonthlyTaxableIncome = *u.MonthlyTaxableIncome
	}
	if u.CombatZoneTaxExclusion != nil {
		adj.CombatZoneTaxExclusion = *u.CombatZoneTaxExclusion
	}
	return adj, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// DefaultPayAdjustments is the toggle set of a new deployment.
func DefaultPayAdjustments() PayAdjustments {
	return PayAdjustments{CombatZoneTaxExclusion: CZTENone}
}
