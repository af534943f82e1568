package refdata

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind classifies how a spending category changes during a deployment.
type Kind string

const (
	KindReduce    Kind = "reduce"
	KindEliminate Kind = "eliminate"
	KindIncrease  Kind = "increase"
	KindNoChange  Kind = "no_change"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindReduce, KindEliminate, KindIncrease, KindNoChange:
		return true
	}
	return false
}

// PayRates holds the fixed monthly amounts and rates used by the pay
// calculator.
type PayRates struct {
	HostileFirePay            decimal.Decimal `json:"hostile_fire_pay"`
	ImminentDangerPay         decimal.Decimal `json:"imminent_danger_pay"`
	FamilySeparationAllowance decimal.Decimal `json:"family_separation_allowance"`
	// CZTEMonthlyCap limits the excludable income of commissioned officers.
	CZTEMonthlyCap   decimal.Decimal `json:"czte_monthly_cap"`
	EstimatedTaxRate decimal.Decimal `json:"estimated_tax_rate"`
	SDPAnnualRate    decimal.Decimal `json:"sdp_annual_rate"`
	SDPMaxDeposit    decimal.Decimal `json:"sdp_max_deposit"`
}

// Category is one row of the default expense-adjustment template.
type Category struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Kind            Kind            `json:"kind"`
	Share           decimal.Decimal `json:"share"`
	DeploymentShare decimal.Decimal `json:"deployment_share"`
}

// Tables is the full reference data set.
type Tables struct {
	PayRates        PayRates   `json:"pay_rates"`
	ExpenseTemplate []Category `json:"expense_template"`
}

// Category returns the template row with the given id.
func (t *Tables) Category(id string) (Category, bool) {
	for _, c := range t.ExpenseTemplate {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// DeploymentShareTotal sums the template's deployment shares, i.e. the
// fraction of baseline expenses a freshly seeded budget starts at.
func (t *Tables) DeploymentShareTotal() decimal.Decimal {
	total := decimal.Zero
	for _, c := range t.ExpenseTemplate {
		total = total.Add(c.DeploymentShare)
	}
	return total
}

// validate checks the invariants CUE cannot express: unique ids and
// shares that partition the baseline.
func (t *Tables) validate() error {
	if len(t.ExpenseTemplate) == 0 {
		return &LoadError{Code: ErrCodeTemplate, Message: "expense_template must not be empty"}
	}

	seen := make(map[string]bool, len(t.ExpenseTemplate))
	shares := decimal.Zero
	for i, c := range t.ExpenseTemplate {
		if seen[c.ID] {
			return &LoadError{
				Code:    ErrCodeTemplate,
				Message: fmt.Sprintf("expense_template[%d]: duplicate category id %q", i, c.ID),
			}
		}
		seen[c.ID] = true
		if !c.Kind.Valid() {
			return &LoadError{
				Code:    ErrCodeTemplate,
				Message: fmt.Sprintf("expense_template[%d]: unknown kind %q", i, c.Kind),
			}
		}
		shares = shares.Add(c.Share)
	}

	if !shares.Equal(decimal.NewFromInt(1)) {
		return &LoadError{
			Code:    ErrCodeTemplate,
			Message: fmt.Sprintf("expense_template shares must sum to 1, got %s", shares),
		}
	}
	return nil
}
