package deployment

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/deployfin/internal/datemath"
	"github.com/roach88/deployfin/internal/refdata"
)

// ExpenseAdjustment is one spending category's normal and deployment budget.
type ExpenseAdjustment struct {
	CategoryID       string          `json:"category_id"`
	CategoryName     string          `json:"category_name"`
	Kind             refdata.Kind    `json:"kind"`
	NormalBudget     decimal.Decimal `json:"normal_budget"`
	DeploymentBudget decimal.Decimal `json:"deployment_budget"`
}

// FamilyBudget is the at-home allowance while the member is away.
type FamilyBudget struct {
	MonthlyAllowance    decimal.Decimal `json:"monthly_allowance"`
	EmergencyFundTarget decimal.Decimal `json:"emergency_fund_target"`
}

// Budget is the reduced-expense plan for a deployment.
//
// INVARIANTS (held by ComputeBudgetTotals):
//   - DeploymentMonthlyExpenses == sum of Adjustments[*].DeploymentBudget
//   - ProjectedMonthlySavings == NormalMonthlySavings
//     + (NormalMonthlyExpenses - DeploymentMonthlyExpenses) + additional pay
//   - ProjectedTotalSavings == ProjectedMonthlySavings * ceil(duration / 30)
type Budget struct {
	NormalMonthlyExpenses     decimal.Decimal     `json:"normal_monthly_expenses"`
	NormalMonthlySavings      decimal.Decimal     `json:"normal_monthly_savings"`
	Adjustments               []ExpenseAdjustment `json:"adjustments"`
	DeploymentMonthlyExpenses decimal.Decimal     `json:"deployment_monthly_expenses"`
	ProjectedMonthlySavings   decimal.Decimal     `json:"projected_monthly_savings"`
	ProjectedTotalSavings     decimal.Decimal     `json:"projected_total_savings"`
	FamilyBudget              *FamilyBudget       `json:"family_budget,omitempty"`
}

// NewBudget seeds a budget from the expense template. Each row receives its
// template share of the baseline; totals are left for ComputeBudgetTotals.
func NewBudget(normalExpenses, normalSavings decimal.Decimal, template []refdata.Category) (*Budget, error) {
	if normalExpenses.IsNegative() || normalSavings.IsNegative() {
		return nil, newError(ErrInvalidAmount, "baseline expenses %s and savings %s must not be negative",
			normalExpenses, normalSavings)
	}

	rows := make([]ExpenseAdjustment, 0, len(template))
	for _, c := range template {
		rows = append(rows, ExpenseAdjustment{
			CategoryID:       c.ID,
			CategoryName:     c.Name,
			Kind:             c.Kind,
			NormalBudget:     normalExpenses.Mul(c.Share).Round(2),
			DeploymentBudget: normalExpenses.Mul(c.DeploymentShare).Round(2),
		})
	}

	return &Budget{
		NormalMonthlyExpenses: normalExpenses,
		NormalMonthlySavings:  normalSavings,
		Adjustments:           rows,
	}, nil
}

// UpdateExpenseAdjustment replaces one row's deployment figure and
// reclassifies the row against its normal budget. Totals are left for
// ComputeBudgetTotals. An unknown id leaves the budget unchanged.
func (b *Budget) UpdateExpenseAdjustment(categoryID string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return newError(ErrInvalidAmount, "deployment budget %s for %q is negative", amount, categoryID)
	}
	for i := range b.Adjustments {
		row := &b.Adjustments[i]
		if row.CategoryID != categoryID {
			continue
		}
		row.DeploymentBudget = amount
		row.Kind = classifyAdjustment(row.NormalBudget, amount)
		return nil
	}
	return newError(ErrUnknownCategory, "no expense category %q in budget", categoryID)
}

func classifyAdjustment(normal, deployed decimal.Decimal) refdata.Kind {
	switch {
	case deployed.IsZero() && normal.IsPositive():
		return refdata.KindEliminate
	case deployed.Equal(normal):
		return refdata.KindNoChange
	case deployed.LessThan(normal):
		return refdata.KindReduce
	default:
		return refdata.KindIncrease
	}
}

// SetFamilyBudget records the family allowance and emergency fund target.
func (b *Budget) SetFamilyBudget(allowance, emergencyTarget decimal.Decimal) error {
	if allowance.IsNegative() || emergencyTarget.IsNegative() {
		return newError(ErrInvalidAmount, "family budget amounts must not be negative")
	}
	b.FamilyBudget = &FamilyBudget{MonthlyAllowance: allowance, EmergencyFundTarget: emergencyTarget}
	return nil
}

// Row returns the adjustment for a category id.
func (b *Budget) Row(categoryID string) (ExpenseAdjustment, bool) {
	for _, r := range b.Adjustments {
		if r.CategoryID == categoryID {
			return r, true
		}
	}
	return ExpenseAdjustment{}, false
}

// ComputeBudgetTotals recomputes every derived field of b.
func ComputeBudgetTotals(b *Budget, additionalPay decimal.Decimal, durationDays int) {
	expenses := decimal.Zero
	for _, r := range b.Adjustments {
		expenses = expenses.Add(r.DeploymentBudget)
	}
	b.DeploymentMonthlyExpenses = expenses

	monthly := b.NormalMonthlySavings.
		Add(b.NormalMonthlyExpenses.Sub(expenses)).
		Add(additionalPay)
	b.ProjectedMonthlySavings = monthly
	b.ProjectedTotalSavings = monthly.Mul(decimal.NewFromInt(int64(datemath.CeilMonths(durationDays))))
}

// Clone returns a deep copy.
func (b *Budget) Clone() *Budget {
	if b == nil {
		return nil
	}
	c := *b
	c.Adjustments = append([]ExpenseAdjustment(nil), b.Adjustments...)
	if b.FamilyBudget != nil {
		fb := *b.FamilyBudget
		c.FamilyBudget = &fb
	}
	return &c
}
