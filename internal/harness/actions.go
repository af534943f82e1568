package harness

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/deployfin/internal/datemath"
	"github.com/roach88/deployfin/internal/deployment"
	"github.com/roach88/deployfin/internal/lifecycle"
	"github.com/roach88/deployfin/internal/syncqueue"
)

// actionFunc performs one engine operation and returns its result fields.
// Domain errors are reported as output cases; any other error aborts the
// scenario.
type actionFunc func(ctx context.Context, r *runner, a args) (map[string]any, error)

// actions maps scenario operation names to engine calls.
var actions = map[string]actionFunc{
	"start_deployment":             startDeployment,
	"update_deployment":            updateDeployment,
	"end_deployment":               endDeployment,
	"cancel_deployment":            cancelDeployment,
	"update_pay_adjustments":       updatePayAdjustments,
	"enable_combat_zone_benefits":  enableCombatZone,
	"disable_combat_zone_benefits": disableCombatZone,
	"create_budget":                createBudget,
	"update_expense_adjustment":    updateExpenseAdjustment,
	"set_family_budget":            setFamilyBudget,
	"initialize_savings_tracker":   initializeSavingsTracker,
	"update_savings_goal":          updateSavingsGoal,
	"record_savings_snapshot":      recordSavingsSnapshot,
	"add_savings_milestone":        addSavingsMilestone,
	"add_to_offline_queue":         addToOfflineQueue,
	"process_offline_queue":        processOfflineQueue,
	"set_online_status":            setOnlineStatus,
	"clear_synced_items":           clearSyncedItems,
	"retry_failed_items":           retryFailedItems,
	"advance_clock":                advanceClock,
	"restart":                      restart,
}

func startDeployment(ctx context.Context, r *runner, a args) (map[string]any, error) {
	typ, err := a.stringArg("type")
	if err != nil {
		return nil, err
	}
	departure, err := a.dateArg("departure")
	if err != nil {
		return nil, err
	}
	expectedReturn, err := a.dateArg("expected_return")
	if err != nil {
		return nil, err
	}
	loc, err := locationArgs(a, deployment.Location{})
	if err != nil {
		return nil, err
	}

	id, err := r.mgr.StartDeployment(ctx, deployment.Type(typ), departure, expectedReturn, loc)
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": id}, nil
}

// locationArgs overlays country, region, hazardous and connectivity onto base.
func locationArgs(a args, base deployment.Location) (deployment.Location, error) {
	loc := base
	if s, err := a.optString("country"); err != nil {
		return loc, err
	} else if s != nil {
		loc.Country = *s
	}
	if s, err := a.optString("region"); err != nil {
		return loc, err
	} else if s != nil {
		loc.Region = *s
	}
	if b, err := a.optBool("hazardous"); err != nil {
		return loc, err
	} else if b != nil {
		loc.IsHazardous = *b
	}
	if s, err := a.optString("connectivity"); err != nil {
		return loc, err
	} else if s != nil {
		loc.Connectivity = deployment.Connectivity(*s)
	}
	return loc, nil
}

func updateDeployment(ctx context.Context, r *runner, a args) (map[string]any, error) {
	var u deployment.Update

	if s, err := a.optString("type"); err != nil {
		return nil, err
	} else if s != nil {
		typ := deployment.Type(*s)
		u.Type = &typ
	}
	var err error
	if u.DepartureDate, err = a.optDate("departure"); err != nil {
		return nil, err
	}
	if u.ExpectedReturnDate, err = a.optDate("expected_return"); err != nil {
		return nil, err
	}
	if u.FamilyBudgetEnabled, err = a.optBool("family_budget_enabled"); err != nil {
		return nil, err
	}

	if a.has("country") || a.has("region") || a.has("hazardous") || a.has("connectivity") {
		var base deployment.Location
		if active := r.mgr.ActiveDeployment(); active != nil {
			base = active.Location
		}
		loc, err := locationArgs(a, base)
		if err != nil {
			return nil, err
		}
		u.Location = &loc
	}

	if err := r.mgr.UpdateDeployment(ctx, u); err != nil {
		return nil, err
	}
	return phaseResult(r), nil
}

func phaseResult(r *runner) map[string]any {
	active := r.mgr.ActiveDeployment()
	if active == nil {
		return map[string]any{}
	}
	return map[string]any{
		"phase":         string(active.Phase),
		"duration_days": active.DurationDays(),
	}
}

func endDeployment(ctx context.Context, r *runner, a args) (map[string]any, error) {
	actual, err := a.optDate("actual_return")
	if err != nil {
		return nil, err
	}
	var ret = r.clock.Now()
	if actual != nil {
		ret = *actual
	}
	if err := r.mgr.EndDeployment(ctx, ret); err != nil {
		return nil, err
	}
	return map[string]any{"completed": len(r.mgr.DeploymentHistory())}, nil
}

func cancelDeployment(ctx context.Context, r *runner, _ args) (map[string]any, error) {
	if err := r.mgr.CancelDeployment(ctx); err != nil {
		return nil, err
	}
	return map[string]any{}, nil
}

func updatePayAdjustments(ctx context.Context, r *runner, a args) (map[string]any, error) {
	var (
		u   deployment.PayAdjustmentsUpdate
		err error
	)
	bools := []struct {
		key string
		dst **bool
	}{
		{"hostile_fire_pay", &u.HostileFirePay},
		{"imminent_danger_pay", &u.ImminentDangerPay},
		{"hardship_duty_pay", &u.HardshipDutyPay},
		{"family_separation_allowance", &u.FamilySeparationAllowance},
		{"commissioned_officer", &u.CommissionedOfficer},
		{"savings_deposit_program", &u.SavingsDepositProgram},
	}
	for _, b := range bools {
		if *b.dst, err = a.optBool(b.key); err != nil {
			return nil, err
		}
	}
	if u.HardshipDutyRate, err = a.optDecimal("hardship_duty_rate"); err != nil {
		return nil, err
	}
	if u.SavingsDepositAmount, err = a.optDecimal("savings_deposit_amount"); err != nil {
		return nil, err
	}
	if u.MonthlyTaxableIncome, err = a.optDecimal("monthly_taxable_income"); err != nil {
		return nil, err
	}
	if s, err := a.optString("combat_zone_tax_exclusion"); err != nil {
		return nil, err
	} else if s != nil {
		status := deployment.CZTEStatus(*s)
		u.CombatZoneTaxExclusion = &status
	}

	if err := r.mgr.UpdatePayAdjustments(ctx, u); err != nil {
		return nil, err
	}
	return payResult(r), nil
}

func payResult(r *runner) map[string]any {
	active := r.mgr.ActiveDeployment()
	if active == nil {
		return map[string]any{}
	}
	return map[string]any{
		"additional_monthly_pay": active.PayAdjustments.AdditionalMonthlyPay,
		"estimated_tax_savings":  active.PayAdjustments.EstimatedTaxSavings,
	}
}

func enableCombatZone(ctx context.Context, r *runner, _ args) (map[string]any, error) {
	if err := r.mgr.EnableCombatZoneBenefits(ctx); err != nil {
		return nil, err
	}
	return payResult(r), nil
}

func disableCombatZone(ctx context.Context, r *runner, _ args) (map[string]any, error) {
	if err := r.mgr.DisableCombatZoneBenefits(ctx); err != nil {
		return nil, err
	}
	return payResult(r), nil
}

func createBudget(ctx context.Context, r *runner, a args) (map[string]any, error) {
	expenses, err := a.decimalArg("normal_expenses")
	if err != nil {
		return nil, err
	}
	savings, err := a.decimalArg("normal_savings")
	if err != nil {
		return nil, err
	}
	if err := r.mgr.CreateDeploymentBudget(ctx, expenses, savings); err != nil {
		return nil, err
	}
	return budgetResult(r), nil
}

func budgetResult(r *runner) map[string]any {
	b := r.mgr.Budget()
	if b == nil {
		return map[string]any{}
	}
	return map[string]any{
		"deployment_monthly_expenses": b.DeploymentMonthlyExpenses,
		"projected_monthly_savings":   b.ProjectedMonthlySavings,
		"projected_total_savings":     b.ProjectedTotalSavings,
	}
}

func updateExpenseAdjustment(ctx context.Context, r *runner, a args) (map[string]any, error) {
	category, err := a.stringArg("category")
	if err != nil {
		return nil, err
	}
	amount, err := a.decimalArg("amount")
	if err != nil {
		return nil, err
	}
	if err := r.mgr.UpdateExpenseAdjustment(ctx, category, amount); err != nil {
		return nil, err
	}
	return budgetResult(r), nil
}

func setFamilyBudget(ctx context.Context, r *runner, a args) (map[string]any, error) {
	allowance, err := a.decimalArg("allowance")
	if err != nil {
		return nil, err
	}
	target, err := a.decimalArg("emergency_fund_target")
	if err != nil {
		return nil, err
	}
	if err := r.mgr.SetFamilyBudget(ctx, allowance, target); err != nil {
		return nil, err
	}
	return map[string]any{}, nil
}

func initializeSavingsTracker(ctx context.Context, r *runner, a args) (map[string]any, error) {
	goal, err := a.decimalArg("goal")
	if err != nil {
		return nil, err
	}
	if err := r.mgr.InitializeSavingsTracker(ctx, goal); err != nil {
		return nil, err
	}
	return savingsResult(r), nil
}

func updateSavingsGoal(ctx context.Context, r *runner, a args) (map[string]any, error) {
	goal, err := a.decimalArg("goal")
	if err != nil {
		return nil, err
	}
	if err := r.mgr.UpdateSavingsGoal(ctx, goal); err != nil {
		return nil, err
	}
	return savingsResult(r), nil
}

func savingsResult(r *runner) map[string]any {
	t := r.mgr.SavingsTracker()
	if t == nil {
		return map[string]any{}
	}
	return map[string]any{
		"current_savings": t.CurrentSavings,
		"on_track":        t.OnTrack,
		"days_remaining":  t.DaysRemaining,
	}
}

func recordSavingsSnapshot(ctx context.Context, r *runner, a args) (map[string]any, error) {
	var (
		in  deployment.SnapshotInput
		err error
	)
	if a.has("month") {
		s, err := a.stringArg("month")
		if err != nil {
			return nil, err
		}
		if in.Month, err = datemath.ParseMonth(s); err != nil {
			return nil, err
		}
	}
	if a.has("income") {
		if in.Income, err = a.decimalArg("income"); err != nil {
			return nil, err
		}
	}
	if a.has("expenses") {
		if in.Expenses, err = a.decimalArg("expenses"); err != nil {
			return nil, err
		}
	}
	if in.NetSavings, err = a.optDecimal("net_savings"); err != nil {
		return nil, err
	}
	if s, err := a.optString("notes"); err != nil {
		return nil, err
	} else if s != nil {
		in.Notes = *s
	}

	if err := r.mgr.RecordSavingsSnapshot(ctx, in); err != nil {
		return nil, err
	}
	return savingsResult(r), nil
}

func addSavingsMilestone(ctx context.Context, r *runner, a args) (map[string]any, error) {
	name, err := a.stringArg("name")
	if err != nil {
		return nil, err
	}
	target, err := a.decimalArg("target")
	if err != nil {
		return nil, err
	}
	id, err := r.mgr.AddSavingsMilestone(ctx, name, target)
	if err != nil {
		return nil, err
	}

	achieved := false
	if t := r.mgr.SavingsTracker(); t != nil {
		if ms, ok := t.Milestone(id); ok {
			achieved = ms.IsAchieved
		}
	}
	return map[string]any{"id": id, "achieved": achieved}, nil
}

func addToOfflineQueue(ctx context.Context, r *runner, a args) (map[string]any, error) {
	typ, err := a.stringArg("type")
	if err != nil {
		return nil, err
	}
	var payload json.RawMessage
	if a.has("payload") {
		payload, err = json.Marshal(normalizeValue(a["payload"]))
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", "payload", err)
		}
	}

	item, err := r.mgr.AddToOfflineQueue(ctx, syncqueue.ItemType(typ), payload)
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": item.ID}, nil
}

func drainResult(res syncqueue.Result) map[string]any {
	return map[string]any{
		"ran":       res.Ran,
		"attempted": res.Attempted,
		"synced":    res.Synced,
		"failed":    res.Failed,
	}
}

func processOfflineQueue(ctx context.Context, r *runner, _ args) (map[string]any, error) {
	res, err := r.mgr.ProcessOfflineQueue(ctx)
	if err != nil {
		return nil, err
	}
	return drainResult(res), nil
}

func setOnlineStatus(ctx context.Context, r *runner, a args) (map[string]any, error) {
	online, err := a.boolArg("online")
	if err != nil {
		return nil, err
	}
	res, err := r.mgr.SetOnlineStatus(ctx, online)
	if err != nil {
		return nil, err
	}
	return drainResult(res), nil
}

func clearSyncedItems(ctx context.Context, r *runner, _ args) (map[string]any, error) {
	n, err := r.mgr.ClearSyncedItems(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"removed": n}, nil
}

func retryFailedItems(ctx context.Context, r *runner, _ args) (map[string]any, error) {
	n, err := r.mgr.RetryFailedItems(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"retried": n}, nil
}

func advanceClock(_ context.Context, r *runner, a args) (map[string]any, error) {
	days, err := a.intArg("days")
	if err != nil {
		return nil, err
	}
	r.clock.AdvanceDays(days)
	return map[string]any{"today": r.today()}, nil
}

// restart reopens the manager from the persisted state, as a process
// restart would.
func restart(ctx context.Context, r *runner, _ args) (map[string]any, error) {
	mgr, err := lifecycle.New(ctx, r.store, r.options()...)
	if err != nil {
		return nil, fmt.Errorf("reopen manager: %w", err)
	}
	r.mgr = mgr
	return map[string]any{"completed": len(mgr.DeploymentHistory())}, nil
}
