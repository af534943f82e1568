package lifecycle_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deployfin/internal/datemath"
	"github.com/roach88/deployfin/internal/deployment"
	"github.com/roach88/deployfin/internal/lifecycle"
	"github.com/roach88/deployfin/internal/store"
	"github.com/roach88/deployfin/internal/syncqueue"
	"github.com/roach88/deployfin/internal/testutil"
)

var day = datemath.MustDate

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

type fixture struct {
	mgr    *lifecycle.Manager
	store  *store.Memory
	clock  *testutil.ManualClock
	syncer *flakySyncer
}

// flakySyncer fails the item IDs it is told to and records attempts.
type flakySyncer struct {
	fail      map[string]bool
	attempted []string
}

func (s *flakySyncer) Sync(_ context.Context, it syncqueue.Item) error {
	s.attempted = append(s.attempted, it.ID)
	if s.fail[it.ID] {
		return errors.New("unreachable")
	}
	return nil
}

func newFixture(t *testing.T, now string) *fixture {
	t.Helper()
	f := &fixture{
		store:  store.NewMemory(),
		clock:  testutil.NewManualClock(day(now)),
		syncer: &flakySyncer{fail: map[string]bool{}},
	}
	f.mgr = f.open(t)
	return f
}

// open builds a manager over the fixture's store, as a restart would.
func (f *fixture) open(t *testing.T) *lifecycle.Manager {
	t.Helper()
	mgr, err := lifecycle.New(context.Background(), f.store,
		lifecycle.WithClock(f.clock),
		lifecycle.WithIDGenerator(testutil.NewSequenceGenerator("id")),
		lifecycle.WithSyncer(f.syncer),
	)
	require.NoError(t, err)
	return mgr
}

func (f *fixture) startTour(t *testing.T) string {
	t.Helper()
	id, err := f.mgr.StartDeployment(context.Background(), deployment.TypeCombat,
		day("2024-01-01"), day("2024-10-01"),
		deployment.Location{Country: "Kuwait", IsHazardous: true, Connectivity: deployment.ConnectivityLimited})
	require.NoError(t, err)
	return id
}

func TestManager_EndToEndWorkedExample(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-04-01")
	f.startTour(t)

	yes := true
	require.NoError(t, f.mgr.UpdatePayAdjustments(ctx, deployment.PayAdjustmentsUpdate{
		HostileFirePay:            &yes,
		FamilySeparationAllowance: &yes,
	}))
	assertMoney(t, "475", f.mgr.AdditionalMonthlyPay())

	require.NoError(t, f.mgr.CreateDeploymentBudget(ctx, dec("4000"), dec("500")))
	b := f.mgr.Budget()
	require.NotNil(t, b)
	assertMoney(t, "2000", b.DeploymentMonthlyExpenses)
	assertMoney(t, "2975", b.ProjectedMonthlySavings)
	assertMoney(t, "29750", b.ProjectedTotalSavings)
	assertMoney(t, "29750", f.mgr.ProjectedSavings())

	c := f.mgr.Countdown()
	require.NotNil(t, c)
	assert.Equal(t, 274, c.TotalDays)
	assert.Equal(t, 91, c.DaysComplete)
	assert.InDelta(t, 33.2, c.PercentComplete, 0.1)
	assert.Equal(t, deployment.PhaseDeployment, c.Phase)
	assert.Equal(t, 274, f.mgr.DeploymentDuration())
	assert.True(t, f.mgr.IsDeployed())
}

func TestManager_StartDeployment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2023-11-15")
	id := f.startTour(t)

	info := f.mgr.ActiveDeployment()
	require.NotNil(t, info)
	assert.Equal(t, id, info.ID)
	assert.True(t, info.IsActive)
	assert.Equal(t, deployment.PhasePreDeployment, info.Phase)
	assert.Equal(t, deployment.CZTENone, info.PayAdjustments.CombatZoneTaxExclusion)
	assert.False(t, f.mgr.IsDeployed())
	assert.Equal(t, 1, f.store.Saves())

	_, err := f.mgr.StartDeployment(ctx, deployment.TypeTraining, day("2024-02-01"), day("2024-03-01"), deployment.Location{})
	assert.ErrorIs(t, err, deployment.ErrDeploymentActive)
	assert.Equal(t, 1, f.store.Saves(), "rejected operation must not save")
}

func TestManager_StartDeploymentValidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-01-01")

	_, err := f.mgr.StartDeployment(ctx, deployment.TypeCombat, day("2024-05-01"), day("2024-04-01"), deployment.Location{})
	assert.ErrorIs(t, err, deployment.ErrInvalidDates)

	_, err = f.mgr.StartDeployment(ctx, "vacation", day("2024-05-01"), day("2024-06-01"), deployment.Location{})
	assert.ErrorIs(t, err, deployment.ErrInvalidValue)

	assert.Nil(t, f.mgr.ActiveDeployment())
	assert.Zero(t, f.store.Saves())
}

func TestManager_PhaseFollowsClock(t *testing.T) {
	f := newFixture(t, "2023-10-02")
	f.startTour(t)

	assert.Equal(t, deployment.PhaseNotDeployed, f.mgr.ActiveDeployment().Phase)

	f.clock.Set(day("2023-10-03"))
	assert.Equal(t, deployment.PhasePreDeployment, f.mgr.ActiveDeployment().Phase)

	f.clock.Set(day("2024-08-31"))
	assert.Equal(t, deployment.PhaseDeployment, f.mgr.ActiveDeployment().Phase)

	f.clock.Set(day("2024-09-02"))
	assert.Equal(t, deployment.PhaseRedeployment, f.mgr.ActiveDeployment().Phase)
	assert.True(t, f.mgr.IsDeployed())
}

func TestManager_PreconditionsLeaveStateUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-04-01")

	checks := []struct {
		name string
		op   func() error
		want error
	}{
		{"update", func() error { return f.mgr.UpdateDeployment(ctx, deployment.Update{}) }, deployment.ErrNoActiveDeployment},
		{"end", func() error { return f.mgr.EndDeployment(ctx, time.Time{}) }, deployment.ErrNoActiveDeployment},
		{"cancel", func() error { return f.mgr.CancelDeployment(ctx) }, deployment.ErrNoActiveDeployment},
		{"pay", func() error { return f.mgr.EnableCombatZoneBenefits(ctx) }, deployment.ErrNoActiveDeployment},
		{"budget", func() error { return f.mgr.CreateDeploymentBudget(ctx, dec("1"), dec("1")) }, deployment.ErrNoActiveDeployment},
		{"adjust", func() error { return f.mgr.UpdateExpenseAdjustment(ctx, "dining", dec("0")) }, deployment.ErrNoActiveDeployment},
		{"tracker", func() error { return f.mgr.InitializeSavingsTracker(ctx, dec("100")) }, deployment.ErrNoActiveDeployment},
	}
	for _, c := range checks {
		assert.ErrorIs(t, c.op(), c.want, c.name)
	}
	assert.Zero(t, f.store.Saves())
	assert.Nil(t, f.mgr.Countdown())
	assert.Nil(t, f.mgr.Summary())
	assert.False(t, f.mgr.IsDeployed())
	assertMoney(t, "0", f.mgr.ProjectedSavings())

	f.startTour(t)
	assert.ErrorIs(t, f.mgr.UpdateExpenseAdjustment(ctx, "dining", dec("0")), deployment.ErrNoBudget)
	assert.ErrorIs(t, f.mgr.SetFamilyBudget(ctx, dec("1"), dec("1")), deployment.ErrNoBudget)
	assert.ErrorIs(t, f.mgr.UpdateSavingsGoal(ctx, dec("1")), deployment.ErrNoSavingsTracker)
	_, err := f.mgr.AddSavingsMilestone(ctx, "x", dec("1"))
	assert.ErrorIs(t, err, deployment.ErrNoSavingsTracker)

	require.NoError(t, f.mgr.CreateDeploymentBudget(ctx, dec("4000"), dec("500")))
	before := f.mgr.Budget()
	assert.ErrorIs(t, f.mgr.UpdateExpenseAdjustment(ctx, "yachts", dec("5")), deployment.ErrUnknownCategory)
	assert.Equal(t, before, f.mgr.Budget())
}

func TestManager_BudgetFollowsPayChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-04-01")
	f.startTour(t)
	require.NoError(t, f.mgr.CreateDeploymentBudget(ctx, dec("4000"), dec("500")))
	assertMoney(t, "2500", f.mgr.Budget().ProjectedMonthlySavings)

	require.NoError(t, f.mgr.EnableCombatZoneBenefits(ctx))
	assertMoney(t, "2725", f.mgr.Budget().ProjectedMonthlySavings)

	require.NoError(t, f.mgr.DisableCombatZoneBenefits(ctx))
	assertMoney(t, "2500", f.mgr.Budget().ProjectedMonthlySavings)

	// Extending the tour by a month adds a projected month.
	ret := day("2024-11-01")
	require.NoError(t, f.mgr.UpdateDeployment(ctx, deployment.Update{ExpectedReturnDate: &ret}))
	assertMoney(t, "27500", f.mgr.Budget().ProjectedTotalSavings)
}

func TestManager_ExpenseAdjustmentKeepsInvariant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-04-01")
	f.startTour(t)
	require.NoError(t, f.mgr.CreateDeploymentBudget(ctx, dec("4000"), dec("500")))

	require.NoError(t, f.mgr.UpdateExpenseAdjustment(ctx, "groceries", dec("350")))
	require.NoError(t, f.mgr.UpdateExpenseAdjustment(ctx, "communications", dec("80")))

	b := f.mgr.Budget()
	sum := decimal.Zero
	for _, r := range b.Adjustments {
		sum = sum.Add(r.DeploymentBudget)
	}
	assert.True(t, sum.Equal(b.DeploymentMonthlyExpenses))
	assertMoney(t, "2030", b.DeploymentMonthlyExpenses)
}

func TestManager_CombatZoneForOfficer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-04-01")
	f.startTour(t)

	yes := true
	income := dec("12000")
	require.NoError(t, f.mgr.UpdatePayAdjustments(ctx, deployment.PayAdjustmentsUpdate{
		CommissionedOfficer:  &yes,
		MonthlyTaxableIncome: &income,
	}))
	require.NoError(t, f.mgr.EnableCombatZoneBenefits(ctx))

	adj := f.mgr.ActiveDeployment().PayAdjustments
	assert.Equal(t, deployment.CZTECapped, adj.CombatZoneTaxExclusion)
	assertMoney(t, "2303.47", adj.EstimatedTaxSavings)
	assertMoney(t, "1100", f.mgr.EstimatedTaxSavings(dec("5000")))
}

func TestManager_SetFamilyBudgetEnablesFlag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-04-01")
	f.startTour(t)
	require.NoError(t, f.mgr.CreateDeploymentBudget(ctx, dec("4000"), dec("500")))

	require.NoError(t, f.mgr.SetFamilyBudget(ctx, dec("1800"), dec("5000")))

	assert.True(t, f.mgr.ActiveDeployment().FamilyBudgetEnabled)
	assertMoney(t, "1800", f.mgr.Budget().FamilyBudget.MonthlyAllowance)
}

func TestManager_SavingsFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-02-01")
	f.startTour(t)
	require.NoError(t, f.mgr.InitializeSavingsTracker(ctx, dec("10000")))

	net := dec("2500")
	require.NoError(t, f.mgr.RecordSavingsSnapshot(ctx, deployment.SnapshotInput{Month: day("2024-01-01"), NetSavings: &net}))

	id, err := f.mgr.AddSavingsMilestone(ctx, "Car fund", dec("2000"))
	require.NoError(t, err)
	tr := f.mgr.SavingsTracker()
	m, ok := tr.Milestone(id)
	require.True(t, ok)
	assert.True(t, m.IsAchieved, "met at creation")

	f.clock.Set(day("2024-03-01"))
	require.NoError(t, f.mgr.RecordSavingsSnapshot(ctx, deployment.SnapshotInput{Income: dec("5000"), Expenses: dec("4000")}))
	err = f.mgr.RecordSavingsSnapshot(ctx, deployment.SnapshotInput{Income: dec("1"), Expenses: dec("0")})
	assert.ErrorIs(t, err, deployment.ErrDuplicateSnapshot)

	tr = f.mgr.SavingsTracker()
	assertMoney(t, "3500", tr.CurrentSavings)
	assert.InDelta(t, 35.0, tr.ProgressPercent, 0.001)
	assert.True(t, tr.OnTrack, "3500 against 1800 expected after two of ten months")
	assert.Equal(t, 214, tr.DaysRemaining)

	require.NoError(t, f.mgr.UpdateSavingsGoal(ctx, dec("12000")))
	goal, _ := f.mgr.SavingsTracker().Milestone(deployment.GoalMilestoneID)
	assertMoney(t, "12000", goal.TargetAmount)
}

func TestManager_EndDeploymentMovesToHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-04-01")
	id := f.startTour(t)
	require.NoError(t, f.mgr.CreateDeploymentBudget(ctx, dec("4000"), dec("500")))
	require.NoError(t, f.mgr.InitializeSavingsTracker(ctx, dec("5000")))

	f.clock.Set(day("2024-09-28"))
	require.NoError(t, f.mgr.EndDeployment(ctx, time.Time{}))

	assert.Nil(t, f.mgr.ActiveDeployment())
	assert.Nil(t, f.mgr.Budget())
	assert.Nil(t, f.mgr.SavingsTracker())

	hist := f.mgr.DeploymentHistory()
	require.Len(t, hist, 1)
	assert.Equal(t, id, hist[0].ID)
	assert.False(t, hist[0].IsActive)
	require.NotNil(t, hist[0].ActualReturnDate)
	assert.Equal(t, day("2024-09-28"), *hist[0].ActualReturnDate)
	assert.Equal(t, deployment.PhasePostDeployment, hist[0].Phase)

	f.clock.Set(day("2025-01-01"))
	got, ok := f.mgr.DeploymentByID(id)
	require.True(t, ok)
	assert.Equal(t, deployment.PhaseNotDeployed, got.Phase, "history phase is recomputed at read time")

	_, ok = f.mgr.DeploymentByID("nope")
	assert.False(t, ok)

	// A new deployment may start once the old one has ended.
	_, err := f.mgr.StartDeployment(ctx, deployment.TypeTraining, day("2025-02-01"), day("2025-03-01"), deployment.Location{})
	require.NoError(t, err)
	assert.Equal(t, deployment.ConnectivityFull, f.mgr.ActiveDeployment().Location.Connectivity)
}

func TestManager_EndDeploymentRejectsReturnBeforeDeparture(t *testing.T) {
	f := newFixture(t, "2024-04-01")
	f.startTour(t)

	err := f.mgr.EndDeployment(context.Background(), day("2023-12-01"))
	assert.ErrorIs(t, err, deployment.ErrInvalidDates)
	assert.NotNil(t, f.mgr.ActiveDeployment())
}

func TestManager_CancelDiscardsEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-04-01")
	id := f.startTour(t)
	require.NoError(t, f.mgr.CreateDeploymentBudget(ctx, dec("4000"), dec("500")))

	require.NoError(t, f.mgr.CancelDeployment(ctx))

	assert.Nil(t, f.mgr.ActiveDeployment())
	assert.Nil(t, f.mgr.Budget())
	assert.Empty(t, f.mgr.DeploymentHistory())
	_, ok := f.mgr.DeploymentByID(id)
	assert.False(t, ok)
}

func TestManager_StateSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-04-01")
	f.startTour(t)
	require.NoError(t, f.mgr.EnableCombatZoneBenefits(ctx))
	require.NoError(t, f.mgr.CreateDeploymentBudget(ctx, dec("4000"), dec("500")))
	_, err := f.mgr.AddToOfflineQueue(ctx, syncqueue.ItemTransaction, json.RawMessage(`{"amount":"10"}`))
	require.NoError(t, err)

	restarted := f.open(t)

	before, err := json.Marshal(f.mgr.Summary())
	require.NoError(t, err)
	after, err := json.Marshal(restarted.Summary())
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	assert.Len(t, restarted.QueueItems(), 1)
}

func TestManager_SaveFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-04-01")
	f.startTour(t)

	f.store.FailNextSave(errors.New("disk full"))
	err := f.mgr.EnableCombatZoneBenefits(ctx)
	require.Error(t, err)
	assert.False(t, deployment.IsDomainError(err))
	assert.False(t, f.mgr.ActiveDeployment().PayAdjustments.HostileFirePay)

	f.store.FailNextSave(errors.New("disk full"))
	_, err = f.mgr.AddToOfflineQueue(ctx, syncqueue.ItemGoalUpdate, json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Empty(t, f.mgr.QueueItems())
}

func TestManager_OfflineQueue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-04-01")

	_, err := f.mgr.SetOnlineStatus(ctx, false)
	require.NoError(t, err)

	a, err := f.mgr.AddToOfflineQueue(ctx, syncqueue.ItemTransaction, json.RawMessage(`{"n":"A"}`))
	require.NoError(t, err)
	b, err := f.mgr.AddToOfflineQueue(ctx, syncqueue.ItemBudgetUpdate, json.RawMessage(`{"n":"B"}`))
	require.NoError(t, err)
	c, err := f.mgr.AddToOfflineQueue(ctx, syncqueue.ItemGoalUpdate, json.RawMessage(`{"n":"C"}`))
	require.NoError(t, err)
	assert.Equal(t, 3, f.mgr.QueueStats().Pending)

	res, err := f.mgr.ProcessOfflineQueue(ctx)
	require.NoError(t, err)
	assert.False(t, res.Ran, "offline")

	f.syncer.fail[b.ID] = true
	res, err = f.mgr.SetOnlineStatus(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, syncqueue.Result{Ran: true, Attempted: 3, Synced: 2, Failed: 1}, res)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, f.syncer.attempted)

	items := f.mgr.QueueItems()
	assert.Equal(t, syncqueue.StatusSynced, items[0].Status)
	assert.Equal(t, syncqueue.StatusFailed, items[1].Status)
	assert.Equal(t, 1, items[1].RetryCount)
	assert.Equal(t, syncqueue.StatusSynced, items[2].Status)

	n, err := f.mgr.ClearSyncedItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	delete(f.syncer.fail, b.ID)
	n, err = f.mgr.RetryFailedItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err = f.mgr.ProcessOfflineQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
	stats := f.mgr.QueueStats()
	assert.Equal(t, 0, stats.Pending)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 1, stats.Synced)
}

func TestManager_FreshQueueStartsOnline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-04-01")

	assert.True(t, f.mgr.QueueStats().Online)
	item, err := f.mgr.AddToOfflineQueue(ctx, syncqueue.ItemTransaction, json.RawMessage(`{"n":"A"}`))
	require.NoError(t, err)

	res, err := f.mgr.ProcessOfflineQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, syncqueue.Result{Ran: true, Attempted: 1, Synced: 1}, res)
	assert.Equal(t, []string{item.ID}, f.syncer.attempted)

	// Connectivity survives a restart of a store that was never toggled.
	mgr := f.open(t)
	assert.True(t, mgr.QueueStats().Online)
}

func TestManager_QueueNoOpsDoNotSave(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-04-01")

	_, err := f.mgr.AddToOfflineQueue(ctx, syncqueue.ItemType("wire_transfer"), nil)
	require.ErrorIs(t, err, syncqueue.ErrUnknownType)
	assert.Zero(t, f.store.Saves(), "rejected item")

	res, err := f.mgr.ProcessOfflineQueue(ctx)
	require.NoError(t, err)
	assert.False(t, res.Ran)
	assert.Zero(t, f.store.Saves(), "empty drain")

	_, err = f.mgr.SetOnlineStatus(ctx, true)
	require.NoError(t, err)
	assert.Zero(t, f.store.Saves(), "already online")

	n, err := f.mgr.ClearSyncedItems(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = f.mgr.RetryFailedItems(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, f.store.Saves(), "nothing to clear or retry")

	_, err = f.mgr.SetOnlineStatus(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Saves(), "connectivity changed")
}

func TestManager_SummaryIncludesSDPInterest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-04-01")
	f.startTour(t)

	yes := true
	deposit := dec("6000")
	require.NoError(t, f.mgr.UpdatePayAdjustments(ctx, deployment.PayAdjustmentsUpdate{
		SavingsDepositProgram: &yes,
		SavingsDepositAmount:  &deposit,
	}))

	s := f.mgr.Summary()
	require.NotNil(t, s)
	assertMoney(t, "50", s.SDPMonthlyInterest)
	assert.Equal(t, 91, s.Countdown.DaysComplete)
	assert.Zero(t, s.CompletedDeployments)
}

func TestNew_RejectsNewerStateVersion(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.Save(context.Background(), &lifecycle.State{Version: lifecycle.StateVersion + 1}))

	_, err := lifecycle.New(context.Background(), mem)
	assert.Error(t, err)
}
