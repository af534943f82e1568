package deployment

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tourDays   = 274
	tourReturn = day("2024-10-01")
)

func newTracker(t *testing.T, goal string) *SavingsTracker {
	t.Helper()
	tr, err := NewSavingsTracker(dec(goal))
	require.NoError(t, err)
	return tr
}

func record(t *testing.T, tr *SavingsTracker, month, net string, now time.Time) {
	t.Helper()
	m, err := time.Parse("2006-01", month)
	require.NoError(t, err)
	n := dec(net)
	require.NoError(t, tr.RecordSnapshot(SnapshotInput{Month: m, NetSavings: &n}, now))
	ComputeSavingsTotals(tr, tourDays, tourReturn, now)
}

func TestNewSavingsTracker_SeedsGoalMilestone(t *testing.T) {
	tr := newTracker(t, "10000")
	ComputeSavingsTotals(tr, tourDays, tourReturn, day("2024-04-01"))

	require.Len(t, tr.Milestones, 1)
	assert.Equal(t, GoalMilestoneID, tr.Milestones[0].ID)
	assertMoney(t, "10000", tr.Milestones[0].TargetAmount)
	assert.False(t, tr.Milestones[0].IsAchieved)
	assert.Equal(t, 183, tr.DaysRemaining)
	assert.True(t, tr.OnTrack, "nothing is expected before the first snapshot")
}

func TestComputeSavingsTotals_CumulativeIsSumOfNets(t *testing.T) {
	tr := newTracker(t, "10000")
	now := day("2024-05-01")

	record(t, tr, "2024-01", "1000", now)
	record(t, tr, "2024-02", "2500", now)
	record(t, tr, "2024-03", "-250.50", now)

	require.Len(t, tr.Snapshots, 3)
	assertMoney(t, "1000", tr.Snapshots[0].CumulativeSavings)
	assertMoney(t, "3500", tr.Snapshots[1].CumulativeSavings)
	assertMoney(t, "3249.50", tr.Snapshots[2].CumulativeSavings)
	assertMoney(t, "3249.50", tr.CurrentSavings)
	assert.InDelta(t, 32.495, tr.ProgressPercent, 0.01)
}

func TestRecordSnapshot_DerivesNetFromIncomeAndExpenses(t *testing.T) {
	tr := newTracker(t, "1000")
	now := day("2024-02-15")

	require.NoError(t, tr.RecordSnapshot(SnapshotInput{Income: dec("6000"), Expenses: dec("4200")}, now))
	ComputeSavingsTotals(tr, tourDays, tourReturn, now)

	require.Len(t, tr.Snapshots, 1)
	assert.Equal(t, "2024-02", tr.Snapshots[0].Month)
	assertMoney(t, "1800", tr.CurrentSavings)
	assert.InDelta(t, 180.0, tr.ProgressPercent, 0.001, "progress is not clamped")
}

func TestRecordSnapshot_DuplicateMonth(t *testing.T) {
	tr := newTracker(t, "1000")
	now := day("2024-02-15")
	record(t, tr, "2024-02", "100", now)

	n := dec("999")
	err := tr.RecordSnapshot(SnapshotInput{Month: day("2024-02-28"), NetSavings: &n}, now)
	assert.ErrorIs(t, err, ErrDuplicateSnapshot)
	assert.Len(t, tr.Snapshots, 1)
}

func TestMilestones_AchievementIsMonotonic(t *testing.T) {
	tr := newTracker(t, "10000")
	first := day("2024-03-01")
	require.NoError(t, tr.AddMilestone("m-1", "Emergency fund", dec("3500"), first))

	record(t, tr, "2024-01", "1000", first)
	record(t, tr, "2024-02", "2500", first)

	m, ok := tr.Milestone("m-1")
	require.True(t, ok)
	require.True(t, m.IsAchieved)
	require.NotNil(t, m.AchievedAt)
	assert.Equal(t, first, *m.AchievedAt)

	later := day("2024-04-01")
	record(t, tr, "2024-03", "-1000", later)

	assertMoney(t, "2500", tr.CurrentSavings)
	m, _ = tr.Milestone("m-1")
	assert.True(t, m.IsAchieved, "achievement survives a downward correction")
	assert.Equal(t, first, *m.AchievedAt)
}

func TestAddMilestone_AlreadyMet(t *testing.T) {
	tr := newTracker(t, "10000")
	now := day("2024-03-01")
	record(t, tr, "2024-01", "2000", now)

	require.NoError(t, tr.AddMilestone("m-1", "First grand", dec("1000"), now))
	require.NoError(t, tr.AddMilestone("m-2", "Car", dec("5000"), now))

	m1, _ := tr.Milestone("m-1")
	m2, _ := tr.Milestone("m-2")
	assert.True(t, m1.IsAchieved)
	assert.False(t, m2.IsAchieved)
}

func TestComputeSavingsTotals_OnTrack(t *testing.T) {
	// 274 days is 10 planned months; after three snapshots 3000 of 10000 is
	// expected and 2700 is the on-track line.
	tests := []struct {
		name string
		nets []string
		want bool
	}{
		{"exactly on the line", []string{"900", "900", "900"}, true},
		{"just under", []string{"900", "900", "899.99"}, false},
		{"ahead", []string{"2000", "2000", "2000"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTracker(t, "10000")
			now := day("2024-04-01")
			for i, net := range tt.nets {
				record(t, tr, day("2024-01-01").AddDate(0, i, 0).Format("2006-01"), net, now)
			}
			assert.Equal(t, tt.want, tr.OnTrack)
		})
	}
}

func TestComputeSavingsTotals_ZeroGoal(t *testing.T) {
	tr := newTracker(t, "0")
	record(t, tr, "2024-01", "50", day("2024-02-01"))

	assert.Zero(t, tr.ProgressPercent)
	assert.True(t, tr.OnTrack)
}

func TestUpdateGoal_MovesUnachievedGoalMilestone(t *testing.T) {
	tr := newTracker(t, "1000")
	require.NoError(t, tr.UpdateGoal(dec("2000")))
	m, _ := tr.Milestone(GoalMilestoneID)
	assertMoney(t, "2000", m.TargetAmount)

	now := day("2024-02-01")
	record(t, tr, "2024-01", "2500", now)
	require.NoError(t, tr.UpdateGoal(dec("5000")))
	m, _ = tr.Milestone(GoalMilestoneID)
	assertMoney(t, "2000", m.TargetAmount, "achieved milestone keeps its target")
	assertMoney(t, "5000", tr.SavingsGoal)

	assert.ErrorIs(t, tr.UpdateGoal(decimal.NewFromInt(-5)), ErrInvalidAmount)
}

func TestSavingsTracker_DaysRemainingFloorsAtZero(t *testing.T) {
	tr := newTracker(t, "1000")
	ComputeSavingsTotals(tr, tourDays, tourReturn, day("2024-12-25"))
	assert.Equal(t, 0, tr.DaysRemaining)
}
