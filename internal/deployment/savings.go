package deployment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/deployfin/internal/datemath"
)

// GoalMilestoneID identifies the milestone seeded from the savings goal.
const GoalMilestoneID = "goal"

// onTrackTolerance is the share of expected progress that still counts as
// on track.
var onTrackTolerance = decimal.RequireFromString("0.9")

var hundred = decimal.NewFromInt(100)

// Snapshot is one month of recorded savings.
type Snapshot struct {
	Month             string          `json:"month"`
	Income            decimal.Decimal `json:"income"`
	Expenses          decimal.Decimal `json:"expenses"`
	NetSavings        decimal.Decimal `json:"net_savings"`
	CumulativeSavings decimal.Decimal `json:"cumulative_savings"`
	Notes             string          `json:"notes,omitempty"`
	RecordedAt        time.Time       `json:"recorded_at"`
}

// SnapshotInput is the caller-supplied part of a snapshot.
//
// A zero Month means the month containing now. When NetSavings is nil the
// net is Income minus Expenses.
type SnapshotInput struct {
	Month      time.Time
	Income     decimal.Decimal
	Expenses   decimal.Decimal
	NetSavings *decimal.Decimal
	Notes      string
}

// Milestone is a named savings target.
type Milestone struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	IsAchieved   bool            `json:"is_achieved"`
	AchievedAt   *time.Time      `json:"achieved_at,omitempty"`
}

// SavingsTracker accumulates monthly snapshots against a goal.
//
// INVARIANTS (held by ComputeSavingsTotals):
//   - Snapshots[i].CumulativeSavings == Snapshots[i-1].CumulativeSavings + Snapshots[i].NetSavings
//   - CurrentSavings == last CumulativeSavings, or zero with no snapshots
//   - a milestone with IsAchieved set is never reset
type SavingsTracker struct {
	SavingsGoal     decimal.Decimal `json:"savings_goal"`
	CurrentSavings  decimal.Decimal `json:"current_savings"`
	ProgressPercent float64         `json:"progress_percent"`
	Snapshots       []Snapshot      `json:"snapshots"`
	Milestones      []Milestone     `json:"milestones"`
	OnTrack         bool            `json:"on_track"`
	DaysRemaining   int             `json:"days_remaining"`
}

// NewSavingsTracker creates a tracker with a single milestone for the goal.
func NewSavingsTracker(goal decimal.Decimal) (*SavingsTracker, error) {
	if goal.IsNegative() {
		return nil, newError(ErrInvalidAmount, "savings goal %s is negative", goal)
	}
	return &SavingsTracker{
		SavingsGoal: goal,
		Snapshots:   []Snapshot{},
		Milestones: []Milestone{{
			ID:           GoalMilestoneID,
			Name:         "Savings goal",
			TargetAmount: goal,
		}},
	}, nil
}

// UpdateGoal changes the goal. The seeded goal milestone tracks the new
// amount unless it has already been achieved.
func (t *SavingsTracker) UpdateGoal(goal decimal.Decimal) error {
	if goal.IsNegative() {
		return newError(ErrInvalidAmount, "savings goal %s is negative", goal)
	}
	t.SavingsGoal = goal
	for i := range t.Milestones {
		m := &t.Milestones[i]
		if m.ID == GoalMilestoneID && !m.IsAchieved {
			m.TargetAmount = goal
		}
	}
	return nil
}

// RecordSnapshot appends a month. Recording a month twice is rejected and
// leaves the tracker unchanged.
func (t *SavingsTracker) RecordSnapshot(in SnapshotInput, now time.Time) error {
	month := in.Month
	if month.IsZero() {
		month = now
	}
	key := datemath.MonthKey(month)
	for _, s := range t.Snapshots {
		if s.Month == key {
			return newError(ErrDuplicateSnapshot, "snapshot for %s already recorded", key)
		}
	}

	net := in.Income.Sub(in.Expenses)
	if in.NetSavings != nil {
		net = *in.NetSavings
	}

	t.Snapshots = append(t.Snapshots, Snapshot{
		Month:      key,
		Income:     in.Income,
		Expenses:   in.Expenses,
		NetSavings: net,
		Notes:      in.Notes,
		RecordedAt: now,
	})
	return nil
}

// AddMilestone appends a milestone, already achieved if current savings
// meet the target.
func (t *SavingsTracker) AddMilestone(id, name string, target decimal.Decimal, now time.Time) error {
	if target.IsNegative() {
		return newError(ErrInvalidAmount, "milestone target %s is negative", target)
	}
	t.Milestones = append(t.Milestones, Milestone{ID: id, Name: name, TargetAmount: target})
	t.CheckMilestones(now)
	return nil
}

// CheckMilestones marks every unachieved milestone whose target is met.
// Achievement is monotonic: a later drop in savings never clears it.
func (t *SavingsTracker) CheckMilestones(now time.Time) {
	for i := range t.Milestones {
		m := &t.Milestones[i]
		if m.IsAchieved {
			continue
		}
		if t.CurrentSavings.GreaterThanOrEqual(m.TargetAmount) {
			at := now
			m.IsAchieved = true
			m.AchievedAt = &at
		}
	}
}

// Milestone returns the milestone with the given id.
func (t *SavingsTracker) Milestone(id string) (Milestone, bool) {
	for _, m := range t.Milestones {
		if m.ID == id {
			return m, true
		}
	}
	return Milestone{}, false
}

// ComputeSavingsTotals recomputes every derived field of t and re-checks
// milestones.
//
// On track means current savings reach 90% of the pro-rata goal, where
// pro-rata is snapshots recorded over planned months (at least one).
func ComputeSavingsTotals(t *SavingsTracker, durationDays int, expectedReturn, now time.Time) {
	cumulative := decimal.Zero
	for i := range t.Snapshots {
		cumulative = cumulative.Add(t.Snapshots[i].NetSavings)
		t.Snapshots[i].CumulativeSavings = cumulative
	}
	t.CurrentSavings = cumulative

	if t.SavingsGoal.IsZero() {
		t.ProgressPercent = 0
	} else {
		t.ProgressPercent = cumulative.Div(t.SavingsGoal).Mul(hundred).Round(2).InexactFloat64()
	}

	totalMonths := max(1, datemath.CeilMonths(durationDays))
	expected := t.SavingsGoal.
		Mul(decimal.NewFromInt(int64(len(t.Snapshots)))).
		Div(decimal.NewFromInt(int64(totalMonths)))
	t.OnTrack = cumulative.GreaterThanOrEqual(expected.Mul(onTrackTolerance))

	t.DaysRemaining = max(0, datemath.DaysUntil(now, expectedReturn))

	t.CheckMilestones(now)
}

// Clone returns a deep copy.
func (t *SavingsTracker) Clone() *SavingsTracker {
	if t == nil {
		return nil
	}
	c := *t
	c.Snapshots = append([]Snapshot{}, t.Snapshots...)
	c.Milestones = make([]Milestone, len(t.Milestones))
	for i, m := range t.Milestones {
		if m.AchievedAt != nil {
			at := *m.AchievedAt
			m.AchievedAt = &at
		}
		c.Milestones[i] = m
	}
	return &c
}
