package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/deployfin/internal/datemath"
	"github.com/roach88/deployfin/internal/deployment"
	"github.com/roach88/deployfin/internal/ident"
	"github.com/roach88/deployfin/internal/refdata"
	"github.com/roach88/deployfin/internal/syncqueue"
)

// Manager is the deployment lifecycle service.
//
// Thread-safety: every exported method takes the manager lock, so
// operations never interleave. Read methods derive time-dependent fields
// (phase, countdown, days remaining) from the clock at call time.
type Manager struct {
	mu     sync.Mutex
	store  StateStore
	clock  datemath.Clock
	ids    ident.Generator
	tables *refdata.Tables
	syncer syncqueue.Syncer

	state *State
	queue *syncqueue.Queue
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock. Default: datemath.SystemClock.
func WithClock(c datemath.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithIDGenerator sets the identity generator. Default: UUIDv7.
func WithIDGenerator(g ident.Generator) Option {
	return func(m *Manager) {
		m.ids = g
	}
}

// WithTables sets the reference tables. Default: refdata.MustDefaults().
func WithTables(t *refdata.Tables) Option {
	return func(m *Manager) {
		m.tables = t
	}
}

// WithSyncer sets the remote side used to drain the offline queue.
// Without one, drained items fail with syncqueue.ErrNoSyncer.
func WithSyncer(s syncqueue.Syncer) Option {
	return func(m *Manager) {
		m.syncer = s
	}
}

// New creates a Manager and loads any saved state from store.
func New(ctx context.Context, store StateStore, opts ...Option) (*Manager, error) {
	m := &Manager{
		store: store,
		clock: datemath.SystemClock{},
		ids:   ident.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.tables == nil {
		tables, err := refdata.Defaults()
		if err != nil {
			return nil, fmt.Errorf("load reference tables: %w", err)
		}
		m.tables = tables
	}

	st, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if st == nil {
		st = emptyState()
	}
	if st.Version > StateVersion {
		return nil, fmt.Errorf("load state: version %d is newer than supported version %d", st.Version, StateVersion)
	}
	st.Version = StateVersion
	if st.History == nil {
		st.History = []deployment.Info{}
	}

	m.state = st
	m.queue = syncqueue.Restore(st.Queue, m.clock, m.ids)

	slog.Debug("lifecycle state loaded",
		"active", st.Active != nil,
		"history", len(st.History),
		"queued", len(st.Queue.Items))
	return m, nil
}

// mutate runs fn against a clone of the state and commits the clone only
// if fn succeeds and the save goes through.
func (m *Manager) mutate(ctx context.Context, op string, fn func(st *State, now time.Time) error) error {
	now := m.clock.Now()
	next := m.state.Clone()
	if err := fn(next, now); err != nil {
		return err
	}
	return m.commit(ctx, op, next, now)
}

// mutateQueue applies fn to the live queue and saves only when fn reports
// a change, rolling the queue back from a snapshot if the save fails.
func (m *Manager) mutateQueue(ctx context.Context, op string, fn func(q *syncqueue.Queue) bool) error {
	before := m.queue.Snapshot()
	if !fn(m.queue) {
		return nil
	}
	if err := m.commit(ctx, op, m.state.Clone(), m.clock.Now()); err != nil {
		m.queue = syncqueue.Restore(before, m.clock, m.ids)
		return err
	}
	return nil
}

func (m *Manager) commit(ctx context.Context, op string, next *State, now time.Time) error {
	m.recompute(next, now)
	next.Queue = m.queue.Snapshot()
	if err := m.store.Save(ctx, next); err != nil {
		return fmt.Errorf("%s: save state: %w", op, err)
	}
	m.state = next
	slog.Debug("lifecycle state saved", "op", op)
	return nil
}

// recompute refreshes every stored derived field from its inputs.
func (m *Manager) recompute(st *State, now time.Time) {
	if st.Active == nil {
		return
	}
	info := st.Active
	info.Phase = deployment.ClassifyInfo(info, now)
	info.PayAdjustments.Recompute(m.tables.PayRates)

	duration := info.DurationDays()
	if st.Budget != nil {
		deployment.ComputeBudgetTotals(st.Budget, info.PayAdjustments.AdditionalMonthlyPay, duration)
	}
	if st.Tracker != nil {
		deployment.ComputeSavingsTotals(st.Tracker, duration, info.ExpectedReturnDate, now)
	}
}

// view returns a recomputed clone of the state for read methods.
func (m *Manager) view() *State {
	st := m.state.Clone()
	m.recompute(st, m.clock.Now())
	return st
}

func requireActive(st *State) error {
	if st.Active == nil {
		return deployment.ErrNoActiveDeployment
	}
	return nil
}

func requireBudget(st *State) error {
	if err := requireActive(st); err != nil {
		return err
	}
	if st.Budget == nil {
		return deployment.ErrNoBudget
	}
	return nil
}

func requireTracker(st *State) error {
	if err := requireActive(st); err != nil {
		return err
	}
	if st.Tracker == nil {
		return deployment.ErrNoSavingsTracker
	}
	return nil
}

// StartDeployment creates the active deployment and returns its id.
func (m *Manager) StartDeployment(
	ctx context.Context,
	typ deployment.Type,
	departure, expectedReturn time.Time,
	loc deployment.Location,
) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var id string
	err := m.mutate(ctx, "start deployment", func(st *State, now time.Time) error {
		if st.Active != nil {
			return deployment.ErrDeploymentActive
		}
		if !typ.Valid() {
			return fmt.Errorf("%w: deployment type %q", deployment.ErrInvalidValue, typ)
		}
		if loc.Connectivity == "" {
			loc.Connectivity = deployment.ConnectivityFull
		}
		if !loc.Connectivity.Valid() {
			return fmt.Errorf("%w: connectivity %q", deployment.ErrInvalidValue, loc.Connectivity)
		}
		if err := deployment.ValidateDates(departure, expectedReturn); err != nil {
			return err
		}

		id = m.ids.Generate()
		st.Active = &deployment.Info{
			ID:                 id,
			IsActive:           true,
			Type:               typ,
			DepartureDate:      datemath.Day(departure),
			ExpectedReturnDate: datemath.Day(expectedReturn),
			Location:           loc,
			PayAdjustments:     deployment.DefaultPayAdjustments(),
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	slog.Info("deployment started",
		"id", id,
		"type", typ,
		"departure", departure.Format(datemath.DateLayout),
		"expected_return", expectedReturn.Format(datemath.DateLayout))
	return id, nil
}

// UpdateDeployment applies a partial change to the active deployment.
func (m *Manager) UpdateDeployment(ctx context.Context, u deployment.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mutate(ctx, "update deployment", func(st *State, now time.Time) error {
		if err := requireActive(st); err != nil {
			return err
		}
		if u.DepartureDate != nil {
			d := datemath.Day(*u.DepartureDate)
			u.DepartureDate = &d
		}
		if u.ExpectedReturnDate != nil {
			d := datemath.Day(*u.ExpectedReturnDate)
			u.ExpectedReturnDate = &d
		}
		next, err := u.Apply(st.Active)
		if err != nil {
			return err
		}
		next.UpdatedAt = now
		st.Active = next
		return nil
	})
}

// EndDeployment records the actual return, moves the deployment into
// history and discards its budget and savings tracker. A zero
// actualReturn means today.
func (m *Manager) EndDeployment(ctx context.Context, actualReturn time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var id string
	err := m.mutate(ctx, "end deployment", func(st *State, now time.Time) error {
		if err := requireActive(st); err != nil {
			return err
		}
		if actualReturn.IsZero() {
			actualReturn = now
		}
		ret := datemath.Day(actualReturn)
		if ret.Before(st.Active.DepartureDate) {
			return fmt.Errorf("%w: actual return %s precedes departure",
				deployment.ErrInvalidDates, ret.Format(datemath.DateLayout))
		}

		m.recompute(st, now)
		ended := st.Active.Clone()
		ended.ActualReturnDate = &ret
		ended.IsActive = false
		ended.Phase = deployment.ClassifyInfo(ended, now)
		ended.UpdatedAt = now

		id = ended.ID
		st.History = append(st.History, *ended)
		st.Active, st.Budget, st.Tracker = nil, nil, nil
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("deployment ended", "id", id, "actual_return", actualReturn.Format(datemath.DateLayout))
	return nil
}

// CancelDeployment discards the active deployment, budget and tracker
// without recording history.
func (m *Manager) CancelDeployment(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var id string
	err := m.mutate(ctx, "cancel deployment", func(st *State, _ time.Time) error {
		if err := requireActive(st); err != nil {
			return err
		}
		id = st.Active.ID
		st.Active, st.Budget, st.Tracker = nil, nil, nil
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("deployment cancelled", "id", id)
	return nil
}

// UpdatePayAdjustments merges a partial toggle change. Totals are always
// recomputed from the resulting toggles.
func (m *Manager) UpdatePayAdjustments(ctx context.Context, u deployment.PayAdjustmentsUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mutate(ctx, "update pay adjustments", func(st *State, now time.Time) error {
		if err := requireActive(st); err != nil {
			return err
		}
		adj, err := u.Apply(st.Active.PayAdjustments)
		if err != nil {
			return err
		}
		st.Active.PayAdjustments = adj
		st.Active.UpdatedAt = now
		return nil
	})
}

// EnableCombatZoneBenefits turns on hostile fire pay and the grade's CZTE
// treatment.
func (m *Manager) EnableCombatZoneBenefits(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mutate(ctx, "enable combat zone benefits", func(st *State, now time.Time) error {
		if err := requireActive(st); err != nil {
			return err
		}
		st.Active.PayAdjustments.EnableCombatZone()
		st.Active.UpdatedAt = now
		return nil
	})
}

// DisableCombatZoneBenefits clears hostile fire, imminent danger, CZTE and
// SDP.
func (m *Manager) DisableCombatZoneBenefits(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mutate(ctx, "disable combat zone benefits", func(st *State, now time.Time) error {
		if err := requireActive(st); err != nil {
			return err
		}
		st.Active.PayAdjustments.DisableCombatZone()
		st.Active.UpdatedAt = now
		return nil
	})
}

// AdditionalMonthlyPay returns the active deployment's extra monthly pay,
// or zero with no active deployment.
func (m *Manager) AdditionalMonthlyPay() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Active == nil {
		return decimal.Zero
	}
	return deployment.ComputePayTotals(m.state.Active.PayAdjustments, m.tables.PayRates).AdditionalMonthlyPay
}

// EstimatedTaxSavings estimates the monthly tax avoided on the given
// income under the active deployment's CZTE status.
func (m *Manager) EstimatedTaxSavings(monthlyTaxableIncome decimal.Decimal) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Active == nil {
		return decimal.Zero
	}
	status := m.state.Active.PayAdjustments.CombatZoneTaxExclusion
	return deployment.EstimateTaxSavings(status, monthlyTaxableIncome, m.tables.PayRates)
}

// CreateDeploymentBudget seeds a budget from the expense template,
// replacing any existing one.
func (m *Manager) CreateDeploymentBudget(ctx context.Context, normalExpenses, normalSavings decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mutate(ctx, "create budget", func(st *State, _ time.Time) error {
		if err := requireActive(st); err != nil {
			return err
		}
		b, err := deployment.NewBudget(normalExpenses, normalSavings, m.tables.ExpenseTemplate)
		if err != nil {
			return err
		}
		st.Budget = b
		return nil
	})
}

// UpdateExpenseAdjustment sets one category's deployment budget.
func (m *Manager) UpdateExpenseAdjustment(ctx context.Context, categoryID string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mutate(ctx, "update expense adjustment", func(st *State, _ time.Time) error {
		if err := requireBudget(st); err != nil {
			return err
		}
		return st.Budget.UpdateExpenseAdjustment(categoryID, amount)
	})
}

// SetFamilyBudget records the family allowance and enables the family
// budget on the deployment.
func (m *Manager) SetFamilyBudget(ctx context.Context, allowance, emergencyTarget decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mutate(ctx, "set family budget", func(st *State, now time.Time) error {
		if err := requireBudget(st); err != nil {
			return err
		}
		if err := st.Budget.SetFamilyBudget(allowance, emergencyTarget); err != nil {
			return err
		}
		st.Active.FamilyBudgetEnabled = true
		st.Active.UpdatedAt = now
		return nil
	})
}

// InitializeSavingsTracker creates a tracker for goal, replacing any
// existing one.
func (m *Manager) InitializeSavingsTracker(ctx context.Context, goal decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mutate(ctx, "initialize savings tracker", func(st *State, _ time.Time) error {
		if err := requireActive(st); err != nil {
			return err
		}
		tr, err := deployment.NewSavingsTracker(goal)
		if err != nil {
			return err
		}
		st.Tracker = tr
		return nil
	})
}

// UpdateSavingsGoal changes the savings goal.
func (m *Manager) UpdateSavingsGoal(ctx context.Context, goal decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mutate(ctx, "update savings goal", func(st *State, _ time.Time) error {
		if err := requireTracker(st); err != nil {
			return err
		}
		return st.Tracker.UpdateGoal(goal)
	})
}

// RecordSavingsSnapshot appends a monthly snapshot.
func (m *Manager) RecordSavingsSnapshot(ctx context.Context, in deployment.SnapshotInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mutate(ctx, "record savings snapshot", func(st *State, now time.Time) error {
		if err := requireTracker(st); err != nil {
			return err
		}
		return st.Tracker.RecordSnapshot(in, now)
	})
}

// AddSavingsMilestone appends a milestone and returns its id.
func (m *Manager) AddSavingsMilestone(ctx context.Context, name string, target decimal.Decimal) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var id string
	err := m.mutate(ctx, "add savings milestone", func(st *State, now time.Time) error {
		if err := requireTracker(st); err != nil {
			return err
		}
		// The tracker's current savings must be fresh before the
		// immediate achievement check.
		m.recompute(st, now)
		id = m.ids.Generate()
		return st.Tracker.AddMilestone(id, name, target, now)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// AddToOfflineQueue buffers a mutation for later sync.
func (m *Manager) AddToOfflineQueue(ctx context.Context, typ syncqueue.ItemType, payload json.RawMessage) (syncqueue.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		item   syncqueue.Item
		addErr error
	)
	err := m.mutateQueue(ctx, "add to offline queue", func(q *syncqueue.Queue) {
		item, addErr = q.Add(typ, payload)
		return addErr == nil
	})
	if addErr != nil {
		return syncqueue.Item{}, addErr
	}
	if err != nil {
		return syncqueue.Item{}, err
	}
	return item, nil
}

// ProcessOfflineQueue drains pending items through the configured syncer.
func (m *Manager) ProcessOfflineQueue(ctx context.Context) (syncqueue.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res syncqueue.Result
	err := m.mutateQueue(ctx, "process offline queue", func(q *syncqueue.Queue) {
		res = q.Process(ctx, m.syncer)
		return res.Ran
	})
	return res, err
}

// SetOnlineStatus records connectivity; reconnecting drains the queue.
func (m *Manager) SetOnlineStatus(ctx context.Context, online bool) (syncqueue.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res syncqueue.Result
	err := m.mutateQueue(ctx, "set online status", func(q *syncqueue.Queue) {
		changed := q.Online() != online
		res = q.SetOnline(ctx, online, m.syncer)
		return changed || res.Ran
	})
	return res, err
}

// ClearSyncedItems removes synced items and returns how many went.
func (m *Manager) ClearSyncedItems(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	err := m.mutateQueue(ctx, "clear synced items", func(q *syncqueue.Queue) {
		n = q.ClearSynced()
		return n > 0
	})
	return n, err
}

// RetryFailedItems moves failed items back to pending for the next drain.
func (m *Manager) RetryFailedItems(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	err := m.mutateQueue(ctx, "retry failed items", func(q *syncqueue.Queue) {
		n = q.RetryFailed()
		return n > 0
	})
	return n, err
}

// QueueItems returns every queued item in insertion order.
func (m *Manager) QueueItems() []syncqueue.Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.queue.Items()
}

// QueueStats returns the queue counters.
func (m *Manager) QueueStats() syncqueue.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.queue.Stats()
}
