package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/deployfin/internal/canon"
	"github.com/roach88/deployfin/internal/datemath"
	"github.com/roach88/deployfin/internal/deployment"
	"github.com/roach88/deployfin/internal/lifecycle"
	"github.com/roach88/deployfin/internal/store"
	"github.com/roach88/deployfin/internal/syncqueue"
	"github.com/roach88/deployfin/internal/testutil"
)

// CaseUnknownType is the output case for queue items of an unknown type.
const CaseUnknownType = "UNKNOWN_TYPE"

// ErrSyncRejected is recorded on queue items listed in sync_failures.
var ErrSyncRejected = errors.New("sync rejected by scenario")

// runner holds the live objects of one scenario execution.
type runner struct {
	store  lifecycle.StateStore
	mgr    *lifecycle.Manager
	clock  *testutil.ManualClock
	ids    *testutil.SequenceGenerator
	syncer syncqueue.Syncer
	seq    int64
}

func (r *runner) options() []lifecycle.Option {
	return []lifecycle.Option{
		lifecycle.WithClock(r.clock),
		lifecycle.WithIDGenerator(r.ids),
		lifecycle.WithSyncer(r.syncer),
	}
}

func (r *runner) today() string {
	return r.clock.Now().Format(datemath.DateLayout)
}

func (r *runner) nextSeq() int64 {
	r.seq++
	return r.seq
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory SQLite database, so state
// persistence and restarts are exercised exactly as in production.
// Deterministic helpers ensure reproducible traces.
//
// Execution flow:
// 1. Open a fresh in-memory store
// 2. Start the manager with a manual clock and sequential IDs
// 3. Execute flow steps with expect validation
// 4. Evaluate assertions against the trace and final state
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	start, err := datemath.ParseDate(scenario.Clock)
	if err != nil {
		return nil, fmt.Errorf("clock: %w", err)
	}

	failing := scenario.SyncFailures
	r := &runner{
		store: st,
		clock: testutil.NewManualClock(start),
		ids:   testutil.NewSequenceGenerator("id"),
		syncer: syncqueue.SyncerFunc(func(_ context.Context, it syncqueue.Item) error {
			if slices.Contains(failing, it.ID) {
				return ErrSyncRejected
			}
			return nil
		}),
	}

	ctx := context.Background()
	r.mgr, err = lifecycle.New(ctx, st, r.options()...)
	if err != nil {
		return nil, fmt.Errorf("failed to start manager: %w", err)
	}

	result := NewResult()
	if err := r.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	state, err := stateView(r.mgr)
	if err != nil {
		return nil, fmt.Errorf("failed to capture final state: %w", err)
	}
	result.State = state

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// executeFlow runs the flow steps in order, recording an invocation and a
// completion for each and checking its expect clause.
func (r *runner) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		action, ok := actions[step.Invoke]
		if !ok {
			return fmt.Errorf("flow step %d: unknown operation %q", i, step.Invoke)
		}
		if step.At != "" {
			at, err := datemath.ParseDate(step.At)
			if err != nil {
				return fmt.Errorf("flow step %d: %w", i, err)
			}
			r.clock.Set(at)
		}

		result.AddInvocationTrace(step.Invoke, normalizeArgs(step.Args), r.nextSeq())

		res, err := action(ctx, r, args(step.Args))
		outputCase, err := classify(err)
		if err != nil {
			return fmt.Errorf("flow step %d (%s): %w", i, step.Invoke, err)
		}
		if res == nil {
			res = map[string]any{}
		}
		result.AddCompletionTrace(outputCase, res, r.nextSeq())

		for _, msg := range checkExpect(i, step, outputCase, res) {
			result.AddError(msg)
		}
	}
	return nil
}

// classify turns an operation error into an output case. Errors that are
// not domain outcomes are returned unchanged.
func classify(err error) (string, error) {
	switch {
	case err == nil:
		return CaseOK, nil
	case deployment.IsDomainError(err):
		return string(deployment.CodeOf(err)), nil
	case errors.Is(err, syncqueue.ErrUnknownType):
		return CaseUnknownType, nil
	default:
		return "", err
	}
}

// checkExpect compares a completion against the step's expect clause.
func checkExpect(index int, step FlowStep, outputCase string, res map[string]any) []string {
	wantCase := CaseOK
	var wantResult map[string]any
	if step.Expect != nil {
		wantCase = step.Expect.Case
		wantResult = step.Expect.Result
	}

	var errs []string
	if outputCase != wantCase {
		errs = append(errs, fmt.Sprintf("flow[%d] %s: expected case %q, got %q",
			index, step.Invoke, wantCase, outputCase))
	}
	for _, key := range sortedKeys(wantResult) {
		got, ok := res[key]
		if !ok {
			errs = append(errs, fmt.Sprintf("flow[%d] %s: result field %q missing",
				index, step.Invoke, key))
			continue
		}
		if !valuesEqual(got, wantResult[key]) {
			errs = append(errs, fmt.Sprintf("flow[%d] %s: result field %q: expected %v, got %v",
				index, step.Invoke, key, wantResult[key], got))
		}
	}
	return errs
}

// stateView renders the manager's read model as generic JSON values for
// path lookups.
func stateView(mgr *lifecycle.Manager) (map[string]any, error) {
	view := map[string]any{
		"deployment":             mgr.ActiveDeployment(),
		"budget":                 mgr.Budget(),
		"savings":                mgr.SavingsTracker(),
		"countdown":              mgr.Countdown(),
		"queue":                  mgr.QueueStats(),
		"queue_items":            mgr.QueueItems(),
		"history":                mgr.DeploymentHistory(),
		"is_deployed":            mgr.IsDeployed(),
		"additional_monthly_pay": mgr.AdditionalMonthlyPay(),
		"projected_savings":      mgr.ProjectedSavings(),
		"duration_days":          mgr.DeploymentDuration(),
	}
	data, err := json.Marshal(view)
	if err != nil {
		return nil, err
	}
	generic, err := canon.Parse(data)
	if err != nil {
		return nil, err
	}
	return generic.(map[string]any), nil
}
