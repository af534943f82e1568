package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startStep() FlowStep {
	return FlowStep{
		Invoke: "start_deployment",
		Args: map[string]any{
			"type":            "combat",
			"departure":       "2024-01-01",
			"expected_return": "2024-10-01",
			"country":         "Kuwait",
		},
	}
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Start a deployment",
		Clock:       "2024-04-01",
		Flow:        []FlowStep{startStep()},
		Assertions: []Assertion{
			{Type: AssertTraceContains, Action: "start_deployment"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, result.Errors)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Trace, 2)
	assert.Equal(t, EventInvocation, result.Trace[0].Type)
	assert.Equal(t, EventCompletion, result.Trace[1].Type)
	assert.Equal(t, CaseOK, result.Trace[1].OutputCase)
	assert.Equal(t, "id-1", result.Trace[1].Result["id"])
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, int64(2), result.Trace[1].Seq)
}

func TestRun_DomainErrorBecomesOutputCase(t *testing.T) {
	scenario := &Scenario{
		Name:        "no_budget",
		Description: "Expense change before a budget exists",
		Clock:       "2024-04-01",
		Flow: []FlowStep{
			startStep(),
			{
				Invoke: "update_expense_adjustment",
				Args:   map[string]any{"category": "dining", "amount": 30},
				Expect: &ExpectClause{Case: "NO_BUDGET"},
			},
		},
		Assertions: []Assertion{
			{Type: AssertTraceContains, Action: "update_expense_adjustment", Case: "NO_BUDGET"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, "NO_BUDGET", result.Trace[3].OutputCase)
}

func TestRun_UnexpectedCaseFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected",
		Description: "Budget without deployment, expecting success",
		Clock:       "2024-04-01",
		Flow: []FlowStep{
			{
				Invoke: "create_budget",
				Args:   map[string]any{"normal_expenses": 4000, "normal_savings": 500},
			},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Action: "create_budget", Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `expected case "ok", got "NO_ACTIVE_DEPLOYMENT"`)
}

func TestRun_ExpectResultMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "Wrong expected pay",
		Clock:       "2024-04-01",
		Flow: []FlowStep{
			startStep(),
			{
				Invoke: "enable_combat_zone_benefits",
				Expect: &ExpectClause{
					Case:   CaseOK,
					Result: map[string]any{"additional_monthly_pay": 450, "missing_field": 1},
				},
			},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Action: "enable_combat_zone_benefits", Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], `result field "additional_monthly_pay"`)
	assert.Contains(t, result.Errors[1], `result field "missing_field" missing`)
}

func TestRun_BadArgumentsAbort(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_args",
		Description: "Amount is not a number",
		Clock:       "2024-04-01",
		Flow: []FlowStep{
			{
				Invoke: "create_budget",
				Args:   map[string]any{"normal_expenses": "lots", "normal_savings": 500},
			},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Action: "create_budget", Count: 1},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `argument "normal_expenses"`)
}

func TestRun_AtMovesClock(t *testing.T) {
	scenario := &Scenario{
		Name:        "clock",
		Description: "Phase follows the clock",
		Clock:       "2023-09-01",
		Flow: []FlowStep{
			startStep(),
			{
				Invoke: "update_deployment",
				Args:   map[string]any{"region": "Camp Arifjan"},
				Expect: &ExpectClause{Case: CaseOK, Result: map[string]any{"phase": "not_deployed"}},
			},
			{
				Invoke: "update_deployment",
				Args:   map[string]any{"hazardous": true},
				At:     "2023-12-01",
				Expect: &ExpectClause{Case: CaseOK, Result: map[string]any{"phase": "pre_deployment"}},
			},
			{
				Invoke: "advance_clock",
				Args:   map[string]any{"days": 31},
				Expect: &ExpectClause{Case: CaseOK, Result: map[string]any{"today": "2024-01-01"}},
			},
		},
		Assertions: []Assertion{
			{Type: AssertFinalState, Path: "deployment.phase", Equals: "deployment"},
			{Type: AssertFinalState, Path: "deployment.location.region", Equals: "Camp Arifjan"},
			{Type: AssertFinalState, Path: "deployment.location.country", Equals: "Kuwait"},
			{Type: AssertFinalState, Path: "deployment.location.is_hazardous", Equals: true},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_RestartKeepsState(t *testing.T) {
	scenario := &Scenario{
		Name:        "restart",
		Description: "State survives a manager restart",
		Clock:       "2024-04-01",
		Flow: []FlowStep{
			startStep(),
			{
				Invoke: "create_budget",
				Args:   map[string]any{"normal_expenses": 4000, "normal_savings": 500},
			},
			{Invoke: "restart"},
			{
				Invoke: "update_expense_adjustment",
				Args:   map[string]any{"category": "dining", "amount": 30},
				Expect: &ExpectClause{
					Case:   CaseOK,
					Result: map[string]any{"deployment_monthly_expenses": 2030},
				},
			},
		},
		Assertions: []Assertion{
			{Type: AssertFinalState, Path: "budget.normal_monthly_expenses", Equals: 4000},
			{Type: AssertTraceOrder, Actions: []string{"create_budget", "restart", "update_expense_adjustment"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "worked_example.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalTrace(scenario.Name, first.Trace)
	require.NoError(t, err)
	b, err := MarshalTrace(scenario.Name, second.Trace)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_TestdataScenariosPass(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, result.Errors)
		})
	}
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
