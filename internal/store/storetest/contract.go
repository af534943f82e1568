// Package storetest provides contract tests for [lifecycle.StateStore]
// implementations.
package storetest

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/deployfin/internal/canon"
	"github.com/roach88/deployfin/internal/deployment"
	"github.com/roach88/deployfin/internal/lifecycle"
	"github.com/roach88/deployfin/internal/syncqueue"
)

// Factory creates a fresh [lifecycle.StateStore] for each test invocation.
type Factory func(t *testing.T) lifecycle.StateStore

// SampleState returns a state that touches every part of the model.
func SampleState() *lifecycle.State {
	dep := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ret := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC)
	ended := time.Date(2022, 8, 20, 0, 0, 0, 0, time.UTC)
	attempt := now.Add(time.Minute)

	return &lifecycle.State{
		Version: lifecycle.StateVersion,
		Active: &deployment.Info{
			ID:                 "dep-2",
			IsActive:           true,
			Phase:              deployment.PhaseDeployment,
			Type:               deployment.TypeCombat,
			DepartureDate:      dep,
			ExpectedReturnDate: ret,
			Location: deployment.Location{
				Country:      "Iraq",
				Region:       "Al Asad",
				IsHazardous:  true,
				Connectivity: deployment.ConnectivityIntermittent,
			},
			PayAdjustments: deployment.PayAdjustments{
				HostileFirePay:            true,
				FamilySeparationAllowance: true,
				CombatZoneTaxExclusion:    deployment.CZTEFull,
				MonthlyTaxableIncome:      decimal.RequireFromString("4812.50"),
				AdditionalMonthlyPay:      decimal.RequireFromString("475"),
				EstimatedTaxSavings:       decimal.RequireFromString("1058.75"),
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		Budget: &deployment.Budget{
			NormalMonthlyExpenses: decimal.RequireFromString("4000"),
			NormalMonthlySavings:  decimal.RequireFromString("500"),
			Adjustments: []deployment.ExpenseAdjustment{{
				CategoryID:       "groceries",
				CategoryName:     "Groceries",
				Kind:             "reduce",
				NormalBudget:     decimal.RequireFromString("600"),
				DeploymentBudget: decimal.RequireFromString("200"),
			}},
			DeploymentMonthlyExpenses: decimal.RequireFromString("200"),
			ProjectedMonthlySavings:   decimal.RequireFromString("4775"),
			ProjectedTotalSavings:     decimal.RequireFromString("47750"),
		},
		Tracker: &deployment.SavingsTracker{
			SavingsGoal:     decimal.RequireFromString("20000"),
			CurrentSavings:  decimal.RequireFromString("1999.99"),
			ProgressPercent: 10,
			Snapshots: []deployment.Snapshot{{
				Month:             "2024-02",
				NetSavings:        decimal.RequireFromString("1999.99"),
				CumulativeSavings: decimal.RequireFromString("1999.99"),
				Notes:             "first full month, caf\u00e9 closed",
				RecordedAt:        now,
			}},
			Milestones: []deployment.Milestone{
				{ID: "goal", Name: "Savings goal", TargetAmount: decimal.RequireFromString("20000")},
				{ID: "m-1", Name: "Starter", TargetAmount: decimal.RequireFromString("1000"), IsAchieved: true, AchievedAt: &now},
			},
			OnTrack:       true,
			DaysRemaining: 183,
		},
		History: []deployment.Info{{
			ID:                 "dep-1",
			Type:               deployment.TypeTraining,
			Phase:              deployment.PhasePostDeployment,
			DepartureDate:      ended.AddDate(0, -2, 0),
			ExpectedReturnDate: ended,
			ActualReturnDate:   &ended,
			Location:           deployment.Location{Country: "Germany", Connectivity: deployment.ConnectivityFull},
			PayAdjustments:     deployment.DefaultPayAdjustments(),
		}},
		Queue: syncqueue.Snapshot{
			Online:       false,
			PendingItems: 1,
			FailedItems:  1,
			LastSyncAt:   &attempt,
			Items: []syncqueue.Item{
				{
					ID: "q-1", Type: syncqueue.ItemTransaction,
					Payload: json.RawMessage(`{"amount":"12.50"}`), Fingerprint: "fp1",
					CreatedAt: now, Status: syncqueue.StatusFailed, RetryCount: 2,
					LastAttemptAt: &attempt, Error: "timeout",
				},
				{
					ID: "q-2", Type: syncqueue.ItemGoalUpdate,
					Payload: json.RawMessage(`{"goal":"20000"}`), Fingerprint: "fp2",
					CreatedAt: now, Status: syncqueue.StatusPending,
				},
			},
		},
	}
}

// canonicalJSON renders a state in the stores' own encoding so two states
// compare equal exactly when they would persist identically.
func canonicalJSON(t *testing.T, st *lifecycle.State) []byte {
	t.Helper()
	raw, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := canon.Canonicalize(raw)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	return out
}

// Run exercises the [lifecycle.StateStore] contract.
func Run(t *testing.T, factory Factory) {
	t.Run("LoadEmpty", func(t *testing.T) {
		s := factory(t)
		st, err := s.Load(context.Background())
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if st != nil {
			t.Fatalf("Load on empty store = %+v, want nil", st)
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		want := SampleState()

		if err := s.Save(ctx, want); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := s.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got == nil {
			t.Fatal("Load returned nil after Save")
		}
		if g, w := canonicalJSON(t, got), canonicalJSON(t, want); !bytes.Equal(g, w) {
			t.Errorf("round trip mismatch\n got: %s\nwant: %s", g, w)
		}
		if !got.Tracker.CurrentSavings.Equal(decimal.RequireFromString("1999.99")) {
			t.Errorf("CurrentSavings = %s, want 1999.99", got.Tracker.CurrentSavings)
		}
		if got.History[0].ActualReturnDate == nil {
			t.Error("history ActualReturnDate lost")
		}
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()

		first := SampleState()
		if err := s.Save(ctx, first); err != nil {
			t.Fatalf("first Save: %v", err)
		}

		second := SampleState()
		second.Active, second.Budget, second.Tracker = nil, nil, nil
		if err := s.Save(ctx, second); err != nil {
			t.Fatalf("second Save: %v", err)
		}

		got, err := s.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got.Active != nil || got.Budget != nil || got.Tracker != nil {
			t.Errorf("Load returned stale records: %+v", got)
		}
		if len(got.History) != 1 {
			t.Errorf("len(History) = %d, want 1", len(got.History))
		}
	})

	t.Run("SaveDoesNotAliasCaller", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		st := SampleState()

		if err := s.Save(ctx, st); err != nil {
			t.Fatalf("Save: %v", err)
		}
		st.Active.ID = "mutated"

		got, err := s.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got.Active.ID != "dep-2" {
			t.Errorf("Active.ID = %q, want dep-2", got.Active.ID)
		}
	})
}
