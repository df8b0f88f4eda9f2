package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"corsa-hq/quaestor/pkg/budget"
	"corsa-hq/quaestor/pkg/workflow"
)

func testState(limitID string) *State {
	return &State{
		LimitID: limitID,
		Limit: &budget.SpendingLimit{
			ID:        limitID,
			Name:      "Test limit",
			Scope:     budget.ScopeDepartment,
			SubjectID: "engineering",
			MaxAmount: 1000,
			Period:    budget.PeriodMonthly,
			Currency:  "USD",
			IsActive:  true,
		},
		Records: []budget.SpendRecord{
			{Amount: 50, Date: time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), Category: "software"},
		},
		Pending: map[string]budget.SpendRecord{
			"wf-1": {Amount: 400, Date: time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC)},
		},
	}
}

// backends under test share one suite.
func backends(t *testing.T) map[string]Backend {
	t.Helper()

	sqlite, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Failed to create sqlite backend: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"sqlite": sqlite,
	}
}

func TestBackend_SaveAndLoad(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := backend.Save(ctx, testState("limit-1")); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			loaded, err := backend.Load(ctx, "limit-1")
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if loaded == nil {
				t.Fatal("Expected state, got nil")
			}
			if loaded.Limit.MaxAmount != 1000 {
				t.Errorf("Expected max amount 1000, got %v", loaded.Limit.MaxAmount)
			}
			if len(loaded.Records) != 1 || loaded.Records[0].Amount != 50 {
				t.Errorf("Expected one record of 50, got %v", loaded.Records)
			}
			if held, ok := loaded.Pending["wf-1"]; !ok || held.Amount != 400 {
				t.Errorf("Expected held spend of 400 under wf-1, got %v", loaded.Pending)
			}
		})
	}
}

func TestBackend_LoadMissing(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			loaded, err := backend.Load(context.Background(), "nope")
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if loaded != nil {
				t.Errorf("Expected nil for missing state, got %v", loaded)
			}
		})
	}
}

func TestBackend_Update(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			state := testState("limit-1")
			if err := backend.Save(ctx, state); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			state.Limit.SpentAmount = 500
			if err := backend.Save(ctx, state); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			loaded, err := backend.Load(ctx, "limit-1")
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if loaded.Limit.SpentAmount != 500 {
				t.Errorf("Expected updated spend 500, got %v", loaded.Limit.SpentAmount)
			}
		})
	}
}

func TestBackend_DeleteAndList(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for _, id := range []string{"a", "b", "c"} {
				if err := backend.Save(ctx, testState(id)); err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
			}

			if err := backend.Delete(ctx, "b"); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			states, err := backend.List(ctx)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(states) != 2 {
				t.Errorf("Expected 2 states after delete, got %d", len(states))
			}
		})
	}
}

func TestBackend_Cleanup(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := backend.Save(ctx, testState("old")); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			deleted, err := backend.Cleanup(ctx, time.Now().Add(time.Hour))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if deleted != 1 {
				t.Errorf("Expected 1 state cleaned, got %d", deleted)
			}

			loaded, err := backend.Load(ctx, "old")
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if loaded != nil {
				t.Error("Expected cleaned state to be gone")
			}
		})
	}
}

func TestBackend_PersistsWorkflows(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			state := testState("limit-1")
			machine := workflow.New("Approval", workflow.Approver{ID: "emp-1"}, []workflow.StepSpec{
				{RequiredApprovers: []workflow.Approver{{ID: "mgr-1"}}},
			})
			state.Workflows = []*workflow.Workflow{machine.Workflow()}

			if err := backend.Save(ctx, state); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			loaded, err := backend.Load(ctx, "limit-1")
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(loaded.Workflows) != 1 {
				t.Fatalf("Expected 1 workflow, got %d", len(loaded.Workflows))
			}
			wf := loaded.Workflows[0]
			if len(wf.Steps) != 1 || wf.Steps[0].RequiredApprovers[0].ID != "mgr-1" {
				t.Errorf("Expected workflow step with approver mgr-1, got %v", wf.Steps)
			}
		})
	}
}

func TestMemoryBackend_EvictsOldestAtCapacity(t *testing.T) {
	backend := NewMemoryBackendWithCapacity(2)
	ctx := context.Background()

	if err := backend.Save(ctx, testState("first")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := backend.Save(ctx, testState("second")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := backend.Save(ctx, testState("third")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	loaded, err := backend.Load(ctx, "first")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if loaded != nil {
		t.Error("Expected oldest entry evicted")
	}
	if loaded, _ := backend.Load(ctx, "third"); loaded == nil {
		t.Error("Expected newest entry kept")
	}
}
