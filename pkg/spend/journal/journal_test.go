package journal

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_AppendAndFind(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	err := j.Append(ctx, Entry{
		Kind:     KindEvaluation,
		EntityID: "limit-1",
		Actor:    "emp-1",
		Outcome:  "auto_approved",
		Detail:   json.RawMessage(`{"amount":50}`),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	entries, err := j.Find(ctx, Query{EntityID: "limit-1"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.ID == "" {
		t.Error("Expected generated entry ID")
	}
	if entry.Timestamp.IsZero() {
		t.Error("Expected generated timestamp")
	}
	if entry.Actor != "emp-1" || entry.Outcome != "auto_approved" {
		t.Errorf("Expected actor/outcome preserved, got %q/%q", entry.Actor, entry.Outcome)
	}
	if string(entry.Detail) != `{"amount":50}` {
		t.Errorf("Expected detail preserved, got %s", entry.Detail)
	}
}

func TestJournal_AppendValidation(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	if err := j.Append(ctx, Entry{EntityID: "limit-1"}); err == nil {
		t.Error("Expected error for missing kind")
	}
	if err := j.Append(ctx, Entry{Kind: KindSpend}); err == nil {
		t.Error("Expected error for missing entity id")
	}
}

func TestJournal_FindFilters(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	seed := []Entry{
		{Kind: KindEvaluation, EntityID: "limit-1", Timestamp: base},
		{Kind: KindSpend, EntityID: "limit-1", Timestamp: base.Add(time.Hour)},
		{Kind: KindSpend, EntityID: "limit-2", Timestamp: base.Add(2 * time.Hour)},
		{Kind: KindRollover, EntityID: "limit-1", Timestamp: base.Add(3 * time.Hour)},
	}
	for _, entry := range seed {
		if err := j.Append(ctx, entry); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	entries, err := j.Find(ctx, Query{EntityID: "limit-1"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected 3 entries for limit-1, got %d", len(entries))
	}

	entries, err = j.Find(ctx, Query{Kind: KindSpend})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 spend entries, got %d", len(entries))
	}

	entries, err = j.Find(ctx, Query{Since: base.Add(90 * time.Minute)})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 entries after cutoff, got %d", len(entries))
	}

	entries, err = j.Find(ctx, Query{EntityID: "limit-1", Limit: 1})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected limit applied, got %d entries", len(entries))
	}
	// Newest first.
	if entries[0].Kind != KindRollover {
		t.Errorf("Expected newest entry first, got %q", entries[0].Kind)
	}
}

func TestJournal_Prune(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := j.Append(ctx, Entry{
			Kind:      KindSpend,
			EntityID:  "limit-1",
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	pruned, err := j.Prune(ctx, base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if pruned != 2 {
		t.Errorf("Expected 2 entries pruned, got %d", pruned)
	}

	entries, err := j.Find(ctx, Query{EntityID: "limit-1"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 entry left, got %d", len(entries))
	}
}
