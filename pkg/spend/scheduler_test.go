package spend

import (
	"context"
	"testing"
)

func TestNewRolloverScheduler_DefaultSchedule(t *testing.T) {
	m, err := NewManager(context.Background(), ManagerConfig{
		Rules:  testRules(),
		Logger: discardLogger(),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	s, err := NewRolloverScheduler(m, "", discardLogger())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.schedule != DefaultRolloverSchedule {
		t.Errorf("Expected default schedule, got %q", s.schedule)
	}

	s.Start()
	s.Stop()
}

func TestNewRolloverScheduler_InvalidSchedule(t *testing.T) {
	m, err := NewManager(context.Background(), ManagerConfig{
		Rules:  testRules(),
		Logger: discardLogger(),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, err := NewRolloverScheduler(m, "not a cron spec", discardLogger()); err == nil {
		t.Error("Expected error for invalid schedule")
	}
}
