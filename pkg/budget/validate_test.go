package budget

import (
	"testing"
	"time"
)

func validLimit() *SpendingLimit {
	return &SpendingLimit{
		ID:        "limit-1",
		Name:      "Engineering monthly",
		Scope:     ScopeDepartment,
		SubjectID: "engineering",
		MaxAmount: 1000,
		Period:    PeriodMonthly,
		Currency:  "USD",
		IsActive:  true,
	}
}

func TestValidateLimit_Valid(t *testing.T) {
	if errs := ValidateLimit(validLimit()); len(errs) != 0 {
		t.Errorf("Expected no errors, got %v", errs)
	}
}

func TestValidateLimit_CompanyScopeNeedsNoSubject(t *testing.T) {
	cfg := validLimit()
	cfg.Scope = ScopeCompany
	cfg.SubjectID = ""

	if errs := ValidateLimit(cfg); len(errs) != 0 {
		t.Errorf("Expected company scope without subject to validate, got %v", errs)
	}
}

func TestValidateLimit_FieldErrors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *SpendingLimit)
		wantField string
	}{
		{
			name:      "missing id",
			mutate:    func(cfg *SpendingLimit) { cfg.ID = "" },
			wantField: "id",
		},
		{
			name:      "missing subject",
			mutate:    func(cfg *SpendingLimit) { cfg.SubjectID = "" },
			wantField: "subjectId",
		},
		{
			name:      "unknown scope",
			mutate:    func(cfg *SpendingLimit) { cfg.Scope = "region" },
			wantField: "scope",
		},
		{
			name:      "zero max amount",
			mutate:    func(cfg *SpendingLimit) { cfg.MaxAmount = 0 },
			wantField: "maxAmount",
		},
		{
			name:      "negative max amount",
			mutate:    func(cfg *SpendingLimit) { cfg.MaxAmount = -100 },
			wantField: "maxAmount",
		},
		{
			name:      "unknown period",
			mutate:    func(cfg *SpendingLimit) { cfg.Period = "fortnightly" },
			wantField: "period",
		},
		{
			name:      "custom period without bounds",
			mutate:    func(cfg *SpendingLimit) { cfg.Period = PeriodCustom },
			wantField: "period",
		},
		{
			name: "custom period inverted bounds",
			mutate: func(cfg *SpendingLimit) {
				cfg.Period = PeriodCustom
				cfg.PeriodStart = time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)
				cfg.PeriodEnd = time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
			},
			wantField: "period",
		},
		{
			name:      "lowercase currency",
			mutate:    func(cfg *SpendingLimit) { cfg.Currency = "usd" },
			wantField: "currency",
		},
		{
			name: "unordered thresholds",
			mutate: func(cfg *SpendingLimit) {
				cfg.Thresholds = []Threshold{
					{Percentage: 90, Label: "critical"},
					{Percentage: 50, Label: "half"},
				}
			},
			wantField: "thresholds",
		},
		{
			name: "zero threshold percentage",
			mutate: func(cfg *SpendingLimit) {
				cfg.Thresholds = []Threshold{{Percentage: 0, Label: "zero"}}
			},
			wantField: "thresholds",
		},
		{
			name: "soft above hard",
			mutate: func(cfg *SpendingLimit) {
				cfg.SoftLimitPct = 95
				cfg.HardLimitPct = 90
			},
			wantField: "softLimitPct",
		},
		{
			name:      "rollover percentage out of range",
			mutate:    func(cfg *SpendingLimit) { cfg.RolloverPercentage = 150 },
			wantField: "rolloverPercentage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validLimit()
			tt.mutate(cfg)

			errs := ValidateLimit(cfg)
			if len(errs) == 0 {
				t.Fatal("Expected validation errors, got none")
			}

			found := false
			for _, err := range errs {
				le, ok := err.(*LimitError)
				if !ok {
					t.Fatalf("Expected *LimitError, got %T", err)
				}
				if le.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Expected an error on field %q, got %v", tt.wantField, errs)
			}
		})
	}
}

func TestValidateLimit_Nil(t *testing.T) {
	errs := ValidateLimit(nil)
	if len(errs) != 1 {
		t.Fatalf("Expected a single error for nil limit, got %d", len(errs))
	}
}

func TestValidateLimit_CollectsAllErrors(t *testing.T) {
	cfg := validLimit()
	cfg.ID = ""
	cfg.MaxAmount = 0
	cfg.Currency = "dollars"

	errs := ValidateLimit(cfg)
	if len(errs) != 3 {
		t.Errorf("Expected all 3 problems reported, got %d: %v", len(errs), errs)
	}
}
