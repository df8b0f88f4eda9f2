package budget

import (
	"fmt"
	"regexp"
)

// currencyPattern matches an ISO 4217 alphabetic currency code.
var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// LimitError describes one invalid field in a spending limit
// configuration.
type LimitError struct {
	// LimitID identifies the offending limit; empty when the limit has
	// no ID.
	LimitID string

	// Field is the invalid field.
	Field string

	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	if e.LimitID != "" {
		return fmt.Sprintf("limit %q: field %q: %s", e.LimitID, e.Field, e.Message)
	}
	return fmt.Sprintf("field %q: %s", e.Field, e.Message)
}

// ValidateLimit checks a spending limit configuration and returns every
// problem found. Validation runs at load time so defects surface before
// any transaction is posted.
func ValidateLimit(cfg *SpendingLimit) []error {
	if cfg == nil {
		return []error{&LimitError{Field: "limit", Message: "limit is nil"}}
	}

	var errs []error
	fail := func(field, format string, args ...interface{}) {
		errs = append(errs, &LimitError{
			LimitID: cfg.ID,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if cfg.ID == "" {
		fail("id", "id is required")
	}

	switch cfg.Scope {
	case ScopeEmployee, ScopeDepartment, ScopeCostCenter, ScopeCategory:
		if cfg.SubjectID == "" {
			fail("subjectId", "subjectId is required for scope %q", cfg.Scope)
		}
	case ScopeCompany:
		// Company-wide limits have no subject.
	default:
		fail("scope", "unknown scope %q", cfg.Scope)
	}

	if cfg.MaxAmount <= 0 {
		fail("maxAmount", "maxAmount must be positive, got %v", cfg.MaxAmount)
	}

	switch cfg.Period {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly:
	case PeriodCustom:
		if cfg.PeriodStart.IsZero() || cfg.PeriodEnd.IsZero() {
			fail("period", "custom period requires explicit periodStart and periodEnd")
		} else if !cfg.PeriodEnd.After(cfg.PeriodStart) {
			fail("period", "periodEnd must be after periodStart")
		}
	default:
		fail("period", "unknown period %q", cfg.Period)
	}

	if cfg.Currency != "" && !currencyPattern.MatchString(cfg.Currency) {
		fail("currency", "currency must be a three-letter ISO 4217 code, got %q", cfg.Currency)
	}

	for i, t := range cfg.Thresholds {
		if t.Percentage <= 0 {
			fail("thresholds", "threshold %d: percentage must be positive, got %v", i, t.Percentage)
		}
		if i > 0 && t.Percentage <= cfg.Thresholds[i-1].Percentage {
			fail("thresholds", "threshold %d: percentages must be strictly ascending", i)
		}
	}

	if cfg.SoftLimitPct < 0 {
		fail("softLimitPct", "softLimitPct must not be negative, got %v", cfg.SoftLimitPct)
	}
	if cfg.HardLimitPct < 0 {
		fail("hardLimitPct", "hardLimitPct must not be negative, got %v", cfg.HardLimitPct)
	}
	if cfg.SoftLimitPct > 0 && cfg.HardLimitPct > 0 && cfg.SoftLimitPct > cfg.HardLimitPct {
		fail("softLimitPct", "softLimitPct must not exceed hardLimitPct")
	}

	if cfg.RolloverPercentage < 0 || cfg.RolloverPercentage > 100 {
		fail("rolloverPercentage", "rolloverPercentage must be between 0 and 100, got %v", cfg.RolloverPercentage)
	}

	return errs
}
