package budget

import (
	"errors"
	"time"
)

// Period identifies the time window a spending limit covers.
type Period string

const (
	PeriodDaily     Period = "daily"
	PeriodWeekly    Period = "weekly"
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
	PeriodCustom    Period = "custom"
)

// Scope identifies what a spending limit applies to.
type Scope string

const (
	ScopeEmployee   Scope = "employee"
	ScopeDepartment Scope = "department"
	ScopeCostCenter Scope = "cost_center"
	ScopeCategory   Scope = "category"
	ScopeCompany    Scope = "company"
)

// Default percentage thresholds for the soft and hard limit flags.
const (
	DefaultSoftLimitPct = 75
	DefaultHardLimitPct = 100
)

// Threshold is a named percentage level on the spending meter.
// Thresholds are kept ordered by ascending percentage.
type Threshold struct {
	// Percentage of the limit at which the threshold triggers.
	Percentage float64 `json:"percentage" yaml:"percentage"`

	// Label names the threshold for notification consumers
	// (e.g. "warning", "critical").
	Label string `json:"label" yaml:"label"`
}

// DefaultThresholds is the threshold ladder applied when a limit
// configures none.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{Percentage: 50, Label: "half"},
		{Percentage: 75, Label: "warning"},
		{Percentage: 90, Label: "critical"},
		{Percentage: 100, Label: "exceeded"},
	}
}

// SpendingLimit is the configuration for one tracked budget. Limits are
// created and edited externally; the engine treats them as immutable
// inputs except for SpentAmount, which transaction postings mutate
// through the Meter.
type SpendingLimit struct {
	// ID uniquely identifies the limit.
	ID string `json:"id" yaml:"id"`

	// Name is the human-readable limit name.
	Name string `json:"name" yaml:"name"`

	// Scope selects the limit variant; SubjectID carries the
	// per-variant subject.
	Scope Scope `json:"scope" yaml:"scope"`

	// SubjectID is the employee, department, cost center, or category
	// the limit applies to. Empty for company-wide limits.
	SubjectID string `json:"subjectId,omitempty" yaml:"subjectId,omitempty"`

	// MaxAmount is the budget for the period, in Currency units.
	MaxAmount float64 `json:"maxAmount" yaml:"maxAmount"`

	// SpentAmount is the running spend for the current period.
	SpentAmount float64 `json:"spentAmount" yaml:"spentAmount"`

	// Period selects the tracking window.
	Period Period `json:"period" yaml:"period"`

	// PeriodStart and PeriodEnd bound the current period. For custom
	// periods they are authoritative; for calendar periods they are
	// recomputed from the period type on rollover.
	PeriodStart time.Time `json:"periodStart" yaml:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd" yaml:"periodEnd"`

	// Currency is the ISO 4217 code amounts are denominated in.
	// Display formatting happens outside the engine.
	Currency string `json:"currency" yaml:"currency"`

	// Thresholds is the meter's notification ladder, ordered by
	// ascending percentage. Empty means DefaultThresholds.
	Thresholds []Threshold `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`

	// IsActive disables tracking when false.
	IsActive bool `json:"isActive" yaml:"isActive"`

	// AllowExceed permits purchases past the limit; the meter still
	// reports the overrun.
	AllowExceed bool `json:"allowExceed" yaml:"allowExceed"`

	// SoftLimitPct and HardLimitPct are the percentage thresholds for
	// the summary's exceeded flags. Zero values mean the defaults
	// (75 and 100).
	SoftLimitPct float64 `json:"softLimitPct,omitempty" yaml:"softLimitPct,omitempty"`
	HardLimitPct float64 `json:"hardLimitPct,omitempty" yaml:"hardLimitPct,omitempty"`

	// RolloverEnabled carries unspent budget into the next period.
	RolloverEnabled bool `json:"rolloverEnabled" yaml:"rolloverEnabled"`

	// RolloverPercentage is how much of the unspent budget rolls over.
	// Zero means the default of 100.
	RolloverPercentage float64 `json:"rolloverPercentage,omitempty" yaml:"rolloverPercentage,omitempty"`

	// RolloverAmount is the budget carried into the current period
	// from the previous one. Written on rollover so the effective
	// limit survives restarts.
	RolloverAmount float64 `json:"rolloverAmount,omitempty" yaml:"rolloverAmount,omitempty"`
}

// SpendRecord is a single spend transaction posted against a limit.
type SpendRecord struct {
	// Amount is the transaction amount.
	Amount float64 `json:"amount"`

	// Date is when the spend occurred.
	Date time.Time `json:"date"`

	// Category optionally classifies the spend.
	Category string `json:"category,omitempty"`

	// CostCenter optionally attributes the spend.
	CostCenter string `json:"costCenter,omitempty"`
}

// SpendingSummary is the result of CalculateSpending.
type SpendingSummary struct {
	// TotalSpent is the sum of records inside the period.
	TotalSpent float64

	// Remaining is max(0, MaxAmount - TotalSpent).
	Remaining float64

	// Percentage is TotalSpent / MaxAmount × 100, unclamped. Clamp
	// only for display.
	Percentage float64

	// SoftLimitExceeded and HardLimitExceeded flag the configured
	// percentage thresholds.
	SoftLimitExceeded bool
	HardLimitExceeded bool

	// Projected is the linear extrapolation of TotalSpent over the
	// full period.
	Projected float64

	// OnTrack is true when Projected does not exceed MaxAmount.
	OnTrack bool

	// RecommendedDaily is Remaining spread over the days left in the
	// period; zero when no days remain.
	RecommendedDaily float64

	// PeriodStart and PeriodEnd are the bounds used for filtering.
	PeriodStart time.Time
	PeriodEnd   time.Time

	// DaysElapsed, DaysRemaining, and DaysInPeriod describe where the
	// reference date sits inside the period.
	DaysElapsed   int
	DaysRemaining int
	DaysInPeriod  int
}

// TrendDirection labels a period-over-period spend movement.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// TrendResult is the outcome of CalculateTrend.
type TrendResult struct {
	// Direction is up, down, or stable. Changes inside the ±1%
	// dead-zone report stable to suppress noise.
	Direction TrendDirection

	// Percentage is the signed percentage change.
	Percentage float64
}

// ForecastPoint is one day on the projected cumulative spend curve.
type ForecastPoint struct {
	// Date is the projected day.
	Date time.Time

	// Projected is the cumulative spend expected by that day.
	Projected float64
}

// PurchaseDecision is the structured result of the CanMakePurchase
// gate. A disallowed purchase is an expected business outcome, not an
// error.
type PurchaseDecision struct {
	// Allowed indicates whether the purchase may proceed.
	Allowed bool

	// Reason explains a denial; empty when allowed.
	Reason string
}

// SavingsSuggestion proposes a cut in one spend category.
type SavingsSuggestion struct {
	// Category is the spend category.
	Category string

	// CurrentSpend is the category's spend in the analyzed records.
	CurrentSpend float64

	// SuggestedCut is the proposed reduction.
	SuggestedCut float64
}

// SavingsOpportunity is the outcome of the greedy savings heuristic.
// It is a heuristic, not an optimum; treat its output as advisory.
type SavingsOpportunity struct {
	// TargetAmount is the saving the heuristic aimed for.
	TargetAmount float64

	// Suggestions are the proposed category cuts, largest spender
	// first.
	Suggestions []SavingsSuggestion

	// TotalSavings is the sum of the suggested cuts.
	TotalSavings float64

	// TargetMet indicates whether TotalSavings reached TargetAmount.
	TargetMet bool
}

// Error values for budget configuration defects. These indicate
// programming or configuration mistakes, not runtime conditions to
// recover from; callers should treat them as fatal and non-retryable.
var (
	// ErrUnknownPeriod is returned for an unrecognized period type.
	ErrUnknownPeriod = errors.New("unknown period type")

	// ErrCustomPeriodBounds is returned when a custom period has no
	// explicit start/end bounds.
	ErrCustomPeriodBounds = errors.New("custom period requires explicit bounds")
)
