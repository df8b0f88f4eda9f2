package budget

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Share of total spend above which a category is considered a cut
// candidate, and the cut suggested for such categories.
const (
	savingsCandidateShare = 0.20
	savingsCutFraction    = 0.10
)

// CalculateSpending filters the records to the limit's period around
// the reference date and derives the full spending summary: totals,
// remaining, percentage, soft/hard flags, linear projection, and the
// recommended daily spend for the rest of the period.
func CalculateSpending(records []SpendRecord, cfg *SpendingLimit, ref time.Time) (*SpendingSummary, error) {
	start, end, err := PeriodBounds(cfg, ref)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, rec := range records {
		if rec.Date.Before(start) || rec.Date.After(end) {
			continue
		}
		total += rec.Amount
	}

	summary := &SpendingSummary{
		TotalSpent:  total,
		Remaining:   math.Max(0, cfg.MaxAmount-total),
		PeriodStart: start,
		PeriodEnd:   end,
	}

	if cfg.MaxAmount > 0 {
		summary.Percentage = total / cfg.MaxAmount * 100
	}

	softPct := cfg.SoftLimitPct
	if softPct == 0 {
		softPct = DefaultSoftLimitPct
	}
	hardPct := cfg.HardLimitPct
	if hardPct == 0 {
		hardPct = DefaultHardLimitPct
	}
	summary.SoftLimitExceeded = summary.Percentage >= softPct
	summary.HardLimitExceeded = summary.Percentage >= hardPct

	daysInPeriod := periodLengthDays(start, end)
	daysElapsed := daysBetween(start, ref)
	if daysElapsed < 1 {
		daysElapsed = 1
	}
	if daysElapsed > daysInPeriod {
		daysElapsed = daysInPeriod
	}
	daysRemaining := daysInPeriod - daysElapsed

	summary.DaysInPeriod = daysInPeriod
	summary.DaysElapsed = daysElapsed
	summary.DaysRemaining = daysRemaining

	summary.Projected = total / float64(daysElapsed) * float64(daysInPeriod)
	summary.OnTrack = summary.Projected <= cfg.MaxAmount

	if daysRemaining > 0 {
		summary.RecommendedDaily = summary.Remaining / float64(daysRemaining)
	}

	return summary, nil
}

// CalculateRollover returns the unspent budget carried into the next
// period: max(0, MaxAmount - previousSpent) scaled by the rollover
// percentage (default 100). Returns 0 when rollover is disabled.
func CalculateRollover(previousSpent float64, cfg *SpendingLimit) float64 {
	if !cfg.RolloverEnabled {
		return 0
	}
	pct := cfg.RolloverPercentage
	if pct == 0 {
		pct = 100
	}
	return math.Max(0, cfg.MaxAmount-previousSpent) * pct / 100
}

// CalculateEffectiveLimit returns the limit for a period including any
// rolled-over budget.
func CalculateEffectiveLimit(cfg *SpendingLimit, rollover float64) float64 {
	return cfg.MaxAmount + rollover
}

// CanMakePurchase is the hard spending gate. The denial is a structured
// business outcome, never an error: the purchase is disallowed with a
// descriptive reason when it would push spend past the limit and the
// limit does not allow exceeding.
func CanMakePurchase(amount, currentSpent, limit float64, allowExceed bool) PurchaseDecision {
	if currentSpent+amount > limit && !allowExceed {
		return PurchaseDecision{
			Allowed: false,
			Reason: fmt.Sprintf("purchase of %.2f would exceed the spending limit: %.2f spent of %.2f",
				amount, currentSpent, limit),
		}
	}
	return PurchaseDecision{Allowed: true}
}

// CalculateTrend compares current spend against a previous period.
// Changes inside the ±1% dead-zone report stable rather than up or
// down, suppressing noise from near-flat periods.
func CalculateTrend(current, previous float64) TrendResult {
	var change float64
	switch {
	case previous != 0:
		change = (current - previous) / previous * 100
	case current != 0:
		// No previous spend to compare against: any spend is a full
		// increase.
		change = 100
	}

	direction := TrendStable
	if math.Abs(change) >= 1 {
		if change > 0 {
			direction = TrendUp
		} else {
			direction = TrendDown
		}
	}

	return TrendResult{Direction: direction, Percentage: change}
}

// GenerateForecast projects a cumulative spend curve the given number
// of days past the reference date, extrapolating the current period's
// daily average. The curve is for display and planning only; gating
// decisions use CanMakePurchase, never a forecast.
func GenerateForecast(records []SpendRecord, cfg *SpendingLimit, days int, ref time.Time) ([]ForecastPoint, error) {
	summary, err := CalculateSpending(records, cfg, ref)
	if err != nil {
		return nil, err
	}

	dailyAvg := summary.TotalSpent / float64(summary.DaysElapsed)

	points := make([]ForecastPoint, 0, days)
	for i := 1; i <= days; i++ {
		points = append(points, ForecastPoint{
			Date:      ref.AddDate(0, 0, i),
			Projected: summary.TotalSpent + dailyAvg*float64(i),
		})
	}
	return points, nil
}

// CalculateSavingsOpportunity runs a greedy savings heuristic: spend is
// aggregated per category and sorted descending; every category holding
// more than 20% of the total gets a suggested 10% cut, accumulating
// until the target saving (targetPercentage of total spend) is reached.
// The result is advisory, not an optimum.
func CalculateSavingsOpportunity(records []SpendRecord, targetPercentage float64) *SavingsOpportunity {
	var total float64
	byCategory := make(map[string]float64)
	for _, rec := range records {
		category := rec.Category
		if category == "" {
			category = "uncategorized"
		}
		byCategory[category] += rec.Amount
		total += rec.Amount
	}

	opportunity := &SavingsOpportunity{
		TargetAmount: total * targetPercentage / 100,
	}
	if total == 0 {
		opportunity.TargetMet = true
		return opportunity
	}

	type categorySpend struct {
		name  string
		spend float64
	}
	categories := make([]categorySpend, 0, len(byCategory))
	for name, spend := range byCategory {
		categories = append(categories, categorySpend{name, spend})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].spend != categories[j].spend {
			return categories[i].spend > categories[j].spend
		}
		return categories[i].name < categories[j].name
	})

	for _, cat := range categories {
		if opportunity.TotalSavings >= opportunity.TargetAmount {
			break
		}
		if cat.spend <= total*savingsCandidateShare {
			continue
		}
		cut := cat.spend * savingsCutFraction
		opportunity.Suggestions = append(opportunity.Suggestions, SavingsSuggestion{
			Category:     cat.name,
			CurrentSpend: cat.spend,
			SuggestedCut: cut,
		})
		opportunity.TotalSavings += cut
	}

	opportunity.TargetMet = opportunity.TotalSavings >= opportunity.TargetAmount
	return opportunity
}
