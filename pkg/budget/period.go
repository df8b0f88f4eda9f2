package budget

import (
	"fmt"
	"time"
)

// PeriodDates returns the inclusive bounds of the period containing the
// reference date. Bounds are deterministic: daily is midnight to
// midnight, weekly is a Monday-start ISO week, and monthly, quarterly,
// and yearly follow calendar boundaries, all in the reference date's
// location. The end bound is the start of the next period minus one
// millisecond.
//
// Custom periods carry explicit bounds in their configuration and are
// rejected here; see PeriodBounds. An unrecognized period type is a
// configuration defect and returns ErrUnknownPeriod.
func PeriodDates(period Period, ref time.Time) (time.Time, time.Time, error) {
	loc := ref.Location()
	var start, next time.Time

	switch period {
	case PeriodDaily:
		start = time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)
		next = start.AddDate(0, 0, 1)

	case PeriodWeekly:
		// ISO weeks start on Monday; Go's Weekday starts on Sunday.
		offset := (int(ref.Weekday()) + 6) % 7
		start = time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -offset)
		next = start.AddDate(0, 0, 7)

	case PeriodMonthly:
		start = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)
		next = start.AddDate(0, 1, 0)

	case PeriodQuarterly:
		quarterMonth := time.Month(((int(ref.Month())-1)/3)*3 + 1)
		start = time.Date(ref.Year(), quarterMonth, 1, 0, 0, 0, 0, loc)
		next = start.AddDate(0, 3, 0)

	case PeriodYearly:
		start = time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, loc)
		next = start.AddDate(1, 0, 0)

	case PeriodCustom:
		return time.Time{}, time.Time{}, ErrCustomPeriodBounds

	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
	}

	return start, next.Add(-time.Millisecond), nil
}

// PeriodBounds resolves the period bounds for a limit: explicit bounds
// for custom periods, calendar bounds for everything else.
func PeriodBounds(cfg *SpendingLimit, ref time.Time) (time.Time, time.Time, error) {
	if cfg.Period == PeriodCustom {
		if cfg.PeriodStart.IsZero() || cfg.PeriodEnd.IsZero() {
			return time.Time{}, time.Time{}, ErrCustomPeriodBounds
		}
		return cfg.PeriodStart, cfg.PeriodEnd, nil
	}
	return PeriodDates(cfg.Period, ref)
}

// daysBetween counts whole days from start to t, flooring at zero.
func daysBetween(start, t time.Time) int {
	if t.Before(start) {
		return 0
	}
	return int(t.Sub(start).Hours() / 24)
}

// periodLengthDays returns the number of calendar days covered by the
// inclusive bounds.
func periodLengthDays(start, end time.Time) int {
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}
