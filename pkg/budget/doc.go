// Package budget implements period-based spending-limit tracking,
// forecasting, and the live spending meter.
//
// # Overview
//
// The budget package computes spending against a SpendingLimit over a
// calendar period (daily, weekly, monthly, quarterly, yearly, or an
// explicitly bounded custom period). All calculations are pure
// functions over immutable inputs; only the Meter holds state, and that
// state is a single previous-threshold-level needed for edge-triggered
// notifications.
//
// # Period Bounds
//
// Period bounds are a deterministic function of the period type and a
// reference date: daily is midnight to midnight, weekly is a
// Monday-start ISO week, and monthly/quarterly/yearly follow calendar
// boundaries. The end bound is the start of the next period minus one
// millisecond, so bounds are inclusive at millisecond precision.
//
// # Notification Disciplines
//
// The meter distinguishes two callback disciplines, and both are
// intentional:
//
//   - OnThresholdChange is edge-triggered: it fires only on the
//     recomputation where the threshold level actually changes.
//   - OnLimitExceeded and OnSoftLimitExceeded are level-triggered: they
//     fire on every recomputation for which the condition holds,
//     including repeats.
//
// # Forecasting
//
// GenerateForecast extrapolates a cumulative daily-average curve for
// display and planning. Forecasts are never used for gating decisions;
// the only hard gate is CanMakePurchase.
//
// # Concurrency
//
// The pure functions are safe for concurrent use. A Meter assumes one
// mutation at a time; the hosting service serializes writes per limit
// instance (see pkg/spend).
package budget
