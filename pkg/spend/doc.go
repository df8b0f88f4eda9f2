// Package spend is the service layer of the spend-governance engine. It
// wires the policy rule engine, the approval workflow machine, and the
// budget meter into a single purchase-request flow.
//
// # Overview
//
// A purchase request runs through three gates, in order:
//
//  1. Policy: the rule set is evaluated against the spend context. A
//     reject decision stops the request; an auto-approve decision skips
//     human review.
//  2. Budget: the purchase gate checks the amount against the limit's
//     remaining budget. The gate is the only hard stop; forecasts and
//     threshold notifications never block a purchase.
//  3. Approval: when the policy decision requires sign-off, an approval
//     workflow is opened and the spend is held until the workflow
//     derives to approved.
//
// # Consistency
//
// The manager serializes all mutations per limit, so concurrent
// purchase requests against the same limit observe a consistent meter.
// Different limits proceed in parallel.
//
// # Audit
//
// Every gate decision, posted spend, workflow action, and period
// rollover is appended to the audit journal when one is configured.
package spend
