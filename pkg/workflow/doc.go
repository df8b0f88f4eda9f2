// Package workflow implements the multi-step approval workflow state
// machine for spend governance.
//
// # Overview
//
// A Workflow is an ordered list of approval steps. Each step carries a
// set of required approvers, an approval quorum (MinApprovals), and an
// append-only action log that records every approve, reject,
// request-changes, delegate, and skip performed against it. Step and
// workflow statuses are projections of that log: every mutation
// recomputes them from the full log rather than maintaining them
// incrementally, which makes replaying an identical action idempotent.
//
// # Status Derivation
//
// The workflow status is always derived from its steps, never set
// directly, with the precedence
//
//	rejected > cancelled > approved > in_progress > pending > draft
//
// A single rejection on any step therefore vetoes the entire workflow.
// A step is approved exactly when the count of distinct approvers with
// a logged approve action reaches MinApprovals; below the quorum with at
// least one approval it is in_review.
//
// # Notifications
//
// Hooks.OnStepChange and Hooks.OnWorkflowChange fire on every mutation.
// Hooks.OnApproved and Hooks.OnRejected are edge-triggered: each fires
// exactly once, on the first transition into its terminal status.
//
// # Concurrency
//
// A Machine assumes one mutation at a time per workflow instance. The
// hosting service must serialize writes per workflow (see pkg/spend);
// the state machine itself holds no locks.
package workflow
