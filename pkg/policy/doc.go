// Package policy implements the spend-policy rule engine.
//
// # Overview
//
// The policy package evaluates a rule set against a SpendContext and
// produces a decision (auto-approve, require approval, escalate, reject)
// together with a full audit trail of every rule that was considered.
// Evaluation is a pure function of its inputs: the engine holds no state,
// performs no I/O, and never panics on malformed or partial input.
//
// # Fail-Closed Semantics
//
// A condition that references a SpendContext field which is absent is
// never satisfied. Missing information therefore always pushes the
// decision toward "no match", and an unmatched context defaults to
// requiring approval (see RuleEvaluationResult.RequiresApproval). The
// engine fails closed, never open.
//
// # First-Match Resolution
//
// Rules are stable-sorted by ascending priority (lower evaluates first
// and wins ties by input order). Every rule is evaluated so the audit
// trail is complete, but only the first active rule whose conditions all
// hold decides the outcome. Later matches are recorded and ignored.
//
// # Usage
//
//	result := policy.EvaluateRules(rules, ctx)
//	if result.CanAutoApprove() {
//	    // post the transaction directly
//	} else if result.RequiresApproval() {
//	    approvers := result.RequiredApprovers()
//	    // open an approval workflow
//	}
//
// # Thread Safety
//
// All evaluation functions are stateless and safe to call concurrently
// across independent spend contexts.
package policy
