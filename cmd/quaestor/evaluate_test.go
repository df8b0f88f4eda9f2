package main

import (
	"testing"

	"corsa-hq/quaestor/pkg/policy"
)

const evaluateRuleYAML = `rules:
  - id: huge-reject
    name: Reject very large purchases
    priority: 5
    conditions:
      - type: amount_greater_than
        value: 5000
    action:
      type: reject
  - id: small-auto
    name: Auto-approve small purchases
    priority: 10
    conditions:
      - type: amount_less_than
        value: 100
    action:
      type: auto_approve
  - id: mid-approval
    name: Manager approval for mid-size purchases
    priority: 20
    conditions:
      - type: amount_between
        value: 100
        valueTo: 5000
    action:
      type: require_approval
      approverIds: [mgr-1]
`

func evaluateWithAmount(t *testing.T, amount string) {
	t.Helper()
	if err := evaluateCmd.Flags().Set("amount", amount); err != nil {
		t.Fatalf("Failed to set amount flag: %v", err)
	}
	t.Cleanup(func() {
		evaluateCmd.Flags().Lookup("amount").Changed = false
	})
}

func TestEvaluateContext_AutoApprove(t *testing.T) {
	path := writeRuleFile(t, t.TempDir(), "rules.yaml", evaluateRuleYAML)

	evaluateFlags.rules = path
	evaluateFlags.format = "text"
	evaluateFlags.trace = false
	evaluateWithAmount(t, "50")

	if err := evaluateContext(evaluateCmd, nil); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestEvaluateContext_JSONOutput(t *testing.T) {
	path := writeRuleFile(t, t.TempDir(), "rules.yaml", evaluateRuleYAML)

	evaluateFlags.rules = path
	evaluateFlags.format = "json"
	evaluateFlags.trace = true
	evaluateWithAmount(t, "250")

	if err := evaluateContext(evaluateCmd, nil); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestEvaluateContext_MissingRules(t *testing.T) {
	evaluateFlags.rules = "does-not-exist.yaml"
	evaluateFlags.format = "text"

	if err := evaluateContext(evaluateCmd, nil); err == nil {
		t.Error("Expected error for missing rule file")
	}
}

func TestContextFromFlags_OnlyChangedFlagsSet(t *testing.T) {
	evaluateWithAmount(t, "250")

	spendCtx := contextFromFlags(evaluateCmd)
	if spendCtx.Amount == nil || *spendCtx.Amount != 250 {
		t.Errorf("Expected amount 250, got %v", spendCtx.Amount)
	}
	if spendCtx.Quantity != nil {
		t.Error("Expected quantity to stay nil when flag is unset")
	}
	if spendCtx.UserRole != nil {
		t.Error("Expected role to stay nil when flag is unset")
	}
}

func TestBuildReport_NoMatch(t *testing.T) {
	result := policy.EvaluateRules(nil, &policy.SpendContext{})

	report := buildReport(result, false)
	if report.Matched {
		t.Error("Expected no match against an empty rule set")
	}
	if !report.RequiresApproval {
		t.Error("Expected unmatched spend to require approval")
	}
	if report.CanAutoApprove {
		t.Error("Expected unmatched spend not to auto-approve")
	}
}

func TestBuildReport_Rejection(t *testing.T) {
	amount := 9000.0
	rules := []*policy.Rule{
		{
			ID:       "huge-reject",
			Name:     "Reject very large purchases",
			Priority: 5,
			IsActive: true,
			Conditions: []policy.Condition{
				{Type: policy.ConditionAmountGreaterThan, Value: 5000},
			},
			Action: policy.Action{Type: policy.ActionReject},
		},
	}

	result := policy.EvaluateRules(rules, &policy.SpendContext{Amount: &amount})
	report := buildReport(result, true)

	if !report.ShouldReject {
		t.Error("Expected rejection")
	}
	if report.RuleID != "huge-reject" {
		t.Errorf("Expected matched rule huge-reject, got %q", report.RuleID)
	}
	if len(report.Trace) != 1 {
		t.Errorf("Expected 1 trace entry, got %d", len(report.Trace))
	}
}
