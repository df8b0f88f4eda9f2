package policy

import (
	"testing"
)

func floatPtr(v float64) *float64 { return &v }
func strPtr(s string) *string     { return &s }

func activeRule(id string, priority int, action Action, conds ...Condition) *Rule {
	return &Rule{
		ID:         id,
		Name:       id,
		Conditions: conds,
		Action:     action,
		Priority:   priority,
		IsActive:   true,
	}
}

// ============================================================================
// Condition Tests
// ============================================================================

func TestEvaluateCondition_Numeric(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		ctx  *SpendContext
		want bool
	}{
		{
			name: "amount greater than matches",
			cond: Condition{Type: ConditionAmountGreaterThan, Value: 100.0},
			ctx:  &SpendContext{Amount: floatPtr(150)},
			want: true,
		},
		{
			name: "amount greater than boundary is exclusive",
			cond: Condition{Type: ConditionAmountGreaterThan, Value: 100.0},
			ctx:  &SpendContext{Amount: floatPtr(100)},
			want: false,
		},
		{
			name: "amount less than matches",
			cond: Condition{Type: ConditionAmountLessThan, Value: 500},
			ctx:  &SpendContext{Amount: floatPtr(300)},
			want: true,
		},
		{
			name: "amount between inclusive bounds",
			cond: Condition{Type: ConditionAmountBetween, Value: 500, ValueTo: 5000},
			ctx:  &SpendContext{Amount: floatPtr(500)},
			want: true,
		},
		{
			name: "amount between outside bounds",
			cond: Condition{Type: ConditionAmountBetween, Value: 500, ValueTo: 5000},
			ctx:  &SpendContext{Amount: floatPtr(9000)},
			want: false,
		},
		{
			name: "between without upper bound never matches",
			cond: Condition{Type: ConditionAmountBetween, Value: 500},
			ctx:  &SpendContext{Amount: floatPtr(600)},
			want: false,
		},
		{
			name: "quantity greater than with int value",
			cond: Condition{Type: ConditionQuantityGreaterThan, Value: 10},
			ctx:  &SpendContext{Quantity: floatPtr(12)},
			want: true,
		},
		{
			name: "non-numeric value never matches",
			cond: Condition{Type: ConditionAmountGreaterThan, Value: "lots"},
			ctx:  &SpendContext{Amount: floatPtr(1000)},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateCondition(tt.cond, tt.ctx)
			if got != tt.want {
				t.Errorf("EvaluateCondition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateCondition_AbsentFieldNeverMatches(t *testing.T) {
	// Fail-closed: missing context fields never satisfy a condition,
	// including the negated *_not_in forms.
	empty := &SpendContext{}

	conds := []Condition{
		{Type: ConditionAmountGreaterThan, Value: 0},
		{Type: ConditionAmountLessThan, Value: 1e9},
		{Type: ConditionAmountBetween, Value: 0, ValueTo: 1e9},
		{Type: ConditionQuantityGreaterThan, Value: 0},
		{Type: ConditionQuantityLessThan, Value: 1e9},
		{Type: ConditionCategoryIn, Value: []string{"travel"}},
		{Type: ConditionCategoryNotIn, Value: []string{"travel"}},
		{Type: ConditionUserRoleIn, Value: []string{"manager"}},
		{Type: ConditionUserRoleNotIn, Value: []string{"manager"}},
		{Type: ConditionDepartmentIn, Value: []string{"eng"}},
		{Type: ConditionDepartmentNotIn, Value: []string{"eng"}},
		{Type: ConditionCostCenterIn, Value: []string{"cc-1"}},
		{Type: ConditionCostCenterNotIn, Value: []string{"cc-1"}},
		{Type: ConditionVendorIn, Value: []string{"v-1"}},
		{Type: ConditionVendorNotIn, Value: []string{"v-1"}},
	}

	for _, cond := range conds {
		if EvaluateCondition(cond, empty) {
			t.Errorf("condition %s matched against empty context, want no match", cond.Type)
		}
	}
}

func TestEvaluateCondition_Membership(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		ctx  *SpendContext
		want bool
	}{
		{
			name: "category in matches any overlap",
			cond: Condition{Type: ConditionCategoryIn, Value: []string{"travel", "meals"}},
			ctx:  &SpendContext{Categories: []string{"software", "meals"}},
			want: true,
		},
		{
			name: "category not in requires zero overlap",
			cond: Condition{Type: ConditionCategoryNotIn, Value: []string{"travel"}},
			ctx:  &SpendContext{Categories: []string{"software"}},
			want: true,
		},
		{
			name: "category not in rejects overlap",
			cond: Condition{Type: ConditionCategoryNotIn, Value: []string{"travel"}},
			ctx:  &SpendContext{Categories: []string{"travel", "meals"}},
			want: false,
		},
		{
			name: "user role in",
			cond: Condition{Type: ConditionUserRoleIn, Value: []string{"manager", "director"}},
			ctx:  &SpendContext{UserRole: strPtr("manager")},
			want: true,
		},
		{
			name: "vendor not in with present vendor",
			cond: Condition{Type: ConditionVendorNotIn, Value: []string{"v-blocked"}},
			ctx:  &SpendContext{VendorID: strPtr("v-ok")},
			want: true,
		},
		{
			name: "interface slice from decoded yaml",
			cond: Condition{Type: ConditionDepartmentIn, Value: []interface{}{"eng", "sales"}},
			ctx:  &SpendContext{Department: strPtr("sales")},
			want: true,
		},
		{
			name: "non-list value never matches",
			cond: Condition{Type: ConditionUserRoleIn, Value: "manager"},
			ctx:  &SpendContext{UserRole: strPtr("manager")},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateCondition(tt.cond, tt.ctx)
			if got != tt.want {
				t.Errorf("EvaluateCondition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateCondition_Custom(t *testing.T) {
	overBudget := Predicate(func(ctx *SpendContext) bool {
		return ctx.Amount != nil && *ctx.Amount > 1000
	})

	if !EvaluateCondition(Condition{Type: ConditionCustom, Value: overBudget},
		&SpendContext{Amount: floatPtr(2000)}) {
		t.Error("custom predicate should match amount over 1000")
	}

	if EvaluateCondition(Condition{Type: ConditionCustom, Value: overBudget},
		&SpendContext{Amount: floatPtr(500)}) {
		t.Error("custom predicate should not match amount under 1000")
	}

	// Non-callable value is unsatisfiable, not an error.
	if EvaluateCondition(Condition{Type: ConditionCustom, Value: "not a function"},
		&SpendContext{Amount: floatPtr(2000)}) {
		t.Error("custom condition with non-predicate value should never match")
	}

	var nilPred Predicate
	if EvaluateCondition(Condition{Type: ConditionCustom, Value: nilPred}, &SpendContext{}) {
		t.Error("nil predicate should never match")
	}
}

func TestEvaluateCondition_UnknownType(t *testing.T) {
	cond := Condition{Type: ConditionType("amount_equals"), Value: 100}
	if EvaluateCondition(cond, &SpendContext{Amount: floatPtr(100)}) {
		t.Error("unknown condition type should never match")
	}
}

// ============================================================================
// Rule Tests
// ============================================================================

func TestEvaluateRule_EmptyConditionsVacuouslyTrue(t *testing.T) {
	rule := activeRule("r1", 10, Action{Type: ActionAutoApprove})

	matched, failed := EvaluateRule(rule, &SpendContext{})
	if !matched {
		t.Error("rule with no conditions should match any context")
	}
	if len(failed) != 0 {
		t.Errorf("expected no failed conditions, got %d", len(failed))
	}
}

func TestEvaluateRule_InactiveNeverMatches(t *testing.T) {
	rule := &Rule{
		ID:   "r-inactive",
		Name: "inactive",
		Conditions: []Condition{
			{Type: ConditionAmountLessThan, Value: 1e9},
			{Type: ConditionCategoryIn, Value: []string{"travel"}},
		},
		Action:   Action{Type: ActionAutoApprove},
		Priority: 1,
		IsActive: false,
	}

	// Context that would satisfy both conditions.
	ctx := &SpendContext{Amount: floatPtr(10), Categories: []string{"travel"}}

	matched, failed := EvaluateRule(rule, ctx)
	if matched {
		t.Error("inactive rule must never match")
	}
	// Inactive rules report every condition as failed without
	// evaluating them.
	if len(failed) != len(rule.Conditions) {
		t.Errorf("expected %d failed conditions, got %d", len(rule.Conditions), len(failed))
	}
}

func TestEvaluateRule_CollectsAllFailures(t *testing.T) {
	rule := activeRule("r1", 10, Action{Type: ActionReject},
		Condition{Type: ConditionAmountGreaterThan, Value: 1000},
		Condition{Type: ConditionDepartmentIn, Value: []string{"eng"}},
		Condition{Type: ConditionAmountLessThan, Value: 1e9},
	)

	ctx := &SpendContext{Amount: floatPtr(500), Department: strPtr("sales")}

	matched, failed := EvaluateRule(rule, ctx)
	if matched {
		t.Error("rule should not match")
	}
	if len(failed) != 2 {
		t.Errorf("expected 2 failed conditions, got %d", len(failed))
	}
}

// ============================================================================
// Rule Set Tests
// ============================================================================

func TestEvaluateRules_FirstMatchByPriority(t *testing.T) {
	auto := activeRule("auto", 10, Action{Type: ActionAutoApprove},
		Condition{Type: ConditionAmountLessThan, Value: 500})
	approval := activeRule("approval", 20,
		Action{Type: ActionRequireApproval, ApproverIDs: []string{"mgr-1"}},
		Condition{Type: ConditionAmountBetween, Value: 500, ValueTo: 5000})

	// Input order deliberately reversed: priority decides, not position.
	rules := []*Rule{approval, auto}

	tests := []struct {
		name        string
		amount      float64
		wantMatched bool
		wantRuleID  string
	}{
		{"small amount auto-approves", 300, true, "auto"},
		{"mid amount requires approval", 1200, true, "approval"},
		{"large amount matches nothing", 9000, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EvaluateRules(rules, &SpendContext{Amount: floatPtr(tt.amount)})

			if result.Matched != tt.wantMatched {
				t.Fatalf("Matched = %v, want %v", result.Matched, tt.wantMatched)
			}
			if tt.wantMatched && result.MatchedRule.ID != tt.wantRuleID {
				t.Errorf("MatchedRule.ID = %q, want %q", result.MatchedRule.ID, tt.wantRuleID)
			}
			// Audit trail always has one entry per rule.
			if len(result.Evaluations) != len(rules) {
				t.Errorf("expected %d evaluations, got %d", len(rules), len(result.Evaluations))
			}
		})
	}
}

func TestEvaluateRules_UnmatchedDefaultsToApproval(t *testing.T) {
	auto := activeRule("auto", 10, Action{Type: ActionAutoApprove},
		Condition{Type: ConditionAmountLessThan, Value: 500})

	result := EvaluateRules([]*Rule{auto}, &SpendContext{Amount: floatPtr(9000)})

	if result.Matched {
		t.Fatal("expected no match")
	}
	if !result.RequiresApproval() {
		t.Error("unmatched spend must require approval by default")
	}
	if result.CanAutoApprove() {
		t.Error("unmatched spend must not auto-approve")
	}
	if result.ShouldReject() {
		t.Error("unmatched spend must not report rejection")
	}
	if result.RequiredApprovers() != nil {
		t.Error("unmatched spend has no named approvers")
	}
}

func TestEvaluateRules_EvaluatesEveryRule(t *testing.T) {
	// Even after the first match the remaining rules are evaluated so
	// the audit trail shows every later match.
	first := activeRule("first", 1, Action{Type: ActionAutoApprove})
	second := activeRule("second", 2, Action{Type: ActionReject})

	result := EvaluateRules([]*Rule{first, second}, &SpendContext{})

	if result.MatchedRule.ID != "first" {
		t.Fatalf("MatchedRule.ID = %q, want %q", result.MatchedRule.ID, "first")
	}
	if len(result.Evaluations) != 2 {
		t.Fatalf("expected 2 evaluations, got %d", len(result.Evaluations))
	}
	if !result.Evaluations[1].Matched {
		t.Error("second rule should be recorded as matched in the audit trail")
	}
	if result.Action.Type != ActionAutoApprove {
		t.Error("later match must not override the authoritative action")
	}
}

func TestEvaluateRules_StableTieBreak(t *testing.T) {
	a := activeRule("a", 5, Action{Type: ActionAutoApprove})
	b := activeRule("b", 5, Action{Type: ActionReject})

	result := EvaluateRules([]*Rule{a, b}, &SpendContext{})
	if result.MatchedRule.ID != "a" {
		t.Errorf("equal priority should keep input order, matched %q", result.MatchedRule.ID)
	}

	result = EvaluateRules([]*Rule{b, a}, &SpendContext{})
	if result.MatchedRule.ID != "b" {
		t.Errorf("equal priority should keep input order, matched %q", result.MatchedRule.ID)
	}
}

func TestEvaluateRules_InputOrderPreserved(t *testing.T) {
	rules := []*Rule{
		activeRule("low-prio", 100, Action{Type: ActionReject}),
		activeRule("high-prio", 1, Action{Type: ActionAutoApprove}),
	}

	EvaluateRules(rules, &SpendContext{})

	// The caller's slice must not be reordered.
	if rules[0].ID != "low-prio" || rules[1].ID != "high-prio" {
		t.Error("EvaluateRules must not mutate the input slice")
	}
}

// ============================================================================
// Decision Helper Tests
// ============================================================================

func TestRequiredApprovers(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   []string
	}{
		{
			name:   "require approval",
			action: Action{Type: ActionRequireApproval, ApproverIDs: []string{"a", "b"}},
			want:   []string{"a", "b"},
		},
		{
			name: "require multi approval",
			action: Action{Type: ActionRequireMultiApproval,
				ApproverIDs: []string{"a", "b", "c"}, RequiredApprovals: 2},
			want: []string{"a", "b", "c"},
		},
		{
			name:   "escalate resolves to target",
			action: Action{Type: ActionEscalate, EscalateTo: "cfo"},
			want:   []string{"cfo"},
		},
		{
			name:   "auto approve has none",
			action: Action{Type: ActionAutoApprove},
			want:   nil,
		},
		{
			name:   "reject has none",
			action: Action{Type: ActionReject},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := activeRule("r", 1, tt.action)
			result := EvaluateRules([]*Rule{rule}, &SpendContext{})

			got := result.RequiredApprovers()
			if len(got) != len(tt.want) {
				t.Fatalf("RequiredApprovers() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("approver[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecisionHelpers(t *testing.T) {
	reject := EvaluateRules([]*Rule{activeRule("r", 1, Action{Type: ActionReject})}, &SpendContext{})
	if !reject.ShouldReject() {
		t.Error("ShouldReject() = false for matched reject rule")
	}
	if reject.RequiresApproval() {
		t.Error("rejected spend does not also require approval")
	}

	escalate := EvaluateRules([]*Rule{activeRule("r", 1,
		Action{Type: ActionEscalate, EscalateTo: "vp-finance"})}, &SpendContext{})
	if !escalate.RequiresApproval() {
		t.Error("escalation requires approval")
	}
}
