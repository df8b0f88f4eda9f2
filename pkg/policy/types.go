package policy

// SpendContext describes a single spend event under evaluation.
// Every field is optional: nil pointers and empty slices denote absence,
// and conditions referencing an absent field are never satisfied.
type SpendContext struct {
	// Amount is the monetary amount of the spend, in the account currency.
	Amount *float64

	// Quantity is the number of units being purchased.
	Quantity *float64

	// Categories are the spend categories attached to the event.
	Categories []string

	// UserRole is the role of the requesting user.
	UserRole *string

	// Department is the requesting department.
	Department *string

	// CostCenter is the cost center the spend is charged to.
	CostCenter *string

	// VendorID identifies the vendor being paid.
	VendorID *string
}

// ConditionType identifies the comparison a Condition performs.
type ConditionType string

const (
	ConditionAmountGreaterThan   ConditionType = "amount_greater_than"
	ConditionAmountLessThan      ConditionType = "amount_less_than"
	ConditionAmountBetween       ConditionType = "amount_between"
	ConditionQuantityGreaterThan ConditionType = "quantity_greater_than"
	ConditionQuantityLessThan    ConditionType = "quantity_less_than"
	ConditionCategoryIn          ConditionType = "category_in"
	ConditionCategoryNotIn       ConditionType = "category_not_in"
	ConditionUserRoleIn          ConditionType = "user_role_in"
	ConditionUserRoleNotIn       ConditionType = "user_role_not_in"
	ConditionDepartmentIn        ConditionType = "department_in"
	ConditionDepartmentNotIn     ConditionType = "department_not_in"
	ConditionCostCenterIn        ConditionType = "cost_center_in"
	ConditionCostCenterNotIn     ConditionType = "cost_center_not_in"
	ConditionVendorIn            ConditionType = "vendor_in"
	ConditionVendorNotIn         ConditionType = "vendor_not_in"
	ConditionCustom              ConditionType = "custom"
)

// Predicate is the value type of a custom condition. A custom condition
// whose Value is not a Predicate is unsatisfiable.
type Predicate func(ctx *SpendContext) bool

// Condition is a single comparison inside a rule. All conditions of a
// rule are combined with implicit AND; an empty condition list is
// vacuously true.
type Condition struct {
	// Type selects the comparison to perform.
	Type ConditionType

	// Value is the comparison operand. Numeric conditions expect a
	// number, membership conditions expect a list of strings, and
	// custom conditions expect a Predicate.
	Value interface{}

	// ValueTo is the upper bound for *_between conditions.
	ValueTo interface{}
}

// ActionType identifies the decision a rule produces when it matches.
type ActionType string

const (
	// ActionAutoApprove approves the spend without human review.
	ActionAutoApprove ActionType = "auto_approve"

	// ActionRequireApproval requires sign-off from any one of the
	// listed approvers.
	ActionRequireApproval ActionType = "require_approval"

	// ActionRequireMultiApproval requires a quorum of distinct
	// approvals from the listed approvers.
	ActionRequireMultiApproval ActionType = "require_multi_approval"

	// ActionEscalate routes the decision to a named escalation target.
	ActionEscalate ActionType = "escalate"

	// ActionReject rejects the spend outright.
	ActionReject ActionType = "reject"
)

// Action is the tagged decision attached to a rule. Only the fields
// relevant to Type are meaningful.
type Action struct {
	// Type is the action discriminator.
	Type ActionType

	// ApproverIDs lists the eligible approvers for require_approval
	// and require_multi_approval actions.
	ApproverIDs []string

	// RequiredApprovals is the approval quorum for
	// require_multi_approval actions.
	RequiredApprovals int

	// EscalateTo is the escalation target for escalate actions.
	EscalateTo string
}

// Rule is a single spend-policy rule.
type Rule struct {
	// ID uniquely identifies the rule within a rule set.
	ID string

	// Name is the human-readable rule name.
	Name string

	// Description explains the rule's intent.
	Description string

	// Conditions must all hold for the rule to match (implicit AND).
	// An empty list matches every context.
	Conditions []Condition

	// Action is the decision produced when the rule matches.
	Action Action

	// Priority orders evaluation: lower values evaluate first and win
	// ties against higher values.
	Priority int

	// IsActive disables the rule when false. An inactive rule never
	// matches.
	IsActive bool
}

// RuleEvaluation records the outcome of evaluating a single rule. One
// entry is produced per rule, in priority order, so audit consumers can
// see exactly which rules were considered and why they did not match.
type RuleEvaluation struct {
	// Rule is the rule that was evaluated.
	Rule *Rule

	// Matched indicates whether every condition held.
	Matched bool

	// FailedConditions lists the conditions that did not hold. For an
	// inactive rule every condition is listed as failed even though
	// none were individually evaluated; see EvaluateRule.
	FailedConditions []Condition
}

// RuleEvaluationResult is the outcome of evaluating a rule set against a
// spend context.
type RuleEvaluationResult struct {
	// Matched indicates whether any active rule matched.
	Matched bool

	// MatchedRule is the authoritative rule: the first match in
	// priority order. Nil when Matched is false.
	MatchedRule *Rule

	// Action is the matched rule's action. Nil when Matched is false.
	Action *Action

	// Evaluations contains one entry per rule, in priority order,
	// including rules evaluated after the authoritative match.
	Evaluations []RuleEvaluation
}

// RequiresApproval reports whether the decision needs human sign-off.
// When no rule matched it returns true: unmatched spend always requires
// approval rather than slipping through.
func (r *RuleEvaluationResult) RequiresApproval() bool {
	if !r.Matched || r.Action == nil {
		return true
	}
	switch r.Action.Type {
	case ActionRequireApproval, ActionRequireMultiApproval, ActionEscalate:
		return true
	default:
		return false
	}
}

// CanAutoApprove reports whether the spend may proceed without review.
func (r *RuleEvaluationResult) CanAutoApprove() bool {
	return r.Matched && r.Action != nil && r.Action.Type == ActionAutoApprove
}

// ShouldReject reports whether the spend was rejected outright.
func (r *RuleEvaluationResult) ShouldReject() bool {
	return r.Matched && r.Action != nil && r.Action.Type == ActionReject
}

// RequiredApprovers returns the approver IDs the decision names: the
// action's approver list for approval actions, or the escalation target
// for escalate actions. Returns nil when no approvers are required.
func (r *RuleEvaluationResult) RequiredApprovers() []string {
	if !r.Matched || r.Action == nil {
		return nil
	}
	switch r.Action.Type {
	case ActionRequireApproval, ActionRequireMultiApproval:
		approvers := make([]string, len(r.Action.ApproverIDs))
		copy(approvers, r.Action.ApproverIDs)
		return approvers
	case ActionEscalate:
		if r.Action.EscalateTo == "" {
			return nil
		}
		return []string{r.Action.EscalateTo}
	default:
		return nil
	}
}
