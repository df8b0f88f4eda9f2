package policy

import (
	"fmt"
)

// FieldError describes a single validation failure on a rule field.
type FieldError struct {
	// RuleID identifies the rule the error belongs to (may be empty
	// when the ID itself is the problem).
	RuleID string

	// Field is the offending field, using dotted paths for nested
	// fields (e.g. "conditions[2].value").
	Field string

	// Message explains what is wrong.
	Message string
}

// Error implements the error interface.
func (e FieldError) Error() string {
	if e.RuleID == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("rule %q: %s: %s", e.RuleID, e.Field, e.Message)
}

// Priority bounds accepted for rules. Priorities outside this range are
// almost always data-entry mistakes.
const (
	MinPriority = 0
	MaxPriority = 10000
)

// maxNameLength bounds rule names and IDs.
const maxNameLength = 200

// ValidateRuleSet validates every rule in a set and checks for duplicate
// IDs. It returns all errors found rather than stopping at the first, so
// callers can surface a complete report.
func ValidateRuleSet(rules []*Rule) []FieldError {
	var errs []FieldError

	seen := make(map[string]bool, len(rules))
	for i, rule := range rules {
		if rule == nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("rules[%d]", i),
				Message: "rule cannot be nil",
			})
			continue
		}

		errs = append(errs, ValidateRule(rule)...)

		if rule.ID != "" {
			if seen[rule.ID] {
				errs = append(errs, FieldError{
					RuleID:  rule.ID,
					Field:   "id",
					Message: "duplicate rule id",
				})
			}
			seen[rule.ID] = true
		}
	}

	return errs
}

// ValidateRule validates a single rule's fields, conditions, and action.
func ValidateRule(rule *Rule) []FieldError {
	var errs []FieldError

	if rule.ID == "" {
		errs = append(errs, FieldError{Field: "id", Message: "id is required"})
	}
	if len(rule.ID) > maxNameLength {
		errs = append(errs, FieldError{RuleID: rule.ID, Field: "id",
			Message: fmt.Sprintf("id exceeds %d characters", maxNameLength)})
	}
	if rule.Name == "" {
		errs = append(errs, FieldError{RuleID: rule.ID, Field: "name", Message: "name is required"})
	}
	if len(rule.Name) > maxNameLength {
		errs = append(errs, FieldError{RuleID: rule.ID, Field: "name",
			Message: fmt.Sprintf("name exceeds %d characters", maxNameLength)})
	}
	if rule.Priority < MinPriority || rule.Priority > MaxPriority {
		errs = append(errs, FieldError{RuleID: rule.ID, Field: "priority",
			Message: fmt.Sprintf("priority must be between %d and %d", MinPriority, MaxPriority)})
	}

	for i, cond := range rule.Conditions {
		errs = append(errs, validateCondition(rule.ID, i, cond)...)
	}

	errs = append(errs, validateAction(rule.ID, rule.Action)...)

	return errs
}

// validateCondition checks a condition's type and value shape.
func validateCondition(ruleID string, idx int, cond Condition) []FieldError {
	var errs []FieldError
	field := func(name string) string {
		return fmt.Sprintf("conditions[%d].%s", idx, name)
	}

	switch cond.Type {
	case ConditionAmountGreaterThan, ConditionAmountLessThan,
		ConditionQuantityGreaterThan, ConditionQuantityLessThan:
		if _, ok := toFloat64(cond.Value); !ok {
			errs = append(errs, FieldError{RuleID: ruleID, Field: field("value"),
				Message: "numeric condition requires a numeric value"})
		}

	case ConditionAmountBetween:
		lo, okLo := toFloat64(cond.Value)
		hi, okHi := toFloat64(cond.ValueTo)
		if !okLo {
			errs = append(errs, FieldError{RuleID: ruleID, Field: field("value"),
				Message: "between condition requires a numeric lower bound"})
		}
		if !okHi {
			errs = append(errs, FieldError{RuleID: ruleID, Field: field("valueTo"),
				Message: "between condition requires a numeric upper bound"})
		}
		if okLo && okHi && lo > hi {
			errs = append(errs, FieldError{RuleID: ruleID, Field: field("valueTo"),
				Message: "upper bound must not be below lower bound"})
		}

	case ConditionCategoryIn, ConditionCategoryNotIn,
		ConditionUserRoleIn, ConditionUserRoleNotIn,
		ConditionDepartmentIn, ConditionDepartmentNotIn,
		ConditionCostCenterIn, ConditionCostCenterNotIn,
		ConditionVendorIn, ConditionVendorNotIn:
		list, ok := toStringSlice(cond.Value)
		if !ok {
			errs = append(errs, FieldError{RuleID: ruleID, Field: field("value"),
				Message: "membership condition requires a list of strings"})
		} else if len(list) == 0 {
			errs = append(errs, FieldError{RuleID: ruleID, Field: field("value"),
				Message: "membership condition requires a non-empty list"})
		}

	case ConditionCustom:
		// Custom conditions with a non-predicate value evaluate to
		// unsatisfiable rather than invalid, but flag them here so rule
		// authors learn about the mistake before deployment.
		switch cond.Value.(type) {
		case Predicate, func(*SpendContext) bool:
		default:
			errs = append(errs, FieldError{RuleID: ruleID, Field: field("value"),
				Message: "custom condition requires a predicate function"})
		}

	default:
		errs = append(errs, FieldError{RuleID: ruleID, Field: field("type"),
			Message: fmt.Sprintf("unknown condition type %q", cond.Type)})
	}

	return errs
}

// validateAction checks the action discriminator and its variant fields.
func validateAction(ruleID string, action Action) []FieldError {
	var errs []FieldError

	switch action.Type {
	case ActionAutoApprove, ActionReject:
		// No variant fields.

	case ActionRequireApproval:
		if len(action.ApproverIDs) == 0 {
			errs = append(errs, FieldError{RuleID: ruleID, Field: "action.approverIds",
				Message: "require_approval requires at least one approver"})
		}

	case ActionRequireMultiApproval:
		if len(action.ApproverIDs) == 0 {
			errs = append(errs, FieldError{RuleID: ruleID, Field: "action.approverIds",
				Message: "require_multi_approval requires at least one approver"})
		}
		if action.RequiredApprovals < 1 {
			errs = append(errs, FieldError{RuleID: ruleID, Field: "action.requiredApprovals",
				Message: "requiredApprovals must be at least 1"})
		}
		if action.RequiredApprovals > len(action.ApproverIDs) {
			errs = append(errs, FieldError{RuleID: ruleID, Field: "action.requiredApprovals",
				Message: "requiredApprovals cannot exceed the approver count"})
		}

	case ActionEscalate:
		if action.EscalateTo == "" {
			errs = append(errs, FieldError{RuleID: ruleID, Field: "action.escalateTo",
				Message: "escalate requires an escalation target"})
		}

	default:
		errs = append(errs, FieldError{RuleID: ruleID, Field: "action.type",
			Message: fmt.Sprintf("unknown action type %q", action.Type)})
	}

	return errs
}
