package policy

import (
	"reflect"
	"sort"
)

// EvaluateCondition evaluates a single condition against a spend context.
//
// The evaluation fails closed: a condition referencing a context field
// that is absent is never satisfied, and a condition whose value cannot
// be interpreted (wrong type, missing bound) resolves to false rather
// than an error. Custom conditions require Value to be a Predicate;
// any other value type is unsatisfiable.
func EvaluateCondition(cond Condition, ctx *SpendContext) bool {
	if ctx == nil {
		ctx = &SpendContext{}
	}

	switch cond.Type {
	case ConditionAmountGreaterThan:
		return compareGreater(ctx.Amount, cond.Value)

	case ConditionAmountLessThan:
		return compareLess(ctx.Amount, cond.Value)

	case ConditionAmountBetween:
		return compareBetween(ctx.Amount, cond.Value, cond.ValueTo)

	case ConditionQuantityGreaterThan:
		return compareGreater(ctx.Quantity, cond.Value)

	case ConditionQuantityLessThan:
		return compareLess(ctx.Quantity, cond.Value)

	case ConditionCategoryIn:
		return anyIn(ctx.Categories, cond.Value)

	case ConditionCategoryNotIn:
		return noneIn(ctx.Categories, cond.Value)

	case ConditionUserRoleIn:
		return memberIn(ctx.UserRole, cond.Value)

	case ConditionUserRoleNotIn:
		return memberNotIn(ctx.UserRole, cond.Value)

	case ConditionDepartmentIn:
		return memberIn(ctx.Department, cond.Value)

	case ConditionDepartmentNotIn:
		return memberNotIn(ctx.Department, cond.Value)

	case ConditionCostCenterIn:
		return memberIn(ctx.CostCenter, cond.Value)

	case ConditionCostCenterNotIn:
		return memberNotIn(ctx.CostCenter, cond.Value)

	case ConditionVendorIn:
		return memberIn(ctx.VendorID, cond.Value)

	case ConditionVendorNotIn:
		return memberNotIn(ctx.VendorID, cond.Value)

	case ConditionCustom:
		return evaluateCustom(cond.Value, ctx)

	default:
		// Unknown condition types never match.
		return false
	}
}

// EvaluateRule evaluates every condition of a rule against a context.
// It returns whether the rule matched and the conditions that failed.
//
// An inactive rule never matches and reports every condition as failed
// without evaluating any of them. Audit-trail readers should therefore
// not infer from an inactive rule's failure list that specific
// conditions were checked.
func EvaluateRule(rule *Rule, ctx *SpendContext) (bool, []Condition) {
	if rule == nil {
		return false, nil
	}

	if !rule.IsActive {
		failed := make([]Condition, len(rule.Conditions))
		copy(failed, rule.Conditions)
		return false, failed
	}

	var failed []Condition
	for _, cond := range rule.Conditions {
		if !EvaluateCondition(cond, ctx) {
			failed = append(failed, cond)
		}
	}

	return len(failed) == 0, failed
}

// EvaluateRules evaluates a rule set against a spend context and returns
// the decision together with a complete audit trail.
//
// Rules are stable-sorted by ascending priority, so lower priorities
// evaluate first and ties keep their input order. Every rule is
// evaluated even after a match is found; the first matching rule in
// priority order is authoritative and later matches are recorded but
// ignored for the decision. The input slice is not modified.
func EvaluateRules(rules []*Rule, ctx *SpendContext) *RuleEvaluationResult {
	ordered := make([]*Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	result := &RuleEvaluationResult{
		Evaluations: make([]RuleEvaluation, 0, len(ordered)),
	}

	for _, rule := range ordered {
		matched, failed := EvaluateRule(rule, ctx)

		result.Evaluations = append(result.Evaluations, RuleEvaluation{
			Rule:             rule,
			Matched:          matched,
			FailedConditions: failed,
		})

		if matched && !result.Matched {
			result.Matched = true
			result.MatchedRule = rule
			action := rule.Action
			result.Action = &action
		}
	}

	return result
}

// evaluateCustom runs a custom predicate. Value must be a Predicate or a
// bare func(*SpendContext) bool; anything else is unsatisfiable.
func evaluateCustom(value interface{}, ctx *SpendContext) bool {
	switch fn := value.(type) {
	case Predicate:
		return fn != nil && fn(ctx)
	case func(*SpendContext) bool:
		return fn != nil && fn(ctx)
	default:
		return false
	}
}

// compareGreater reports field > value. Absent field or non-numeric
// value never satisfies.
func compareGreater(field *float64, value interface{}) bool {
	if field == nil {
		return false
	}
	bound, ok := toFloat64(value)
	if !ok {
		return false
	}
	return *field > bound
}

// compareLess reports field < value. Absent field or non-numeric value
// never satisfies.
func compareLess(field *float64, value interface{}) bool {
	if field == nil {
		return false
	}
	bound, ok := toFloat64(value)
	if !ok {
		return false
	}
	return *field < bound
}

// compareBetween reports lower <= field <= upper, bounds inclusive.
// Absent field or unusable bounds never satisfy.
func compareBetween(field *float64, lower, upper interface{}) bool {
	if field == nil {
		return false
	}
	lo, okLo := toFloat64(lower)
	hi, okHi := toFloat64(upper)
	if !okLo || !okHi {
		return false
	}
	return *field >= lo && *field <= hi
}

// memberIn reports whether a single-valued field is in the value list.
func memberIn(field *string, value interface{}) bool {
	if field == nil {
		return false
	}
	list, ok := toStringSlice(value)
	if !ok {
		return false
	}
	return containsString(list, *field)
}

// memberNotIn reports whether a single-valued field is present and not
// in the value list. An absent field never satisfies, even for the
// negated form: missing information is not evidence of absence.
func memberNotIn(field *string, value interface{}) bool {
	if field == nil {
		return false
	}
	list, ok := toStringSlice(value)
	if !ok {
		return false
	}
	return !containsString(list, *field)
}

// anyIn reports whether any context category appears in the value list.
func anyIn(fields []string, value interface{}) bool {
	if len(fields) == 0 {
		return false
	}
	list, ok := toStringSlice(value)
	if !ok {
		return false
	}
	for _, f := range fields {
		if containsString(list, f) {
			return true
		}
	}
	return false
}

// noneIn reports whether the context categories are present and none
// appears in the value list.
func noneIn(fields []string, value interface{}) bool {
	if len(fields) == 0 {
		return false
	}
	list, ok := toStringSlice(value)
	if !ok {
		return false
	}
	for _, f := range fields {
		if containsString(list, f) {
			return false
		}
	}
	return true
}

// toFloat64 coerces a condition value to float64.
func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

// toStringSlice coerces a condition value to a string list. It accepts
// []string directly and any slice or array whose elements are strings
// (as produced by YAML decoding into []interface{}).
func toStringSlice(v interface{}) ([]string, bool) {
	if list, ok := v.([]string); ok {
		return list, true
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}

	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		s, ok := rv.Index(i).Interface().(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// containsString reports whether list contains s.
func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
