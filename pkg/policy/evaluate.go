// Package policy implements the declarative policy engine (C10): a field
// path resolver, an operator evaluator, a regex guard, and an enforcement
// aggregator that turns a Policy's rules plus a context object into a
// PolicyEvaluation.
package policy

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/kernelerrors"
	"github.com/clawforge/kernel/pkg/schema"
)

// EvaluateRule resolves a rule's field path against ctx and applies its
// operator, returning whether the condition holds.
func EvaluateRule(rule schema.PolicyRule, ctx map[string]interface{}) (bool, error) {
	value, err := Resolve(ctx, rule.Condition.Field)
	if rule.Condition.Operator == schema.OpExists {
		return err == nil, nil
	}
	if err != nil {
		return false, err
	}
	return applyOperator(rule.Condition.Operator, value, rule.Condition.Value)
}

func applyOperator(op schema.PolicyOperator, actual, want interface{}) (bool, error) {
	switch op {
	case schema.OpEquals:
		return fmt.Sprint(actual) == fmt.Sprint(want), nil
	case schema.OpNotEquals:
		return fmt.Sprint(actual) != fmt.Sprint(want), nil
	case schema.OpIn:
		return memberOf(want, actual), nil
	case schema.OpNotIn:
		return !memberOf(want, actual), nil
	case schema.OpSubsetOf:
		return isSubsetOf(actual, want), nil
	case schema.OpSupersetOf:
		return isSubsetOf(want, actual), nil
	case schema.OpGreaterThan:
		a, b, err := bothFloats(actual, want)
		if err != nil {
			return false, err
		}
		return a > b, nil
	case schema.OpLessThan:
		a, b, err := bothFloats(actual, want)
		if err != nil {
			return false, err
		}
		return a < b, nil
	case schema.OpMatchesRegex:
		pattern, ok := want.(string)
		if !ok {
			return false, kernelerrors.New(kernelerrors.CodePolicyOperatorUnsupported, "matches_regex requires a string pattern value")
		}
		input := fmt.Sprint(actual)
		return GuardedMatch(pattern, input)
	default:
		return false, kernelerrors.Newf(kernelerrors.CodePolicyOperatorUnsupported, "unsupported operator %q", op)
	}
}

func memberOf(list interface{}, v interface{}) bool {
	items, ok := list.([]interface{})
	if !ok {
		return false
	}
	target := fmt.Sprint(v)
	for _, item := range items {
		if fmt.Sprint(item) == target {
			return true
		}
	}
	return false
}

// isSubsetOf reports whether every element of a is present in b.
func isSubsetOf(a, b interface{}) bool {
	aList, aOK := toStringSlice(a)
	bList, bOK := toStringSlice(b)
	if !aOK || !bOK {
		return false
	}
	set := make(map[string]struct{}, len(bList))
	for _, v := range bList {
		set[v] = struct{}{}
	}
	for _, v := range aList {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}

func toStringSlice(v interface{}) ([]string, bool) {
	switch t := v.(type) {
	case []interface{}:
		out := make([]string, len(t))
		for i, item := range t {
			out[i] = fmt.Sprint(item)
		}
		return out, true
	case []string:
		return t, true
	default:
		return nil, false
	}
}

func bothFloats(a, b interface{}) (float64, float64, error) {
	af, ok := toFloat(a)
	if !ok {
		return 0, 0, kernelerrors.Newf(kernelerrors.CodePolicyOperatorUnsupported, "value %v is not numeric", a)
	}
	bf, ok := toFloat(b)
	if !ok {
		return 0, 0, kernelerrors.Newf(kernelerrors.CodePolicyOperatorUnsupported, "value %v is not numeric", b)
	}
	return af, bf, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// Evaluate runs every rule in policy against ctx, returning a RuleResult per
// rule and the aggregated denied flag: denied is true if any "deny"-effect
// rule's condition held, or any "require"-effect rule's condition did not.
// Every rule is evaluated regardless of an earlier rule's outcome.
func Evaluate(policy *schema.Policy, ctx map[string]interface{}) ([]schema.RuleResult, bool, error) {
	var results []schema.RuleResult
	denied := false
	for _, rule := range policy.Rules {
		held, err := EvaluateRule(rule, ctx)
		reason := ""
		if err != nil {
			reason = err.Error()
			held = false
		}
		failed := false
		switch rule.Effect {
		case schema.EffectDeny:
			failed = held
		case schema.EffectRequire:
			failed = !held
		case schema.EffectAllow:
			failed = false
		}
		if failed {
			denied = true
			if reason == "" {
				reason = fmt.Sprintf("rule %s: effect %s, condition held=%v", rule.RuleID, rule.Effect, held)
			}
		}
		results = append(results, schema.RuleResult{
			RuleID:   rule.RuleID,
			Passed:   !failed,
			Severity: rule.Severity,
			Effect:   rule.Effect,
			Reason:   reason,
		})
	}
	return results, denied, nil
}

// EnforceOrError evaluates policy against ctx and returns a POLICY_DENIED or
// POLICY_REQUIREMENT_FAILED error naming the first failing rule of critical
// severity, or nil if no critical rule failed. Warning and info failures
// still appear in results (and set the aggregated denied flag), but never
// raise an error: they accumulate for the caller to inspect instead.
func EnforceOrError(policy *schema.Policy, ctx map[string]interface{}) ([]schema.RuleResult, error) {
	results, denied, err := Evaluate(policy, ctx)
	if err != nil {
		return results, err
	}
	if !denied {
		return results, nil
	}
	for _, r := range results {
		if r.Passed || r.Severity != schema.SeverityCritical {
			continue
		}
		if r.Effect == schema.EffectDeny {
			return results, kernelerrors.Newf(kernelerrors.CodePolicyDenied, "rule %s denied: %s", r.RuleID, r.Reason)
		}
		return results, kernelerrors.Newf(kernelerrors.CodePolicyRequirementFailed, "rule %s requirement failed: %s", r.RuleID, r.Reason)
	}
	return results, nil
}
