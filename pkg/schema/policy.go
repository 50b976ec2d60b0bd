package schema

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/canonicalize"
)

// PolicyOperator enumerates the operators a policy condition may use.
type PolicyOperator string

const (
	OpEquals      PolicyOperator = "equals"
	OpNotEquals   PolicyOperator = "not_equals"
	OpIn          PolicyOperator = "in"
	OpNotIn       PolicyOperator = "not_in"
	OpSubsetOf    PolicyOperator = "subset_of"
	OpSupersetOf  PolicyOperator = "superset_of"
	OpGreaterThan PolicyOperator = "greater_than"
	OpLessThan    PolicyOperator = "less_than"
	OpExists      PolicyOperator = "exists"
	OpMatchesRegex PolicyOperator = "matches_regex"
)

// PolicyEffect enumerates what a rule does when its condition holds.
type PolicyEffect string

const (
	EffectAllow   PolicyEffect = "allow"
	EffectDeny    PolicyEffect = "deny"
	EffectRequire PolicyEffect = "require"
)

// PolicySeverity enumerates how seriously a rule's failure is treated.
type PolicySeverity string

const (
	SeverityInfo     PolicySeverity = "info"
	SeverityWarning  PolicySeverity = "warning"
	SeverityCritical PolicySeverity = "critical"
)

// PolicyCondition is the field-path/operator/value triple a rule tests.
type PolicyCondition struct {
	Field    string         `json:"field"`
	Operator PolicyOperator `json:"operator"`
	Value    interface{}    `json:"value"`
}

// PolicyRule is one declarative, non-executable rule.
type PolicyRule struct {
	RuleID    string          `json:"ruleId"`
	Target    string          `json:"target"`
	Condition PolicyCondition `json:"condition"`
	Effect    PolicyEffect    `json:"effect"`
	Severity  PolicySeverity  `json:"severity"`
}

func (r PolicyRule) validate() error {
	if err := nonEmptyString("rules[].ruleId", r.RuleID); err != nil {
		return err
	}
	if err := nonEmptyString("rules[].target", r.Target); err != nil {
		return err
	}
	if err := nonEmptyString("rules[].condition.field", r.Condition.Field); err != nil {
		return err
	}
	switch r.Condition.Operator {
	case OpEquals, OpNotEquals, OpIn, OpNotIn, OpSubsetOf, OpSupersetOf,
		OpGreaterThan, OpLessThan, OpExists, OpMatchesRegex:
	default:
		return fmt.Errorf("rules[%s]: unknown operator %q", r.RuleID, r.Condition.Operator)
	}
	switch r.Effect {
	case EffectAllow, EffectDeny, EffectRequire:
	default:
		return fmt.Errorf("rules[%s]: unknown effect %q", r.RuleID, r.Effect)
	}
	switch r.Severity {
	case SeverityInfo, SeverityWarning, SeverityCritical:
	default:
		return fmt.Errorf("rules[%s]: unknown severity %q", r.RuleID, r.Severity)
	}
	return nil
}

// Policy is a named set of declarative rules.
type Policy struct {
	Universal
	Name  string       `json:"name"`
	Rules []PolicyRule `json:"rules"`
	Hash  string       `json:"policyHash"`
}

func (p *Policy) Validate() error {
	if err := p.Universal.validate(); err != nil {
		return err
	}
	if err := nonEmptyString("name", p.Name); err != nil {
		return err
	}
	if err := requireNonEmptySlice("rules", len(p.Rules)); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(p.Rules))
	for _, r := range p.Rules {
		if _, dup := seen[r.RuleID]; dup {
			return fmt.Errorf("rules: duplicate ruleId %q", r.RuleID)
		}
		seen[r.RuleID] = struct{}{}
		if err := r.validate(); err != nil {
			return err
		}
	}
	return p.checkSelfHash()
}

func (p *Policy) SelfHash() (string, error) {
	return canonicalize.HashExcluding(p, "policyHash")
}

func (p *Policy) checkSelfHash() error {
	want, err := p.SelfHash()
	if err != nil {
		return err
	}
	if want != p.Hash {
		return fmt.Errorf("policyHash mismatch: computed %s, artifact declares %s", want, p.Hash)
	}
	return nil
}

// RuleResult is one rule's evaluation outcome.
type RuleResult struct {
	RuleID   string         `json:"ruleId"`
	Passed   bool           `json:"passed"`
	Severity PolicySeverity `json:"severity"`
	Effect   PolicyEffect   `json:"effect"`
	Reason   string         `json:"reason,omitempty"`
}

// PolicyEvaluation is the recorded, aggregated result of evaluating a set of
// policies against a context.
type PolicyEvaluation struct {
	Universal
	PolicySetHash string       `json:"policySetHash"`
	ContextHash   string       `json:"contextHash"`
	Results       []RuleResult `json:"results"`
	Denied        bool         `json:"denied"`
	Hash          string       `json:"policyEvaluationHash"`
}

func (e *PolicyEvaluation) Validate() error {
	if err := e.Universal.validate(); err != nil {
		return err
	}
	if err := validateSha256Hex("policySetHash", e.PolicySetHash); err != nil {
		return err
	}
	if err := validateSha256Hex("contextHash", e.ContextHash); err != nil {
		return err
	}
	return e.checkSelfHash()
}

func (e *PolicyEvaluation) SelfHash() (string, error) {
	return canonicalize.HashExcluding(e, "policyEvaluationHash")
}

func (e *PolicyEvaluation) checkSelfHash() error {
	want, err := e.SelfHash()
	if err != nil {
		return err
	}
	if want != e.Hash {
		return fmt.Errorf("policyEvaluationHash mismatch: computed %s, artifact declares %s", want, e.Hash)
	}
	return nil
}
