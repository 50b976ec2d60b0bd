package policy

import (
	"testing"

	"github.com/clawforge/kernel/pkg/kernelerrors"
	"github.com/clawforge/kernel/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCtx() map[string]interface{} {
	return map[string]interface{}{
		"step": map[string]interface{}{
			"requiredCapabilities": []interface{}{"read_file", "write_file"},
			"riskScore":            float64(3),
		},
	}
}

func TestResolveDottedPath(t *testing.T) {
	v, err := Resolve(sampleCtx(), "step.riskScore")
	require.NoError(t, err)
	assert.Equal(t, float64(3), v)
}

func TestResolveArrayIndex(t *testing.T) {
	v, err := Resolve(sampleCtx(), "step.requiredCapabilities[1]")
	require.NoError(t, err)
	assert.Equal(t, "write_file", v)
}

func TestResolveMissingFieldPath(t *testing.T) {
	_, err := Resolve(sampleCtx(), "step.missing")
	require.Error(t, err)
	code, ok := kernelerrors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, kernelerrors.CodePolicyFieldPathInvalid, code)
}

func TestOperatorGreaterThan(t *testing.T) {
	held, err := applyOperator(schema.OpGreaterThan, float64(3), float64(2))
	require.NoError(t, err)
	assert.True(t, held)
}

func TestOperatorSubsetOf(t *testing.T) {
	held, err := applyOperator(schema.OpSubsetOf,
		[]interface{}{"a", "b"}, []interface{}{"a", "b", "c"})
	require.NoError(t, err)
	assert.True(t, held)

	held, err = applyOperator(schema.OpSubsetOf,
		[]interface{}{"a", "z"}, []interface{}{"a", "b", "c"})
	require.NoError(t, err)
	assert.False(t, held)
}

func TestGuardedMatchRejectsLookaround(t *testing.T) {
	_, err := GuardedMatch(`(?=foo)bar`, "foobar")
	require.Error(t, err)
	code, ok := kernelerrors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, kernelerrors.CodePolicyOperatorUnsupported, code)
}

func TestGuardedMatchRejectsOversizedPattern(t *testing.T) {
	big := make([]byte, MaxPatternLen+1)
	for i := range big {
		big[i] = 'a'
	}
	_, err := GuardedMatch(string(big), "a")
	require.Error(t, err)
}

func TestGuardedMatchBasic(t *testing.T) {
	matched, err := GuardedMatch(`^feature/[a-z-]+$`, "feature/billing-export")
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestEnforceOrErrorDenies(t *testing.T) {
	pol := &schema.Policy{
		Name: "no-network",
		Rules: []schema.PolicyRule{
			{
				RuleID:    "r1",
				Target:    "step",
				Condition: schema.PolicyCondition{Field: "step.riskScore", Operator: schema.OpGreaterThan, Value: float64(5)},
				Effect:    schema.EffectDeny,
				Severity:  schema.SeverityCritical,
			},
		},
	}
	ctx := map[string]interface{}{"step": map[string]interface{}{"riskScore": float64(9)}}

	_, err := EnforceOrError(pol, ctx)
	require.Error(t, err)
	code, ok := kernelerrors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, kernelerrors.CodePolicyDenied, code)
}

func TestEnforceOrErrorRequirementFailed(t *testing.T) {
	pol := &schema.Policy{
		Name: "must-have-tests",
		Rules: []schema.PolicyRule{
			{
				RuleID:    "r1",
				Target:    "patch",
				Condition: schema.PolicyCondition{Field: "patch.hasTests", Operator: schema.OpEquals, Value: true},
				Effect:    schema.EffectRequire,
				Severity:  schema.SeverityCritical,
			},
		},
	}
	ctx := map[string]interface{}{"patch": map[string]interface{}{"hasTests": false}}

	_, err := EnforceOrError(pol, ctx)
	require.Error(t, err)
	code, ok := kernelerrors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, kernelerrors.CodePolicyRequirementFailed, code)
}

// Warning and info failures accumulate in results but never raise an error.
func TestEnforceOrErrorWarningFailureDoesNotRaise(t *testing.T) {
	pol := &schema.Policy{
		Name: "should-have-tests",
		Rules: []schema.PolicyRule{
			{
				RuleID:    "r1",
				Target:    "patch",
				Condition: schema.PolicyCondition{Field: "patch.hasTests", Operator: schema.OpEquals, Value: true},
				Effect:    schema.EffectRequire,
				Severity:  schema.SeverityWarning,
			},
		},
	}
	ctx := map[string]interface{}{"patch": map[string]interface{}{"hasTests": false}}

	results, err := EnforceOrError(pol, ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Equal(t, schema.SeverityWarning, results[0].Severity)
}

func TestEvaluateRunsEveryRule(t *testing.T) {
	pol := &schema.Policy{
		Name: "multi",
		Rules: []schema.PolicyRule{
			{RuleID: "r1", Target: "a", Condition: schema.PolicyCondition{Field: "a.x", Operator: schema.OpEquals, Value: "1"}, Effect: schema.EffectDeny, Severity: schema.SeverityInfo},
			{RuleID: "r2", Target: "a", Condition: schema.PolicyCondition{Field: "a.y", Operator: schema.OpEquals, Value: "1"}, Effect: schema.EffectDeny, Severity: schema.SeverityInfo},
		},
	}
	ctx := map[string]interface{}{"a": map[string]interface{}{"x": "1", "y": "2"}}

	results, denied, err := Evaluate(pol, ctx)
	require.NoError(t, err)
	assert.True(t, denied)
	assert.Len(t, results, 2)
}
