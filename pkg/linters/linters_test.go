package linters

import (
	"testing"

	"github.com/clawforge/kernel/pkg/schema"
	"github.com/stretchr/testify/assert"
)

func TestLintPlanAgainstLockSubstring(t *testing.T) {
	lock := &schema.DecisionLock{Goal: "Ship the new billing export feature safely"}
	plan := &schema.ExecutionPlan{Goal: "billing export feature"}

	report := LintPlanAgainstLock(plan, lock)
	assert.True(t, report.Clean())

	plan.Goal = "a completely different goal"
	report = LintPlanAgainstLock(plan, lock)
	assert.False(t, report.Clean())
}

func TestLintPlanReferencesResolution(t *testing.T) {
	dod := &schema.DefinitionOfDone{Items: []schema.DoDItem{{ID: "item-1"}, {ID: "item-2"}}}
	plan := &schema.ExecutionPlan{Steps: []schema.PlanStep{
		{StepID: "s1", References: []string{"item-1"}},
	}}

	report := LintPlanReferences(plan, dod)
	assert.True(t, report.Clean())

	plan.Steps = append(plan.Steps, schema.PlanStep{StepID: "s2", References: []string{"item-missing"}})
	report = LintPlanReferences(plan, dod)
	assert.False(t, report.Clean())
}

func TestLintPlanReferencesRejectsEmpty(t *testing.T) {
	dod := &schema.DefinitionOfDone{Items: []schema.DoDItem{{ID: "item-1"}}}
	plan := &schema.ExecutionPlan{Steps: []schema.PlanStep{{StepID: "s1", References: nil}}}

	report := LintPlanReferences(plan, dod)
	assert.False(t, report.Clean())
}

func TestLintForbiddenSurfaceCatchesTokens(t *testing.T) {
	report := LintForbiddenSurface(map[string]string{"notes": "run bash to fetch the page over http"})
	assert.False(t, report.Clean())

	clean := LintForbiddenSurface(map[string]string{"notes": "the deterministic replay is stable"})
	assert.True(t, clean.Clean())
}

func TestLintNoEmptyRequiredArrays(t *testing.T) {
	report := LintNoEmptyRequiredArrays(map[string][]string{"nonGoals": {"perf"}, "invariants": {}})
	assert.False(t, report.Clean())
	assert.Len(t, report.Findings, 1)
	assert.Equal(t, "no-empty-required-array", report.Findings[0].Rule)
}

func TestLintStepPacketGoalReference(t *testing.T) {
	lock := &schema.DecisionLock{Goal: "Ship the new billing export feature safely"}
	packet := &schema.StepPacket{GoalReference: "billing export feature"}

	report := LintStepPacketGoalReference(packet, lock)
	assert.True(t, report.Clean())

	packet.GoalReference = "unrelated text"
	report = LintStepPacketGoalReference(packet, lock)
	assert.False(t, report.Clean())
}

func TestLintStepPacketDoDReferences(t *testing.T) {
	dod := &schema.DefinitionOfDone{Items: []schema.DoDItem{{ID: "item-1"}}}
	packet := &schema.StepPacket{DoDItemRefs: []string{"item-1"}}

	report := LintStepPacketDoDReferences(packet, dod)
	assert.True(t, report.Clean())

	packet.DoDItemRefs = []string{"item-missing"}
	report = LintStepPacketDoDReferences(packet, dod)
	assert.False(t, report.Clean())
}
