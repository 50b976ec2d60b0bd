package gate

import (
	"testing"

	"github.com/clawforge/kernel/pkg/schema"
	"github.com/stretchr/testify/assert"
)

func exitCode(n int) *int { return &n }

func baseDoD(t *testing.T) *schema.DefinitionOfDone {
	return &schema.DefinitionOfDone{
		Title: "ship it",
		Items: []schema.DoDItem{
			{
				ID:                  "i1",
				Description:         "tests pass",
				VerificationMethod:  schema.VerifyCommandExitCode,
				VerificationCommand: "pnpm test",
				ExpectedExitCode:    exitCode(0),
				NotDoneConditions:   []string{"tests fail"},
			},
		},
	}
}

func baseLock(dodID string) *schema.DecisionLock {
	return &schema.DecisionLock{
		DoDID:             dodID,
		Goal:              "Ship feature X",
		NonGoals:          []string{"perf"},
		Invariants:        []string{"no plaintext passwords"},
		Constraints:       []string{},
		FailureModes:      []string{},
		RisksAndTradeoffs: []string{},
		Status:            schema.LockApproved,
	}
}

// S3: gate passes.
func TestGatePasses(t *testing.T) {
	dod := baseDoD(t)
	dod.ID = "11111111-1111-4111-8111-111111111111"
	lock := baseLock(dod.ID)

	result := Evaluate(dod, lock)
	assert.True(t, result.Passed)
}

// S4: gate fails on placeholder.
func TestGateFailsOnPlaceholder(t *testing.T) {
	dod := baseDoD(t)
	dod.ID = "11111111-1111-4111-8111-111111111111"
	lock := baseLock(dod.ID)
	lock.Goal = "TODO: define"

	result := Evaluate(dod, lock)
	assert.False(t, result.Passed)

	var failed *Check
	for i := range result.Checks {
		if result.Checks[i].ID == "lock-no-todo" {
			failed = &result.Checks[i]
		}
	}
	if assert.NotNil(t, failed) {
		assert.False(t, failed.Passed)
	}
}

// I5: all checks evaluate regardless of earlier failures.
func TestGateEnumeratesAllFailures(t *testing.T) {
	result := Evaluate(nil, nil)
	assert.False(t, result.Passed)
	assert.True(t, len(result.Checks) > 1, "expected multiple checks to run even with both inputs nil")
}
