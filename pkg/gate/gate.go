// Package gate implements the execution gate (C7): the pure predicate that
// decides whether a session may proceed from "locked" to "eligible".
package gate

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/forbidden"
	"github.com/clawforge/kernel/pkg/schema"
)

// Check is one named, independently evaluated gate condition.
type Check struct {
	ID            string `json:"id"`
	Passed        bool   `json:"passed"`
	FailureReason string `json:"failureReason,omitempty"`
}

// Result is the gate's verdict: the conjunction of every check, alongside
// every individual check's outcome (I5: deterministic, enumerates all
// failing checks).
type Result struct {
	Passed bool    `json:"passed"`
	Checks []Check `json:"checks"`
}

// Evaluate runs every required check against dod and lock regardless of
// whether an earlier check failed, then conjoins the results.
func Evaluate(dod *schema.DefinitionOfDone, lock *schema.DecisionLock) Result {
	var checks []Check

	checks = append(checks, checkDoDExists(dod))
	checks = append(checks, checkDoDHasItems(dod))
	checks = append(checks, checkDoDItemsReverifiable(dod))
	checks = append(checks, checkLockExists(lock))
	checks = append(checks, checkLockApproved(lock))
	checks = append(checks, checkLockDoDMatches(lock, dod))
	checks = append(checks, checkGoalNonEmpty(lock))
	checks = append(checks, checkNonGoalsNonEmpty(lock))
	checks = append(checks, checkInvariantsNonEmpty(lock))
	checks = append(checks, checkNoPlaceholders(dod, lock))

	passed := true
	for _, c := range checks {
		if !c.Passed {
			passed = false
		}
	}
	return Result{Passed: passed, Checks: checks}
}

func ok(id string) Check  { return Check{ID: id, Passed: true} }
func fail(id, reason string) Check {
	return Check{ID: id, Passed: false, FailureReason: reason}
}

func checkDoDExists(dod *schema.DefinitionOfDone) Check {
	if dod == nil {
		return fail("dod-exists", "no DefinitionOfDone has been recorded")
	}
	return ok("dod-exists")
}

func checkDoDHasItems(dod *schema.DefinitionOfDone) Check {
	if dod == nil || len(dod.Items) == 0 {
		return fail("dod-has-items", "DoD must have at least one item")
	}
	return ok("dod-has-items")
}

func checkDoDItemsReverifiable(dod *schema.DefinitionOfDone) Check {
	if dod == nil {
		return fail("dod-items-reverifiable", "no DoD to check")
	}
	for _, item := range dod.Items {
		if err := item.Reverifiable(); err != nil {
			return fail("dod-items-reverifiable", err.Error())
		}
	}
	return ok("dod-items-reverifiable")
}

func checkLockExists(lock *schema.DecisionLock) Check {
	if lock == nil {
		return fail("lock-exists", "no DecisionLock has been recorded")
	}
	return ok("lock-exists")
}

func checkLockApproved(lock *schema.DecisionLock) Check {
	if lock == nil || lock.Status != schema.LockApproved {
		return fail("lock-approved", "DecisionLock.status must be 'approved'")
	}
	return ok("lock-approved")
}

func checkLockDoDMatches(lock *schema.DecisionLock, dod *schema.DefinitionOfDone) Check {
	if lock == nil || dod == nil {
		return fail("lock-dod-match", "lock or dod missing")
	}
	if lock.DoDID != dod.ID {
		return fail("lock-dod-match", "DecisionLock.dodId does not match the recorded DoD's id")
	}
	return ok("lock-dod-match")
}

func checkGoalNonEmpty(lock *schema.DecisionLock) Check {
	if lock == nil || lock.Goal == "" {
		return fail("lock-goal-present", "goal must be non-empty")
	}
	return ok("lock-goal-present")
}

func checkNonGoalsNonEmpty(lock *schema.DecisionLock) Check {
	if lock == nil || len(lock.NonGoals) == 0 {
		return fail("lock-nongoals-present", "nonGoals must be non-empty")
	}
	return ok("lock-nongoals-present")
}

func checkInvariantsNonEmpty(lock *schema.DecisionLock) Check {
	if lock == nil || len(lock.Invariants) == 0 {
		return fail("lock-invariants-present", "invariants must be non-empty")
	}
	return ok("lock-invariants-present")
}

// checkNoPlaceholders is S4's named check (lock-no-todo): neither the DoD
// nor the lock may contain a placeholder token anywhere in their text
// fields.
func checkNoPlaceholders(dod *schema.DefinitionOfDone, lock *schema.DecisionLock) Check {
	if lock != nil {
		if forbidden.ContainsPlaceholder(lock.Goal) {
			return fail("lock-no-todo", "goal contains a placeholder token")
		}
		for _, group := range [][]string{lock.NonGoals, lock.Invariants, lock.Constraints, lock.FailureModes, lock.RisksAndTradeoffs} {
			for _, s := range group {
				if forbidden.ContainsPlaceholder(s) {
					return fail("lock-no-todo", "lock field contains a placeholder token")
				}
			}
		}
	}
	if dod != nil {
		if forbidden.ContainsPlaceholder(dod.Title) {
			return fail("lock-no-todo", "DoD title contains a placeholder token")
		}
		for _, item := range dod.Items {
			if forbidden.ContainsPlaceholder(item.Description) {
				return fail("lock-no-todo", "DoD item description contains a placeholder token")
			}
		}
	}
	return ok("lock-no-todo")
}
