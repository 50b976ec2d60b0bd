package schema

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/canonicalize"
	"github.com/clawforge/kernel/pkg/forbidden"
)

// LockStatus enumerates a DecisionLock's approval state.
type LockStatus string

const (
	LockDraft    LockStatus = "draft"
	LockApproved LockStatus = "approved"
	LockRejected LockStatus = "rejected"
)

// DecisionLock is the frozen decision record a session executes against:
// goal, boundaries, invariants, and the risk assessment behind them.
type DecisionLock struct {
	Universal
	DoDID             string     `json:"dodId"`
	Goal              string     `json:"goal"`
	NonGoals          []string   `json:"nonGoals"`
	Interfaces        []string   `json:"interfaces"`
	Invariants        []string   `json:"invariants"`
	Constraints       []string   `json:"constraints"`
	FailureModes      []string   `json:"failureModes"`
	RisksAndTradeoffs []string   `json:"risksAndTradeoffs"`
	Status            LockStatus `json:"status"`
	PlanHash          string     `json:"planHash,omitempty"`
	Hash              string     `json:"lockHash"`
}

// Validate performs structural checks, cross-field refinements, and the
// self-hash refinement. Binding DoDID to a persisted DoD whose hash matches
// is the hash-binding engine's (C6) job, not this method's.
func (l *DecisionLock) Validate() error {
	if err := l.Universal.validate(); err != nil {
		return err
	}
	if err := validateUUID("dodId", l.DoDID); err != nil {
		return err
	}
	if err := nonEmptyString("goal", l.Goal); err != nil {
		return err
	}
	if err := requireNonEmptySlice("nonGoals", len(l.NonGoals)); err != nil {
		return err
	}
	if err := requireNonEmptySlice("invariants", len(l.Invariants)); err != nil {
		return err
	}
	switch l.Status {
	case LockDraft, LockApproved, LockRejected:
	default:
		return fmt.Errorf("status: must be draft, approved, or rejected, got %q", l.Status)
	}
	if l.PlanHash != "" {
		if err := validateSha256Hex("planHash", l.PlanHash); err != nil {
			return err
		}
	}
	if forbidden.ContainsPlaceholder(l.Goal) {
		return fmt.Errorf("goal: contains a placeholder token")
	}
	for _, field := range [][]string{l.NonGoals, l.Invariants, l.Constraints, l.FailureModes, l.RisksAndTradeoffs} {
		for _, s := range field {
			if forbidden.ContainsPlaceholder(s) {
				return fmt.Errorf("decision lock: placeholder token present")
			}
		}
	}
	return l.checkSelfHash()
}

// SelfHash computes the canonical hash of the artifact with lockHash excluded.
func (l *DecisionLock) SelfHash() (string, error) {
	return canonicalize.HashExcluding(l, "lockHash")
}

func (l *DecisionLock) checkSelfHash() error {
	want, err := l.SelfHash()
	if err != nil {
		return err
	}
	if want != l.Hash {
		return fmt.Errorf("lockHash mismatch: computed %s, artifact declares %s", want, l.Hash)
	}
	return nil
}
