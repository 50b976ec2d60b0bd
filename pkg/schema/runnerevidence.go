package schema

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/canonicalize"
)

// RunnerEvidence is one entry in the evidence chain: proof that a step's
// capability use actually occurred. Entries link via PrevEvidenceHash,
// forming the chain invariant checked by VerifyEvidenceChain (called from
// pkg/replay).
type RunnerEvidence struct {
	Universal
	PlanHash                string `json:"planHash"`
	StepID                  string `json:"stepId"`
	EvidenceType            string `json:"evidenceType"`
	CapabilityUsed          string `json:"capabilityUsed"`
	HumanConfirmationProof  string `json:"humanConfirmationProof,omitempty"`
	PrevEvidenceHash        *string `json:"prevEvidenceHash"`
	Hash                    string `json:"evidenceHash"`
}

// Validate performs structural checks and the per-capability human-
// confirmation refinement. Chain-order checks (monotonic timestamp,
// prevEvidenceHash continuity across the whole chain) operate over a
// sequence of RunnerEvidence and live in VerifyEvidenceChain, not here.
func (e *RunnerEvidence) Validate() error {
	if err := e.Universal.validate(); err != nil {
		return err
	}
	if err := validateSha256Hex("planHash", e.PlanHash); err != nil {
		return err
	}
	if err := nonEmptyString("stepId", e.StepID); err != nil {
		return err
	}
	if err := nonEmptyString("evidenceType", e.EvidenceType); err != nil {
		return err
	}
	if err := nonEmptyString("capabilityUsed", e.CapabilityUsed); err != nil {
		return err
	}
	if CapabilityRequiresHumanConfirmation(e.CapabilityUsed) && e.HumanConfirmationProof == "" {
		return fmt.Errorf("capability %q requires humanConfirmationProof", e.CapabilityUsed)
	}
	if e.PrevEvidenceHash != nil {
		if err := validateSha256Hex("prevEvidenceHash", *e.PrevEvidenceHash); err != nil {
			return err
		}
	}
	return e.checkSelfHash()
}

// SelfHash computes the canonical hash of the artifact with evidenceHash
// excluded. Per the Open Questions resolution (§9): prevEvidenceHash IS
// included in this hash — excluding it would let an attacker splice the
// chain without affecting any individual entry's self-hash.
func (e *RunnerEvidence) SelfHash() (string, error) {
	return canonicalize.HashExcluding(e, "evidenceHash")
}

func (e *RunnerEvidence) checkSelfHash() error {
	want, err := e.SelfHash()
	if err != nil {
		return err
	}
	if want != e.Hash {
		return fmt.Errorf("evidenceHash mismatch: computed %s, artifact declares %s", want, e.Hash)
	}
	return nil
}

// VerifyEvidenceChain checks monotonic timestamps and prevEvidenceHash
// continuity across an ordered sequence of evidence items (I2-style check
// for the evidence chain rather than the event store).
func VerifyEvidenceChain(items []*RunnerEvidence) error {
	var lastTS string
	for i, ev := range items {
		if i == 0 {
			if ev.PrevEvidenceHash != nil {
				return fmt.Errorf("evidence[0]: prevEvidenceHash must be null")
			}
		} else {
			if ev.PrevEvidenceHash == nil || *ev.PrevEvidenceHash != items[i-1].Hash {
				return fmt.Errorf("evidence[%d]: prevEvidenceHash does not equal evidence[%d].evidenceHash", i, i-1)
			}
			if ev.CreatedAt < lastTS {
				return fmt.Errorf("evidence[%d]: timestamp %s precedes previous item's %s", i, ev.CreatedAt, lastTS)
			}
		}
		lastTS = ev.CreatedAt
	}
	return nil
}
