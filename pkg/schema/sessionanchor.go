package schema

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/canonicalize"
)

// SessionAnchor gathers the terminal hashes of a completed session into one
// self-hashing record, serving as the SCP's single point of truth for
// "what happened in this session."
type SessionAnchor struct {
	Universal
	SessionID            string  `json:"sessionId"`
	PlanHash             string  `json:"planHash"`
	LockID               string  `json:"lockId"`
	FinalEvidenceHash    string  `json:"finalEvidenceHash"`
	FinalAttestationHash *string `json:"finalAttestationHash,omitempty"`
	RunnerIdentityHash   *string `json:"runnerIdentityHash,omitempty"`
	PolicySetHash        *string `json:"policySetHash,omitempty"`
	PolicyEvaluationHash *string `json:"policyEvaluationHash,omitempty"`
	Hash                 string  `json:"sessionAnchorHash"`
}

func (a *SessionAnchor) Validate() error {
	if err := a.Universal.validate(); err != nil {
		return err
	}
	if err := validateUUID("sessionId", a.SessionID); err != nil {
		return err
	}
	if err := validateSha256Hex("planHash", a.PlanHash); err != nil {
		return err
	}
	if err := validateUUID("lockId", a.LockID); err != nil {
		return err
	}
	if err := validateSha256Hex("finalEvidenceHash", a.FinalEvidenceHash); err != nil {
		return err
	}
	for name, h := range map[string]*string{
		"finalAttestationHash": a.FinalAttestationHash,
		"runnerIdentityHash":   a.RunnerIdentityHash,
		"policySetHash":        a.PolicySetHash,
		"policyEvaluationHash": a.PolicyEvaluationHash,
	} {
		if h != nil {
			if err := validateSha256Hex(name, *h); err != nil {
				return err
			}
		}
	}
	return a.checkSelfHash()
}

func (a *SessionAnchor) SelfHash() (string, error) {
	return canonicalize.HashExcluding(a, "sessionAnchorHash")
}

func (a *SessionAnchor) checkSelfHash() error {
	want, err := a.SelfHash()
	if err != nil {
		return err
	}
	if want != a.Hash {
		return fmt.Errorf("sessionAnchorHash mismatch: computed %s, artifact declares %s", want, a.Hash)
	}
	return nil
}
