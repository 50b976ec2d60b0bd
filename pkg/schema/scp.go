package schema

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/canonicalize"
)

// SealedChangePackage is the session's terminal artifact: every hash
// produced during the session, with order-independent array fields sorted
// before hashing so packageHash is invariant under their reordering (I4).
type SealedChangePackage struct {
	Universal
	SessionAnchorHash       string   `json:"sessionAnchorHash"`
	DoDHash                 string   `json:"dodHash"`
	LockHash                string   `json:"lockHash"`
	PlanHash                string   `json:"planHash"`
	SnapshotHash            string   `json:"snapshotHash"`
	StepPacketHashes        []string `json:"stepPacketHashes"`
	PatchArtifactHashes     []string `json:"patchArtifactHashes"`
	ReviewerReportHashes    []string `json:"reviewerReportHashes"`
	EvidenceChainHashes     []string `json:"evidenceChainHashes"`
	RunnerIdentityHash      string   `json:"runnerIdentityHash,omitempty"`
	RunnerAttestationHash   string   `json:"runnerAttestationHash,omitempty"`
	PolicySetHash           string   `json:"policySetHash,omitempty"`
	PolicyEvaluationHash    string   `json:"policyEvaluationHash,omitempty"`
	ApprovalPolicyHash      string   `json:"approvalPolicyHash,omitempty"`
	ApprovalBundleHash      string   `json:"approvalBundleHash,omitempty"`
	SealedBy                Actor    `json:"sealedBy"`
	Hash                    string   `json:"packageHash"`
}

// normalize returns a copy of p with every order-independent array field
// sorted, applied before canonicalization as required by §4.1's "normalized
// fields are normalized before canonicalization" rule.
func (p SealedChangePackage) normalize() SealedChangePackage {
	cp := p
	cp.StepPacketHashes = canonicalize.SortStrings(p.StepPacketHashes)
	cp.PatchArtifactHashes = canonicalize.SortStrings(p.PatchArtifactHashes)
	cp.ReviewerReportHashes = canonicalize.SortStrings(p.ReviewerReportHashes)
	cp.EvidenceChainHashes = canonicalize.SortStrings(p.EvidenceChainHashes)
	return cp
}

func (p *SealedChangePackage) Validate() error {
	if err := p.Universal.validate(); err != nil {
		return err
	}
	if err := p.SealedBy.validate("sealedBy"); err != nil {
		return err
	}
	for field, h := range map[string]string{
		"sessionAnchorHash": p.SessionAnchorHash,
		"dodHash":           p.DoDHash,
		"lockHash":          p.LockHash,
		"planHash":          p.PlanHash,
		"snapshotHash":      p.SnapshotHash,
	} {
		if err := validateSha256Hex(field, h); err != nil {
			return err
		}
	}
	for _, arr := range [][]string{p.StepPacketHashes, p.PatchArtifactHashes, p.ReviewerReportHashes, p.EvidenceChainHashes} {
		for _, h := range arr {
			if err := validateSha256Hex("hash array entry", h); err != nil {
				return err
			}
		}
	}
	return p.checkSelfHash()
}

// SelfHash computes packageHash over the normalized (sorted-arrays) form of
// the package with packageHash itself excluded.
func (p *SealedChangePackage) SelfHash() (string, error) {
	normalized := p.normalize()
	return canonicalize.HashExcluding(normalized, "packageHash")
}

func (p *SealedChangePackage) checkSelfHash() error {
	want, err := p.SelfHash()
	if err != nil {
		return err
	}
	if want != p.Hash {
		return fmt.Errorf("packageHash mismatch: computed %s, artifact declares %s", want, p.Hash)
	}
	return nil
}
