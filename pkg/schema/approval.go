package schema

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/canonicalize"
	kcrypto "github.com/clawforge/kernel/pkg/crypto"
)

// Quorum is an m-of-n approval requirement.
type Quorum struct {
	M int `json:"m"`
	N int `json:"n"`
}

func (q Quorum) validate() error {
	if q.N < 1 {
		return fmt.Errorf("quorum.n: must be >= 1")
	}
	if q.M < 1 || q.M > q.N {
		return fmt.Errorf("quorum.m: must be in [1, n]")
	}
	return nil
}

// ArtifactApprovalRule names which approvers are eligible per artifactType.
type ArtifactApprovalRule struct {
	ArtifactType      string   `json:"artifactType"`
	EligibleApprovers []string `json:"eligibleApprovers"`
}

// ApprovalPolicy declares who may approve which artifact types and under
// what quorum.
type ApprovalPolicy struct {
	Universal
	Approvers              []string               `json:"approvers"`
	Rules                  []ArtifactApprovalRule `json:"rules"`
	Quorum                 Quorum                 `json:"quorum"`
	RequireDistinctApprovers bool                 `json:"requireDistinctApprovers"`
	AllowedAlgorithms      []string               `json:"allowedAlgorithms"`
	Hash                   string                 `json:"approvalPolicyHash"`
}

func (p *ApprovalPolicy) Validate() error {
	if err := p.Universal.validate(); err != nil {
		return err
	}
	if err := requireNonEmptySlice("approvers", len(p.Approvers)); err != nil {
		return err
	}
	if hasDuplicates(p.Approvers) {
		return fmt.Errorf("approvers: must not contain duplicates")
	}
	if err := p.Quorum.validate(); err != nil {
		return err
	}
	if !p.RequireDistinctApprovers {
		return fmt.Errorf("requireDistinctApprovers: must be true")
	}
	if err := requireNonEmptySlice("allowedAlgorithms", len(p.AllowedAlgorithms)); err != nil {
		return err
	}
	for _, alg := range p.AllowedAlgorithms {
		if alg != SignatureAlgorithmRSASHA256 {
			return fmt.Errorf("allowedAlgorithms: unsupported algorithm %q", alg)
		}
	}
	return p.checkSelfHash()
}

func (p *ApprovalPolicy) SelfHash() (string, error) {
	return canonicalize.HashExcluding(p, "approvalPolicyHash")
}

func (p *ApprovalPolicy) checkSelfHash() error {
	want, err := p.SelfHash()
	if err != nil {
		return err
	}
	if want != p.Hash {
		return fmt.Errorf("approvalPolicyHash mismatch: computed %s, artifact declares %s", want, p.Hash)
	}
	return nil
}

// ApproverSignature is one approver's signature over a payload hash.
type ApproverSignature struct {
	ApproverID string `json:"approverId"`
	PayloadHash string `json:"payloadHash"`
	Signature  string `json:"signature"`
	Algorithm  string `json:"algorithm"`
	PublicKey  string `json:"publicKey"`
}

func (s ApproverSignature) validate() error {
	if err := nonEmptyString("signatures[].approverId", s.ApproverID); err != nil {
		return err
	}
	if err := validateSha256Hex("signatures[].payloadHash", s.PayloadHash); err != nil {
		return err
	}
	if s.Algorithm != SignatureAlgorithmRSASHA256 {
		return fmt.Errorf("signatures[%s].algorithm: must be %q", s.ApproverID, SignatureAlgorithmRSASHA256)
	}
	if err := validatePEM(fmt.Sprintf("signatures[%s].publicKey", s.ApproverID), s.PublicKey); err != nil {
		return err
	}
	return nonEmptyString("signatures[].signature", s.Signature)
}

// Verify checks this signature's cryptographic validity against payloadHash.
func (s ApproverSignature) Verify() (bool, error) {
	return kcrypto.VerifyRsaSha256([]byte(s.PayloadHash), s.Signature, []byte(s.PublicKey))
}

// ApprovalBundle is the set of signatures satisfying an ApprovalPolicy's
// quorum for a specific payload.
type ApprovalBundle struct {
	Universal
	ApprovalPolicyHash string              `json:"approvalPolicyHash"`
	Signatures         []ApproverSignature `json:"signatures"`
	Hash               string              `json:"approvalBundleHash"`
}

func (b *ApprovalBundle) Validate() error {
	if err := b.Universal.validate(); err != nil {
		return err
	}
	if err := validateSha256Hex("approvalPolicyHash", b.ApprovalPolicyHash); err != nil {
		return err
	}
	if err := requireNonEmptySlice("signatures", len(b.Signatures)); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(b.Signatures))
	for _, s := range b.Signatures {
		if err := s.validate(); err != nil {
			return err
		}
		if _, dup := seen[s.ApproverID]; dup {
			return fmt.Errorf("signatures: approver %q signed more than once", s.ApproverID)
		}
		seen[s.ApproverID] = struct{}{}
	}
	return b.checkSelfHash()
}

// SatisfiesQuorum reports whether the bundle's distinct, verified approvers
// meet policy's quorum against the given eligible-approver set.
func (b *ApprovalBundle) SatisfiesQuorum(policy *ApprovalPolicy) (bool, error) {
	eligible := make(map[string]struct{}, len(policy.Approvers))
	for _, a := range policy.Approvers {
		eligible[a] = struct{}{}
	}
	verified := 0
	for _, s := range b.Signatures {
		if _, ok := eligible[s.ApproverID]; !ok {
			continue
		}
		ok, err := s.Verify()
		if err != nil {
			return false, err
		}
		if ok {
			verified++
		}
	}
	return verified >= policy.Quorum.M, nil
}

func (b *ApprovalBundle) SelfHash() (string, error) {
	return canonicalize.HashExcluding(b, "approvalBundleHash")
}

func (b *ApprovalBundle) checkSelfHash() error {
	want, err := b.SelfHash()
	if err != nil {
		return err
	}
	if want != b.Hash {
		return fmt.Errorf("approvalBundleHash mismatch: computed %s, artifact declares %s", want, b.Hash)
	}
	return nil
}
