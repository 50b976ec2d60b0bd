package schema

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/canonicalize"
	kcrypto "github.com/clawforge/kernel/pkg/crypto"
)

// SignatureAlgorithmRSASHA256 is the only algorithm the Kernel accepts for
// attestations and approval signatures.
const SignatureAlgorithmRSASHA256 = "RSA-SHA256"

// RunnerAttestation is the runner's signed claim that it executed a plan
// under a specific identity and evidence chain.
type RunnerAttestation struct {
	Universal
	PlanHash              string `json:"planHash"`
	LockID                string `json:"lockId"`
	IdentityHash          string `json:"identityHash"`
	EvidenceChainTailHash string `json:"evidenceChainTailHash"`
	Nonce                 string `json:"nonce"`
	Signature             string `json:"signature"`
	SignatureAlgorithm    string `json:"signatureAlgorithm"`
	Hash                  string `json:"attestationHash"`
}

func (a *RunnerAttestation) Validate() error {
	if err := a.Universal.validate(); err != nil {
		return err
	}
	if err := validateSha256Hex("planHash", a.PlanHash); err != nil {
		return err
	}
	if err := validateUUID("lockId", a.LockID); err != nil {
		return err
	}
	if err := validateSha256Hex("identityHash", a.IdentityHash); err != nil {
		return err
	}
	if err := validateSha256Hex("evidenceChainTailHash", a.EvidenceChainTailHash); err != nil {
		return err
	}
	if err := nonEmptyString("nonce", a.Nonce); err != nil {
		return err
	}
	if err := nonEmptyString("signature", a.Signature); err != nil {
		return err
	}
	if a.SignatureAlgorithm != SignatureAlgorithmRSASHA256 {
		return fmt.Errorf("signatureAlgorithm: must be %q, got %q", SignatureAlgorithmRSASHA256, a.SignatureAlgorithm)
	}
	return a.checkSelfHash()
}

// SignedPayload returns the canonical bytes the attestation's signature is
// computed over: the attestation with both attestationHash and signature
// excluded, so the signature cannot be used to forge its own coverage.
func (a *RunnerAttestation) SignedPayload() ([]byte, error) {
	return canonicalize.JCS(struct {
		Universal
		PlanHash              string `json:"planHash"`
		LockID                string `json:"lockId"`
		IdentityHash          string `json:"identityHash"`
		EvidenceChainTailHash string `json:"evidenceChainTailHash"`
		Nonce                 string `json:"nonce"`
	}{a.Universal, a.PlanHash, a.LockID, a.IdentityHash, a.EvidenceChainTailHash, a.Nonce})
}

// VerifySignature verifies the attestation's signature against the given
// RunnerIdentity's public key.
func (a *RunnerAttestation) VerifySignature(identityPublicKeyPEM string) (bool, error) {
	payload, err := a.SignedPayload()
	if err != nil {
		return false, err
	}
	return kcrypto.VerifyRsaSha256(payload, a.Signature, []byte(identityPublicKeyPEM))
}

func (a *RunnerAttestation) SelfHash() (string, error) {
	return canonicalize.HashExcluding(a, "attestationHash")
}

func (a *RunnerAttestation) checkSelfHash() error {
	want, err := a.SelfHash()
	if err != nil {
		return err
	}
	if want != a.Hash {
		return fmt.Errorf("attestationHash mismatch: computed %s, artifact declares %s", want, a.Hash)
	}
	return nil
}
