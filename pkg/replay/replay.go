// Package replay implements the deterministic replay verifier (C12): given
// every artifact a sealed session produced, it re-derives each self-hash,
// re-checks every cross-artifact binding, re-evaluates any recorded policy
// against its recorded context, and re-verifies the runner's attestation
// signature — never trusting a stored hash or verdict, only recomputing it.
package replay

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/binding"
	"github.com/clawforge/kernel/pkg/policy"
	"github.com/clawforge/kernel/pkg/schema"
)

// Bundle carries every artifact and ancillary input a sealed session
// produced, the full input to a replay pass.
type Bundle struct {
	DoD                *schema.DefinitionOfDone
	Lock               *schema.DecisionLock
	Plan               *schema.ExecutionPlan
	Snapshot           *schema.RepoSnapshot
	StepPackets        []*schema.StepPacket
	PatchArtifacts     []*schema.PatchArtifact
	ReviewerReports    []*schema.ReviewerReport
	RunnerEvidence     []schema.RunnerEvidence
	RunnerIdentity     *schema.RunnerIdentity
	RunnerAttestation  *schema.RunnerAttestation
	Policy             *schema.Policy
	PolicyEvaluation   *schema.PolicyEvaluation
	PolicyContext      map[string]interface{}
	ApprovalPolicy     *schema.ApprovalPolicy
	ApprovalBundle     *schema.ApprovalBundle
	SCP                *schema.SealedChangePackage
}

// Result is the replay pass's verdict.
type Result struct {
	DeterministicReplayPassed bool
	Mismatches                []string
}

func (r *Result) fail(format string, args ...interface{}) {
	r.DeterministicReplayPassed = false
	r.Mismatches = append(r.Mismatches, fmt.Sprintf(format, args...))
}

// ReplaySession runs every replay check against bundle, never short
// circuiting: every mismatch found is reported, mirroring the execution
// gate's "enumerate, don't fail-fast" posture.
func ReplaySession(bundle Bundle) Result {
	result := Result{DeterministicReplayPassed: true}

	replaySelfHashes(&result, bundle)
	replayBindings(&result, bundle)
	replayEvidenceChain(&result, bundle)
	replayPolicy(&result, bundle)
	replayAttestation(&result, bundle)
	replaySeal(&result, bundle)

	return result
}

func replayEvidenceChain(result *Result, b Bundle) {
	if len(b.RunnerEvidence) == 0 {
		return
	}
	ptrs := make([]*schema.RunnerEvidence, len(b.RunnerEvidence))
	for i := range b.RunnerEvidence {
		ptrs[i] = &b.RunnerEvidence[i]
	}
	if err := schema.VerifyEvidenceChain(ptrs); err != nil {
		result.fail("evidence chain: %v", err)
	}
}

type selfHasher interface {
	SelfHash() (string, error)
}

func checkSelfHash(result *Result, label string, declared string, artifact selfHasher) {
	recomputed, err := artifact.SelfHash()
	if err != nil {
		result.fail("%s: failed to recompute self-hash: %v", label, err)
		return
	}
	if recomputed != declared {
		result.fail("%s: declared hash %s does not match recomputed hash %s", label, declared, recomputed)
	}
}

func replaySelfHashes(result *Result, b Bundle) {
	if b.DoD != nil {
		checkSelfHash(result, "dod", b.DoD.Hash, b.DoD)
	}
	if b.Lock != nil {
		checkSelfHash(result, "lock", b.Lock.Hash, b.Lock)
	}
	if b.Plan != nil {
		checkSelfHash(result, "plan", b.Plan.Hash, b.Plan)
	}
	if b.Snapshot != nil {
		checkSelfHash(result, "snapshot", b.Snapshot.Hash, b.Snapshot)
	}
	for i, p := range b.StepPackets {
		checkSelfHash(result, fmt.Sprintf("stepPacket[%d]", i), p.Hash, p)
	}
	for i, p := range b.PatchArtifacts {
		checkSelfHash(result, fmt.Sprintf("patchArtifact[%d]", i), p.Hash, p)
	}
	for i, r := range b.ReviewerReports {
		checkSelfHash(result, fmt.Sprintf("reviewerReport[%d]", i), r.Hash, r)
	}
	for i := range b.RunnerEvidence {
		e := b.RunnerEvidence[i]
		checkSelfHash(result, fmt.Sprintf("runnerEvidence[%d]", i), e.Hash, &e)
	}
	if b.RunnerIdentity != nil {
		checkSelfHash(result, "runnerIdentity", b.RunnerIdentity.Hash, b.RunnerIdentity)
	}
	if b.RunnerAttestation != nil {
		checkSelfHash(result, "runnerAttestation", b.RunnerAttestation.Hash, b.RunnerAttestation)
	}
	if b.Policy != nil {
		checkSelfHash(result, "policy", b.Policy.Hash, b.Policy)
	}
	if b.PolicyEvaluation != nil {
		checkSelfHash(result, "policyEvaluation", b.PolicyEvaluation.Hash, b.PolicyEvaluation)
	}
	if b.ApprovalPolicy != nil {
		checkSelfHash(result, "approvalPolicy", b.ApprovalPolicy.Hash, b.ApprovalPolicy)
	}
	if b.ApprovalBundle != nil {
		checkSelfHash(result, "approvalBundle", b.ApprovalBundle.Hash, b.ApprovalBundle)
	}
	if b.SCP != nil {
		checkSelfHash(result, "sealedChangePackage", b.SCP.Hash, b.SCP)
	}
}

func replayBindings(result *Result, b Bundle) {
	if b.Lock == nil || b.DoD == nil {
		return
	}
	if b.Lock.DoDID != b.DoD.ID {
		result.fail("lock->dod binding: lock.dodId does not match the recorded dod's id")
		return
	}
	dodHash, err := b.DoD.SelfHash()
	if err != nil {
		result.fail("lock->dod binding: %v", err)
		return
	}
	refs := []binding.Reference{{Field: "lock.dodId", DeclaredHash: dodHash}}
	resolver := func(hash string) (binding.SelfHasher, error) {
		if hash == dodHash {
			return b.DoD, nil
		}
		return nil, fmt.Errorf("not found")
	}
	if err := binding.VerifyReferences(refs, resolver); err != nil {
		result.fail("lock->dod binding: %v", err)
	}

	if b.Plan != nil && b.Lock.ID != b.Plan.LockID {
		result.fail("plan->lock binding: plan.lockId does not match lock.id")
	}
}

func replayPolicy(result *Result, b Bundle) {
	if b.Policy == nil || b.PolicyEvaluation == nil {
		return
	}
	results, denied, err := policy.Evaluate(b.Policy, b.PolicyContext)
	if err != nil {
		result.fail("policy replay: %v", err)
		return
	}
	if denied != b.PolicyEvaluation.Denied {
		result.fail("policy replay: recorded denied=%v, replay computed denied=%v", b.PolicyEvaluation.Denied, denied)
	}
	if len(results) != len(b.PolicyEvaluation.Results) {
		result.fail("policy replay: recorded %d rule results, replay computed %d", len(b.PolicyEvaluation.Results), len(results))
	}
}

func replayAttestation(result *Result, b Bundle) {
	if b.RunnerAttestation == nil || b.RunnerIdentity == nil {
		return
	}
	ok, err := b.RunnerAttestation.VerifySignature(b.RunnerIdentity.PublicKey)
	if err != nil {
		result.fail("attestation signature: %v", err)
		return
	}
	if !ok {
		result.fail("attestation signature: does not verify against the recorded runner identity's public key")
	}
}

func replaySeal(result *Result, b Bundle) {
	if b.SCP == nil {
		return
	}
	if b.Lock != nil {
		lockHash, err := b.Lock.SelfHash()
		if err == nil && lockHash != b.SCP.LockHash {
			result.fail("seal->lock binding: scp.lockHash does not match recomputed lock hash")
		}
	}
	if b.DoD != nil {
		dodHash, err := b.DoD.SelfHash()
		if err == nil && dodHash != b.SCP.DoDHash {
			result.fail("seal->dod binding: scp.dodHash does not match recomputed dod hash")
		}
	}
	if b.Plan != nil {
		planHash, err := b.Plan.SelfHash()
		if err == nil && planHash != b.SCP.PlanHash {
			result.fail("seal->plan binding: scp.planHash does not match recomputed plan hash")
		}
	}
}
