// Package seal implements the sealed-change-package validator (C14): given
// a SealedChangePackage and the full set of artifacts it claims to depend
// on, it distinguishes four distinct failure shapes — a missing
// dependency, a stale/forged hash, a cross-artifact binding that no longer
// holds, and a structurally malformed package — rather than collapsing
// them into one opaque "invalid" verdict.
package seal

import (
	"fmt"
	"strings"

	"github.com/clawforge/kernel/pkg/kernelerrors"
	"github.com/clawforge/kernel/pkg/schema"
)

// Dependencies is the full set of artifacts a SealedChangePackage may
// reference, resolved by the caller (typically from the artifact store)
// before validation. Map-valued fields are keyed by the artifact's own
// self-hash.
type Dependencies struct {
	SessionAnchor  *schema.SessionAnchor
	DoD            *schema.DefinitionOfDone
	Lock           *schema.DecisionLock
	Plan           *schema.ExecutionPlan
	Snapshot       *schema.RepoSnapshot
	StepPackets    map[string]*schema.StepPacket
	PatchArtifacts map[string]*schema.PatchArtifact
	ReviewerReports map[string]*schema.ReviewerReport
	RunnerIdentity *schema.RunnerIdentity
	RunnerAttestation *schema.RunnerAttestation
	Policy         *schema.Policy
	PolicyEvaluation *schema.PolicyEvaluation
	ApprovalPolicy *schema.ApprovalPolicy
	ApprovalBundle *schema.ApprovalBundle
}

// Validate checks scp against deps, returning the first failure found as a
// coded *kernelerrors.Error (SEAL_INVALID, SEAL_MISSING_DEPENDENCY,
// SEAL_HASH_MISMATCH, or SEAL_BINDING_VIOLATION), or nil if the package is
// fully consistent. Validation is fail-fast: a broken dependency binding
// makes every later check meaningless.
func Validate(scp *schema.SealedChangePackage, deps Dependencies) error {
	if err := scp.Validate(); err != nil {
		if strings.Contains(err.Error(), "packageHash mismatch") {
			return kernelerrors.Newf(kernelerrors.CodeSealHashMismatch, "%v", err)
		}
		return kernelerrors.Newf(kernelerrors.CodeSealInvalid, "%v", err)
	}

	if err := requireAndCheckHash("dod", scp.DoDHash, deps.DoD); err != nil {
		return err
	}
	if err := requireAndCheckHash("lock", scp.LockHash, deps.Lock); err != nil {
		return err
	}
	if err := requireAndCheckHash("plan", scp.PlanHash, deps.Plan); err != nil {
		return err
	}
	if err := requireAndCheckHash("snapshot", scp.SnapshotHash, deps.Snapshot); err != nil {
		return err
	}
	if err := requireAndCheckHash("sessionAnchor", scp.SessionAnchorHash, deps.SessionAnchor); err != nil {
		return err
	}

	for _, h := range scp.StepPacketHashes {
		p, ok := deps.StepPackets[h]
		if !ok {
			return missingDep("stepPacket", h)
		}
		if err := checkHash("stepPacket", h, p); err != nil {
			return err
		}
	}
	for _, h := range scp.PatchArtifactHashes {
		p, ok := deps.PatchArtifacts[h]
		if !ok {
			return missingDep("patchArtifact", h)
		}
		if err := checkHash("patchArtifact", h, p); err != nil {
			return err
		}
	}
	for _, h := range scp.ReviewerReportHashes {
		r, ok := deps.ReviewerReports[h]
		if !ok {
			return missingDep("reviewerReport", h)
		}
		if err := checkHash("reviewerReport", h, r); err != nil {
			return err
		}
	}

	if scp.RunnerIdentityHash != "" {
		if err := requireAndCheckHash("runnerIdentity", scp.RunnerIdentityHash, deps.RunnerIdentity); err != nil {
			return err
		}
	}
	if scp.RunnerAttestationHash != "" {
		if err := requireAndCheckHash("runnerAttestation", scp.RunnerAttestationHash, deps.RunnerAttestation); err != nil {
			return err
		}
	}
	if scp.PolicySetHash != "" {
		if err := requireAndCheckHash("policy", scp.PolicySetHash, deps.Policy); err != nil {
			return err
		}
	}
	if scp.PolicyEvaluationHash != "" {
		if err := requireAndCheckHash("policyEvaluation", scp.PolicyEvaluationHash, deps.PolicyEvaluation); err != nil {
			return err
		}
	}
	if scp.ApprovalPolicyHash != "" {
		if err := requireAndCheckHash("approvalPolicy", scp.ApprovalPolicyHash, deps.ApprovalPolicy); err != nil {
			return err
		}
	}
	if scp.ApprovalBundleHash != "" {
		if err := requireAndCheckHash("approvalBundle", scp.ApprovalBundleHash, deps.ApprovalBundle); err != nil {
			return err
		}
	}

	return validateBindings(scp, deps)
}

type selfHasher interface {
	SelfHash() (string, error)
}

func missingDep(label, hash string) error {
	return kernelerrors.Newf(kernelerrors.CodeSealMissingDep, "%s: no artifact resolved for declared hash %s", label, hash)
}

// requireAndCheckHash fails with SEAL_MISSING_DEPENDENCY if declaredHash is
// set but artifact is nil, and with SEAL_HASH_MISMATCH if the resolved
// artifact's recomputed hash disagrees with declaredHash.
func requireAndCheckHash(label, declaredHash string, artifact selfHasher) error {
	if declaredHash == "" {
		return nil
	}
	if isNil(artifact) {
		return missingDep(label, declaredHash)
	}
	return checkHash(label, declaredHash, artifact)
}

func checkHash(label, declaredHash string, artifact selfHasher) error {
	recomputed, err := artifact.SelfHash()
	if err != nil {
		return kernelerrors.Newf(kernelerrors.CodeSealInvalid, "%s: failed to recompute hash: %v", label, err)
	}
	if recomputed != declaredHash {
		return kernelerrors.Newf(kernelerrors.CodeSealHashMismatch,
			"%s: declared hash %s does not match recomputed hash %s", label, declaredHash, recomputed)
	}
	return nil
}

// isNil reports whether a selfHasher interface value wraps a nil pointer,
// since a typed-nil *schema.X still compares non-equal to the untyped nil
// interface value.
func isNil(h selfHasher) bool {
	switch v := h.(type) {
	case *schema.DefinitionOfDone:
		return v == nil
	case *schema.DecisionLock:
		return v == nil
	case *schema.ExecutionPlan:
		return v == nil
	case *schema.RepoSnapshot:
		return v == nil
	case *schema.SessionAnchor:
		return v == nil
	case *schema.StepPacket:
		return v == nil
	case *schema.PatchArtifact:
		return v == nil
	case *schema.ReviewerReport:
		return v == nil
	case *schema.RunnerIdentity:
		return v == nil
	case *schema.RunnerAttestation:
		return v == nil
	case *schema.Policy:
		return v == nil
	case *schema.PolicyEvaluation:
		return v == nil
	case *schema.ApprovalPolicy:
		return v == nil
	case *schema.ApprovalBundle:
		return v == nil
	default:
		return h == nil
	}
}

// validateBindings checks cross-artifact id/hash references that survive
// independently of any single artifact's own self-hash: the lock binds to
// the same dod the package declares, the plan binds to the same lock, and
// every step packet and patch trace back to that plan.
func validateBindings(scp *schema.SealedChangePackage, deps Dependencies) error {
	if deps.Lock != nil && deps.DoD != nil && deps.Lock.DoDID != deps.DoD.ID {
		return bindingViolation("lock.dodId does not match the sealed package's dod")
	}
	if deps.Plan != nil && deps.Lock != nil && deps.Plan.LockID != deps.Lock.ID {
		return bindingViolation("plan.lockId does not match the sealed package's lock")
	}
	if deps.Plan != nil && deps.DoD != nil && deps.Plan.DoDID != deps.DoD.ID {
		return bindingViolation("plan.dodId does not match the sealed package's dod")
	}
	for h, p := range deps.StepPackets {
		if p.PlanHash != scp.PlanHash {
			return bindingViolation(fmt.Sprintf("stepPacket %s: planHash does not match the sealed package's plan", h))
		}
	}
	if deps.RunnerAttestation != nil && deps.Plan != nil && deps.RunnerAttestation.PlanHash != scp.PlanHash {
		return bindingViolation("runnerAttestation.planHash does not match the sealed package's plan")
	}
	if deps.ApprovalBundle != nil && deps.ApprovalPolicy != nil {
		approvalPolicyHash, err := deps.ApprovalPolicy.SelfHash()
		if err == nil && deps.ApprovalBundle.ApprovalPolicyHash != approvalPolicyHash {
			return bindingViolation("approvalBundle.approvalPolicyHash does not match the sealed package's approval policy")
		}
	}
	return nil
}

func bindingViolation(msg string) error {
	return kernelerrors.New(kernelerrors.CodeSealBindingViolation, msg)
}
