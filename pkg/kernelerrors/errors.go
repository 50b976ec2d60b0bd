// Package kernelerrors defines the Kernel's stable, discriminated error taxonomy.
//
// Every failure surfaced across package boundaries is a *Error carrying a
// stable Code. Codes, not messages, are part of the compatibility contract:
// callers match on Code, never on Message text.
package kernelerrors

import "fmt"

// Code is a stable, discriminated error code.
type Code string

// Schema/constraint codes.
const (
	CodeSchemaInvalid          Code = "SCHEMA_INVALID"
	CodeIDMismatch             Code = "ID_MISMATCH"
	CodeRunnerIdentityInvalid  Code = "RUNNER_IDENTITY_INVALID"
	CodeApprovalPolicyInvalid  Code = "APPROVAL_POLICY_INVALID"
	CodePolicyInvalid          Code = "POLICY_INVALID"
	CodePatchArtifactInvalid   Code = "PATCH_ARTIFACT_INVALID"
	CodeStepEnvelopeInvalid    Code = "STEP_ENVELOPE_INVALID"
	CodeStepPacketLintFailed   Code = "STEP_PACKET_LINT_FAILED"
	CodeExecutionPlanLintFail  Code = "EXECUTION_PLAN_LINT_FAILED"
	CodeEvidenceValidationFail Code = "EVIDENCE_VALIDATION_FAILED"
)

// Chain/binding codes.
const (
	CodeEvidenceChainInvalid Code = "EVIDENCE_CHAIN_INVALID"
	CodePlanHashMismatch     Code = "PLAN_HASH_MISMATCH"
	CodePlanHashMissing      Code = "PLAN_HASH_MISSING"
	CodePatchBaseMismatch    Code = "PATCH_BASE_MISMATCH"
	CodeSealHashMismatch     Code = "SEAL_HASH_MISMATCH"
	CodeSealMissingDep       Code = "SEAL_MISSING_DEPENDENCY"
	CodeSealBindingViolation Code = "SEAL_BINDING_VIOLATION"
	CodeSealInvalid          Code = "SEAL_INVALID"
)

// State/mode codes.
const (
	CodeSessionNotFound Code = "SESSION_NOT_FOUND"
	CodeDoDMissing      Code = "DOD_MISSING"
	CodeLockMissing     Code = "LOCK_MISSING"
	CodeLockNotApproved Code = "LOCK_NOT_APPROVED"
	CodeModeViolation   Code = "MODE_VIOLATION"
	CodeGateFailed      Code = "GATE_FAILED"
)

// Integrity codes.
const (
	CodeChainVerificationFailed   Code = "CHAIN_VERIFICATION_FAILED"
	CodeArtifactVerificationFail  Code = "ARTIFACT_VERIFICATION_FAILED"
	CodeEventIDConflict           Code = "EVENT_ID_CONFLICT"
	CodeFirstEventNotRunStarted   Code = "FIRST_EVENT_NOT_RUN_STARTED"
	CodeCryptoKeyInvalid          Code = "CRYPTO_KEY_INVALID"
)

// Policy codes.
const (
	CodePolicyDenied             Code = "POLICY_DENIED"
	CodePolicyRequirementFailed  Code = "POLICY_REQUIREMENT_FAILED"
	CodePolicyFieldPathInvalid   Code = "POLICY_FIELD_PATH_INVALID"
	CodePolicyOperatorUnsupported Code = "POLICY_OPERATOR_UNSUPPORTED"
)

// Reviewer codes.
const (
	CodeReviewerFailed    Code = "REVIEWER_FAILED"
	CodeReviewerDuplicate Code = "REVIEWER_DUPLICATE"
)

// Error is the Kernel's uniform error shape: {code, message, details}.
type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New constructs an *Error with no details.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf constructs an *Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails returns a copy of e with the given details attached.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// CodeOf returns err's Code and true when err is itself a *Error, and "" and
// false otherwise. It does not unwrap: a *Error wrapped with fmt.Errorf's %w
// yields "", false. errors.As does match a wrapped *Error:
//
//	var kerr *kernelerrors.Error
//	if errors.As(err, &kerr) && kerr.Code == kernelerrors.CodeGateFailed { ... }
func CodeOf(err error) (Code, bool) {
	var kerr *Error
	if e, ok := err.(*Error); ok {
		kerr = e
		return kerr.Code, true
	}
	return "", false
}
