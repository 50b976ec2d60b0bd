package schema

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/canonicalize"
)

// ReviewerRole is one of the fixed reviewer pipeline roles.
type ReviewerRole string

const (
	RoleStatic     ReviewerRole = "static"
	RoleSecurity   ReviewerRole = "security"
	RoleQA         ReviewerRole = "qa"
	RoleE2E        ReviewerRole = "e2e"
	RoleAutomation ReviewerRole = "automation"
)

// ReviewerViolation names one rule that failed within a reviewer's pass.
type ReviewerViolation struct {
	RuleID  string `json:"ruleId"`
	Message string `json:"message"`
}

// ReviewerReport is one reviewer role's verdict on a step's patch.
type ReviewerReport struct {
	Universal
	StepID       string              `json:"stepId"`
	ReviewerRole ReviewerRole        `json:"reviewerRole"`
	Passed       bool                `json:"passed"`
	Violations   []ReviewerViolation `json:"violations"`
	Hash         string              `json:"reviewerReportHash"`
}

func (r *ReviewerReport) Validate() error {
	if err := r.Universal.validate(); err != nil {
		return err
	}
	if err := nonEmptyString("stepId", r.StepID); err != nil {
		return err
	}
	switch r.ReviewerRole {
	case RoleStatic, RoleSecurity, RoleQA, RoleE2E, RoleAutomation:
	default:
		return fmt.Errorf("reviewerRole: unknown role %q", r.ReviewerRole)
	}
	if r.Passed && len(r.Violations) > 0 {
		return fmt.Errorf("passed=true is inconsistent with a non-empty violations list")
	}
	if !r.Passed && len(r.Violations) == 0 {
		return fmt.Errorf("passed=false requires at least one violation to be reported")
	}
	return r.checkSelfHash()
}

func (r *ReviewerReport) SelfHash() (string, error) {
	return canonicalize.HashExcluding(r, "reviewerReportHash")
}

func (r *ReviewerReport) checkSelfHash() error {
	want, err := r.SelfHash()
	if err != nil {
		return err
	}
	if want != r.Hash {
		return fmt.Errorf("reviewerReportHash mismatch: computed %s, artifact declares %s", want, r.Hash)
	}
	return nil
}
