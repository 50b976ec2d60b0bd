// Package linters implements the structural and textual linters (C8): pure
// checks over already-parsed artifacts and their serialized text, never
// executing anything, that catch a plan drifting from its lock, a dangling
// DoD-item reference, or a forbidden-surface token slipping into prose the
// schema validators don't otherwise scan.
package linters

import (
	"fmt"
	"strings"

	"github.com/clawforge/kernel/pkg/forbidden"
	"github.com/clawforge/kernel/pkg/kernelerrors"
	"github.com/clawforge/kernel/pkg/schema"
)

// Finding is one lint violation.
type Finding struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Report collects every finding from a lint pass; Clean reports whether none
// were found.
type Report struct {
	Findings []Finding `json:"findings"`
}

func (r *Report) add(rule, format string, args ...interface{}) {
	r.Findings = append(r.Findings, Finding{Rule: rule, Message: fmt.Sprintf(format, args...)})
}

// Clean reports whether the report carries no findings.
func (r *Report) Clean() bool { return len(r.Findings) == 0 }

// AsError returns a CodeExecutionPlanLintFail-coded error summarizing every
// finding, or nil if the report is clean.
func (r *Report) AsError() error {
	if r.Clean() {
		return nil
	}
	msgs := make([]string, len(r.Findings))
	for i, f := range r.Findings {
		msgs[i] = fmt.Sprintf("%s: %s", f.Rule, f.Message)
	}
	return kernelerrors.Newf(kernelerrors.CodeExecutionPlanLintFail, "%s", strings.Join(msgs, "; "))
}

// LintPlanAgainstLock verifies that plan.goal is a verbatim substring of the
// lock it was derived from and, when both ids are set, that plan.lockId
// matches lock.id. Step capability sets are not checked here; that check is
// made by ExecutionPlan.Validate.
func LintPlanAgainstLock(plan *schema.ExecutionPlan, lock *schema.DecisionLock) *Report {
	report := &Report{}
	if plan == nil || lock == nil {
		report.add("plan-goal-substring", "plan or lock missing")
		return report
	}
	if !strings.Contains(lock.Goal, plan.Goal) {
		report.add("plan-goal-substring", "plan.goal %q is not a verbatim substring of lock.goal %q", plan.Goal, lock.Goal)
	}
	if plan.LockID != "" && lock.ID != "" && plan.LockID != lock.ID {
		report.add("plan-lock-id-match", "plan.lockId does not match the recorded lock's id")
	}
	return report
}

// LintPlanReferences verifies that every step's references[] entries each
// name an actual DoD item id.
func LintPlanReferences(plan *schema.ExecutionPlan, dod *schema.DefinitionOfDone) *Report {
	report := &Report{}
	if plan == nil || dod == nil {
		report.add("plan-reference-resolution", "plan or dod missing")
		return report
	}
	known := make(map[string]struct{}, len(dod.Items))
	for _, item := range dod.Items {
		known[item.ID] = struct{}{}
	}
	for _, step := range plan.Steps {
		if len(step.References) == 0 {
			report.add("plan-reference-resolution", "step %s has an empty references array", step.StepID)
			continue
		}
		for _, ref := range step.References {
			if _, ok := known[ref]; !ok {
				report.add("plan-reference-resolution", "step %s references unknown DoD item %q", step.StepID, ref)
			}
		}
	}
	return report
}

// LintForbiddenSurface scans a set of named text fields for forbidden-surface
// tokens (shell, network, process-spawn, dynamic-eval, filesystem-mutation,
// placeholder), reporting the field name and category of every hit.
func LintForbiddenSurface(fields map[string]string) *Report {
	report := &Report{}
	for name, text := range fields {
		for _, v := range forbidden.Scan(text) {
			report.add("forbidden-surface", "field %q contains forbidden token %q (%s)", name, v.Token, v.Category)
		}
	}
	return report
}

// LintNoEmptyRequiredArrays rejects a required array field that is present
// but empty, the shape the schema validators treat as a hard constraint
// violation but which a caller assembling an artifact from untrusted input
// may want to catch earlier, with a full enumeration instead of fail-fast.
func LintNoEmptyRequiredArrays(fields map[string][]string) *Report {
	report := &Report{}
	for name, values := range fields {
		if len(values) == 0 {
			report.add("no-empty-required-array", "field %q must be non-empty", name)
		}
	}
	return report
}

// LintStepPacket runs the forbidden-surface scan over a StepPacket's
// free-text fields (the goal reference and excerpt bodies), the one place
// StepPacket.Validate defers to this package rather than duplicating the
// lexicon scan inline.
func LintStepPacket(packet *schema.StepPacket) *Report {
	report := &Report{}
	if packet == nil {
		report.add("step-packet-forbidden-surface", "packet missing")
		return report
	}
	fields := map[string]string{"goalReference": packet.GoalReference}
	for i, ex := range packet.Context.Excerpts {
		fields[fmt.Sprintf("context.excerpts[%d].text", i)] = ex.Text
	}
	sub := LintForbiddenSurface(fields)
	report.Findings = append(report.Findings, sub.Findings...)
	return report
}

// LintStepPacketGoalReference verifies that a StepPacket's goalReference is
// a verbatim substring of the lock goal it traces back to.
func LintStepPacketGoalReference(packet *schema.StepPacket, lock *schema.DecisionLock) *Report {
	report := &Report{}
	if packet == nil || lock == nil {
		report.add("packet-goal-substring", "packet or lock missing")
		return report
	}
	if !strings.Contains(lock.Goal, packet.GoalReference) {
		report.add("packet-goal-substring", "packet.goalReference %q is not a verbatim substring of lock.goal %q", packet.GoalReference, lock.Goal)
	}
	return report
}

// LintStepPacketDoDReferences verifies every dodItemRefs entry names an
// actual DoD item id.
func LintStepPacketDoDReferences(packet *schema.StepPacket, dod *schema.DefinitionOfDone) *Report {
	report := &Report{}
	if packet == nil || dod == nil {
		report.add("packet-reference-resolution", "packet or dod missing")
		return report
	}
	known := make(map[string]struct{}, len(dod.Items))
	for _, item := range dod.Items {
		known[item.ID] = struct{}{}
	}
	for _, ref := range packet.DoDItemRefs {
		if _, ok := known[ref]; !ok {
			report.add("packet-reference-resolution", "dodItemRefs references unknown DoD item %q", ref)
		}
	}
	return report
}
