// Package reviewer implements the sequential reviewer pipeline (C9): a
// fixed, ordered set of roles each run a fixed rule list against a step's
// patch, and the pipeline stops at the first role that fails (fail-closed,
// short-circuit) rather than running every remaining role.
package reviewer

import (
	"fmt"
	"strings"

	"github.com/clawforge/kernel/pkg/forbidden"
	"github.com/clawforge/kernel/pkg/kernelerrors"
	"github.com/clawforge/kernel/pkg/schema"
)

// Rule is one named check a role applies to a patch. dod is the session's
// Definition of Done, passed so a rule can condition its check on what the
// session actually requires; it is nil when no DoD is available to the
// caller.
type Rule struct {
	ID    string
	Check func(*schema.PatchArtifact, *schema.DefinitionOfDone) []schema.ReviewerViolation
}

func withoutDoD(check func(*schema.PatchArtifact) []schema.ReviewerViolation) func(*schema.PatchArtifact, *schema.DefinitionOfDone) []schema.ReviewerViolation {
	return func(patch *schema.PatchArtifact, _ *schema.DefinitionOfDone) []schema.ReviewerViolation {
		return check(patch)
	}
}

// roleRules holds the fixed, ordered rule list for each reviewer role.
var roleRules = map[schema.ReviewerRole][]Rule{
	schema.RoleStatic: {
		{ID: "static-forbidden-surface", Check: withoutDoD(checkForbiddenSurface)},
		{ID: "static-nonempty-diff", Check: withoutDoD(checkNonEmptyDiffs)},
	},
	schema.RoleSecurity: {
		{ID: "security-forbidden-surface", Check: withoutDoD(checkForbiddenSurface)},
		{ID: "security-no-secret-patterns", Check: withoutDoD(checkNoSecretPatterns)},
	},
	schema.RoleQA: {
		{ID: "qa-has-test-changes", Check: checkHasTestChanges},
	},
	schema.RoleE2E: {
		{ID: "e2e-no-delete-without-replacement", Check: withoutDoD(checkNoOrphanDeletes)},
	},
	schema.RoleAutomation: {
		{ID: "automation-declared-imports-present", Check: withoutDoD(checkDeclaredImportsPresent)},
	},
}

// Sequence is the reviewer pipeline's fixed role ordering. A StepPacket's
// reviewerSequence must be this list or a prefix of it truncated for the
// step's declared scope; the pipeline itself always runs roles in this
// relative order.
var Sequence = []schema.ReviewerRole{
	schema.RoleStatic,
	schema.RoleSecurity,
	schema.RoleQA,
	schema.RoleE2E,
	schema.RoleAutomation,
}

// Run executes roles, in Sequence order restricted to the roles named in
// requestedRoles, against patch. dod is the session's Definition of Done,
// consulted by rules that condition on it (e.g. whether a test file must be
// touched); it may be nil. Run stops at the first role whose report fails
// (fail-closed): that role's report is the last entry returned, and the
// error is non-nil. On success every requested role's report is returned
// with a nil error.
func Run(requestedRoles []schema.ReviewerRole, patch *schema.PatchArtifact, dod *schema.DefinitionOfDone) ([]*schema.ReviewerReport, error) {
	requested := make(map[schema.ReviewerRole]struct{}, len(requestedRoles))
	for _, r := range requestedRoles {
		requested[r] = struct{}{}
	}

	var reports []*schema.ReviewerReport
	for _, role := range Sequence {
		if _, ok := requested[role]; !ok {
			continue
		}
		report := runRole(role, patch, dod)
		reports = append(reports, report)
		if !report.Passed {
			return reports, kernelerrors.Newf(kernelerrors.CodeReviewerFailed,
				"reviewer role %s failed with %d violation(s)", role, len(report.Violations))
		}
	}
	return reports, nil
}

// runRole returns an unsealed report: Universal and Hash are left zero for
// the caller to populate and self-hash before persisting.
func runRole(role schema.ReviewerRole, patch *schema.PatchArtifact, dod *schema.DefinitionOfDone) *schema.ReviewerReport {
	rules := roleRules[role]
	var violations []schema.ReviewerViolation
	for _, rule := range rules {
		for _, v := range rule.Check(patch, dod) {
			v.RuleID = rule.ID
			violations = append(violations, v)
		}
	}
	return &schema.ReviewerReport{
		StepID:       patch.StepID,
		ReviewerRole: role,
		Passed:       len(violations) == 0,
		Violations:   violations,
	}
}

func checkForbiddenSurface(patch *schema.PatchArtifact) []schema.ReviewerViolation {
	var out []schema.ReviewerViolation
	for _, fc := range patch.FilesChanged {
		if forbidden.ContainsAny(fc.Diff) {
			out = append(out, schema.ReviewerViolation{Message: fmt.Sprintf("%s: diff contains a forbidden-surface token", fc.Path)})
		}
	}
	return out
}

func checkNonEmptyDiffs(patch *schema.PatchArtifact) []schema.ReviewerViolation {
	var out []schema.ReviewerViolation
	for _, fc := range patch.FilesChanged {
		if fc.ChangeType != schema.ChangeDelete && strings.TrimSpace(fc.Diff) == "" {
			out = append(out, schema.ReviewerViolation{Message: fmt.Sprintf("%s: diff is empty", fc.Path)})
		}
	}
	return out
}

var secretMarkers = []string{"BEGIN PRIVATE KEY", "BEGIN RSA PRIVATE KEY", "aws_secret_access_key", "api_key="}

func checkNoSecretPatterns(patch *schema.PatchArtifact) []schema.ReviewerViolation {
	var out []schema.ReviewerViolation
	for _, fc := range patch.FilesChanged {
		for _, marker := range secretMarkers {
			if strings.Contains(fc.Diff, marker) {
				out = append(out, schema.ReviewerViolation{Message: fmt.Sprintf("%s: diff appears to contain a secret (%s)", fc.Path, marker)})
			}
		}
	}
	return out
}

// checkHasTestChanges requires a touched test file only when dod requires
// test-based verification; a DoD verified solely by file_exists and the like,
// or by commands that do not invoke a test runner, imposes no such
// requirement.
func checkHasTestChanges(patch *schema.PatchArtifact, dod *schema.DefinitionOfDone) []schema.ReviewerViolation {
	if dod == nil || !dod.RequiresTestVerification() {
		return nil
	}
	for _, fc := range patch.FilesChanged {
		if strings.Contains(fc.Path, "_test.") || strings.Contains(fc.Path, "/test/") {
			return nil
		}
	}
	return []schema.ReviewerViolation{{Message: "patch touches no test file"}}
}

func checkNoOrphanDeletes(patch *schema.PatchArtifact) []schema.ReviewerViolation {
	var out []schema.ReviewerViolation
	creates := make(map[string]struct{})
	for _, fc := range patch.FilesChanged {
		if fc.ChangeType == schema.ChangeCreate {
			creates[fc.Path] = struct{}{}
		}
	}
	for _, fc := range patch.FilesChanged {
		if fc.ChangeType == schema.ChangeDelete {
			if _, replaced := creates[fc.Path]; replaced {
				out = append(out, schema.ReviewerViolation{Message: fmt.Sprintf("%s: deleted and recreated within the same patch", fc.Path)})
			}
		}
	}
	return out
}

func checkDeclaredImportsPresent(patch *schema.PatchArtifact) []schema.ReviewerViolation {
	if len(patch.DeclaredImports) == 0 {
		return nil
	}
	for _, imp := range patch.DeclaredImports {
		found := false
		for _, fc := range patch.FilesChanged {
			if strings.Contains(fc.Diff, imp) {
				found = true
				break
			}
		}
		if !found {
			return []schema.ReviewerViolation{{Message: fmt.Sprintf("declared import %q does not appear in any diff", imp)}}
		}
	}
	return nil
}
