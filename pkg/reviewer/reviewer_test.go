package reviewer

import (
	"testing"

	"github.com/clawforge/kernel/pkg/kernelerrors"
	"github.com/clawforge/kernel/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanPatch() *schema.PatchArtifact {
	return &schema.PatchArtifact{
		StepID: "step-1",
		FilesChanged: []schema.FileChange{
			{Path: "pkg/widget/widget.go", ChangeType: schema.ChangeModify, Diff: "+func Widget() {}\n"},
			{Path: "pkg/widget/widget_test.go", ChangeType: schema.ChangeCreate, Diff: "+func TestWidget(t *testing.T) {}\n"},
		},
	}
}

func testVerifiedDoD() *schema.DefinitionOfDone {
	return &schema.DefinitionOfDone{
		Items: []schema.DoDItem{{
			ID:                  "item-1",
			Description:         "tests pass",
			VerificationMethod:  schema.VerifyCommandExitCode,
			VerificationCommand: "go test ./...",
			ExpectedExitCode:    intPtr(0),
		}},
	}
}

func fileExistsDoD() *schema.DefinitionOfDone {
	return &schema.DefinitionOfDone{
		Items: []schema.DoDItem{{
			ID:                 "item-1",
			Description:        "binary built",
			VerificationMethod: schema.VerifyFileExists,
			TargetPath:         "bin/widget",
		}},
	}
}

func intPtr(i int) *int { return &i }

func TestRunAllRolesPass(t *testing.T) {
	reports, err := Run(Sequence, cleanPatch(), testVerifiedDoD())
	require.NoError(t, err)
	assert.Len(t, reports, len(Sequence))
	for _, r := range reports {
		assert.True(t, r.Passed)
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	patch := cleanPatch()
	patch.FilesChanged[0].Diff = "+exec(\"bash\", \"-c\", cmd)\n"

	reports, err := Run(Sequence, patch, testVerifiedDoD())
	require.Error(t, err)
	code, ok := kernelerrors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, kernelerrors.CodeReviewerFailed, code)

	require.Len(t, reports, 1)
	assert.Equal(t, schema.RoleStatic, reports[0].ReviewerRole)
	assert.False(t, reports[0].Passed)
}

func TestCheckHasTestChangesFailsWithoutTests(t *testing.T) {
	patch := &schema.PatchArtifact{
		StepID: "step-2",
		FilesChanged: []schema.FileChange{
			{Path: "pkg/widget/widget.go", ChangeType: schema.ChangeModify, Diff: "+func Widget() {}\n"},
		},
	}
	reports, err := Run([]schema.ReviewerRole{schema.RoleQA}, patch, testVerifiedDoD())
	require.Error(t, err)
	require.Len(t, reports, 1)
	assert.False(t, reports[0].Passed)
}

// When the DoD requires no test-based verification (e.g. file_exists only),
// the QA role must not force a test file to be touched.
func TestCheckHasTestChangesSkippedWhenDoDRequiresNoTestVerification(t *testing.T) {
	patch := &schema.PatchArtifact{
		StepID: "step-2",
		FilesChanged: []schema.FileChange{
			{Path: "pkg/widget/widget.go", ChangeType: schema.ChangeModify, Diff: "+func Widget() {}\n"},
		},
	}
	reports, err := Run([]schema.ReviewerRole{schema.RoleQA}, patch, fileExistsDoD())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Passed)
}

func TestCheckHasTestChangesSkippedWhenDoDNil(t *testing.T) {
	patch := &schema.PatchArtifact{
		StepID: "step-2",
		FilesChanged: []schema.FileChange{
			{Path: "pkg/widget/widget.go", ChangeType: schema.ChangeModify, Diff: "+func Widget() {}\n"},
		},
	}
	reports, err := Run([]schema.ReviewerRole{schema.RoleQA}, patch, nil)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Passed)
}

func TestCheckNoOrphanDeletes(t *testing.T) {
	patch := &schema.PatchArtifact{
		StepID: "step-3",
		FilesChanged: []schema.FileChange{
			{Path: "pkg/widget/widget.go", ChangeType: schema.ChangeDelete},
			{Path: "pkg/widget/widget.go", ChangeType: schema.ChangeCreate, Diff: "+func Widget() {}\n"},
		},
	}
	violations := checkNoOrphanDeletes(patch)
	assert.Len(t, violations, 1)
}
