package patchapply

import (
	"testing"

	"github.com/clawforge/kernel/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyModifySucceeds(t *testing.T) {
	original := "line one\nline two\nline three\n"
	diff := "@@ -1,3 +1,3 @@\n line one\n-line two\n+line two edited\n line three\n"
	patch := &schema.PatchArtifact{
		FilesChanged: []schema.FileChange{{Path: "f.txt", ChangeType: schema.ChangeModify, Diff: diff}},
	}

	report := Apply(patch, "base1", "base1", map[string]string{"f.txt": original})
	assert.True(t, report.Applied)
	assert.Empty(t, report.Conflicts)
	assert.Equal(t, []string{"f.txt"}, report.TouchedFiles)
}

func TestApplyBaseMismatchSkipsContentRead(t *testing.T) {
	patch := &schema.PatchArtifact{
		FilesChanged: []schema.FileChange{{Path: "f.txt", ChangeType: schema.ChangeModify, Diff: "@@ -1,1 +1,1 @@\n-old\n+new\n"}},
	}

	report := Apply(patch, "stale-base", "current-base", nil)
	require.False(t, report.Applied)
	require.Len(t, report.Conflicts, 1)
	assert.Contains(t, report.Conflicts[0].Reason, "PATCH_BASE_MISMATCH")
}

func TestApplyModifyContextMismatchConflicts(t *testing.T) {
	original := "line one\nline two\n"
	diff := "@@ -1,2 +1,2 @@\n line one\n-line drifted\n+line two edited\n"
	patch := &schema.PatchArtifact{
		FilesChanged: []schema.FileChange{{Path: "f.txt", ChangeType: schema.ChangeModify, Diff: diff}},
	}

	report := Apply(patch, "base1", "base1", map[string]string{"f.txt": original})
	assert.False(t, report.Applied)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, "f.txt", report.Conflicts[0].Path)
}

func TestApplyCreateFileThatAlreadyExistsConflicts(t *testing.T) {
	patch := &schema.PatchArtifact{
		FilesChanged: []schema.FileChange{{Path: "new.txt", ChangeType: schema.ChangeCreate, Diff: "@@ -0,0 +1,1 @@\n+hello\n"}},
	}

	report := Apply(patch, "base1", "base1", map[string]string{"new.txt": "already here"})
	assert.False(t, report.Applied)
}

func TestApplyDeleteMissingFileConflicts(t *testing.T) {
	patch := &schema.PatchArtifact{
		FilesChanged: []schema.FileChange{{Path: "gone.txt", ChangeType: schema.ChangeDelete}},
	}

	report := Apply(patch, "base1", "base1", map[string]string{})
	assert.False(t, report.Applied)
}
