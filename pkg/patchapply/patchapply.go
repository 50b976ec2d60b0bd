// Package patchapply implements the patch-apply prover (C11): a pure,
// in-memory unified-diff applier that proves whether a PatchArtifact applies
// cleanly against a declared base snapshot, without ever touching a real
// filesystem or running an external diff tool.
package patchapply

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clawforge/kernel/pkg/kernelerrors"
	"github.com/clawforge/kernel/pkg/schema"
)

// hunkHeaderPrefix starts a unified diff hunk header: @@ -os,oc +ns,nc @@
const hunkHeaderPrefix = "@@ -"

// Apply attempts patch against the file contents captured at baseHash, the
// snapshot hash the caller independently resolved for patch.StepID's step.
// contents maps each file path named in patch.FilesChanged to its current
// text; it is not consulted at all when patch's declared base snapshot does
// not match baseHash (I7: a stale patch is rejected without reading file
// content).
func Apply(patch *schema.PatchArtifact, declaredBaseHash, baseHash string, contents map[string]string) *schema.PatchApplyReport {
	report := &schema.PatchApplyReport{
		PatchHash:    patch.Hash,
		SnapshotHash: baseHash,
	}

	if declaredBaseHash != baseHash {
		report.Applied = false
		report.Conflicts = []schema.ApplyConflict{{
			Path:   "",
			Reason: fmt.Sprintf("PATCH_BASE_MISMATCH: patch declares base %s, current snapshot is %s", declaredBaseHash, baseHash),
		}}
		return report
	}

	var touched []string
	var conflicts []schema.ApplyConflict
	for _, fc := range patch.FilesChanged {
		result, err := applyFile(fc, contents[fc.Path])
		if err != nil {
			conflicts = append(conflicts, schema.ApplyConflict{Path: fc.Path, Reason: err.Error()})
			continue
		}
		_ = result
		touched = append(touched, fc.Path)
	}

	report.TouchedFiles = touched
	report.Conflicts = conflicts
	report.Applied = len(conflicts) == 0
	return report
}

// BaseMismatchError returns the kernelerrors-coded error a caller should
// surface when Apply reports a base-hash conflict, so callers that want an
// *Error rather than an ApplyConflict string can match on code.
func BaseMismatchError(declaredBaseHash, baseHash string) error {
	return kernelerrors.Newf(kernelerrors.CodePatchBaseMismatch,
		"patch declares base %s, current snapshot is %s", declaredBaseHash, baseHash)
}

// applyFile applies a single file's diff against its current content,
// returning the resulting text.
func applyFile(fc schema.FileChange, current string) (string, error) {
	switch fc.ChangeType {
	case schema.ChangeCreate:
		if current != "" {
			return "", fmt.Errorf("create conflict: file already exists")
		}
		return applyHunks("", fc.Diff)
	case schema.ChangeDelete:
		if current == "" {
			return "", fmt.Errorf("delete conflict: file does not exist")
		}
		return "", nil
	case schema.ChangeModify:
		if current == "" {
			return "", fmt.Errorf("modify conflict: file does not exist")
		}
		return applyHunks(current, fc.Diff)
	default:
		return "", fmt.Errorf("unknown change type %q", fc.ChangeType)
	}
}

type hunk struct {
	oldStart, oldCount int
	newStart, newCount int
	lines              []string
}

// parseHunks parses a unified diff body into its constituent @@ hunks,
// ignoring the file-header (---/+++) lines a full unified diff would carry.
func parseHunks(diff string) ([]hunk, error) {
	var hunks []hunk
	var current *hunk
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, hunkHeaderPrefix) {
			h, err := parseHunkHeader(line)
			if err != nil {
				return nil, err
			}
			if current != nil {
				hunks = append(hunks, *current)
			}
			current = h
			continue
		}
		if strings.HasPrefix(line, "---") || strings.HasPrefix(line, "+++") {
			continue
		}
		if current == nil {
			if strings.TrimSpace(line) == "" {
				continue
			}
			return nil, fmt.Errorf("diff content precedes any hunk header")
		}
		current.lines = append(current.lines, line)
	}
	if current != nil {
		hunks = append(hunks, *current)
	}
	return hunks, nil
}

// parseHunkHeader parses "@@ -os,oc +ns,nc @@" (trailing context after the
// closing @@ is ignored).
func parseHunkHeader(line string) (*hunk, error) {
	body := strings.TrimPrefix(line, "@@ ")
	end := strings.Index(body, " @@")
	if end < 0 {
		return nil, fmt.Errorf("malformed hunk header %q", line)
	}
	body = body[:end]
	parts := strings.Fields(body)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed hunk header %q", line)
	}
	oldStart, oldCount, err := parseRange(parts[0], '-')
	if err != nil {
		return nil, err
	}
	newStart, newCount, err := parseRange(parts[1], '+')
	if err != nil {
		return nil, err
	}
	return &hunk{oldStart: oldStart, oldCount: oldCount, newStart: newStart, newCount: newCount}, nil
}

func parseRange(field string, want byte) (int, int, error) {
	if len(field) == 0 || field[0] != want {
		return 0, 0, fmt.Errorf("malformed range %q", field)
	}
	field = field[1:]
	parts := strings.SplitN(field, ",", 2)
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed range %q", field)
	}
	count := 1
	if len(parts) == 2 {
		count, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, fmt.Errorf("malformed range %q", field)
		}
	}
	return start, count, nil
}

// applyHunks applies a unified diff body against original, returning the
// resulting text. It verifies each hunk's context lines match the original
// at the declared offset before splicing in the hunk's additions, reporting
// a conflict if the context has drifted.
func applyHunks(original, diff string) (string, error) {
	hunks, err := parseHunks(diff)
	if err != nil {
		return "", err
	}
	var originalLines []string
	if original != "" {
		originalLines = strings.Split(original, "\n")
	}

	var out []string
	cursor := 0
	for _, h := range hunks {
		start := h.oldStart - 1
		if start < 0 {
			start = 0
		}
		if start > len(originalLines) {
			return "", fmt.Errorf("hunk at line %d is beyond the end of the file", h.oldStart)
		}
		out = append(out, originalLines[cursor:start]...)
		cursor = start

		for _, line := range h.lines {
			if len(line) == 0 {
				continue
			}
			switch line[0] {
			case ' ':
				if cursor >= len(originalLines) || originalLines[cursor] != line[1:] {
					return "", fmt.Errorf("context mismatch at line %d", cursor+1)
				}
				out = append(out, originalLines[cursor])
				cursor++
			case '-':
				if cursor >= len(originalLines) || originalLines[cursor] != line[1:] {
					return "", fmt.Errorf("removal mismatch at line %d", cursor+1)
				}
				cursor++
			case '+':
				out = append(out, line[1:])
			default:
				return "", fmt.Errorf("malformed hunk line %q", line)
			}
		}
	}
	out = append(out, originalLines[cursor:]...)
	return strings.Join(out, "\n"), nil
}
