package schema

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/canonicalize"
)

// ChangeType enumerates how a patch touches a file.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeModify ChangeType = "modify"
	ChangeDelete ChangeType = "delete"
)

// FileChange is one file's unified diff within a PatchArtifact.
type FileChange struct {
	Path       string     `json:"path"`
	ChangeType ChangeType `json:"changeType"`
	Diff       string     `json:"diff"`
}

// PatchArtifact is the proposed change, expressed as per-file unified diffs.
type PatchArtifact struct {
	Universal
	StepID          string       `json:"stepId"`
	FilesChanged    []FileChange `json:"filesChanged"`
	DeclaredImports []string     `json:"declaredImports,omitempty"`
	Hash            string       `json:"patchHash"`
}

// Validate performs structural checks and the cross-bucket-exclusivity
// refinement: a path may appear in filesChanged at most once, i.e. the
// create/modify/delete buckets are pairwise disjoint over paths.
func (p *PatchArtifact) Validate() error {
	if err := p.Universal.validate(); err != nil {
		return err
	}
	if err := nonEmptyString("stepId", p.StepID); err != nil {
		return err
	}
	if err := requireNonEmptySlice("filesChanged", len(p.FilesChanged)); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(p.FilesChanged))
	for _, fc := range p.FilesChanged {
		if err := validateRepoRelativePath("filesChanged[].path", fc.Path); err != nil {
			return err
		}
		if _, dup := seen[fc.Path]; dup {
			return fmt.Errorf("filesChanged: path %q appears more than once across change-type buckets", fc.Path)
		}
		seen[fc.Path] = struct{}{}
		switch fc.ChangeType {
		case ChangeCreate, ChangeModify, ChangeDelete:
		default:
			return fmt.Errorf("filesChanged[%s]: unknown changeType %q", fc.Path, fc.ChangeType)
		}
		if fc.ChangeType != ChangeDelete {
			if err := nonEmptyString(fmt.Sprintf("filesChanged[%s].diff", fc.Path), fc.Diff); err != nil {
				return err
			}
		}
	}
	return p.checkSelfHash()
}

func (p *PatchArtifact) SelfHash() (string, error) {
	return canonicalize.HashExcluding(p, "patchHash")
}

func (p *PatchArtifact) checkSelfHash() error {
	want, err := p.SelfHash()
	if err != nil {
		return err
	}
	if want != p.Hash {
		return fmt.Errorf("patchHash mismatch: computed %s, artifact declares %s", want, p.Hash)
	}
	return nil
}
