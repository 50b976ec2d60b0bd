package schema

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/canonicalize"
)

// SnapshotFile is one file captured in a RepoSnapshot.
type SnapshotFile struct {
	Path        string `json:"path"`
	ContentHash string `json:"contentHash"`
}

// RepoSnapshot is a content-addressed point-in-time view of the repository.
type RepoSnapshot struct {
	Universal
	IncludedFiles  []SnapshotFile `json:"includedFiles"`
	RootDescriptor string         `json:"rootDescriptor"`
	Hash           string         `json:"snapshotHash"`
}

func (s *RepoSnapshot) Validate() error {
	if err := s.Universal.validate(); err != nil {
		return err
	}
	if err := requireNonEmptySlice("includedFiles", len(s.IncludedFiles)); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(s.IncludedFiles))
	for _, f := range s.IncludedFiles {
		if err := validateRepoRelativePath("includedFiles[].path", f.Path); err != nil {
			return err
		}
		if _, dup := seen[f.Path]; dup {
			return fmt.Errorf("includedFiles: duplicate path %q", f.Path)
		}
		seen[f.Path] = struct{}{}
		if err := validateSha256Hex("includedFiles[].contentHash", f.ContentHash); err != nil {
			return err
		}
	}
	if err := nonEmptyString("rootDescriptor", s.RootDescriptor); err != nil {
		return err
	}
	return s.checkSelfHash()
}

func (s *RepoSnapshot) SelfHash() (string, error) {
	return canonicalize.HashExcluding(s, "snapshotHash")
}

func (s *RepoSnapshot) checkSelfHash() error {
	want, err := s.SelfHash()
	if err != nil {
		return err
	}
	if want != s.Hash {
		return fmt.Errorf("snapshotHash mismatch: computed %s, artifact declares %s", want, s.Hash)
	}
	return nil
}
