package schema

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/canonicalize"
)

// SymbolFile is the exports/imports extracted from one file's AST.
type SymbolFile struct {
	Path    string   `json:"path"`
	Exports []string `json:"exports"`
	Imports []string `json:"imports"`
}

// SymbolIndex is the AST-derived symbol table for a RepoSnapshot.
type SymbolIndex struct {
	Universal
	SnapshotHash string       `json:"snapshotHash"`
	Files        []SymbolFile `json:"files"`
	Hash         string       `json:"symbolIndexHash"`
}

func (s *SymbolIndex) Validate() error {
	if err := s.Universal.validate(); err != nil {
		return err
	}
	if err := validateSha256Hex("snapshotHash", s.SnapshotHash); err != nil {
		return err
	}
	if err := requireNonEmptySlice("files", len(s.Files)); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(s.Files))
	for _, f := range s.Files {
		if err := validateRepoRelativePath("files[].path", f.Path); err != nil {
			return err
		}
		if _, dup := seen[f.Path]; dup {
			return fmt.Errorf("files: duplicate path %q", f.Path)
		}
		seen[f.Path] = struct{}{}
	}
	return s.checkSelfHash()
}

func (s *SymbolIndex) SelfHash() (string, error) {
	return canonicalize.HashExcluding(s, "symbolIndexHash")
}

func (s *SymbolIndex) checkSelfHash() error {
	want, err := s.SelfHash()
	if err != nil {
		return err
	}
	if want != s.Hash {
		return fmt.Errorf("symbolIndexHash mismatch: computed %s, artifact declares %s", want, s.Hash)
	}
	return nil
}
