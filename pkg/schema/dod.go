package schema

import (
	"fmt"
	"strings"

	"github.com/clawforge/kernel/pkg/canonicalize"
)

// VerificationMethod enumerates how a DoD item's completion is checked.
type VerificationMethod string

const (
	VerifyCommandExitCode    VerificationMethod = "command_exit_code"
	VerifyFileExists         VerificationMethod = "file_exists"
	VerifyFileHashMatch      VerificationMethod = "file_hash_match"
	VerifyCommandOutputMatch VerificationMethod = "command_output_match"
	VerifyArtifactRecorded   VerificationMethod = "artifact_recorded"
	VerifyCustom             VerificationMethod = "custom"
)

// DoDItem is a single, independently re-verifiable condition of done.
type DoDItem struct {
	ID                 string             `json:"id"`
	Description        string             `json:"description"`
	VerificationMethod VerificationMethod `json:"verificationMethod"`

	// Conditional fields, required depending on VerificationMethod.
	VerificationCommand  string `json:"verificationCommand,omitempty"`
	ExpectedExitCode     *int   `json:"expectedExitCode,omitempty"`
	TargetPath           string `json:"targetPath,omitempty"`
	ExpectedHash         string `json:"expectedHash,omitempty"`
	ExpectedOutputRegex  string `json:"expectedOutputRegex,omitempty"`
	ArtifactType         string `json:"artifactType,omitempty"`
	VerificationProcedure string `json:"verificationProcedure,omitempty"`

	NotDoneConditions []string `json:"notDoneConditions,omitempty"`
}

// Reverifiable returns an error when the item lacks a field its
// VerificationMethod requires, independent of schema-level validation — this
// is also consulted directly by the execution gate (C7).
func (i DoDItem) Reverifiable() error {
	switch i.VerificationMethod {
	case VerifyCommandExitCode:
		if i.VerificationCommand == "" || i.ExpectedExitCode == nil {
			return fmt.Errorf("item %s: command_exit_code requires verificationCommand and expectedExitCode", i.ID)
		}
	case VerifyFileExists:
		if i.TargetPath == "" {
			return fmt.Errorf("item %s: file_exists requires targetPath", i.ID)
		}
	case VerifyFileHashMatch:
		if i.TargetPath == "" || i.ExpectedHash == "" {
			return fmt.Errorf("item %s: file_hash_match requires targetPath and expectedHash", i.ID)
		}
		if err := validateSha256Hex(fmt.Sprintf("item %s.expectedHash", i.ID), i.ExpectedHash); err != nil {
			return err
		}
	case VerifyCommandOutputMatch:
		if i.VerificationCommand == "" || i.ExpectedOutputRegex == "" {
			return fmt.Errorf("item %s: command_output_match requires verificationCommand and expectedOutputRegex", i.ID)
		}
	case VerifyArtifactRecorded:
		if i.ArtifactType == "" {
			return fmt.Errorf("item %s: artifact_recorded requires artifactType", i.ID)
		}
	case VerifyCustom:
		if len(i.VerificationProcedure) < 20 {
			return fmt.Errorf("item %s: custom requires verificationProcedure of at least 20 chars", i.ID)
		}
	default:
		return fmt.Errorf("item %s: unknown verificationMethod %q", i.ID, i.VerificationMethod)
	}
	return nil
}

// requiresTestVerification reports whether item's own verification is
// test-based: a command_exit_code or command_output_match item whose
// verificationCommand invokes a test runner.
func (i DoDItem) requiresTestVerification() bool {
	switch i.VerificationMethod {
	case VerifyCommandExitCode, VerifyCommandOutputMatch:
		return strings.Contains(strings.ToLower(i.VerificationCommand), "test")
	default:
		return false
	}
}

// DefinitionOfDone enumerates the re-verifiable completion conditions for a
// session.
type DefinitionOfDone struct {
	Universal
	Title string    `json:"title"`
	Items []DoDItem `json:"items"`
	Hash  string    `json:"dodHash"`
}

// Validate performs structural checks, cross-field refinements, and the
// self-hash refinement.
func (d *DefinitionOfDone) Validate() error {
	if err := d.Universal.validate(); err != nil {
		return err
	}
	if err := nonEmptyString("title", d.Title); err != nil {
		return err
	}
	if err := requireNonEmptySlice("items", len(d.Items)); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(d.Items))
	for _, item := range d.Items {
		if err := nonEmptyString("items[].id", item.ID); err != nil {
			return err
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("items: duplicate item id %q", item.ID)
		}
		seen[item.ID] = struct{}{}
		if err := nonEmptyString("items[].description", item.Description); err != nil {
			return err
		}
		if err := item.Reverifiable(); err != nil {
			return err
		}
	}
	return d.checkSelfHash()
}

// SelfHash computes the canonical hash of the artifact with dodHash excluded.
func (d *DefinitionOfDone) SelfHash() (string, error) {
	return canonicalize.HashExcluding(d, "dodHash")
}

// RequiresTestVerification reports whether any item in d is verified by
// running a test command, i.e. whether a patch satisfying this DoD is
// expected to touch a test file.
func (d *DefinitionOfDone) RequiresTestVerification() bool {
	for _, item := range d.Items {
		if item.requiresTestVerification() {
			return true
		}
	}
	return false
}

func (d *DefinitionOfDone) checkSelfHash() error {
	want, err := d.SelfHash()
	if err != nil {
		return err
	}
	if want != d.Hash {
		return fmt.Errorf("dodHash mismatch: computed %s, artifact declares %s", want, d.Hash)
	}
	return nil
}
