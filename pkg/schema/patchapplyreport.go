package schema

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/canonicalize"
)

// ApplyConflict records one hunk or file that failed to apply cleanly.
type ApplyConflict struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// PatchApplyReport is the prover's verdict on attempting a patch against a
// snapshot: produced by pkg/patchapply, persisted as any other artifact.
type PatchApplyReport struct {
	Universal
	PatchHash        string          `json:"patchHash"`
	SnapshotHash     string          `json:"snapshotHash"`
	Applied          bool            `json:"applied"`
	TouchedFiles     []string        `json:"touchedFiles"`
	Conflicts        []ApplyConflict `json:"conflicts"`
	Hash             string          `json:"patchApplyReportHash"`
}

func (r *PatchApplyReport) Validate() error {
	if err := r.Universal.validate(); err != nil {
		return err
	}
	if err := validateSha256Hex("patchHash", r.PatchHash); err != nil {
		return err
	}
	if err := validateSha256Hex("snapshotHash", r.SnapshotHash); err != nil {
		return err
	}
	if r.Applied && len(r.Conflicts) > 0 {
		return fmt.Errorf("applied=true is inconsistent with a non-empty conflicts list")
	}
	if !r.Applied && len(r.Conflicts) == 0 {
		return fmt.Errorf("applied=false requires at least one conflict to be reported")
	}
	return r.checkSelfHash()
}

func (r *PatchApplyReport) SelfHash() (string, error) {
	return canonicalize.HashExcluding(r, "patchApplyReportHash")
}

func (r *PatchApplyReport) checkSelfHash() error {
	want, err := r.SelfHash()
	if err != nil {
		return err
	}
	if want != r.Hash {
		return fmt.Errorf("patchApplyReportHash mismatch: computed %s, artifact declares %s", want, r.Hash)
	}
	return nil
}
