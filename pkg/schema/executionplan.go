package schema

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/canonicalize"
)

// PlanStep is one step of an ExecutionPlan.
type PlanStep struct {
	StepID               string   `json:"stepId"`
	References           []string `json:"references"`
	RequiredCapabilities []string `json:"requiredCapabilities,omitempty"`
}

// NonExecutableGuarantees must all be true: the plan never shells out,
// touches the network, mutates the filesystem, spawns processes, or does
// implicit I/O.
type NonExecutableGuarantees struct {
	NoShellExecution     bool `json:"noShellExecution"`
	NoNetworkAccess      bool `json:"noNetworkAccess"`
	NoFilesystemMutation bool `json:"noFilesystemMutation"`
	NoProcessSpawning    bool `json:"noProcessSpawning"`
	NoImplicitIO         bool `json:"noImplicitIO"`
}

func (g NonExecutableGuarantees) validate() error {
	if !g.NoShellExecution || !g.NoNetworkAccess || !g.NoFilesystemMutation ||
		!g.NoProcessSpawning || !g.NoImplicitIO {
		return fmt.Errorf("nonExecutableGuarantees: every guarantee must be true")
	}
	return nil
}

// ExecutionPlan is the ordered set of steps that realize a DecisionLock.
type ExecutionPlan struct {
	Universal
	LockID              string                  `json:"lockId"`
	DoDID               string                  `json:"dodId"`
	Goal                string                  `json:"goal"`
	Steps               []PlanStep              `json:"steps"`
	AllowedCapabilities []string                `json:"allowedCapabilities"`
	Guarantees          NonExecutableGuarantees `json:"nonExecutableGuarantees"`
	CompletionCriteria  string                  `json:"completionCriteria"`
	Hash                string                  `json:"planHash"`
}

// Validate performs structural checks, cross-field refinements, and the
// self-hash refinement. DoD item reference resolution (each references[]
// entry must name an actual DoD item id) is performed by the structural
// linter (C8), which has the DoD in hand; this method only checks shape.
func (p *ExecutionPlan) Validate() error {
	if err := p.Universal.validate(); err != nil {
		return err
	}
	if err := validateUUID("lockId", p.LockID); err != nil {
		return err
	}
	if err := validateUUID("dodId", p.DoDID); err != nil {
		return err
	}
	if err := nonEmptyString("goal", p.Goal); err != nil {
		return err
	}
	if err := requireNonEmptySlice("steps", len(p.Steps)); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(p.Steps))
	for _, s := range p.Steps {
		if err := nonEmptyString("steps[].stepId", s.StepID); err != nil {
			return err
		}
		if _, dup := seen[s.StepID]; dup {
			return fmt.Errorf("steps: duplicate stepId %q", s.StepID)
		}
		seen[s.StepID] = struct{}{}
		if err := requireNonEmptySlice(fmt.Sprintf("steps[%s].references", s.StepID), len(s.References)); err != nil {
			return err
		}
		if !isSubset(s.RequiredCapabilities, p.AllowedCapabilities) {
			return fmt.Errorf("steps[%s]: requiredCapabilities not a subset of allowedCapabilities", s.StepID)
		}
	}
	if err := p.Guarantees.validate(); err != nil {
		return err
	}
	if err := nonEmptyString("completionCriteria", p.CompletionCriteria); err != nil {
		return err
	}
	return p.checkSelfHash()
}

// SelfHash computes the canonical hash of the artifact with planHash excluded.
func (p *ExecutionPlan) SelfHash() (string, error) {
	return canonicalize.HashExcluding(p, "planHash")
}

func (p *ExecutionPlan) checkSelfHash() error {
	want, err := p.SelfHash()
	if err != nil {
		return err
	}
	if want != p.Hash {
		return fmt.Errorf("planHash mismatch: computed %s, artifact declares %s", want, p.Hash)
	}
	return nil
}
