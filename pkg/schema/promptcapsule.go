package schema

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/canonicalize"
)

// ModelParams fixes the decoding parameters a capsule was issued with.
// Determinism requires temperature==0 and topP==1 (B2).
type ModelParams struct {
	Provider    string `json:"provider"`
	ModelID     string `json:"modelId"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
	Seed        int64  `json:"seed"`
}

func (m ModelParams) validate() error {
	if err := nonEmptyString("model.provider", m.Provider); err != nil {
		return err
	}
	if err := nonEmptyString("model.modelId", m.ModelID); err != nil {
		return err
	}
	if m.Temperature != 0 {
		return fmt.Errorf("model.temperature: must be exactly 0, got %v", m.Temperature)
	}
	if m.TopP != 1 {
		return fmt.Errorf("model.topP: must be exactly 1, got %v", m.TopP)
	}
	if m.Seed < 0 || m.Seed > (1<<31)-1 {
		return fmt.Errorf("model.seed: must be in [0, 2^31-1], got %d", m.Seed)
	}
	return nil
}

// Intent captures what the capsule was issued to accomplish.
type Intent struct {
	GoalExcerpt        string   `json:"goalExcerpt"`
	TaskType           string   `json:"taskType"`
	ForbiddenBehaviors []string `json:"forbiddenBehaviors"`
}

func (i Intent) validate() error {
	if err := nonEmptyString("intent.goalExcerpt", i.GoalExcerpt); err != nil {
		return err
	}
	if err := nonEmptyString("intent.taskType", i.TaskType); err != nil {
		return err
	}
	return requireMinLen("intent.forbiddenBehaviors", len(i.ForbiddenBehaviors), 3)
}

// PromptContext carries the actual prompt text and its constraints.
type PromptContext struct {
	SystemPrompt string   `json:"systemPrompt"`
	UserPrompt   string   `json:"userPrompt"`
	Constraints  []string `json:"constraints"`
}

func (c PromptContext) validate() error {
	if err := nonEmptyString("context.systemPrompt", c.SystemPrompt); err != nil {
		return err
	}
	if err := nonEmptyString("context.userPrompt", c.UserPrompt); err != nil {
		return err
	}
	return requireMinLen("context.constraints", len(c.Constraints), 3)
}

// Boundaries enumerates the least-privilege boundary the capsule operates
// within; least-privilege propagation to the StepPacket is checked by the
// hash-binding engine (C6), not here.
type Boundaries struct {
	AllowedFiles           []string `json:"allowedFiles"`
	AllowedSymbols         []string `json:"allowedSymbols,omitempty"`
	AllowedDoDItems        []string `json:"allowedDoDItems"`
	AllowedPlanStepIds     []string `json:"allowedPlanStepIds"`
	AllowedCapabilities    []string `json:"allowedCapabilities,omitempty"`
	DisallowedPatterns     []string `json:"disallowedPatterns"`
	AllowedExternalModules []string `json:"allowedExternalModules,omitempty"`
}

func (b Boundaries) validate() error {
	if err := requireMinLen("boundaries.allowedFiles", len(b.AllowedFiles), 1); err != nil {
		return err
	}
	if err := requireMinLen("boundaries.allowedDoDItems", len(b.AllowedDoDItems), 1); err != nil {
		return err
	}
	if err := requireMinLen("boundaries.allowedPlanStepIds", len(b.AllowedPlanStepIds), 1); err != nil {
		return err
	}
	return requireMinLen("boundaries.disallowedPatterns", len(b.DisallowedPatterns), 5)
}

// CapsuleInputs records the file digests the capsule was grounded on.
type CapsuleInputs struct {
	FileDigests     map[string]string `json:"fileDigests"`
	PartialCoverage bool              `json:"partialCoverage"`
}

// PromptCapsule is the frozen record of a single model invocation's inputs.
type PromptCapsule struct {
	Universal
	LockID     string        `json:"lockId"`
	PlanHash   string        `json:"planHash"`
	Model      ModelParams   `json:"model"`
	Intent     Intent        `json:"intent"`
	Context    PromptContext `json:"context"`
	Boundaries Boundaries    `json:"boundaries"`
	Inputs     CapsuleInputs `json:"inputs"`
	Hash       string        `json:"capsuleHash"`
}

// Validate performs structural checks, cross-field refinements
// (partialCoverage=false ⇒ fileDigests cover allowedFiles), and the
// self-hash refinement.
func (c *PromptCapsule) Validate() error {
	if err := c.Universal.validate(); err != nil {
		return err
	}
	if err := validateUUID("lockId", c.LockID); err != nil {
		return err
	}
	if err := validateSha256Hex("planHash", c.PlanHash); err != nil {
		return err
	}
	if err := c.Model.validate(); err != nil {
		return err
	}
	if err := c.Intent.validate(); err != nil {
		return err
	}
	if err := c.Context.validate(); err != nil {
		return err
	}
	if err := c.Boundaries.validate(); err != nil {
		return err
	}
	if !c.Inputs.PartialCoverage {
		for _, f := range c.Boundaries.AllowedFiles {
			if _, ok := c.Inputs.FileDigests[f]; !ok {
				return fmt.Errorf("inputs.fileDigests: missing digest for allowedFiles entry %q while partialCoverage=false", f)
			}
		}
	}
	return c.checkSelfHash()
}

// SelfHash computes the canonical hash of the artifact with capsuleHash
// excluded.
func (c *PromptCapsule) SelfHash() (string, error) {
	return canonicalize.HashExcluding(c, "capsuleHash")
}

func (c *PromptCapsule) checkSelfHash() error {
	want, err := c.SelfHash()
	if err != nil {
		return err
	}
	if want != c.Hash {
		return fmt.Errorf("capsuleHash mismatch: computed %s, artifact declares %s", want, c.Hash)
	}
	return nil
}
