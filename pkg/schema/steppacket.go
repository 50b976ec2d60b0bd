package schema

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/canonicalize"
	"github.com/clawforge/kernel/pkg/kernelerrors"
)

// Excerpt is a bounded slice of file content quoted into a StepPacket.
type Excerpt struct {
	Path      string `json:"path"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Text      string `json:"text"`
}

func (e Excerpt) validate() error {
	if e.StartLine < 1 {
		return fmt.Errorf("excerpt %s: startLine must be >= 1", e.Path)
	}
	if e.StartLine > e.EndLine {
		return fmt.Errorf("excerpt %s: startLine (%d) must be <= endLine (%d)", e.Path, e.StartLine, e.EndLine)
	}
	if len(e.Text) > MaxExcerptChars {
		return fmt.Errorf("excerpt %s: text exceeds %d chars", e.Path, MaxExcerptChars)
	}
	return nil
}

// PacketContext carries the exact, bounded evidence a step was authored
// against.
type PacketContext struct {
	FileDigests map[string]string `json:"fileDigests"`
	Excerpts    []Excerpt         `json:"excerpts"`
}

// StepPacket is the sealed instruction envelope for a single execution step.
type StepPacket struct {
	Universal
	LockID              string         `json:"lockId"`
	PlanHash            string         `json:"planHash"`
	CapsuleHash         string         `json:"capsuleHash"`
	SnapshotHash        string         `json:"snapshotHash"`
	DoDID               string         `json:"dodId"`
	StepID              string         `json:"stepId"`
	DoDItemRefs         []string       `json:"dodItemRefs"`
	AllowedFiles        []string       `json:"allowedFiles"`
	AllowedSymbols      []string       `json:"allowedSymbols,omitempty"`
	RequiredCapabilities []string      `json:"requiredCapabilities,omitempty"`
	ReviewerSequence    []string       `json:"reviewerSequence"`
	Context             PacketContext  `json:"context"`
	GoalReference       string         `json:"goalReference"`
	Hash                string         `json:"packetHash"`
}

// Validate performs structural checks, the >=200KB size ceiling, the
// forbidden-key scan, cross-field refinements, and the self-hash refinement.
// GoalReference containing the exact lock goal substring and DoDItemRefs
// resolving to real DoD items are checked by the structural linter (C8),
// which holds the referenced artifacts; this method checks shape only.
func (p *StepPacket) Validate() error {
	if err := p.Universal.validate(); err != nil {
		return err
	}
	if err := validateUUID("lockId", p.LockID); err != nil {
		return err
	}
	if err := validateUUID("dodId", p.DoDID); err != nil {
		return err
	}
	if err := validateSha256Hex("planHash", p.PlanHash); err != nil {
		return err
	}
	if err := validateSha256Hex("capsuleHash", p.CapsuleHash); err != nil {
		return err
	}
	if err := validateSha256Hex("snapshotHash", p.SnapshotHash); err != nil {
		return err
	}
	if err := nonEmptyString("stepId", p.StepID); err != nil {
		return err
	}
	if err := requireNonEmptySlice("dodItemRefs", len(p.DoDItemRefs)); err != nil {
		return err
	}
	if err := requireNonEmptySlice("allowedFiles", len(p.AllowedFiles)); err != nil {
		return err
	}
	if err := requireMinLen("reviewerSequence", len(p.ReviewerSequence), 3); err != nil {
		return err
	}
	if err := nonEmptyString("goalReference", p.GoalReference); err != nil {
		return err
	}
	for _, ex := range p.Context.Excerpts {
		if err := ex.validate(); err != nil {
			return err
		}
	}
	if err := checkNoForbiddenKeys(p); err != nil {
		return kernelerrors.New(kernelerrors.CodeStepPacketLintFailed, err.Error())
	}
	canonical, err := canonicalize.JCS(p)
	if err != nil {
		return err
	}
	if len(canonical) > MaxStepPacketCanonicalBytes {
		return kernelerrors.Newf(kernelerrors.CodeStepPacketLintFailed,
			"step packet canonical size %d exceeds %d byte ceiling", len(canonical), MaxStepPacketCanonicalBytes)
	}
	return p.checkSelfHash()
}

func (p *StepPacket) SelfHash() (string, error) {
	return canonicalize.HashExcluding(p, "packetHash")
}

func (p *StepPacket) checkSelfHash() error {
	want, err := p.SelfHash()
	if err != nil {
		return err
	}
	if want != p.Hash {
		return fmt.Errorf("packetHash mismatch: computed %s, artifact declares %s", want, p.Hash)
	}
	return nil
}
