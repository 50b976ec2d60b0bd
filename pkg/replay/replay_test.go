package replay

import (
	"testing"

	"github.com/clawforge/kernel/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealedDoD(t *testing.T) *schema.DefinitionOfDone {
	dod := &schema.DefinitionOfDone{Title: "ship it"}
	hash, err := dod.SelfHash()
	require.NoError(t, err)
	dod.Hash = hash
	return dod
}

func TestReplaySessionPassesOnConsistentArtifacts(t *testing.T) {
	dod := sealedDoD(t)

	lock := &schema.DecisionLock{Goal: "ship the feature"}
	dodHash, err := dod.SelfHash()
	require.NoError(t, err)
	lock.DoDID = dod.ID
	_ = dodHash
	lockHash, err := lock.SelfHash()
	require.NoError(t, err)
	lock.Hash = lockHash

	result := ReplaySession(Bundle{DoD: dod, Lock: lock})
	assert.True(t, result.DeterministicReplayPassed)
	assert.Empty(t, result.Mismatches)
}

func TestReplaySessionDetectsTamperedHash(t *testing.T) {
	dod := sealedDoD(t)
	dod.Title = "tampered after sealing"

	result := ReplaySession(Bundle{DoD: dod})
	assert.False(t, result.DeterministicReplayPassed)
	assert.NotEmpty(t, result.Mismatches)
}

func TestReplaySessionDetectsBrokenLockDoDBinding(t *testing.T) {
	dod := sealedDoD(t)
	lock := &schema.DecisionLock{Goal: "ship the feature", DoDID: "00000000-0000-4000-8000-000000000000"}
	lockHash, err := lock.SelfHash()
	require.NoError(t, err)
	lock.Hash = lockHash

	result := ReplaySession(Bundle{DoD: dod, Lock: lock})
	assert.False(t, result.DeterministicReplayPassed)
}

func TestReplaySessionDetectsEvidenceChainBreak(t *testing.T) {
	first := schema.RunnerEvidence{StepID: "s1", EvidenceType: "capability_use", CapabilityUsed: "read_file"}
	h, err := first.SelfHash()
	require.NoError(t, err)
	first.Hash = h

	badPrev := "f" + h[1:]
	second := schema.RunnerEvidence{StepID: "s2", EvidenceType: "capability_use", CapabilityUsed: "read_file", PrevEvidenceHash: &badPrev, CreatedAt: first.CreatedAt}
	h2, err := second.SelfHash()
	require.NoError(t, err)
	second.Hash = h2

	result := ReplaySession(Bundle{RunnerEvidence: []schema.RunnerEvidence{first, second}})
	assert.False(t, result.DeterministicReplayPassed)
}
