package seal

import (
	"testing"

	"github.com/clawforge/kernel/pkg/kernelerrors"
	"github.com/clawforge/kernel/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealedFixture(t *testing.T) (*schema.SealedChangePackage, Dependencies) {
	dod := &schema.DefinitionOfDone{Title: "ship it"}
	dodHash, err := dod.SelfHash()
	require.NoError(t, err)
	dod.Hash = dodHash

	lock := &schema.DecisionLock{Goal: "ship the feature", DoDID: dod.ID}
	lockHash, err := lock.SelfHash()
	require.NoError(t, err)
	lock.Hash = lockHash

	plan := &schema.ExecutionPlan{LockID: lock.ID, DoDID: dod.ID, Goal: "ship"}
	planHash, err := plan.SelfHash()
	require.NoError(t, err)
	plan.Hash = planHash

	snapshot := &schema.RepoSnapshot{RootDescriptor: "root"}
	snapshotHash, err := snapshot.SelfHash()
	require.NoError(t, err)
	snapshot.Hash = snapshotHash

	anchor := &schema.SessionAnchor{PlanHash: planHash, LockID: lock.ID}
	anchorHash, err := anchor.SelfHash()
	require.NoError(t, err)
	anchor.Hash = anchorHash

	scp := &schema.SealedChangePackage{
		Universal: schema.Universal{
			SchemaVersion: "1.0.0",
			ID:            "55555555-5555-4555-8555-555555555555",
			CreatedAt:     "2026-01-01T00:00:00.000Z",
			CreatedBy:     schema.Actor{ActorID: "system", ActorType: schema.ActorSystem},
		},
		SessionAnchorHash: anchorHash,
		DoDHash:           dodHash,
		LockHash:          lockHash,
		PlanHash:          planHash,
		SnapshotHash:      snapshotHash,
		SealedBy:          schema.Actor{ActorID: "system", ActorType: schema.ActorSystem},
	}
	packageHash, err := scp.SelfHash()
	require.NoError(t, err)
	scp.Hash = packageHash

	deps := Dependencies{
		SessionAnchor: anchor,
		DoD:           dod,
		Lock:          lock,
		Plan:          plan,
		Snapshot:      snapshot,
	}
	return scp, deps
}

func TestValidateSucceedsOnConsistentPackage(t *testing.T) {
	scp, deps := sealedFixture(t)
	err := Validate(scp, deps)
	require.NoError(t, err)
}

func TestValidateDetectsMissingDependency(t *testing.T) {
	scp, deps := sealedFixture(t)
	deps.DoD = nil

	err := Validate(scp, deps)
	require.Error(t, err)
	code, ok := kernelerrors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, kernelerrors.CodeSealMissingDep, code)
}

func TestValidateDetectsHashMismatch(t *testing.T) {
	scp, deps := sealedFixture(t)
	deps.DoD.Title = "tampered after sealing"

	err := Validate(scp, deps)
	require.Error(t, err)
	code, ok := kernelerrors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, kernelerrors.CodeSealHashMismatch, code)
}

func TestValidateDetectsBindingViolation(t *testing.T) {
	scp, deps := sealedFixture(t)
	deps.Lock.DoDID = "00000000-0000-4000-8000-000000000000"
	lockHash, err := deps.Lock.SelfHash()
	require.NoError(t, err)
	deps.Lock.Hash = lockHash
	scp.LockHash = lockHash
	packageHash, err := scp.SelfHash()
	require.NoError(t, err)
	scp.Hash = packageHash

	err = Validate(scp, deps)
	require.Error(t, err)
	code, ok := kernelerrors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, kernelerrors.CodeSealBindingViolation, code)
}
