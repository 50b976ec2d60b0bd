package kernel

import (
	"context"
	"testing"

	"github.com/clawforge/kernel/pkg/artifactstore"
	"github.com/clawforge/kernel/pkg/eventstore"
	"github.com/clawforge/kernel/pkg/kernelerrors"
	"github.com/clawforge/kernel/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKernel(t *testing.T) *Kernel {
	backend, err := artifactstore.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	return New(eventstore.NewMemoryStore(), artifactstore.NewStore(backend), nil)
}

func systemActor() schema.Actor {
	return schema.Actor{ActorID: "system", ActorType: schema.ActorSystem}
}

func sealedDoD(t *testing.T) *schema.DefinitionOfDone {
	dod := &schema.DefinitionOfDone{
		Universal: schema.Universal{
			SchemaVersion: "1.0.0",
			ID:            "11111111-1111-4111-8111-111111111111",
			CreatedAt:     "2026-01-01T00:00:00.000Z",
			CreatedBy:     systemActor(),
		},
		Title: "ship it",
		Items: []schema.DoDItem{{
			ID:                  "item-1",
			Description:         "tests pass",
			VerificationMethod:  schema.VerifyFileExists,
			TargetPath:          "README.md",
		}},
	}
	hash, err := dod.SelfHash()
	require.NoError(t, err)
	dod.Hash = hash
	return dod
}

func sealedLock(t *testing.T, dod *schema.DefinitionOfDone) *schema.DecisionLock {
	lock := &schema.DecisionLock{
		Universal: schema.Universal{
			SchemaVersion: "1.0.0",
			ID:            "22222222-2222-4222-8222-222222222222",
			CreatedAt:     "2026-01-01T00:00:00.000Z",
			CreatedBy:     systemActor(),
		},
		DoDID:             dod.ID,
		Goal:              "Ship the billing export feature",
		NonGoals:          []string{"performance tuning"},
		Invariants:        []string{"no plaintext secrets"},
		Constraints:       []string{},
		FailureModes:      []string{},
		RisksAndTradeoffs: []string{},
		Status:            schema.LockApproved,
	}
	hash, err := lock.SelfHash()
	require.NoError(t, err)
	lock.Hash = hash
	return lock
}

func TestSessionLifecycleHappyPath(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()

	session, err := k.StartSession("run-1", systemActor())
	require.NoError(t, err)
	assert.Equal(t, StatusExploring, session.Status())

	dod := sealedDoD(t)
	require.NoError(t, session.RecordDoD(ctx, dod, systemActor()))

	lock := sealedLock(t, dod)
	require.NoError(t, session.RecordLock(ctx, lock, systemActor()))
	assert.Equal(t, StatusLocked, session.Status())

	result, err := session.EvaluateGate(systemActor())
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, StatusEligible, session.Status())

	verification, err := session.VerifyChain()
	require.NoError(t, err)
	assert.True(t, verification.Valid)
}

func TestRecordLockRejectsMismatchedDoD(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()

	session, err := k.StartSession("run-2", systemActor())
	require.NoError(t, err)

	dod := sealedDoD(t)
	require.NoError(t, session.RecordDoD(ctx, dod, systemActor()))

	lock := sealedLock(t, dod)
	lock.DoDID = "33333333-3333-4333-8333-333333333333"
	hash, err := lock.SelfHash()
	require.NoError(t, err)
	lock.Hash = hash

	err = session.RecordLock(ctx, lock, systemActor())
	require.Error(t, err)
	code, ok := kernelerrors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, kernelerrors.CodeIDMismatch, code)
}

func TestRecordLockBeforeDoDFails(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()

	session, err := k.StartSession("run-3", systemActor())
	require.NoError(t, err)

	lock := sealedLock(t, sealedDoD(t))
	err = session.RecordLock(ctx, lock, systemActor())
	require.Error(t, err)
	code, ok := kernelerrors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, kernelerrors.CodeDoDMissing, code)
}
