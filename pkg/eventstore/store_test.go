package eventstore

import (
	"testing"

	"github.com/clawforge/kernel/pkg/kernelerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	return NewMemoryStore()
}

// S1: happy append-and-verify.
func TestAppendAndVerifyChain(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateRun("r1", nil))

	_, err := s.AppendEvent("r1", EventDraft{EventID: "e-1", Type: "RunStarted", SchemaVersion: "1.0.0", Payload: map[string]interface{}{}})
	require.NoError(t, err)
	_, err = s.AppendEvent("r1", EventDraft{EventID: "e-2", Type: "StepStarted", SchemaVersion: "1.0.0", Payload: map[string]interface{}{"stepId": "s1"}})
	require.NoError(t, err)

	result, err := s.VerifyRunChain("r1")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.EventCount)
	assert.Empty(t, result.Failures)
	assert.Len(t, result.Hashes, 2)
	for _, h := range result.Hashes {
		assert.Len(t, h, 64)
	}
}

// S2: tamper detection.
func TestVerifyChainDetectsTamper(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateRun("r1", nil))
	_, err := s.AppendEvent("r1", EventDraft{EventID: "e-1", Type: "RunStarted", SchemaVersion: "1.0.0", Payload: map[string]interface{}{}})
	require.NoError(t, err)
	_, err = s.AppendEvent("r1", EventDraft{EventID: "e-2", Type: "StepStarted", SchemaVersion: "1.0.0", Payload: map[string]interface{}{"stepId": "s1"}})
	require.NoError(t, err)

	events := s.events["r1"]
	events[1].Payload = map[string]interface{}{"tampered": true}

	result, err := s.VerifyRunChain("r1")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Failures)
	found := false
	for _, f := range result.Failures {
		if f.Seq == 2 && f.Reason == "hash_mismatch" {
			found = true
		}
	}
	assert.True(t, found, "expected a hash_mismatch failure at seq 2")
}

func TestFirstEventMustBeRunStarted(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateRun("r1", nil))
	_, err := s.AppendEvent("r1", EventDraft{EventID: "e-1", Type: "StepStarted", SchemaVersion: "1.0.0"})
	require.Error(t, err)
	code, ok := kernelerrors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, kernelerrors.CodeFirstEventNotRunStarted, code)
}

// R2: duplicate eventId fails and leaves state unchanged.
func TestDuplicateEventIDConflict(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateRun("r1", nil))
	_, err := s.AppendEvent("r1", EventDraft{EventID: "e-1", Type: "RunStarted", SchemaVersion: "1.0.0"})
	require.NoError(t, err)

	before, err := s.ListEvents("r1")
	require.NoError(t, err)

	_, err = s.AppendEvent("r1", EventDraft{EventID: "e-1", Type: "StepStarted", SchemaVersion: "1.0.0"})
	require.Error(t, err)
	code, ok := kernelerrors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, kernelerrors.CodeEventIDConflict, code)

	after, err := s.ListEvents("r1")
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))
}

func TestVerifyChainDetectsSeqGap(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateRun("r1", nil))
	_, err := s.AppendEvent("r1", EventDraft{EventID: "e-1", Type: "RunStarted", SchemaVersion: "1.0.0"})
	require.NoError(t, err)
	_, err = s.AppendEvent("r1", EventDraft{EventID: "e-2", Type: "StepStarted", SchemaVersion: "1.0.0"})
	require.NoError(t, err)

	s.events["r1"][1].Seq = 3

	result, err := s.VerifyRunChain("r1")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	reasons := make(map[string]bool)
	for _, f := range result.Failures {
		reasons[f.Reason] = true
	}
	assert.True(t, reasons["seq_gap"])
}
