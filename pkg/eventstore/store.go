package eventstore

import (
	"fmt"
	"time"

	"github.com/clawforge/kernel/pkg/kernelerrors"
)

// ChainFailure names one specific defect found while verifying a run's
// event chain. VerifyRunChain enumerates all of these, never just the
// first (§4.3, §7 propagation policy).
type ChainFailure struct {
	Seq    int64  `json:"seq"`
	Reason string `json:"reason"`
}

// ChainVerification is the result of VerifyRunChain.
type ChainVerification struct {
	Valid      bool           `json:"valid"`
	EventCount int            `json:"eventCount"`
	Failures   []ChainFailure `json:"failures"`
	Hashes     []string       `json:"hashes"`
}

// Store is the event store's persistence contract. Implementations must
// make Append atomic: seq allocation and row insert within one transaction.
type Store interface {
	CreateRun(runID string, metadata map[string]interface{}) error
	AppendEvent(runID string, draft EventDraft) (*Event, error)
	ListEvents(runID string) ([]*Event, error)
	FindByEventID(eventID string) (*Event, error)
	FindByType(runID, eventType string) ([]*Event, error)
	VerifyRunChain(runID string) (*ChainVerification, error)
}

// nowISO returns the current time as an ISO-8601 UTC millisecond-precision
// string, matching the universal timestamp format used throughout the
// artifact DAG.
func nowISO(clock func() time.Time) string {
	return clock().UTC().Format("2006-01-02T15:04:05.000Z")
}

// buildEvent assembles the next Event row for a run given the prior row (nil
// for seq==1) and validates the RunStarted-first invariant.
func buildEvent(runID string, seq int64, draft EventDraft, prev *Event, ts string) (Event, error) {
	if seq == 1 && draft.Type != RunStartedType {
		return Event{}, kernelerrors.New(kernelerrors.CodeFirstEventNotRunStarted,
			fmt.Sprintf("first event of run %q must have type %q, got %q", runID, RunStartedType, draft.Type))
	}
	var prevHash *string
	if prev != nil {
		h := prev.Hash
		prevHash = &h
	}
	e := Event{
		RunID:         runID,
		Seq:           seq,
		EventID:       draft.EventID,
		Timestamp:     ts,
		Type:          draft.Type,
		SchemaVersion: draft.SchemaVersion,
		Actor:         draft.Actor,
		Payload:       draft.Payload,
		PrevHash:      prevHash,
	}
	hash, err := computeHash(e)
	if err != nil {
		return Event{}, err
	}
	e.Hash = hash
	return e, nil
}

// verifyChain recomputes hashes/prevHash/seq continuity over an ordered
// event list and reports every failure found, per §4.3 and I2.
func verifyChain(events []*Event) *ChainVerification {
	result := &ChainVerification{Valid: true, EventCount: len(events)}
	var prev *Event
	for i, e := range events {
		expectedSeq := int64(i + 1)
		if e.Seq != expectedSeq {
			result.Valid = false
			result.Failures = append(result.Failures, ChainFailure{Seq: e.Seq, Reason: "seq_gap"})
		}
		if i == 0 {
			if e.PrevHash != nil {
				result.Valid = false
				result.Failures = append(result.Failures, ChainFailure{Seq: e.Seq, Reason: "first_event_prev_hash_not_null"})
			}
		} else {
			if e.PrevHash == nil || *e.PrevHash != prev.Hash {
				result.Valid = false
				result.Failures = append(result.Failures, ChainFailure{Seq: e.Seq, Reason: "prev_hash_mismatch"})
			}
		}
		recomputed, err := computeHash(*e)
		if err != nil || recomputed != e.Hash {
			result.Valid = false
			result.Failures = append(result.Failures, ChainFailure{Seq: e.Seq, Reason: "hash_mismatch"})
		}
		result.Hashes = append(result.Hashes, e.Hash)
		prev = e
	}
	return result
}
