// Package eventstore implements the Kernel's hash-chained, append-only,
// per-run event log (C3): runId/seq-keyed rows, each carrying the
// previous row's hash, with transactional append and full chain
// verification.
package eventstore

import (
	"github.com/clawforge/kernel/pkg/canonicalize"
)

// EventDraft is the caller-supplied content of a new event, before seq and
// hash assignment.
type EventDraft struct {
	EventID       string                 `json:"eventId"`
	Type          string                 `json:"type"`
	SchemaVersion string                 `json:"schemaVersion"`
	Actor         map[string]interface{} `json:"actor"`
	Payload       map[string]interface{} `json:"payload"`
}

// Event is a persisted, hash-chained event row.
type Event struct {
	RunID         string                 `json:"runId"`
	Seq           int64                  `json:"seq"`
	EventID       string                 `json:"eventId"`
	Timestamp     string                 `json:"ts"`
	Type          string                 `json:"type"`
	SchemaVersion string                 `json:"schemaVersion"`
	Actor         map[string]interface{} `json:"actor"`
	Payload       map[string]interface{} `json:"payload"`
	PrevHash      *string                `json:"prevHash"`
	Hash          string                 `json:"hash"`
}

// computeHash returns sha256(canonical(event \ {hash, prevHash})), matching
// the contract in §4.3: the hash covers everything about the row except the
// hash and prevHash fields. Chain linkage is carried by prevHash itself,
// which chain verification compares against the previous row's hash.
func computeHash(e Event) (string, error) {
	return canonicalize.HashExcluding(e, "hash", "prevHash")
}

// RunStartedType is the required type of the first event (seq==1) in a run.
const RunStartedType = "RunStarted"
