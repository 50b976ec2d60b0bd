// Package wireschema validates untrusted JSON at the Kernel's external
// boundaries — an event draft arriving at the event log, a replay bundle
// read from disk by the verifier CLI — against a fixed JSON Schema before
// that JSON is ever unmarshaled into a Go envelope. This is deliberately
// shallow: shape and required-field checks only. The artifact-specific
// cross-field refinements and self-hash checks (pkg/schema) run afterward
// and remain the source of truth.
package wireschema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const eventDraftSchemaURL = "https://kernel.schemas.local/event-draft.schema.json"

const eventDraftSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["eventId", "type", "schemaVersion"],
  "properties": {
    "eventId": {"type": "string", "minLength": 1},
    "type": {"type": "string", "minLength": 1},
    "schemaVersion": {"type": "string", "minLength": 1},
    "actor": {"type": ["object", "null"]},
    "payload": {"type": ["object", "null"]}
  }
}`

const replayBundleSchemaURL = "https://kernel.schemas.local/replay-bundle.schema.json"

const replayBundleSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": true
}`

var (
	eventDraftValidator  *jsonschema.Schema
	replayBundleValidator *jsonschema.Schema
)

func init() {
	eventDraftValidator = mustCompile(eventDraftSchemaURL, eventDraftSchema)
	replayBundleValidator = mustCompile(replayBundleSchemaURL, replayBundleSchema)
}

func mustCompile(url, schema string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("wireschema: invalid built-in schema %s: %v", url, err))
	}
	compiled, err := c.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("wireschema: failed to compile built-in schema %s: %v", url, err))
	}
	return compiled
}

func validate(validator *jsonschema.Schema, data []byte) error {
	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("wireschema: invalid JSON: %w", err)
	}
	if err := validator.Validate(decoded); err != nil {
		return fmt.Errorf("wireschema: schema validation failed: %w", err)
	}
	return nil
}

// ValidateEventDraft checks that data has the shape of an EventDraft before
// it is unmarshaled: eventId, type, and schemaVersion present and non-empty.
func ValidateEventDraft(data []byte) error {
	return validate(eventDraftValidator, data)
}

// ValidateReplayBundle checks that data is a well-formed JSON object before
// it is unmarshaled into a replay.Bundle.
func ValidateReplayBundle(data []byte) error {
	return validate(replayBundleValidator, data)
}
