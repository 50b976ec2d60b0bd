package canonicalize

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// decodeJCS parses canonical JSON bytes back into a generic value tree,
// preserving numbers as json.Number so re-canonicalization is byte-stable
// (round-trip property R1 / I3).
func decodeJCS(b []byte) (interface{}, error) {
	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("jcs: decode failed: %w", err)
	}
	return generic, nil
}

// Parse decodes canonical JSON bytes into a generic value tree. Exported for
// callers (e.g. the replay verifier) that need to inspect canonical content
// without re-deriving it from a struct.
func Parse(b []byte) (interface{}, error) {
	return decodeJCS(b)
}
