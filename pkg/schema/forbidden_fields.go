package schema

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/canonicalize"
)

// forbiddenKeys is the set of JSON object keys that must never appear
// anywhere in a StepPacket (or other execution-adjacent artifact) document,
// since their presence would imply an execution surface the Kernel does not
// provide.
var forbiddenKeys = map[string]struct{}{
	"command": {}, "exec": {}, "http": {}, "https": {},
	"shell": {}, "spawn": {}, "write": {}, "delete": {},
}

// checkNoForbiddenKeys canonicalizes v and walks the resulting object tree
// recursively, failing if any object key is in forbiddenKeys.
func checkNoForbiddenKeys(v interface{}) error {
	b, err := canonicalize.JCS(v)
	if err != nil {
		return fmt.Errorf("canonicalize for forbidden-key scan: %w", err)
	}
	generic, err := canonicalize.Parse(b)
	if err != nil {
		return fmt.Errorf("parse for forbidden-key scan: %w", err)
	}
	return walkForForbiddenKeys(generic)
}

func walkForForbiddenKeys(v interface{}) error {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			if _, bad := forbiddenKeys[k]; bad {
				return fmt.Errorf("forbidden key %q present in document", k)
			}
			if err := walkForForbiddenKeys(child); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, child := range t {
			if err := walkForForbiddenKeys(child); err != nil {
				return err
			}
		}
	}
	return nil
}
