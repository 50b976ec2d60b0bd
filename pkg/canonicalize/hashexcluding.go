package canonicalize

import "fmt"

// HashExcluding canonicalizes v with excludedField removed from its top-level
// JSON object, then returns the SHA-256 hex digest of the resulting bytes.
//
// This is the single combinator used everywhere an artifact needs to hash
// itself "excluding its own hash field" (self-hash artifacts) or "excluding
// the previous-hash field" (event chains): rather than each caller hand-
// rolling its own field-deletion logic, every self-hashing type goes through
// this one path.
//
// v may be a struct (marshaled via json tags) or a map[string]interface{}.
func HashExcluding(v interface{}, excludedFields ...string) (string, error) {
	intermediate, err := toGenericObject(v)
	if err != nil {
		return "", fmt.Errorf("hashExcluding: %w", err)
	}
	obj, ok := intermediate.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("hashExcluding: value is not a JSON object")
	}
	for _, f := range excludedFields {
		delete(obj, f)
	}
	return CanonicalHash(obj)
}

// toGenericObject marshals v to JSON and decodes it back into a generic
// map/slice/scalar tree so that excluded fields can be removed before
// canonicalization.
func toGenericObject(v interface{}) (interface{}, error) {
	b, err := JCS(v)
	if err != nil {
		return nil, err
	}
	return decodeJCS(b)
}
