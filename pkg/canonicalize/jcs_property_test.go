//go:build property
// +build property

package canonicalize

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestJCSDeterminism covers I1/I3: canonicalizing the same value twice
// produces byte-identical output, the property every self-hash and every
// chain hash depends on.
func TestJCSDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("JCS canonicalization is deterministic", prop.ForAll(
		func(keys []string, values []string) bool {
			obj := make(map[string]interface{})
			for i := 0; i < len(keys) && i < len(values); i++ {
				if keys[i] != "" {
					obj[keys[i]] = values[i]
				}
			}
			b1, err1 := JCS(obj)
			b2, err2 := JCS(obj)
			if err1 != nil || err2 != nil {
				return err1 != nil && err2 != nil
			}
			return string(b1) == string(b2)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// TestCanonicalHashKeyOrderInvariance covers I1: two maps built with the same
// key/value pairs inserted in different orders hash identically, since Go
// map iteration order is random but JCS always sorts keys before hashing.
func TestCanonicalHashKeyOrderInvariance(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("canonical hash is independent of map construction order", prop.ForAll(
		func(keys []string, values []string) bool {
			n := len(keys)
			if len(values) < n {
				n = len(values)
			}
			forward := make(map[string]interface{}, n)
			reverse := make(map[string]interface{}, n)
			for i := 0; i < n; i++ {
				if keys[i] == "" {
					continue
				}
				forward[keys[i]] = values[i]
			}
			// Insert in reverse order, keeping the last occurrence of a
			// duplicate key so both maps hold the same pairs.
			for j := n - 1; j >= 0; j-- {
				if keys[j] == "" {
					continue
				}
				if _, seen := reverse[keys[j]]; !seen {
					reverse[keys[j]] = values[j]
				}
			}
			h1, err1 := CanonicalHash(forward)
			h2, err2 := CanonicalHash(reverse)
			if err1 != nil || err2 != nil {
				return false
			}
			return h1 == h2
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// TestHashExcludingIdempotent covers R3: computing HashExcluding twice over
// the same value, with the same excluded field, always yields the same
// digest (validation must be idempotent since it re-derives this hash).
func TestHashExcludingIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("HashExcluding is idempotent", prop.ForAll(
		func(title string, n int) bool {
			v := map[string]interface{}{
				"title": title,
				"count": n,
				"hash":  "should-be-excluded",
			}
			h1, err1 := HashExcluding(v, "hash")
			h2, err2 := HashExcluding(v, "hash")
			if err1 != nil || err2 != nil {
				return false
			}
			return h1 == h2
		},
		gen.AlphaString(),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}

// TestSortStringsSetStable covers I4: SortStrings produces the same ordered
// output for any permutation of the same set of strings, which is what lets
// an SCP's hash arrays be compared as sets rather than as ordered sequences.
func TestSortStringsSetStable(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("SortStrings output only depends on the input set", prop.ForAll(
		func(ss []string) bool {
			reversed := make([]string, len(ss))
			for i, s := range ss {
				reversed[len(ss)-1-i] = s
			}
			a := SortStrings(ss)
			b := SortStrings(reversed)
			if len(a) != len(b) {
				return false
			}
			for i := range a {
				if a[i] != b[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
