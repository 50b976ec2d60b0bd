// Package binding implements the hash-binding engine (C6): given a newly
// submitted artifact's declared references, it resolves each one against
// the persistent store, recomputes the referenced artifact's hash, and
// rejects the new artifact if a declared hash no longer matches.
//
// The check is one step deep only — verifying that B's references to C are
// also still valid is the replay verifier's (C12) job, not this package's.
package binding

import (
	"fmt"

	"github.com/clawforge/kernel/pkg/kernelerrors"
)

// SelfHasher is satisfied by every schema type: it can recompute its own
// content hash.
type SelfHasher interface {
	SelfHash() (string, error)
}

// Reference is one declared cross-artifact hash reference found on the
// artifact being submitted.
type Reference struct {
	// Field names the reference for error reporting, e.g. "dodId",
	// "planHash".
	Field string
	// DeclaredHash is the hash the new artifact asserts the referenced
	// artifact has.
	DeclaredHash string
}

// Resolver looks up a previously persisted, self-hashing artifact by the
// hash it was stored under.
type Resolver func(hash string) (SelfHasher, error)

// VerifyReferences resolves and recomputes every reference, returning a
// single error naming the first broken binding. (Cross-binding failures are
// fail-fast per §7's propagation policy; only the execution gate and the
// chain verifier enumerate all failures.)
func VerifyReferences(refs []Reference, resolve Resolver) error {
	for _, ref := range refs {
		if ref.DeclaredHash == "" {
			continue
		}
		artifact, err := resolve(ref.DeclaredHash)
		if err != nil {
			return kernelerrors.Newf(kernelerrors.CodeIDMismatch,
				"reference %s: no persisted artifact found for hash %s", ref.Field, ref.DeclaredHash)
		}
		recomputed, err := artifact.SelfHash()
		if err != nil {
			return fmt.Errorf("reference %s: recompute hash: %w", ref.Field, err)
		}
		if recomputed != ref.DeclaredHash {
			return kernelerrors.Newf(kernelerrors.CodeIDMismatch,
				"reference %s: declared hash %s does not match recomputed hash %s", ref.Field, ref.DeclaredHash, recomputed)
		}
	}
	return nil
}
