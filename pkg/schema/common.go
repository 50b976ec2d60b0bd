// Package schema defines the Kernel's artifact DAG: the ~20 self-hashing,
// cross-binding record types that make up a session (DoD, DecisionLock,
// ExecutionPlan, PromptCapsule, ...), their structural validation, and their
// cross-field refinements.
//
// Each type follows the same shape: a struct mirroring the wire JSON, a
// Validate() method performing structural + refinement checks, and a
// SelfHash() method computing the artifact's content hash via
// canonicalize.HashExcluding. Validate and SelfHash never touch external
// state; cross-artifact reference resolution is the hash-binding engine's
// job (pkg/binding), not this package's.
package schema

import (
	"fmt"
	"regexp"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/clawforge/kernel/pkg/canonicalize"
)

// SupportedSchemaMajor is the major version this build of the Kernel accepts
// for every artifact's schemaVersion field.
const SupportedSchemaMajor = 1

var (
	uuidV4Pattern    = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	sha256HexPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)
	iso8601Pattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`)
	pemPattern       = regexp.MustCompile(`(?s)^-----BEGIN [A-Z0-9 ]+-----.*-----END [A-Z0-9 ]+-----\n?$`)
)

// ActorType enumerates who produced an artifact.
type ActorType string

const (
	ActorHuman  ActorType = "human"
	ActorSystem ActorType = "system"
)

// Actor identifies the creator or sealer of an artifact.
type Actor struct {
	ActorID   string    `json:"actorId"`
	ActorType ActorType `json:"actorType"`
}

func (a Actor) validate(field string) error {
	if len(a.ActorID) < 1 || len(a.ActorID) > 200 {
		return fmt.Errorf("%s.actorId: length must be in [1,200]", field)
	}
	switch a.ActorType {
	case ActorHuman, ActorSystem:
	default:
		return fmt.Errorf("%s.actorType: must be 'human' or 'system'", field)
	}
	return nil
}

// Universal fields embedded in every artifact.
type Universal struct {
	SchemaVersion string    `json:"schemaVersion"`
	ID            string    `json:"id"`
	CreatedAt     string    `json:"createdAt"`
	CreatedBy     Actor     `json:"createdBy"`
}

func (u Universal) validate() error {
	v, err := semver.NewVersion(u.SchemaVersion)
	if err != nil {
		return fmt.Errorf("schemaVersion: invalid semver %q: %w", u.SchemaVersion, err)
	}
	if v.Major() != SupportedSchemaMajor {
		return fmt.Errorf("schemaVersion: major version %d unsupported, require %d", v.Major(), SupportedSchemaMajor)
	}
	if !uuidV4Pattern.MatchString(u.ID) {
		return fmt.Errorf("id: not a valid UUID v4: %q", u.ID)
	}
	if !iso8601Pattern.MatchString(u.CreatedAt) {
		return fmt.Errorf("createdAt: not ISO-8601 UTC millisecond timestamp: %q", u.CreatedAt)
	}
	if _, err := time.Parse("2006-01-02T15:04:05.000Z", u.CreatedAt); err != nil {
		return fmt.Errorf("createdAt: %w", err)
	}
	return u.CreatedBy.validate("createdBy")
}

func validateUUID(field, v string) error {
	if !uuidV4Pattern.MatchString(v) {
		return fmt.Errorf("%s: not a valid UUID v4: %q", field, v)
	}
	return nil
}

func validateSha256Hex(field, v string) error {
	if !sha256HexPattern.MatchString(v) {
		return fmt.Errorf("%s: not a 64-char lowercase hex SHA-256 digest: %q", field, v)
	}
	return nil
}

func validatePEM(field, v string) error {
	if !pemPattern.MatchString(v) {
		return fmt.Errorf("%s: not a well-formed PEM block", field)
	}
	return nil
}

// validateRepoRelativePath rejects absolute paths, backslashes, and ".."
// segments by delegating to canonicalize.NewRepoRelativePath, so the guard
// lives in exactly one place.
func validateRepoRelativePath(field, v string) error {
	if _, err := canonicalize.NewRepoRelativePath(v); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}

func nonEmptyString(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s: must not be empty", field)
	}
	return nil
}

func requireNonEmptySlice(field string, n int) error {
	if n == 0 {
		return fmt.Errorf("%s: must contain at least one element", field)
	}
	return nil
}

func requireMinLen(field string, n, min int) error {
	if n < min {
		return fmt.Errorf("%s: must contain at least %d elements, has %d", field, min, n)
	}
	return nil
}

// Size ceilings (C5.d).
const (
	MaxStepPacketCanonicalBytes = 200 * 1024
	MaxExcerptChars             = 2000
	MaxParamBagKeys             = 50
	MaxParamBagBytes            = 100 * 1024
)

// hasDuplicates reports whether ss contains a repeated value.
func hasDuplicates(ss []string) bool {
	seen := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		if _, ok := seen[s]; ok {
			return true
		}
		seen[s] = struct{}{}
	}
	return false
}

func stringSetContains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

func intersectNonEmpty(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}

func isSubset(sub, super []string) bool {
	set := make(map[string]struct{}, len(super))
	for _, s := range super {
		set[s] = struct{}{}
	}
	for _, s := range sub {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
