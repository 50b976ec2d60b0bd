package schema

import (
	"fmt"
	"regexp"

	"github.com/clawforge/kernel/pkg/canonicalize"
	"github.com/clawforge/kernel/pkg/kernelerrors"
)

var hexKeyPattern = regexp.MustCompile(`^[0-9a-f]+$`)

// RunnerIdentity identifies the executing runner and the public key its
// attestations are verified against.
type RunnerIdentity struct {
	Universal
	RunnerID                     string   `json:"runnerId"`
	Version                      string   `json:"version"`
	PublicKey                    string   `json:"publicKey"`
	EnvironmentFingerprint       string   `json:"environmentFingerprint"`
	BuildHash                    string   `json:"buildHash"`
	AllowedCapabilitiesSnapshot  []string `json:"allowedCapabilitiesSnapshot"`
	Hash                         string   `json:"runnerIdentityHash"`
}

func (r *RunnerIdentity) Validate() error {
	if err := r.Universal.validate(); err != nil {
		return err
	}
	if err := nonEmptyString("runnerId", r.RunnerID); err != nil {
		return kernelerrors.New(kernelerrors.CodeRunnerIdentityInvalid, err.Error())
	}
	if err := nonEmptyString("version", r.Version); err != nil {
		return kernelerrors.New(kernelerrors.CodeRunnerIdentityInvalid, err.Error())
	}
	if err := validatePublicKey(r.PublicKey); err != nil {
		return kernelerrors.New(kernelerrors.CodeRunnerIdentityInvalid, err.Error())
	}
	if err := validateSha256Hex("environmentFingerprint", r.EnvironmentFingerprint); err != nil {
		return kernelerrors.New(kernelerrors.CodeRunnerIdentityInvalid, err.Error())
	}
	if err := validateSha256Hex("buildHash", r.BuildHash); err != nil {
		return kernelerrors.New(kernelerrors.CodeRunnerIdentityInvalid, err.Error())
	}
	if err := requireNonEmptySlice("allowedCapabilitiesSnapshot", len(r.AllowedCapabilitiesSnapshot)); err != nil {
		return kernelerrors.New(kernelerrors.CodeRunnerIdentityInvalid, err.Error())
	}
	if err := r.checkSelfHash(); err != nil {
		return kernelerrors.New(kernelerrors.CodeRunnerIdentityInvalid, err.Error())
	}
	return nil
}

// validatePublicKey accepts either a PEM-encoded key or a raw hex-encoded key.
func validatePublicKey(k string) error {
	if pemPattern.MatchString(k) {
		return nil
	}
	if hexKeyPattern.MatchString(k) && len(k) >= 32 {
		return nil
	}
	return fmt.Errorf("publicKey: not a well-formed PEM block or hex string")
}

func (r *RunnerIdentity) SelfHash() (string, error) {
	return canonicalize.HashExcluding(r, "runnerIdentityHash")
}

func (r *RunnerIdentity) checkSelfHash() error {
	want, err := r.SelfHash()
	if err != nil {
		return err
	}
	if want != r.Hash {
		return fmt.Errorf("runnerIdentityHash mismatch: computed %s, artifact declares %s", want, r.Hash)
	}
	return nil
}
