package policy

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/clawforge/kernel/pkg/kernelerrors"
)

const (
	// MaxPatternLen bounds a matches_regex condition's pattern length (B4).
	MaxPatternLen = 200
	// MaxInputLen bounds the string a matches_regex condition is run against.
	MaxInputLen = 1000
	// matchTimeout bounds how long a single regex evaluation may run,
	// guarding against catastrophic backtracking from a pathological pattern.
	matchTimeout = 100 * time.Millisecond
)

// disallowedConstructs are PCRE-style constructs RE2 (Go's regexp engine)
// cannot express safely and that matches_regex must reject outright rather
// than let surface as an opaque compile error.
var disallowedConstructs = []string{"(?=", "(?!", "(?<=", "(?<!", `\1`, `\2`, `\3`, `\4`, `\5`, `\6`, `\7`, `\8`, `\9`}

// GuardedMatch compiles pattern and matches it against input under the
// policy engine's bounds: pattern and input length ceilings, a rejection of
// lookaround/backreference constructs, and a hard evaluation timeout.
func GuardedMatch(pattern, input string) (bool, error) {
	if len(pattern) > MaxPatternLen {
		return false, kernelerrors.Newf(kernelerrors.CodePolicyOperatorUnsupported,
			"matches_regex pattern exceeds %d characters", MaxPatternLen)
	}
	if len(input) > MaxInputLen {
		return false, kernelerrors.Newf(kernelerrors.CodePolicyOperatorUnsupported,
			"matches_regex input exceeds %d characters", MaxInputLen)
	}
	for _, bad := range disallowedConstructs {
		if strings.Contains(pattern, bad) {
			return false, kernelerrors.Newf(kernelerrors.CodePolicyOperatorUnsupported,
				"matches_regex pattern uses unsupported construct %q", bad)
		}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, kernelerrors.Newf(kernelerrors.CodePolicyOperatorUnsupported, "matches_regex: invalid pattern: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), matchTimeout)
	defer cancel()

	done := make(chan bool, 1)
	go func() { done <- re.MatchString(input) }()

	select {
	case matched := <-done:
		return matched, nil
	case <-ctx.Done():
		return false, kernelerrors.New(kernelerrors.CodePolicyOperatorUnsupported, "matches_regex: evaluation exceeded time budget")
	}
}
