package canonicalize

import (
	"fmt"
	"strings"
)

// RepoRelativePath is a validated, repo-relative file path: no ".." segments,
// no leading "/", no backslashes. It centralizes the path-traversal guard
// that would otherwise be scattered across every artifact schema that
// carries a file path.
type RepoRelativePath string

// NewRepoRelativePath validates s and returns it as a RepoRelativePath.
func NewRepoRelativePath(s string) (RepoRelativePath, error) {
	if s == "" {
		return "", fmt.Errorf("repo-relative path: empty")
	}
	if strings.Contains(s, "\\") {
		return "", fmt.Errorf("repo-relative path %q: backslashes not allowed", s)
	}
	if strings.HasPrefix(s, "/") {
		return "", fmt.Errorf("repo-relative path %q: must not be absolute", s)
	}
	for _, seg := range strings.Split(s, "/") {
		if seg == ".." {
			return "", fmt.Errorf("repo-relative path %q: contains '..'", s)
		}
		if seg == "" {
			return "", fmt.Errorf("repo-relative path %q: contains empty segment", s)
		}
	}
	return RepoRelativePath(s), nil
}

// String returns the underlying path string.
func (p RepoRelativePath) String() string { return string(p) }

// SortStrings returns a sorted copy of ss, used to normalize order-
// independent array fields before canonicalization (e.g. policy rule sets,
// SCP hash arrays) so that their hash is set-stable rather than order-
// sensitive.
func SortStrings(ss []string) []string {
	out := make([]string, len(ss))
	copy(out, ss)
	// insertion sort is fine; arrays here are small (hash lists, path lists)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
