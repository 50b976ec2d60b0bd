// Package forbidden centralizes the forbidden-surface lexicon shared by the
// artifact validators (C5) and the structural linters (C8): plans, packets,
// and prompts must never reference shell execution, network access, process
// spawning, dynamic evaluation, filesystem mutation, or placeholder tokens.
package forbidden

import (
	"regexp"
	"strings"
)

// Category names a forbidden-surface group, used when reporting which
// surface a violation belongs to.
type Category string

const (
	CategoryShell          Category = "shell"
	CategoryNetwork        Category = "network"
	CategoryProcessSpawn   Category = "process-spawn"
	CategoryDynamicEval    Category = "dynamic-eval"
	CategoryFilesystemMut  Category = "filesystem-mutation"
	CategoryPlaceholder    Category = "placeholder"
)

// token pairs a literal surface with the category it belongs to.
type token struct {
	text     string
	category Category
}

var tokens = []token{
	{"shell", CategoryShell},
	{"bash", CategoryShell},
	{"sh -c", CategoryShell},
	{"exec", CategoryShell},
	{"network", CategoryNetwork},
	{"http", CategoryNetwork},
	{"https", CategoryNetwork},
	{"socket", CategoryNetwork},
	{"fetch", CategoryNetwork},
	{"spawn", CategoryProcessSpawn},
	{"fork", CategoryProcessSpawn},
	{"subprocess", CategoryProcessSpawn},
	{"child_process", CategoryProcessSpawn},
	{"eval", CategoryDynamicEval},
	{"new Function", CategoryDynamicEval},
	{"require(", CategoryDynamicEval},
	{"import(", CategoryDynamicEval},
	{"write", CategoryFilesystemMut},
	{"unlink", CategoryFilesystemMut},
	{"delete", CategoryFilesystemMut},
	{"rm ", CategoryFilesystemMut},
	{"TODO", CategoryPlaceholder},
	{"TBD", CategoryPlaceholder},
	{"FIXME", CategoryPlaceholder},
	{"PLACEHOLDER", CategoryPlaceholder},
	{"XXX", CategoryPlaceholder},
}

// shortIdentifierPattern matches tokens prone to false-positive substring matches
// (e.g. "rm" inside "deterministic") and therefore require word-boundary
// matching rather than a plain substring scan.
var shortIdentifierPattern = regexp.MustCompile(`\b(rm|sh|fork|eval|exec|write)\b`)

// Violation records a single forbidden-surface hit.
type Violation struct {
	Category Category
	Token    string
	Offset   int
}

// Scan scans text for forbidden-surface tokens, using word-boundary matching
// for short identifiers (rm, sh, fork, eval, exec, write) to avoid matching
// them as substrings of unrelated words, and plain substring matching for
// longer, less ambiguous tokens.
func Scan(text string) []Violation {
	var violations []Violation
	lower := strings.ToLower(text)

	for _, tk := range tokens {
		if len(tk.text) <= 6 && shortIdentifierPattern.MatchString(tk.text) {
			for _, loc := range shortIdentifierPattern.FindAllStringIndex(lower, -1) {
				word := lower[loc[0]:loc[1]]
				if word == shortIdentifierPattern.FindString(strings.ToLower(tk.text)) {
					violations = append(violations, Violation{Category: tk.category, Token: tk.text, Offset: loc[0]})
				}
			}
			continue
		}
		needle := strings.ToLower(tk.text)
		idx := 0
		for {
			pos := strings.Index(lower[idx:], needle)
			if pos < 0 {
				break
			}
			violations = append(violations, Violation{Category: tk.category, Token: tk.text, Offset: idx + pos})
			idx += pos + len(needle)
		}
	}
	return violations
}

// ContainsAny reports whether text contains any forbidden-surface token.
func ContainsAny(text string) bool {
	return len(Scan(text)) > 0
}

// placeholderTokens lists only the placeholder category, used by the
// execution gate which cares specifically about unresolved placeholders.
var placeholderTokens = []string{"TODO", "TBD", "FIXME", "PLACEHOLDER", "XXX"}

// ContainsPlaceholder reports whether text contains a placeholder token.
func ContainsPlaceholder(text string) bool {
	upper := strings.ToUpper(text)
	for _, p := range placeholderTokens {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return false
}
