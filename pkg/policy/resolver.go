package policy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clawforge/kernel/pkg/kernelerrors"
)

// Resolve walks a dotted field path, with optional "[n]" array index
// segments, over a composite context object built from nested
// map[string]interface{} and []interface{} values. A path like
// "step.requiredCapabilities[0]" resolves ctx["step"]["requiredCapabilities"][0].
func Resolve(ctx map[string]interface{}, path string) (interface{}, error) {
	if path == "" {
		return nil, kernelerrors.New(kernelerrors.CodePolicyFieldPathInvalid, "field path must be non-empty")
	}
	var current interface{} = ctx
	for _, segment := range strings.Split(path, ".") {
		name, indices, err := splitSegment(segment)
		if err != nil {
			return nil, err
		}
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, kernelerrors.Newf(kernelerrors.CodePolicyFieldPathInvalid,
				"field path %q: %q is not an object", path, name)
		}
		value, ok := m[name]
		if !ok {
			return nil, kernelerrors.Newf(kernelerrors.CodePolicyFieldPathInvalid,
				"field path %q: %q not found", path, name)
		}
		current = value
		for _, idx := range indices {
			list, ok := current.([]interface{})
			if !ok {
				return nil, kernelerrors.Newf(kernelerrors.CodePolicyFieldPathInvalid,
					"field path %q: %q is not an array", path, name)
			}
			if idx < 0 || idx >= len(list) {
				return nil, kernelerrors.Newf(kernelerrors.CodePolicyFieldPathInvalid,
					"field path %q: index %d out of range for %q", path, idx, name)
			}
			current = list[idx]
		}
	}
	return current, nil
}

// splitSegment splits "name[0][1]" into ("name", [0, 1]).
func splitSegment(segment string) (string, []int, error) {
	open := strings.IndexByte(segment, '[')
	if open < 0 {
		return segment, nil, nil
	}
	name := segment[:open]
	rest := segment[open:]
	var indices []int
	for len(rest) > 0 {
		if rest[0] != '[' {
			return "", nil, kernelerrors.Newf(kernelerrors.CodePolicyFieldPathInvalid, "malformed path segment %q", segment)
		}
		close := strings.IndexByte(rest, ']')
		if close < 0 {
			return "", nil, kernelerrors.Newf(kernelerrors.CodePolicyFieldPathInvalid, "malformed path segment %q", segment)
		}
		idx, err := strconv.Atoi(rest[1:close])
		if err != nil {
			return "", nil, kernelerrors.Newf(kernelerrors.CodePolicyFieldPathInvalid, "malformed array index in segment %q", segment)
		}
		indices = append(indices, idx)
		rest = rest[close+1:]
	}
	if name == "" {
		return "", nil, fmt.Errorf("malformed path segment %q", segment)
	}
	return name, indices, nil
}
