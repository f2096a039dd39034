package ai

import (
	"regexp"
	"strings"
)

// fencedBlockRe matches the first fenced code block, with or without a
// language tag.
var fencedBlockRe = regexp.MustCompile("(?s)```[a-zA-Z+#]*\n?(.*?)```")

// ExtractCode pulls the repaired file content out of a model response.
// It prefers the first fenced code block; a response with no fences is
// accepted whole only when it does not read like prose.
func ExtractCode(response string) (string, bool) {
	if m := fencedBlockRe.FindStringSubmatch(response); m != nil {
		code := strings.TrimSpace(m[1])
		if code != "" {
			return code, true
		}
	}

	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return "", false
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return "", false
	}
	for _, line := range lines[:min(3, len(lines))] {
		lower := strings.ToLower(strings.TrimSpace(line))
		for _, prefix := range []string{"here", "the ", "i ", "this "} {
			if strings.HasPrefix(lower, prefix) {
				return "", false
			}
		}
	}
	return trimmed, true
}
