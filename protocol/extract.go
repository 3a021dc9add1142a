// JSON extraction from raw completion output.
//
// Information Hiding:
// - Fence and brace scanning details hidden
// - Callers only see a candidate string to parse

package protocol

import (
	"regexp"
	"strings"
)

// codeFence matches a markdown code fence pair with an optional language tag,
// capturing the inner content.
var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// extractCandidate returns the most plausible JSON substring of a raw model
// response. Preference order: fenced code block content, then the span from
// the first '{' to the last '}', then the whole trimmed response.
func extractCandidate(raw string) string {
	trimmed := strings.TrimSpace(raw)

	if m := codeFence.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start != -1 && end > start {
		return trimmed[start : end+1]
	}

	return trimmed
}
