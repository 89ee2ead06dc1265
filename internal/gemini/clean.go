package gemini

import "strings"

// CleanJSON strips documentation-style code fences from model output so the
// remainder can be parsed as JSON. Only leading/trailing fences are removed;
// already-clean text passes through unchanged apart from whitespace trimming.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
