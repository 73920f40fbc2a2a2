package domain

import (
	"slices"
	"strings"
)

// NormalizeTags turns free-form comma separated input into a canonical tag
// set: trimmed, lowercased, no empties, no duplicates, sorted.
func NormalizeTags(raw string) []string {
	if isBlank(raw) {
		return []string{}
	}

	seen := make(map[string]struct{})
	tags := make([]string, 0, strings.Count(raw, ",")+1)
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		tags = append(tags, name)
	}

	slices.Sort(tags)
	return tags
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
