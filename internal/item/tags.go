package item

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidTag reports whether the raw tag matches the allowed shape.
func ValidTag(tag string) bool {
	return tagPattern.MatchString(tag)
}

// NormalizeTags lowercases, validates, and deduplicates tags, preserving
// first-seen order. Invalid tags are dropped.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, tag := range tags {
		if !ValidTag(tag) {
			continue
		}
		lower := strings.ToLower(tag)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, lower)
	}
	return out
}
