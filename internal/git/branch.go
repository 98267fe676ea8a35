package git

import (
	"fmt"
	"strings"
)

const maxSlugLen = 30

// Slug converts a task title into a branch-safe fragment: lowercase,
// alphanumerics and hyphens only, at most 30 characters.
func Slug(title string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}

// normalizeDisplayID lowercases a display id and strips everything that is
// not alphanumeric, so "SD.37" becomes "sd37".
func normalizeDisplayID(displayID string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(displayID) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BranchName builds the canonical worker branch name,
// feature/<username>/<displayid><-slug>.
func BranchName(username, displayID, title string) string {
	name := fmt.Sprintf("feature/%s/%s", username, normalizeDisplayID(displayID))
	if slug := Slug(title); slug != "" {
		name += "-" + slug
	}
	return name
}
