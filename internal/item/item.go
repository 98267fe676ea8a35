// Package item holds the pure task-item logic: display id shapes, area
// codes, priorities, tag validation, and the TBC completeness check.
// Persistence lives in internal/store.
package item

import (
	"fmt"
	"strings"
)

// Area groups items inside a repository.
type Area string

const (
	AreaSD  Area = "SD"
	AreaFE  Area = "FE"
	AreaBE  Area = "BE"
	AreaFUT Area = "FUT"
)

// Areas lists the recognized area codes in display order.
var Areas = []Area{AreaSD, AreaFE, AreaBE, AreaFUT}

// ValidArea reports whether code is a recognized area.
func ValidArea(code string) bool {
	switch Area(code) {
	case AreaSD, AreaFE, AreaBE, AreaFUT:
		return true
	}
	return false
}

// Status is an item's lifecycle state.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusSkipped    Status = "skipped"
	StatusBlocked    Status = "blocked"
)

// ValidStatus reports whether s is a recognized item status.
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusOpen, StatusInProgress, StatusDone, StatusSkipped, StatusBlocked:
		return true
	}
	return false
}

// Priority is an item's urgency class.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// ValidPriority reports whether p is a recognized priority.
func ValidPriority(p string) bool {
	switch Priority(p) {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// PriorityFromLegacy maps the legacy numeric encoding (1|2|3|null) to the
// canonical priority. Unknown values map to medium.
func PriorityFromLegacy(n *int) Priority {
	if n == nil {
		return PriorityMedium
	}
	switch *n {
	case 1:
		return PriorityCritical
	case 2:
		return PriorityHigh
	case 3:
		return PriorityMedium
	}
	return PriorityMedium
}

// ChildDisplayID derives the display id for the childIndex-th child
// (zero-based) of the given parent.
func ChildDisplayID(parentDisplayID string, childIndex int) string {
	return fmt.Sprintf("%s.%d", parentDisplayID, childIndex+1)
}

// TopLevelDisplayID builds the display id for a top-level item.
func TopLevelDisplayID(area Area, section int) string {
	return fmt.Sprintf("%s.%d", area, section)
}

// SectionNumber returns the dotted segment at the item's own depth, or -1
// if the display id is malformed.
func SectionNumber(displayID string) int {
	parts := strings.Split(displayID, ".")
	if len(parts) < 2 {
		return -1
	}
	last := parts[len(parts)-1]
	n := 0
	for _, r := range last {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// NormalizeQuery strips non-alphanumerics and uppercases, so "sd37" and
// "SD.37" normalize to the same key.
func NormalizeQuery(q string) string {
	var b strings.Builder
	for _, r := range q {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TBCFields returns the names of descriptor fields that are still "to be
// confirmed": empty, or a single entry equal to "TBC" (case-insensitive).
func TBCFields(keyRequirements, filesToChange, testing []string) []string {
	var missing []string
	if isTBC(keyRequirements) {
		missing = append(missing, "keyRequirements")
	}
	if isTBC(filesToChange) {
		missing = append(missing, "filesToChange")
	}
	if isTBC(testing) {
		missing = append(missing, "testing")
	}
	return missing
}

func isTBC(values []string) bool {
	if len(values) == 0 {
		return true
	}
	return len(values) == 1 && strings.EqualFold(strings.TrimSpace(values[0]), "TBC")
}
