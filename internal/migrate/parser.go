// Package migrate imports a legacy markdown checklist into the item
// store. The import is one-shot but idempotent: re-running against an
// unchanged file changes nothing.
package migrate

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"github.com/chkd/chkd/internal/item"
)

// DefaultSpecFile is the filename probed under <repoPath>/docs/.
const DefaultSpecFile = "SPEC.md"

var (
	headingRe  = regexp.MustCompile(`^##\s+([A-Za-z]+)\s*-\s*(.*)$`)
	checkboxRe = regexp.MustCompile(`^(\s*)- \[([ xX~sS])\]\s+(.+)$`)
	priorityRe = regexp.MustCompile(`(?i)^\[(p[123])\]\s*`)
)

// ParsedItem is one checklist entry with its nested children.
type ParsedItem struct {
	Title       string
	Description *string
	Status      item.Status
	Priority    item.Priority
	Tags        []string
	Children    []*ParsedItem
	Line        int
}

// ParsedArea groups the entries under one `## <AREA> - ...` heading.
type ParsedArea struct {
	Code  item.Area
	Name  string
	Items []*ParsedItem
}

// ParseResult is the outcome of parsing the whole file.
type ParseResult struct {
	Areas  []*ParsedArea
	Errors []string
}

// Parse reads the markdown checklist. Headings outside the known areas
// are ignored wholesale; malformed lines are collected as errors without
// stopping the parse.
func Parse(content string) *ParseResult {
	result := &ParseResult{}
	var current *ParsedArea
	// stack[d] is the last item seen at nesting depth d.
	var stack []*ParsedItem

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if m := headingRe.FindStringSubmatch(line); m != nil {
			code := strings.ToUpper(m[1])
			if item.ValidArea(code) {
				current = &ParsedArea{Code: item.Area(code), Name: strings.TrimSpace(m[2])}
				result.Areas = append(result.Areas, current)
			} else {
				current = nil
			}
			stack = nil
			continue
		}

		m := checkboxRe.FindStringSubmatch(line)
		if m == nil {
			if strings.HasPrefix(strings.TrimSpace(line), "- [") {
				result.Errors = append(result.Errors,
					fmt.Sprintf("line %d: malformed checklist entry", lineNo))
			}
			continue
		}
		if current == nil {
			continue
		}

		depth := len(m[1]) / 2
		if depth > len(stack) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("line %d: over-indented entry", lineNo))
			continue
		}

		parsed := parseEntry(m[2], m[3])
		parsed.Line = lineNo

		if depth == 0 {
			current.Items = append(current.Items, parsed)
			stack = []*ParsedItem{parsed}
			continue
		}
		parent := stack[depth-1]
		parent.Children = append(parent.Children, parsed)
		stack = append(stack[:depth], parsed)
	}
	if err := scanner.Err(); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("read: %v", err))
	}
	return result
}

// parseEntry decodes "[P1] **Title** #tag1 #tag2 - description".
func parseEntry(marker, rest string) *ParsedItem {
	parsed := &ParsedItem{
		Status:   statusForMarker(marker),
		Priority: item.PriorityMedium,
	}

	if m := priorityRe.FindStringSubmatch(rest); m != nil {
		switch strings.ToUpper(m[1]) {
		case "P1":
			parsed.Priority = item.PriorityCritical
		case "P2":
			parsed.Priority = item.PriorityHigh
		case "P3":
			parsed.Priority = item.PriorityMedium
		}
		rest = rest[len(m[0]):]
	}

	// The first " - " after the title starts the description.
	if head, desc, ok := strings.Cut(rest, " - "); ok {
		rest = head
		desc = strings.TrimSpace(desc)
		if desc != "" {
			parsed.Description = &desc
		}
	}

	var titleWords []string
	for _, word := range strings.Fields(rest) {
		if strings.HasPrefix(word, "#") && len(word) > 1 {
			parsed.Tags = append(parsed.Tags, strings.TrimPrefix(word, "#"))
			continue
		}
		titleWords = append(titleWords, word)
	}
	title := strings.Join(titleWords, " ")
	title = strings.TrimPrefix(title, "**")
	title = strings.TrimSuffix(title, "**")
	parsed.Title = strings.TrimSpace(title)
	parsed.Tags = item.NormalizeTags(parsed.Tags)
	return parsed
}

func statusForMarker(marker string) item.Status {
	switch strings.ToLower(marker) {
	case "x":
		return item.StatusDone
	case "~":
		return item.StatusInProgress
	case "s":
		return item.StatusSkipped
	default:
		return item.StatusOpen
	}
}
