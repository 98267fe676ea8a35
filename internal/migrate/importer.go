package migrate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/chkd/chkd/internal/item"
	"github.com/chkd/chkd/internal/store"
)

// Result summarizes an import run.
type Result struct {
	ItemsImported int      `json:"itemsImported"`
	ItemsUpdated  int      `json:"itemsUpdated"`
	ItemsSkipped  int      `json:"itemsSkipped"`
	Errors        []string `json:"errors"`
}

// Importer drives migration of a markdown checklist into the store.
type Importer struct {
	store *store.Store
	log   zerolog.Logger
}

// NewImporter builds an Importer.
func NewImporter(st *store.Store, log zerolog.Logger) *Importer {
	return &Importer{store: st, log: log}
}

// specPath locates the checklist under the repo's docs directory.
func specPath(repoPath string) string {
	return filepath.Join(repoPath, "docs", DefaultSpecFile)
}

// Preview parses the checklist without writing anything.
func (im *Importer) Preview(repoPath string) (*ParseResult, error) {
	return im.PreviewFile(specPath(repoPath))
}

// PreviewFile parses a checklist at an explicit path.
func (im *Importer) PreviewFile(path string) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checklist: %w", err)
	}
	return Parse(string(data)), nil
}

// Run imports the checklist into the repo's items. Display ids are
// positional (SD.1, SD.1.1, ...), which is what makes re-runs
// idempotent: an entry that already exists is updated in place for
// status only, and counted as skipped when nothing changed. Children of
// a done parent are not imported.
func (im *Importer) Run(repoID, repoPath string) (*Result, error) {
	return im.RunFile(repoID, specPath(repoPath))
}

// RunFile imports a checklist at an explicit path.
func (im *Importer) RunFile(repoID, path string) (*Result, error) {
	parsed, err := im.PreviewFile(path)
	if err != nil {
		return nil, err
	}

	result := &Result{Errors: append([]string{}, parsed.Errors...)}
	for _, area := range parsed.Areas {
		for i, entry := range area.Items {
			displayID := item.TopLevelDisplayID(area.Code, i+1)
			im.importTree(repoID, area.Code, displayID, nil, entry, i, result)
		}
	}

	im.log.Info().
		Int("imported", result.ItemsImported).
		Int("updated", result.ItemsUpdated).
		Int("skipped", result.ItemsSkipped).
		Msg("migration finished")
	return result, nil
}

// importTree imports one entry and, unless the entry is done, its
// children.
func (im *Importer) importTree(repoID string, area item.Area, displayID string, parentID *string, entry *ParsedItem, sortOrder int, result *Result) {
	existing, err := im.store.GetItemByDisplayID(repoID, displayID)
	if err != nil && !store.IsNotFound(err) {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", displayID, err))
		return
	}

	var current *store.Item
	switch {
	case existing == nil:
		created, err := im.store.CreateItem(store.ItemInput{
			RepoID:        repoID,
			DisplayID:     displayID,
			Title:         entry.Title,
			Description:   entry.Description,
			AreaCode:      area,
			SectionNumber: item.SectionNumber(displayID),
			ParentID:      parentID,
			SortOrder:     sortOrder,
			Status:        entry.Status,
			Priority:      entry.Priority,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", displayID, err))
			return
		}
		if len(entry.Tags) > 0 {
			if err := im.store.SetTags(created.ID, entry.Tags); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s tags: %v", displayID, err))
			}
		}
		result.ItemsImported++
		current = created

	case existing.Status != entry.Status:
		status := entry.Status
		updated, err := im.store.UpdateItem(existing.ID, store.ItemUpdate{Status: &status})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", displayID, err))
			return
		}
		result.ItemsUpdated++
		current = updated

	default:
		result.ItemsSkipped++
		current = existing
	}

	if current.Status == item.StatusDone {
		// Children of a finished parent stay untouched.
		result.ItemsSkipped += countTree(entry.Children)
		return
	}
	for i, child := range entry.Children {
		childDisplayID := item.ChildDisplayID(displayID, i)
		im.importTree(repoID, area, childDisplayID, &current.ID, child, i, result)
	}
}

func countTree(entries []*ParsedItem) int {
	n := len(entries)
	for _, e := range entries {
		n += countTree(e.Children)
	}
	return n
}
