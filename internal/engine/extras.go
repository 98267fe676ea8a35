package engine

import (
	"path/filepath"

	"github.com/chkd/chkd/internal/migrate"
	"github.com/chkd/chkd/internal/store"
)

// MigratePreview parses a repo's markdown checklist without writing.
// An empty file argument means the default docs location.
func (e *Engine) MigratePreview(repoPath, file string) (*migrate.ParseResult, error) {
	if file == "" {
		return e.importer.Preview(repoPath)
	}
	return e.importer.PreviewFile(filepath.Join(repoPath, file))
}

// MigrateRun imports a repo's markdown checklist into its items.
func (e *Engine) MigrateRun(repoPath, file string) (*migrate.Result, error) {
	repo, err := e.RepoByPath(repoPath)
	if err != nil {
		return nil, err
	}
	if file == "" {
		return e.importer.Run(repo.ID, repo.AbsolutePath)
	}
	return e.importer.RunFile(repo.ID, filepath.Join(repo.AbsolutePath, file))
}

// Bugs lists a repo's tracked bugs.
func (e *Engine) Bugs(repoID string) ([]*store.Bug, error) {
	return e.store.ListBugs(repoID)
}

// AddBug records a bug, optionally tied to an item.
func (e *Engine) AddBug(repoID, title string, itemID *string) (*store.Bug, error) {
	return e.store.CreateBug(repoID, title, itemID)
}

// FixBug marks a bug fixed.
func (e *Engine) FixBug(id string) error {
	return e.store.FixBug(id)
}

// QuickWins lists a repo's quick wins.
func (e *Engine) QuickWins(repoID string) ([]*store.QuickWin, error) {
	return e.store.ListQuickWins(repoID)
}

// AddQuickWin records a quick win.
func (e *Engine) AddQuickWin(repoID, title string) (*store.QuickWin, error) {
	return e.store.CreateQuickWin(repoID, title)
}

// CompleteQuickWin marks a quick win done.
func (e *Engine) CompleteQuickWin(id string) error {
	return e.store.CompleteQuickWin(id)
}

// Setting reads one settings value; missing keys return not-found.
func (e *Engine) Setting(key string) (string, error) {
	return e.store.GetSetting(key)
}

// SetSetting upserts one settings value.
func (e *Engine) SetSetting(key, value string) error {
	return e.store.SetSetting(key, value)
}

// Settings returns the whole settings map.
func (e *Engine) Settings() (map[string]string, error) {
	return e.store.AllSettings()
}
