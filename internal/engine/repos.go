package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chkd/chkd/internal/store"
)

// Repos lists every tracked repository.
func (e *Engine) Repos() ([]*store.Repo, error) {
	return retryIO(e.store.ListRepos)
}

// Repo fetches one repository by id.
func (e *Engine) Repo(id string) (*store.Repo, error) {
	return retryIO(func() (*store.Repo, error) { return e.store.GetRepo(id) })
}

// RepoByPath resolves a repository from any path spelling of its root.
func (e *Engine) RepoByPath(path string) (*store.Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve repo path: %w", err)
	}
	return retryIO(func() (*store.Repo, error) { return e.store.GetRepoByPath(abs) })
}

// AddRepo registers a repository root. The display name defaults to the
// directory name, the default branch to the configured one.
func (e *Engine) AddRepo(path, displayName, defaultBranch string) (*store.Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve repo path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("repo path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repo path %s is not a directory", abs)
	}
	if displayName == "" {
		displayName = filepath.Base(abs)
	}
	if defaultBranch == "" {
		defaultBranch = e.cfg.DefaultBranch
	}

	repo, err := e.store.CreateRepo(abs, displayName, defaultBranch)
	if err != nil {
		return nil, err
	}
	e.log.Info().Str("repo", repo.ID).Str("path", abs).Msg("repo added")
	return repo, nil
}

// UpdateRepo applies a partial update; nil fields are left untouched.
func (e *Engine) UpdateRepo(id string, displayName, defaultBranch *string, enabled *bool) (*store.Repo, error) {
	return e.store.UpdateRepo(id, displayName, defaultBranch, enabled)
}

// DeleteRepo removes a repository and its records. Refused while any
// non-terminal worker exists.
func (e *Engine) DeleteRepo(id string) error {
	return e.store.DeleteRepo(id)
}
