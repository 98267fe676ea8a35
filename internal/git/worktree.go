package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// WorktreePath returns the sibling checkout path for the nth worktree of
// username: <repo parent>/<repo name>-<username>-<n>.
func WorktreePath(repoPath, username string, n int) string {
	parent := filepath.Dir(repoPath)
	name := filepath.Base(repoPath)
	return filepath.Join(parent, fmt.Sprintf("%s-%s-%d", name, username, n))
}

// allocateWorktreePath finds the smallest positive n whose sibling path is
// not already taken on disk.
func allocateWorktreePath(repoPath, username string) (string, error) {
	for n := 1; ; n++ {
		path := WorktreePath(repoPath, username, n)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		} else if err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("probe worktree path %s: %w", path, err)
		}
	}
}

// CreateWorktree provisions a branch off defaultBranch and a linked
// worktree in a sibling directory of the repo.
func (d *driver) CreateWorktree(ctx context.Context, repoPath, defaultBranch, username, displayID, title string) (*Worktree, error) {
	branch := BranchName(username, displayID, title)
	path, err := allocateWorktreePath(repoPath, username)
	if err != nil {
		return nil, err
	}

	_, err = d.runner.Exec(ctx, repoPath, "worktree", "add", "-b", branch, path, defaultBranch)
	if err != nil {
		return nil, fmt.Errorf("create worktree: %w", err)
	}

	return &Worktree{Path: path, Branch: branch}, nil
}

// RemoveWorktree detaches a worktree and deletes its directory.
func (d *driver) RemoveWorktree(ctx context.Context, repoPath, worktreePath string, force bool) error {
	args := []string{"worktree", "remove", worktreePath}
	if force {
		args = append(args, "--force")
	}
	if _, err := d.runner.Exec(ctx, repoPath, args...); err != nil {
		return fmt.Errorf("remove worktree: %w", err)
	}
	if err := os.RemoveAll(worktreePath); err != nil {
		return fmt.Errorf("remove worktree directory: %w", err)
	}
	return nil
}

// DeleteBranch removes a local branch after its work has landed or been
// abandoned.
func (d *driver) DeleteBranch(ctx context.Context, repoPath, branch string) error {
	if _, err := d.runner.Exec(ctx, repoPath, "branch", "-D", branch); err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	return nil
}
