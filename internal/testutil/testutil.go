// Package testutil provides helpers for tests that drive a real git
// binary.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var gitEnvVars = []string{
	"GIT_DIR",
	"GIT_WORK_TREE",
	"GIT_INDEX_FILE",
	"GIT_COMMON_DIR",
	"GIT_PREFIX",
	"GIT_OBJECT_DIRECTORY",
	"GIT_ALTERNATE_OBJECT_DIRECTORIES",
	"GIT_CEILING_DIRECTORIES",
}

// UnsetGitEnv clears git environment variables that can redirect repo
// operations into the wrong tree.
func UnsetGitEnv() {
	for _, key := range gitEnvVars {
		_ = os.Unsetenv(key)
	}
}

// SkipIfNoGit skips the test when no git binary is on the path.
func SkipIfNoGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

// Git runs one git command in dir and fails the test on error.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// InitRepo creates a git repository with one commit on main and
// returns its path. The repo sits inside its own parent directory so
// sibling worktree paths have room.
func InitRepo(t *testing.T) string {
	t.Helper()
	SkipIfNoGit(t)
	UnsetGitEnv()

	repo := filepath.Join(t.TempDir(), "repo")
	if err := os.MkdirAll(repo, 0o755); err != nil {
		t.Fatal(err)
	}
	Git(t, repo, "init", "-b", "main")
	Git(t, repo, "config", "user.name", "test")
	Git(t, repo, "config", "user.email", "test@example.com")
	WriteFile(t, repo, "README.md", "hello\n")
	Git(t, repo, "add", ".")
	Git(t, repo, "commit", "-m", "initial")
	return repo
}

// WriteFile writes content under dir, creating parents.
func WriteFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Commit stages everything in dir and commits it.
func Commit(t *testing.T, dir, message string) {
	t.Helper()
	Git(t, dir, "add", ".")
	Git(t, dir, "commit", "-m", message)
}
