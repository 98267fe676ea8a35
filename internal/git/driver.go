package git

import "context"

// Strategy selects how a merge commit resolves conflicts.
type Strategy string

const (
	// StrategyClean refuses to commit if any conflict exists.
	StrategyClean Strategy = "clean"
	// StrategyOurs resolves conflicted hunks in favor of the target branch.
	StrategyOurs Strategy = "ours"
	// StrategyTheirs resolves conflicted hunks in favor of the worker branch.
	StrategyTheirs Strategy = "theirs"
)

// ValidStrategy reports whether s is a recognized merge strategy.
func ValidStrategy(s string) bool {
	switch Strategy(s) {
	case StrategyClean, StrategyOurs, StrategyTheirs:
		return true
	}
	return false
}

// ConflictKind classifies a merge conflict by how the two sides diverged.
type ConflictKind string

const (
	ConflictModifyModify ConflictKind = "modify/modify"
	ConflictAddAdd       ConflictKind = "add/add"
	ConflictDeleteModify ConflictKind = "delete/modify"
	ConflictModifyDelete ConflictKind = "modify/delete"
	ConflictRename       ConflictKind = "rename"
	ConflictUnknown      ConflictKind = "unknown"
)

// Conflict is one conflicted path found by a dry-run merge.
type Conflict struct {
	File string       `json:"file"`
	Kind ConflictKind `json:"kind"`
}

// MergeCheck is the outcome of a dry-run merge.
type MergeCheck struct {
	Clean     bool       `json:"clean"`
	Conflicts []Conflict `json:"conflicts"`
}

// Stats summarizes the diff a merge would land.
type Stats struct {
	FilesChanged int `json:"filesChanged"`
	Insertions   int `json:"insertions"`
	Deletions    int `json:"deletions"`
}

// Worktree is a provisioned checkout for one worker.
type Worktree struct {
	Path   string `json:"worktreePath"`
	Branch string `json:"branchName"`
}

// Driver provides the git operations the arbiter and registry depend on.
// Implementations must never mutate the repository's primary working tree
// except through ApplyMerge.
type Driver interface {
	CreateWorktree(ctx context.Context, repoPath, defaultBranch, username, displayID, title string) (*Worktree, error)
	RemoveWorktree(ctx context.Context, repoPath, worktreePath string, force bool) error
	DeleteBranch(ctx context.Context, repoPath, branch string) error
	DryRunMerge(ctx context.Context, repoPath, branch, into string) (*MergeCheck, error)
	ApplyMerge(ctx context.Context, repoPath, branch, into string, strategy Strategy) error
	AbortMerge(ctx context.Context, repoPath string) error
	Stats(ctx context.Context, repoPath, branch, into string) (*Stats, error)
}

// driver is the Runner-backed Driver implementation.
type driver struct {
	runner Runner
}

// NewDriver wraps a Runner in the standard git Driver.
func NewDriver(runner Runner) Driver {
	return &driver{runner: runner}
}
