package git

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// conflictLine matches the informational messages merge-tree prints, e.g.
// "CONFLICT (content): Merge conflict in app/main.go".
var conflictLine = regexp.MustCompile(`^CONFLICT \(([^)]+)\): (.+)$`)

// DryRunMerge computes whether branch merges cleanly into "into" without
// touching any working tree. It relies on merge-tree writing the merged
// tree to the object database only: exit 0 means clean, exit 1 means
// conflicts, anything else is a real failure.
func (d *driver) DryRunMerge(ctx context.Context, repoPath, branch, into string) (*MergeCheck, error) {
	out, err := d.runner.Exec(ctx, repoPath, "merge-tree", "--write-tree", into, branch)
	if err != nil {
		if ExitCode(err) != 1 {
			return nil, fmt.Errorf("dry-run merge: %w", err)
		}
		return &MergeCheck{Clean: false, Conflicts: parseConflicts(out, into)}, nil
	}
	return &MergeCheck{Clean: true, Conflicts: []Conflict{}}, nil
}

// parseConflicts extracts one Conflict per CONFLICT message, deduplicated
// by file. into is the target ref, used to orient delete conflicts.
func parseConflicts(out, into string) []Conflict {
	seen := map[string]bool{}
	conflicts := []Conflict{}
	for _, line := range strings.Split(out, "\n") {
		m := conflictLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		kind, file := classifyConflict(m[1], m[2], into)
		if file == "" || seen[file] {
			continue
		}
		seen[file] = true
		conflicts = append(conflicts, Conflict{File: file, Kind: kind})
	}
	return conflicts
}

// classifyConflict maps a merge-tree CONFLICT label and message to a kind
// and the conflicted path.
func classifyConflict(label, message, into string) (ConflictKind, string) {
	switch {
	case label == "content":
		// "Merge conflict in <file>"
		if _, file, ok := strings.Cut(message, "Merge conflict in "); ok {
			return ConflictModifyModify, file
		}
		return ConflictModifyModify, message
	case label == "add/add":
		if _, file, ok := strings.Cut(message, "Merge conflict in "); ok {
			return ConflictAddAdd, file
		}
		return ConflictAddAdd, firstPathToken(message)
	case label == "modify/delete":
		// "<file> deleted in <ref> and modified in <ref>. ..."
		file := firstPathToken(message)
		if strings.Contains(message, "deleted in "+into+" ") {
			return ConflictDeleteModify, file
		}
		return ConflictModifyDelete, file
	case strings.Contains(label, "rename"):
		return ConflictRename, firstPathToken(message)
	default:
		return ConflictUnknown, firstPathToken(message)
	}
}

// firstPathToken returns the first whitespace-delimited token of a
// conflict message, which merge-tree conventions make the file path.
func firstPathToken(message string) string {
	fields := strings.Fields(message)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// ApplyMerge checks out the target branch and commits a merge of branch
// into it. StrategyClean fails and aborts if the merge stops on
// conflicts; ours and theirs resolve conflicted hunks toward the target
// or worker branch respectively.
func (d *driver) ApplyMerge(ctx context.Context, repoPath, branch, into string, strategy Strategy) error {
	if _, err := d.runner.Exec(ctx, repoPath, "checkout", into); err != nil {
		return fmt.Errorf("checkout %s: %w", into, err)
	}

	args := []string{"merge", "--no-ff"}
	switch strategy {
	case StrategyOurs:
		args = append(args, "-X", "ours")
	case StrategyTheirs:
		args = append(args, "-X", "theirs")
	case StrategyClean:
		// No resolution option: conflicts stop the merge.
	default:
		return fmt.Errorf("unknown merge strategy %q", strategy)
	}
	args = append(args, "-m", fmt.Sprintf("Merge %s into %s", branch, into), branch)

	if _, err := d.runner.Exec(ctx, repoPath, args...); err != nil {
		// Leave the target branch clean before reporting.
		_ = d.AbortMerge(ctx, repoPath)
		return fmt.Errorf("merge %s into %s: %w", branch, into, err)
	}
	return nil
}

// AbortMerge cancels an in-progress merge, restoring the pre-merge state.
func (d *driver) AbortMerge(ctx context.Context, repoPath string) error {
	if _, err := d.runner.Exec(ctx, repoPath, "merge", "--abort"); err != nil {
		return fmt.Errorf("abort merge: %w", err)
	}
	return nil
}

// Shortstat looks like "3 files changed, 10 insertions(+), 2 deletions(-)";
// each clause is optional.
var (
	filesChangedRe = regexp.MustCompile(`(\d+) files? changed`)
	insertionsRe   = regexp.MustCompile(`(\d+) insertions?\(\+\)`)
	deletionsRe    = regexp.MustCompile(`(\d+) deletions?\(-\)`)
)

// Stats reports the size of the change branch carries relative to the
// merge base with into.
func (d *driver) Stats(ctx context.Context, repoPath, branch, into string) (*Stats, error) {
	out, err := d.runner.Exec(ctx, repoPath, "diff", "--shortstat", into+"..."+branch)
	if err != nil {
		return nil, fmt.Errorf("diff stats: %w", err)
	}
	return parseShortstat(out), nil
}

func parseShortstat(out string) *Stats {
	stats := &Stats{}
	line := strings.TrimSpace(out)
	if m := filesChangedRe.FindStringSubmatch(line); m != nil {
		stats.FilesChanged, _ = strconv.Atoi(m[1])
	}
	if m := insertionsRe.FindStringSubmatch(line); m != nil {
		stats.Insertions, _ = strconv.Atoi(m[1])
	}
	if m := deletionsRe.FindStringSubmatch(line); m != nil {
		stats.Deletions, _ = strconv.Atoi(m[1])
	}
	return stats
}
