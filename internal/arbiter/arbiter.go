// Package arbiter orchestrates worker completion: dry-run merges,
// conflict surfacing, resolution strategies, and the terminal bookkeeping
// that goes with them. It is the only component allowed to drive workers
// into merging, merged, or error.
package arbiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/chkd/chkd/internal/clock"
	"github.com/chkd/chkd/internal/git"
	"github.com/chkd/chkd/internal/signal"
	"github.com/chkd/chkd/internal/store"
)

// ErrMergeLockTimeout is returned when another merge holds the repo lock
// past the configured wait bound.
var ErrMergeLockTimeout = errors.New("timed out waiting for the repo merge lock")

// MergeStatus is the caller-facing outcome of a completion attempt.
type MergeStatus string

const (
	MergeClean     MergeStatus = "clean"
	MergeConflicts MergeStatus = "conflicts"
	MergeError     MergeStatus = "error"
	MergeAborted   MergeStatus = "aborted"
)

// Result is what completeWorker and resolveWorker return.
type Result struct {
	MergeStatus MergeStatus    `json:"mergeStatus"`
	Conflicts   []git.Conflict `json:"conflicts,omitempty"`
	Stats       *git.Stats     `json:"stats,omitempty"`
	Worker      *store.Worker  `json:"worker"`
}

// Arbiter serializes merges per repo and owns merge-side worker
// transitions.
type Arbiter struct {
	store       *store.Store
	driver      git.Driver
	bus         *signal.Bus
	clock       clock.Clock
	lockTimeout time.Duration
	log         zerolog.Logger

	mu    sync.Mutex
	locks map[string]chan struct{}
}

// New builds an Arbiter.
func New(st *store.Store, driver git.Driver, bus *signal.Bus, clk clock.Clock, lockTimeout time.Duration, log zerolog.Logger) *Arbiter {
	return &Arbiter{
		store:       st,
		driver:      driver,
		bus:         bus,
		clock:       clk,
		lockTimeout: lockTimeout,
		log:         log,
		locks:       map[string]chan struct{}{},
	}
}

// lockRepo acquires the per-repo merge lock, waiting at most lockTimeout.
// The default branch is written by one merge at a time.
func (a *Arbiter) lockRepo(ctx context.Context, repoID string) (func(), error) {
	a.mu.Lock()
	sem, ok := a.locks[repoID]
	if !ok {
		sem = make(chan struct{}, 1)
		a.locks[repoID] = sem
	}
	a.mu.Unlock()

	timer := time.NewTimer(a.lockTimeout)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-timer.C:
		return nil, ErrMergeLockTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CompleteWorker runs the completion protocol. The worker must be working
// or paused; it moves to merging, the branch is dry-run merged against
// the repo's default branch, and a clean result (with autoMerge) lands
// the merge, removes the worktree, and finalizes the worker.
func (a *Arbiter) CompleteWorker(ctx context.Context, workerID string, autoMerge bool) (*Result, error) {
	w, err := a.store.GetWorker(workerID)
	if err != nil {
		return nil, err
	}
	repo, err := a.store.GetRepo(w.RepoID)
	if err != nil {
		return nil, err
	}
	if w.BranchName == nil || w.WorktreePath == nil {
		return nil, store.NewConflict("complete worker",
			fmt.Errorf("worker %s has no provisioned branch", workerID))
	}

	merging := store.WorkerMerging
	w, err = a.store.UpdateWorkerGuarded(workerID,
		[]store.WorkerStatus{store.WorkerWorking, store.WorkerPaused},
		store.WorkerPatch{Status: &merging}, a.clock.Now())
	if err != nil {
		return nil, err
	}

	release, err := a.lockRepo(ctx, repo.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	check, err := a.driver.DryRunMerge(ctx, repo.AbsolutePath, *w.BranchName, repo.DefaultBranch)
	if err != nil {
		return a.failWorker(ctx, w, repo, fmt.Errorf("dry-run merge: %w", err))
	}

	if !check.Clean {
		a.emitConflictHelp(w, repo, check.Conflicts)
		return &Result{MergeStatus: MergeConflicts, Conflicts: check.Conflicts, Worker: w}, nil
	}

	if !autoMerge {
		// Clean, but the caller wants to land it explicitly. The worker
		// stays in merging until resolved.
		return &Result{MergeStatus: MergeClean, Conflicts: []git.Conflict{}, Worker: w}, nil
	}

	return a.applyAndFinalize(ctx, w, repo, git.StrategyClean, 0)
}

// ResolveWorker settles a conflicted (or explicitly held) merge. Strategy
// ours favors the default branch, theirs favors the worker branch, abort
// returns the worker to paused with an aborted history row. A files
// subset narrower than the conflict set fails and leaves the worker in
// merging.
func (a *Arbiter) ResolveWorker(ctx context.Context, workerID, strategy string, files []string) (*Result, error) {
	// Strategy is a pure input check; it fails before any state is read.
	var mergeStrategy git.Strategy
	switch strategy {
	case "abort":
	case "ours":
		mergeStrategy = git.StrategyOurs
	case "theirs":
		mergeStrategy = git.StrategyTheirs
	default:
		return nil, fmt.Errorf("invalid resolution strategy %q", strategy)
	}

	w, err := a.store.GetWorker(workerID)
	if err != nil {
		return nil, err
	}
	if w.Status != store.WorkerMerging {
		return nil, store.NewConflict("resolve worker",
			fmt.Errorf("worker %s is %s, expected merging", workerID, w.Status))
	}
	repo, err := a.store.GetRepo(w.RepoID)
	if err != nil {
		return nil, err
	}
	if w.BranchName == nil {
		return nil, store.NewConflict("resolve worker",
			fmt.Errorf("worker %s has no provisioned branch", workerID))
	}

	release, err := a.lockRepo(ctx, repo.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	if strategy == "abort" {
		return a.abortWorker(ctx, w, repo)
	}

	check, err := a.driver.DryRunMerge(ctx, repo.AbsolutePath, *w.BranchName, repo.DefaultBranch)
	if err != nil {
		return a.failWorker(ctx, w, repo, fmt.Errorf("dry-run merge: %w", err))
	}

	if len(files) > 0 {
		if missing := uncoveredConflicts(check.Conflicts, files); len(missing) > 0 {
			return nil, store.NewConflict("resolve worker",
				fmt.Errorf("files subset leaves conflicts unresolved: %v", missing))
		}
	}

	return a.applyAndFinalize(ctx, w, repo, mergeStrategy, len(check.Conflicts))
}

// uncoveredConflicts returns conflicted files absent from the requested
// subset.
func uncoveredConflicts(conflicts []git.Conflict, files []string) []string {
	selected := map[string]bool{}
	for _, f := range files {
		selected[f] = true
	}
	var missing []string
	for _, c := range conflicts {
		if !selected[c.File] {
			missing = append(missing, c.File)
		}
	}
	return missing
}

// applyAndFinalize lands the merge and writes the terminal bookkeeping:
// stats, worktree teardown, merged transition plus history in one
// transaction, and the info signal.
func (a *Arbiter) applyAndFinalize(ctx context.Context, w *store.Worker, repo *store.Repo, strategy git.Strategy, conflictCount int) (*Result, error) {
	// Stats diff the branch against the merge base, so they must be
	// read before the merge lands; afterwards the diff is empty.
	stats, err := a.driver.Stats(ctx, repo.AbsolutePath, *w.BranchName, repo.DefaultBranch)
	if err != nil {
		a.log.Warn().Err(err).Str("worker", w.ID).Msg("merge stats unavailable")
		stats = &git.Stats{}
	}

	if err := a.driver.ApplyMerge(ctx, repo.AbsolutePath, *w.BranchName, repo.DefaultBranch, strategy); err != nil {
		return a.failWorker(ctx, w, repo, fmt.Errorf("apply merge: %w", err))
	}

	if w.WorktreePath != nil {
		if err := a.driver.RemoveWorktree(ctx, repo.AbsolutePath, *w.WorktreePath, true); err != nil {
			a.log.Warn().Err(err).Str("worker", w.ID).Msg("worktree removal failed")
		}
	}
	if err := a.driver.DeleteBranch(ctx, repo.AbsolutePath, *w.BranchName); err != nil {
		a.log.Warn().Err(err).Str("worker", w.ID).Msg("branch cleanup failed")
	}

	now := a.clock.Now()
	merged := store.WorkerMerged
	history := a.newHistory(w, now, store.OutcomeMerged)
	history.MergeConflicts = conflictCount
	history.FilesChanged = stats.FilesChanged
	history.Insertions = stats.Insertions
	history.Deletions = stats.Deletions

	updated, err := a.store.FinalizeWorker(w.ID,
		[]store.WorkerStatus{store.WorkerMerging},
		store.WorkerPatch{Status: &merged, CompletedAt: &now}, history, now)
	if err != nil {
		return nil, err
	}

	workerID := w.ID
	_, _ = a.bus.Emit(signal.Input{
		RepoID:   repo.ID,
		WorkerID: &workerID,
		Type:     store.SignalInfo,
		Message:  "Worker " + w.ID + " merged cleanly",
		Details: map[string]any{
			"branchName":   *w.BranchName,
			"targetBranch": repo.DefaultBranch,
			"filesChanged": stats.FilesChanged,
		},
	})

	a.log.Info().Str("worker", w.ID).Str("branch", *w.BranchName).Msg("worker merged")
	return &Result{MergeStatus: MergeClean, Conflicts: []git.Conflict{}, Stats: stats, Worker: updated}, nil
}

// abortWorker returns a merging worker to paused and records the aborted
// attempt.
func (a *Arbiter) abortWorker(ctx context.Context, w *store.Worker, repo *store.Repo) (*Result, error) {
	// Nothing is normally in progress on disk, so "no merge to abort"
	// is the expected failure here.
	_ = a.driver.AbortMerge(ctx, repo.AbsolutePath)

	now := a.clock.Now()
	paused := store.WorkerPaused
	history := a.newHistory(w, now, store.OutcomeAborted)

	updated, err := a.store.FinalizeWorker(w.ID,
		[]store.WorkerStatus{store.WorkerMerging},
		store.WorkerPatch{Status: &paused}, history, now)
	if err != nil {
		return nil, err
	}

	a.log.Info().Str("worker", w.ID).Msg("merge aborted, worker paused")
	return &Result{MergeStatus: MergeAborted, Worker: updated}, nil
}

// failWorker records a driver failure: error transition, error history,
// warning signal.
func (a *Arbiter) failWorker(_ context.Context, w *store.Worker, repo *store.Repo, cause error) (*Result, error) {
	now := a.clock.Now()
	errStatus := store.WorkerError
	msg := cause.Error()
	history := a.newHistory(w, now, store.OutcomeError)

	updated, err := a.store.FinalizeWorker(w.ID,
		[]store.WorkerStatus{store.WorkerMerging},
		store.WorkerPatch{Status: &errStatus, Message: &msg, CompletedAt: &now}, history, now)
	if err != nil {
		return nil, errors.Join(cause, err)
	}

	workerID := w.ID
	_, _ = a.bus.Emit(signal.Input{
		RepoID:   repo.ID,
		WorkerID: &workerID,
		Type:     store.SignalWarning,
		Message:  "Worker " + w.ID + " merge failed: " + cause.Error(),
	})

	a.log.Error().Err(cause).Str("worker", w.ID).Msg("merge failed")
	return &Result{MergeStatus: MergeError, Worker: updated}, nil
}

// emitConflictHelp surfaces a conflicted dry run to the operator.
func (a *Arbiter) emitConflictHelp(w *store.Worker, repo *store.Repo, conflicts []git.Conflict) {
	workerID := w.ID
	_, _ = a.bus.Emit(signal.Input{
		RepoID:         repo.ID,
		WorkerID:       &workerID,
		Type:           store.SignalHelp,
		Message:        fmt.Sprintf("Worker %s has %d merge conflicts", w.ID, len(conflicts)),
		ActionRequired: true,
		ActionOptions:  []string{"ours", "theirs", "abort"},
		Details: map[string]any{
			"conflicts":    conflicts,
			"branchName":   *w.BranchName,
			"targetBranch": repo.DefaultBranch,
		},
	})
}

// newHistory seeds a history row from the worker's current record.
func (a *Arbiter) newHistory(w *store.Worker, now time.Time, outcome store.HistoryOutcome) *store.WorkerHistory {
	h := &store.WorkerHistory{
		ID:          ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		RepoID:      w.RepoID,
		WorkerID:    w.ID,
		TaskID:      w.TaskID,
		TaskTitle:   w.TaskTitle,
		BranchName:  w.BranchName,
		Outcome:     outcome,
		StartedAt:   w.StartedAt,
		CompletedAt: now,
	}
	if w.StartedAt != nil {
		ms := now.Sub(*w.StartedAt).Milliseconds()
		if ms < 0 {
			ms = 0
		}
		h.DurationMs = &ms
	}
	return h
}
