package engine

import (
	"context"
	"fmt"
	"os/user"
	"time"

	"github.com/chkd/chkd/internal/arbiter"
	"github.com/chkd/chkd/internal/registry"
	"github.com/chkd/chkd/internal/signal"
	"github.com/chkd/chkd/internal/store"
)

// SpawnRequest names the repo and task a new worker should carry.
type SpawnRequest struct {
	RepoPath      string
	TaskID        string
	TaskTitle     string
	Username      string
	NextTaskID    *string
	NextTaskTitle *string
}

// Workers lists a repo's workers, newest first.
func (e *Engine) Workers(repoID string) ([]*store.Worker, error) {
	return retryIO(func() ([]*store.Worker, error) { return e.registry.List(repoID) })
}

// Worker fetches one worker by id.
func (e *Engine) Worker(id string) (*store.Worker, error) {
	return retryIO(func() (*store.Worker, error) { return e.registry.Get(id) })
}

// DeadWorkers lists working/merging workers whose heartbeat is older
// than the threshold. Zero means the configured default.
func (e *Engine) DeadWorkers(repoID string, threshold time.Duration) ([]*store.Worker, error) {
	if threshold <= 0 {
		threshold = e.cfg.HeartbeatThreshold()
	}
	cutoff := e.clock.Now().Add(-threshold)
	return e.store.DeadWorkers(repoID, cutoff)
}

// SpawnWorker creates a worker record, provisions its worktree and
// branch, and activates it. The record is removed again if provisioning
// fails.
func (e *Engine) SpawnWorker(ctx context.Context, req SpawnRequest) (*store.Worker, error) {
	repo, err := e.RepoByPath(req.RepoPath)
	if err != nil {
		return nil, err
	}
	username := req.Username
	if username == "" {
		username = currentUsername()
	}

	// Normalize the task id against the item set when it resolves;
	// spawning against an untracked task id is still allowed.
	taskID, taskTitle := req.TaskID, req.TaskTitle
	if it, err := e.store.FindOneItem(repo.ID, req.TaskID); err != nil {
		return nil, err
	} else if it != nil {
		taskID = it.DisplayID
		if taskTitle == "" {
			taskTitle = it.Title
		}
	}

	w, err := e.registry.Create(registry.SpawnInput{
		Repo:          repo,
		Username:      username,
		TaskID:        taskID,
		TaskTitle:     taskTitle,
		NextTaskID:    req.NextTaskID,
		NextTaskTitle: req.NextTaskTitle,
	})
	if err != nil {
		return nil, err
	}

	wt, err := e.driver.CreateWorktree(ctx, repo.AbsolutePath, repo.DefaultBranch, username, taskID, taskTitle)
	if err != nil {
		if delErr := e.registry.Delete(w.ID, true); delErr != nil {
			e.log.Warn().Err(delErr).Str("worker", w.ID).Msg("orphaned worker record after provision failure")
		}
		return nil, fmt.Errorf("provision worktree: %w", err)
	}

	activated, err := e.registry.Activate(w.ID, wt.Path, wt.Branch)
	if err != nil {
		return nil, err
	}

	if _, err := e.bus.Emit(signal.Input{
		RepoID:   repo.ID,
		WorkerID: &w.ID,
		Type:     store.SignalInfo,
		Message:  fmt.Sprintf("Worker spawned for %s", taskID),
		Details: map[string]any{
			"workerId":     w.ID,
			"taskId":       taskID,
			"branchName":   wt.Branch,
			"worktreePath": wt.Path,
		},
	}); err != nil {
		e.log.Warn().Err(err).Msg("spawn signal not emitted")
	}
	return activated, nil
}

// UpdateWorker applies a caller-driven worker mutation.
func (e *Engine) UpdateWorker(id string, in registry.UpdateInput) (*store.Worker, error) {
	return e.registry.Update(id, in)
}

// Heartbeat refreshes a worker's liveness timestamp.
func (e *Engine) Heartbeat(id string) (*store.Worker, error) {
	return e.registry.Heartbeat(id)
}

// CompleteWorker hands the worker to the arbiter for merge.
func (e *Engine) CompleteWorker(ctx context.Context, id string, autoMerge bool) (*arbiter.Result, error) {
	return e.arbiter.CompleteWorker(ctx, id, autoMerge)
}

// ResolveWorker settles a conflicted merge with the given strategy.
func (e *Engine) ResolveWorker(ctx context.Context, id, strategy string, files []string) (*arbiter.Result, error) {
	return e.arbiter.ResolveWorker(ctx, id, strategy, files)
}

// DeleteWorker removes a worker record. With force, a provisioned
// worktree and branch are cleaned up best-effort first.
func (e *Engine) DeleteWorker(ctx context.Context, id string, force bool) error {
	w, err := e.registry.Get(id)
	if err != nil {
		return err
	}
	if force && w.WorktreePath != nil {
		repo, err := e.store.GetRepo(w.RepoID)
		if err == nil {
			if err := e.driver.RemoveWorktree(ctx, repo.AbsolutePath, *w.WorktreePath, true); err != nil {
				e.log.Warn().Err(err).Str("worker", id).Msg("worktree cleanup failed")
			}
			if w.BranchName != nil {
				if err := e.driver.DeleteBranch(ctx, repo.AbsolutePath, *w.BranchName); err != nil {
					e.log.Warn().Err(err).Str("worker", id).Msg("branch cleanup failed")
				}
			}
		}
	}
	return e.registry.Delete(id, force)
}

// History lists completed worker runs for a repo.
func (e *Engine) History(repoID string) ([]*store.WorkerHistory, error) {
	return e.store.ListHistory(repoID)
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "worker"
}
