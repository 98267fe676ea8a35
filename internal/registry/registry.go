// Package registry owns the worker lifecycle state machine. All status
// changes flow through here (or through the arbiter, which alone may
// drive workers into merging, merged, or error).
package registry

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/chkd/chkd/internal/clock"
	"github.com/chkd/chkd/internal/signal"
	"github.com/chkd/chkd/internal/store"
)

// ValidTransitions is the worker state graph. Terminal states have no
// successors.
var ValidTransitions = map[store.WorkerStatus][]store.WorkerStatus{
	store.WorkerPending:   {store.WorkerWaiting, store.WorkerCancelled, store.WorkerError},
	store.WorkerWaiting:   {store.WorkerWorking, store.WorkerCancelled, store.WorkerError},
	store.WorkerWorking:   {store.WorkerPaused, store.WorkerMerging, store.WorkerCancelled, store.WorkerError},
	store.WorkerPaused:    {store.WorkerWorking, store.WorkerMerging, store.WorkerCancelled, store.WorkerError},
	store.WorkerMerging:   {store.WorkerMerged, store.WorkerPaused, store.WorkerCancelled, store.WorkerError},
	store.WorkerMerged:    {},
	store.WorkerError:     {},
	store.WorkerCancelled: {},
}

// arbiterOnly are the statuses only the merge arbiter may drive a worker
// into.
var arbiterOnly = map[store.WorkerStatus]bool{
	store.WorkerMerging: true,
	store.WorkerMerged:  true,
	store.WorkerError:   true,
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to store.WorkerStatus) bool {
	for _, next := range ValidTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transitionSources returns every status from which "to" is reachable,
// for use as an atomic update guard.
func transitionSources(to store.WorkerStatus) []store.WorkerStatus {
	var sources []store.WorkerStatus
	for from, targets := range ValidTransitions {
		for _, next := range targets {
			if next == to {
				sources = append(sources, from)
			}
		}
	}
	return sources
}

// Registry manages worker records for the engine.
type Registry struct {
	store *store.Store
	clock clock.Clock
	bus   *signal.Bus
	log   zerolog.Logger
}

// NewRegistry builds a Registry.
func NewRegistry(st *store.Store, clk clock.Clock, bus *signal.Bus, log zerolog.Logger) *Registry {
	return &Registry{store: st, clock: clk, bus: bus, log: log}
}

// SpawnInput names the task a new worker will carry.
type SpawnInput struct {
	Repo          *store.Repo
	Username      string
	TaskID        string
	TaskTitle     string
	NextTaskID    *string
	NextTaskTitle *string
}

// Create inserts a pending worker, enforcing at most one active worker
// per (repo, task).
func (r *Registry) Create(in SpawnInput) (*store.Worker, error) {
	if in.Username == "" {
		return nil, fmt.Errorf("username must not be empty")
	}
	if in.TaskID == "" {
		return nil, fmt.Errorf("taskId must not be empty")
	}

	existing, err := r.store.ActiveWorkerForTask(in.Repo.ID, in.TaskID)
	if err != nil && !store.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, store.NewConflict("spawn worker",
			fmt.Errorf("task %s already has active worker %s", in.TaskID, existing.ID))
	}

	now := r.clock.Now()
	w := &store.Worker{
		ID:            store.NewWorkerID(in.Username, now),
		RepoID:        in.Repo.ID,
		Username:      in.Username,
		TaskID:        &in.TaskID,
		TaskTitle:     &in.TaskTitle,
		Status:        store.WorkerPending,
		CreatedAt:     now,
		NextTaskID:    in.NextTaskID,
		NextTaskTitle: in.NextTaskTitle,
	}
	if err := r.store.CreateWorker(w); err != nil {
		return nil, err
	}
	r.log.Info().Str("worker", w.ID).Str("task", in.TaskID).Msg("worker created")
	return w, nil
}

// Activate moves a freshly provisioned worker from pending to waiting,
// recording its worktree and branch.
func (r *Registry) Activate(workerID, worktreePath, branchName string) (*store.Worker, error) {
	waiting := store.WorkerWaiting
	return r.store.UpdateWorkerGuarded(workerID,
		[]store.WorkerStatus{store.WorkerPending},
		store.WorkerPatch{
			Status:       &waiting,
			WorktreePath: &worktreePath,
			BranchName:   &branchName,
		}, r.clock.Now())
}

// UpdateInput is the caller-facing partial worker update.
type UpdateInput struct {
	Status   *store.WorkerStatus
	Message  *string
	Progress *int
}

// Update applies a caller-driven mutation. Status changes are validated
// against the state graph; arbiter-only targets are rejected. Every
// write refreshes the heartbeat.
func (r *Registry) Update(workerID string, in UpdateInput) (*store.Worker, error) {
	if in.Progress != nil && (*in.Progress < 0 || *in.Progress > 100) {
		return nil, fmt.Errorf("progress must be in [0,100], got %d", *in.Progress)
	}

	patch := store.WorkerPatch{Message: in.Message, Progress: in.Progress}
	var allowedFrom []store.WorkerStatus

	if in.Status != nil {
		target := *in.Status
		if !store.ValidWorkerStatus(string(target)) {
			return nil, fmt.Errorf("invalid worker status %q", target)
		}
		if arbiterOnly[target] {
			return nil, store.NewConflict("update worker",
				fmt.Errorf("status %s is assigned by the merge arbiter only", target))
		}
		allowedFrom = transitionSources(target)
		if len(allowedFrom) == 0 {
			// Nothing transitions into pending; an empty guard would
			// read as "allow any" at the store.
			return nil, store.NewConflict("update worker",
				fmt.Errorf("no status transitions into %s", target))
		}
		patch.Status = &target

		if target == store.WorkerWorking {
			// First entry to working stamps startedAt.
			w, err := r.store.GetWorker(workerID)
			if err != nil {
				return nil, err
			}
			if w.StartedAt == nil {
				now := r.clock.Now()
				patch.StartedAt = &now
			}
		}
	}

	return r.store.UpdateWorkerGuarded(workerID, allowedFrom, patch, r.clock.Now())
}

// Heartbeat refreshes a worker's liveness timestamp without changing
// anything else.
func (r *Registry) Heartbeat(workerID string) (*store.Worker, error) {
	return r.store.UpdateWorkerGuarded(workerID, nil, store.WorkerPatch{}, r.clock.Now())
}

// Get returns one worker.
func (r *Registry) Get(workerID string) (*store.Worker, error) {
	return r.store.GetWorker(workerID)
}

// List returns a repo's workers, newest first.
func (r *Registry) List(repoID string) ([]*store.Worker, error) {
	return r.store.ListWorkers(repoID)
}

// Delete removes a worker record; non-terminal workers require force.
func (r *Registry) Delete(workerID string, force bool) error {
	return r.store.DeleteWorker(workerID, force)
}
