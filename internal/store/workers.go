package store

import (
	"database/sql"
	"fmt"
	"time"
)

const workerColumns = `id, repo_id, username, task_id, task_title, status, message,
	progress, worktree_path, branch_name, created_at, started_at, completed_at,
	heartbeat_at, next_task_id, next_task_title`

// NewWorkerID builds a worker id in the canonical
// worker-<username>-<unixMs>-<4 alphanum> format.
func NewWorkerID(username string, now time.Time) string {
	return fmt.Sprintf("worker-%s-%d-%s", username, now.UnixMilli(), random4())
}

func scanWorker(row interface{ Scan(...any) error }) (*Worker, error) {
	w := &Worker{}
	var status string
	err := row.Scan(
		&w.ID, &w.RepoID, &w.Username, &w.TaskID, &w.TaskTitle, &status, &w.Message,
		&w.Progress, &w.WorktreePath, &w.BranchName, &w.CreatedAt, &w.StartedAt,
		&w.CompletedAt, &w.HeartbeatAt, &w.NextTaskID, &w.NextTaskTitle,
	)
	if err != nil {
		return nil, err
	}
	w.Status = WorkerStatus(status)
	return w, nil
}

// CreateWorker inserts a new worker row.
func (s *Store) CreateWorker(w *Worker) error {
	_, err := s.conn.Exec(
		`INSERT INTO workers (`+workerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.RepoID, w.Username, w.TaskID, w.TaskTitle, string(w.Status), w.Message,
		w.Progress, w.WorktreePath, w.BranchName, w.CreatedAt, w.StartedAt,
		w.CompletedAt, w.HeartbeatAt, w.NextTaskID, w.NextTaskTitle,
	)
	if err != nil {
		return classify("create worker", err)
	}
	return nil
}

// GetWorker retrieves a worker by id.
func (s *Store) GetWorker(id string) (*Worker, error) {
	w, err := scanWorker(s.conn.QueryRow(
		`SELECT `+workerColumns+` FROM workers WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, notFound("get worker", "worker")
	}
	if err != nil {
		return nil, classify("get worker", err)
	}
	return w, nil
}

func (s *Store) queryWorkers(query string, args ...any) ([]*Worker, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, classify("query workers", err)
	}
	defer rows.Close()

	var workers []*Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, classify("query workers", err)
		}
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("query workers", err)
	}
	return workers, nil
}

// ListWorkers returns a repo's workers, newest first.
func (s *Store) ListWorkers(repoID string) ([]*Worker, error) {
	return s.queryWorkers(
		`SELECT `+workerColumns+` FROM workers WHERE repo_id = ? ORDER BY created_at DESC, id DESC`,
		repoID)
}

// ActiveWorkerForTask returns the non-terminal worker bound to (repo,
// task), or notFound.
func (s *Store) ActiveWorkerForTask(repoID, taskID string) (*Worker, error) {
	w, err := scanWorker(s.conn.QueryRow(
		`SELECT `+workerColumns+` FROM workers
		 WHERE repo_id = ? AND task_id = ? AND status NOT IN (?, ?, ?)
		 LIMIT 1`,
		repoID, taskID, string(WorkerMerged), string(WorkerError), string(WorkerCancelled)))
	if err == sql.ErrNoRows {
		return nil, notFound("active worker for task", "worker")
	}
	if err != nil {
		return nil, classify("active worker for task", err)
	}
	return w, nil
}

// CountActiveWorkers counts a repo's non-terminal workers.
func (s *Store) CountActiveWorkers(repoID string) (int, error) {
	var count int
	err := s.conn.QueryRow(
		`SELECT COUNT(*) FROM workers
		 WHERE repo_id = ? AND status NOT IN (?, ?, ?)`,
		repoID, string(WorkerMerged), string(WorkerError), string(WorkerCancelled)).Scan(&count)
	if err != nil {
		return 0, classify("count active workers", err)
	}
	return count, nil
}

// DeadWorkers returns working/merging workers whose heartbeat is older
// than the cutoff.
func (s *Store) DeadWorkers(repoID string, cutoff time.Time) ([]*Worker, error) {
	return s.queryWorkers(
		`SELECT `+workerColumns+` FROM workers
		 WHERE repo_id = ? AND status IN (?, ?)
		   AND (heartbeat_at IS NULL OR heartbeat_at < ?)
		 ORDER BY created_at`,
		repoID, string(WorkerWorking), string(WorkerMerging), cutoff.UTC())
}

// AllDeadWorkers is DeadWorkers across every repo, for the sweeper.
func (s *Store) AllDeadWorkers(cutoff time.Time) ([]*Worker, error) {
	return s.queryWorkers(
		`SELECT `+workerColumns+` FROM workers
		 WHERE status IN (?, ?) AND (heartbeat_at IS NULL OR heartbeat_at < ?)
		 ORDER BY created_at`,
		string(WorkerWorking), string(WorkerMerging), cutoff.UTC())
}

// WorkerPatch carries partial worker updates; nil fields are untouched.
// HeartbeatAt is always refreshed by the write itself.
type WorkerPatch struct {
	Status        *WorkerStatus
	Message       *string
	Progress      *int
	WorktreePath  *string
	BranchName    *string
	StartedAt     *time.Time
	CompletedAt   *time.Time
	NextTaskID    *string
	NextTaskTitle *string
}

// UpdateWorkerGuarded applies a patch if the worker's current status is in
// allowedFrom (empty slice allows any). The read, the guard, and the write
// share one transaction so concurrent transitions serialize; a guard miss
// fails with conflict. Every write refreshes heartbeat_at.
func (s *Store) UpdateWorkerGuarded(id string, allowedFrom []WorkerStatus, patch WorkerPatch, now time.Time) (*Worker, error) {
	var updated *Worker
	err := s.InTransaction(func(tx *sql.Tx) error {
		w, err := scanWorker(tx.QueryRow(
			`SELECT `+workerColumns+` FROM workers WHERE id = ?`, id))
		if err == sql.ErrNoRows {
			return notFound("update worker", "worker")
		}
		if err != nil {
			return classify("update worker", err)
		}

		if len(allowedFrom) > 0 {
			allowed := false
			for _, from := range allowedFrom {
				if w.Status == from {
					allowed = true
					break
				}
			}
			if !allowed {
				return conflict("update worker",
					fmt.Errorf("worker %s is %s, expected one of %v", id, w.Status, allowedFrom))
			}
		}

		if patch.Status != nil {
			w.Status = *patch.Status
		}
		if patch.Message != nil {
			w.Message = patch.Message
		}
		if patch.Progress != nil {
			w.Progress = *patch.Progress
		}
		if patch.WorktreePath != nil {
			w.WorktreePath = patch.WorktreePath
		}
		if patch.BranchName != nil {
			w.BranchName = patch.BranchName
		}
		if patch.StartedAt != nil {
			w.StartedAt = patch.StartedAt
		}
		if patch.CompletedAt != nil {
			w.CompletedAt = patch.CompletedAt
		}
		if patch.NextTaskID != nil {
			w.NextTaskID = patch.NextTaskID
		}
		if patch.NextTaskTitle != nil {
			w.NextTaskTitle = patch.NextTaskTitle
		}
		hb := now.UTC()
		w.HeartbeatAt = &hb

		if _, err := tx.Exec(
			`UPDATE workers SET status = ?, message = ?, progress = ?, worktree_path = ?,
				branch_name = ?, started_at = ?, completed_at = ?, heartbeat_at = ?,
				next_task_id = ?, next_task_title = ?
			 WHERE id = ?`,
			string(w.Status), w.Message, w.Progress, w.WorktreePath,
			w.BranchName, w.StartedAt, w.CompletedAt, w.HeartbeatAt,
			w.NextTaskID, w.NextTaskTitle, w.ID,
		); err != nil {
			return classify("update worker", err)
		}
		updated = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// FinalizeWorker applies a terminal patch and writes the history row in
// the same transaction: the terminal transition and its history record
// exist together or not at all.
func (s *Store) FinalizeWorker(id string, allowedFrom []WorkerStatus, patch WorkerPatch, history *WorkerHistory, now time.Time) (*Worker, error) {
	var updated *Worker
	err := s.InTransaction(func(tx *sql.Tx) error {
		w, err := scanWorker(tx.QueryRow(
			`SELECT `+workerColumns+` FROM workers WHERE id = ?`, id))
		if err == sql.ErrNoRows {
			return notFound("finalize worker", "worker")
		}
		if err != nil {
			return classify("finalize worker", err)
		}

		if len(allowedFrom) > 0 {
			allowed := false
			for _, from := range allowedFrom {
				if w.Status == from {
					allowed = true
					break
				}
			}
			if !allowed {
				return conflict("finalize worker",
					fmt.Errorf("worker %s is %s, expected one of %v", id, w.Status, allowedFrom))
			}
		}

		if patch.Status != nil {
			w.Status = *patch.Status
		}
		if patch.Message != nil {
			w.Message = patch.Message
		}
		if patch.Progress != nil {
			w.Progress = *patch.Progress
		}
		if patch.CompletedAt != nil {
			w.CompletedAt = patch.CompletedAt
		}
		hb := now.UTC()
		w.HeartbeatAt = &hb

		if _, err := tx.Exec(
			`UPDATE workers SET status = ?, message = ?, progress = ?, completed_at = ?, heartbeat_at = ?
			 WHERE id = ?`,
			string(w.Status), w.Message, w.Progress, w.CompletedAt, w.HeartbeatAt, w.ID,
		); err != nil {
			return classify("finalize worker", err)
		}

		if history != nil {
			if _, err := tx.Exec(
				`INSERT INTO worker_history (id, repo_id, worker_id, task_id, task_title,
					branch_name, outcome, merge_conflicts, files_changed, insertions,
					deletions, started_at, completed_at, duration_ms)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				history.ID, history.RepoID, history.WorkerID, history.TaskID, history.TaskTitle,
				history.BranchName, string(history.Outcome), history.MergeConflicts,
				history.FilesChanged, history.Insertions, history.Deletions,
				history.StartedAt, history.CompletedAt, history.DurationMs,
			); err != nil {
				return classify("finalize worker", err)
			}
		}
		updated = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteWorker removes a worker row. Non-terminal workers require force.
func (s *Store) DeleteWorker(id string, force bool) error {
	w, err := s.GetWorker(id)
	if err != nil {
		return err
	}
	if !w.Status.IsTerminal() && !force {
		return conflict("delete worker",
			fmt.Errorf("worker %s is %s; pass force to delete a non-terminal worker", id, w.Status))
	}
	if _, err := s.conn.Exec(`DELETE FROM workers WHERE id = ?`, id); err != nil {
		return classify("delete worker", err)
	}
	return nil
}
