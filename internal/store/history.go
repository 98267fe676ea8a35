package store

const historyColumns = `id, repo_id, worker_id, task_id, task_title, branch_name,
	outcome, merge_conflicts, files_changed, insertions, deletions,
	started_at, completed_at, duration_ms`

func scanHistory(row interface{ Scan(...any) error }) (*WorkerHistory, error) {
	h := &WorkerHistory{}
	var outcome string
	err := row.Scan(
		&h.ID, &h.RepoID, &h.WorkerID, &h.TaskID, &h.TaskTitle, &h.BranchName,
		&outcome, &h.MergeConflicts, &h.FilesChanged, &h.Insertions, &h.Deletions,
		&h.StartedAt, &h.CompletedAt, &h.DurationMs,
	)
	if err != nil {
		return nil, err
	}
	h.Outcome = HistoryOutcome(outcome)
	return h, nil
}

func (s *Store) queryHistory(query string, args ...any) ([]*WorkerHistory, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, classify("query history", err)
	}
	defer rows.Close()

	var out []*WorkerHistory
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, classify("query history", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("query history", err)
	}
	return out, nil
}

// ListHistory returns a repo's worker history, newest first.
func (s *Store) ListHistory(repoID string) ([]*WorkerHistory, error) {
	return s.queryHistory(
		`SELECT `+historyColumns+` FROM worker_history WHERE repo_id = ? ORDER BY completed_at DESC, id DESC`,
		repoID)
}

// HistoryForWorker returns the history rows written for one worker.
func (s *Store) HistoryForWorker(workerID string) ([]*WorkerHistory, error) {
	return s.queryHistory(
		`SELECT `+historyColumns+` FROM worker_history WHERE worker_id = ? ORDER BY completed_at`,
		workerID)
}
