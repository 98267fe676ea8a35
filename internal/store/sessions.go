package store

import (
	"database/sql"
	"time"
)

const sessionColumns = `repo_id, current_task, current_item, current_item_start_time,
	status, mode, start_time, iteration, last_activity,
	files_touched, bug_fixes, scope_changes, deviations, also_did,
	anchor_task_id, anchor_task_title, anchor_set_at, anchor_set_by, updated_at`

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	sess := &Session{}
	var status string
	var mode *string
	var filesTouched, bugFixes, scopeChanges, deviations, alsoDid string
	var anchorTaskID, anchorTitle, anchorSetBy *string
	var anchorSetAt *time.Time
	err := row.Scan(
		&sess.RepoID, &sess.CurrentTask, &sess.CurrentItem, &sess.CurrentItemStartTime,
		&status, &mode, &sess.StartTime, &sess.Iteration, &sess.LastActivity,
		&filesTouched, &bugFixes, &scopeChanges, &deviations, &alsoDid,
		&anchorTaskID, &anchorTitle, &anchorSetAt, &anchorSetBy, &sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sess.Status = SessionStatus(status)
	if mode != nil {
		m := SessionMode(*mode)
		sess.Mode = &m
	}
	sess.FilesTouched = unmarshalStrings(filesTouched)
	sess.BugFixes = unmarshalStrings(bugFixes)
	sess.ScopeChanges = unmarshalStrings(scopeChanges)
	sess.Deviations = unmarshalStrings(deviations)
	sess.AlsoDid = unmarshalStrings(alsoDid)
	if anchorTaskID != nil && anchorSetAt != nil {
		anchor := &Anchor{TaskID: *anchorTaskID, SetAt: *anchorSetAt}
		if anchorTitle != nil {
			anchor.TaskTitle = *anchorTitle
		}
		if anchorSetBy != nil {
			anchor.SetBy = *anchorSetBy
		}
		sess.Anchor = anchor
	}
	return sess, nil
}

// GetSession retrieves the session for a repo, or notFound when none
// exists yet.
func (s *Store) GetSession(repoID string) (*Session, error) {
	sess, err := scanSession(s.conn.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE repo_id = ?`, repoID))
	if err == sql.ErrNoRows {
		return nil, notFound("get session", "session")
	}
	if err != nil {
		return nil, classify("get session", err)
	}
	return sess, nil
}

// SaveSession upserts the full session row for a repo.
func (s *Store) SaveSession(sess *Session) error {
	var mode *string
	if sess.Mode != nil {
		m := string(*sess.Mode)
		mode = &m
	}
	var anchorTaskID, anchorTitle, anchorSetBy *string
	var anchorSetAt *time.Time
	if sess.Anchor != nil {
		anchorTaskID = &sess.Anchor.TaskID
		anchorTitle = &sess.Anchor.TaskTitle
		setAt := sess.Anchor.SetAt
		anchorSetAt = &setAt
		anchorSetBy = &sess.Anchor.SetBy
	}

	_, err := s.conn.Exec(
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(repo_id) DO UPDATE SET
			current_task = excluded.current_task,
			current_item = excluded.current_item,
			current_item_start_time = excluded.current_item_start_time,
			status = excluded.status,
			mode = excluded.mode,
			start_time = excluded.start_time,
			iteration = excluded.iteration,
			last_activity = excluded.last_activity,
			files_touched = excluded.files_touched,
			bug_fixes = excluded.bug_fixes,
			scope_changes = excluded.scope_changes,
			deviations = excluded.deviations,
			also_did = excluded.also_did,
			anchor_task_id = excluded.anchor_task_id,
			anchor_task_title = excluded.anchor_task_title,
			anchor_set_at = excluded.anchor_set_at,
			anchor_set_by = excluded.anchor_set_by,
			updated_at = excluded.updated_at`,
		sess.RepoID, sess.CurrentTask, sess.CurrentItem, sess.CurrentItemStartTime,
		string(sess.Status), mode, sess.StartTime, sess.Iteration, sess.LastActivity,
		marshalStrings(sess.FilesTouched), marshalStrings(sess.BugFixes),
		marshalStrings(sess.ScopeChanges), marshalStrings(sess.Deviations),
		marshalStrings(sess.AlsoDid),
		anchorTaskID, anchorTitle, anchorSetAt, anchorSetBy, sess.UpdatedAt,
	)
	if err != nil {
		return classify("save session", err)
	}
	return nil
}
