package store

import (
	"database/sql"
	"fmt"
	"time"
)

const signalColumns = `id, repo_id, worker_id, type, message, details,
	action_required, action_options, dismissed, created_at, dismissed_at`

// NewSignalID builds a signal id in the canonical
// signal-<unixMs>-<4 alphanum> format.
func NewSignalID(now time.Time) string {
	return fmt.Sprintf("signal-%d-%s", now.UnixMilli(), random4())
}

func scanSignal(row interface{ Scan(...any) error }) (*Signal, error) {
	sig := &Signal{}
	var typ string
	var details, options *string
	err := row.Scan(
		&sig.ID, &sig.RepoID, &sig.WorkerID, &typ, &sig.Message, &details,
		&sig.ActionRequired, &options, &sig.Dismissed, &sig.CreatedAt, &sig.DismissedAt,
	)
	if err != nil {
		return nil, err
	}
	sig.Type = SignalType(typ)
	sig.Details = unmarshalDetails(details)
	if options != nil {
		sig.ActionOptions = unmarshalStrings(*options)
	}
	return sig, nil
}

// CreateSignal appends a signal row.
func (s *Store) CreateSignal(sig *Signal) error {
	var options *string
	if sig.ActionOptions != nil {
		o := marshalStrings(sig.ActionOptions)
		options = &o
	}
	_, err := s.conn.Exec(
		`INSERT INTO signals (`+signalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.ID, sig.RepoID, sig.WorkerID, string(sig.Type), sig.Message,
		marshalDetails(sig.Details), sig.ActionRequired, options,
		sig.Dismissed, sig.CreatedAt, sig.DismissedAt,
	)
	if err != nil {
		return classify("create signal", err)
	}
	return nil
}

// GetSignal retrieves a signal by id.
func (s *Store) GetSignal(id string) (*Signal, error) {
	sig, err := scanSignal(s.conn.QueryRow(
		`SELECT `+signalColumns+` FROM signals WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, notFound("get signal", "signal")
	}
	if err != nil {
		return nil, classify("get signal", err)
	}
	return sig, nil
}

func (s *Store) querySignals(query string, args ...any) ([]*Signal, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, classify("query signals", err)
	}
	defer rows.Close()

	var signals []*Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, classify("query signals", err)
		}
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("query signals", err)
	}
	return signals, nil
}

// ActiveSignals returns a repo's undismissed signals, newest first.
func (s *Store) ActiveSignals(repoID string) ([]*Signal, error) {
	return s.querySignals(
		`SELECT `+signalColumns+` FROM signals
		 WHERE repo_id = ? AND dismissed = 0
		 ORDER BY created_at DESC, id DESC`, repoID)
}

// AllSignals returns every signal for a repo, newest first.
func (s *Store) AllSignals(repoID string) ([]*Signal, error) {
	return s.querySignals(
		`SELECT `+signalColumns+` FROM signals
		 WHERE repo_id = ? ORDER BY created_at DESC, id DESC`, repoID)
}

// HasActiveSignal reports whether an undismissed signal of the given type
// exists for a worker. The sweeper uses this to deduplicate warnings.
func (s *Store) HasActiveSignal(workerID string, typ SignalType) (bool, error) {
	var count int
	err := s.conn.QueryRow(
		`SELECT COUNT(*) FROM signals
		 WHERE worker_id = ? AND type = ? AND dismissed = 0`,
		workerID, string(typ)).Scan(&count)
	if err != nil {
		return false, classify("has active signal", err)
	}
	return count > 0, nil
}

// DismissSignal marks a signal dismissed. Idempotent: re-dismissing does
// not alter dismissedAt.
func (s *Store) DismissSignal(id string, now time.Time) error {
	result, err := s.conn.Exec(
		`UPDATE signals SET dismissed = 1, dismissed_at = ? WHERE id = ? AND dismissed = 0`,
		now.UTC(), id)
	if err != nil {
		return classify("dismiss signal", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return classify("dismiss signal", err)
	}
	if affected == 0 {
		// Either already dismissed (fine) or missing (notFound).
		if _, err := s.GetSignal(id); err != nil {
			return err
		}
	}
	return nil
}

// DismissAllSignals dismisses every active signal for a repo and returns
// the count affected.
func (s *Store) DismissAllSignals(repoID string, now time.Time) (int, error) {
	result, err := s.conn.Exec(
		`UPDATE signals SET dismissed = 1, dismissed_at = ? WHERE repo_id = ? AND dismissed = 0`,
		now.UTC(), repoID)
	if err != nil {
		return 0, classify("dismiss all signals", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, classify("dismiss all signals", err)
	}
	return int(affected), nil
}
