package store

import (
	"database/sql"
	"time"
)

// RecordItemDuration upserts the time a completed item took. One row per
// item; a re-completed item overwrites its previous duration.
func (s *Store) RecordItemDuration(itemID, repoID string, durationMs int64, completedAt time.Time) error {
	_, err := s.conn.Exec(
		`INSERT INTO item_durations (item_id, repo_id, duration_ms, completed_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(item_id) DO UPDATE SET duration_ms = excluded.duration_ms,
		 	completed_at = excluded.completed_at`,
		itemID, repoID, durationMs, completedAt.UTC())
	if err != nil {
		return classify("record item duration", err)
	}
	return nil
}

// GetItemDuration retrieves the recorded duration for an item.
func (s *Store) GetItemDuration(itemID string) (*ItemDuration, error) {
	d := &ItemDuration{}
	err := s.conn.QueryRow(
		`SELECT item_id, repo_id, duration_ms, completed_at FROM item_durations WHERE item_id = ?`,
		itemID).Scan(&d.ItemID, &d.RepoID, &d.DurationMs, &d.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, notFound("get item duration", "item duration")
	}
	if err != nil {
		return nil, classify("get item duration", err)
	}
	return d, nil
}

// ListItemDurations returns a repo's recorded durations, newest first.
func (s *Store) ListItemDurations(repoID string) ([]*ItemDuration, error) {
	rows, err := s.conn.Query(
		`SELECT item_id, repo_id, duration_ms, completed_at FROM item_durations
		 WHERE repo_id = ? ORDER BY completed_at DESC`, repoID)
	if err != nil {
		return nil, classify("list item durations", err)
	}
	defer rows.Close()

	var out []*ItemDuration
	for rows.Next() {
		d := &ItemDuration{}
		if err := rows.Scan(&d.ItemID, &d.RepoID, &d.DurationMs, &d.CompletedAt); err != nil {
			return nil, classify("list item durations", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list item durations", err)
	}
	return out, nil
}
