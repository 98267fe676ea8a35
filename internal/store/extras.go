package store

// Bugs and quick-wins are simple side records with trivial CRUD.

// CreateBug records a defect against a repo, optionally tied to an item.
func (s *Store) CreateBug(repoID, title string, itemID *string) (*Bug, error) {
	bug := &Bug{
		ID:        newULID(),
		RepoID:    repoID,
		ItemID:    itemID,
		Title:     title,
		Status:    "open",
		CreatedAt: s.now().UTC(),
	}
	_, err := s.conn.Exec(
		`INSERT INTO bugs (id, repo_id, item_id, title, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		bug.ID, bug.RepoID, bug.ItemID, bug.Title, bug.Status, bug.CreatedAt)
	if err != nil {
		return nil, classify("create bug", err)
	}
	return bug, nil
}

// ListBugs returns a repo's bugs, newest first.
func (s *Store) ListBugs(repoID string) ([]*Bug, error) {
	rows, err := s.conn.Query(
		`SELECT id, repo_id, item_id, title, status, created_at FROM bugs
		 WHERE repo_id = ? ORDER BY created_at DESC`, repoID)
	if err != nil {
		return nil, classify("list bugs", err)
	}
	defer rows.Close()

	var bugs []*Bug
	for rows.Next() {
		b := &Bug{}
		if err := rows.Scan(&b.ID, &b.RepoID, &b.ItemID, &b.Title, &b.Status, &b.CreatedAt); err != nil {
			return nil, classify("list bugs", err)
		}
		bugs = append(bugs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list bugs", err)
	}
	return bugs, nil
}

// FixBug marks a bug fixed.
func (s *Store) FixBug(id string) error {
	result, err := s.conn.Exec(`UPDATE bugs SET status = 'fixed' WHERE id = ?`, id)
	if err != nil {
		return classify("fix bug", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return classify("fix bug", err)
	}
	if affected == 0 {
		return notFound("fix bug", "bug")
	}
	return nil
}

// CreateQuickWin records a small win candidate.
func (s *Store) CreateQuickWin(repoID, title string) (*QuickWin, error) {
	qw := &QuickWin{
		ID:        newULID(),
		RepoID:    repoID,
		Title:     title,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.conn.Exec(
		`INSERT INTO quick_wins (id, repo_id, title, done, created_at) VALUES (?, ?, ?, 0, ?)`,
		qw.ID, qw.RepoID, qw.Title, qw.CreatedAt)
	if err != nil {
		return nil, classify("create quick win", err)
	}
	return qw, nil
}

// ListQuickWins returns a repo's quick wins, newest first.
func (s *Store) ListQuickWins(repoID string) ([]*QuickWin, error) {
	rows, err := s.conn.Query(
		`SELECT id, repo_id, title, done, created_at FROM quick_wins
		 WHERE repo_id = ? ORDER BY created_at DESC`, repoID)
	if err != nil {
		return nil, classify("list quick wins", err)
	}
	defer rows.Close()

	var wins []*QuickWin
	for rows.Next() {
		qw := &QuickWin{}
		if err := rows.Scan(&qw.ID, &qw.RepoID, &qw.Title, &qw.Done, &qw.CreatedAt); err != nil {
			return nil, classify("list quick wins", err)
		}
		wins = append(wins, qw)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list quick wins", err)
	}
	return wins, nil
}

// CompleteQuickWin marks a quick win done.
func (s *Store) CompleteQuickWin(id string) error {
	result, err := s.conn.Exec(`UPDATE quick_wins SET done = 1 WHERE id = ?`, id)
	if err != nil {
		return classify("complete quick win", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return classify("complete quick win", err)
	}
	if affected == 0 {
		return notFound("complete quick win", "quick win")
	}
	return nil
}
