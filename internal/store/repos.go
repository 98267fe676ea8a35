package store

import (
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

func newULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.DefaultEntropy()).String()
}

// random4 returns four random alphanumerics, used as the tail of worker
// and signal ids.
func random4() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 4)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}

const repoColumns = `id, absolute_path, display_name, default_branch, enabled, created_at, updated_at`

// CreateRepo inserts a new tracked repository. The absolute path must be
// unique; a duplicate fails with a conflict error.
func (s *Store) CreateRepo(absolutePath, displayName, defaultBranch string) (*Repo, error) {
	now := s.now().UTC()
	repo := &Repo{
		ID:            newULID(),
		AbsolutePath:  absolutePath,
		DisplayName:   displayName,
		DefaultBranch: defaultBranch,
		Enabled:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := s.conn.Exec(
		`INSERT INTO repos (`+repoColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		repo.ID, repo.AbsolutePath, repo.DisplayName, repo.DefaultBranch,
		repo.Enabled, repo.CreatedAt, repo.UpdatedAt,
	)
	if err != nil {
		return nil, classify("create repo", err)
	}
	return repo, nil
}

func scanRepo(row interface{ Scan(...any) error }) (*Repo, error) {
	repo := &Repo{}
	err := row.Scan(
		&repo.ID, &repo.AbsolutePath, &repo.DisplayName, &repo.DefaultBranch,
		&repo.Enabled, &repo.CreatedAt, &repo.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// GetRepo retrieves a repository by id.
func (s *Store) GetRepo(id string) (*Repo, error) {
	repo, err := scanRepo(s.conn.QueryRow(
		`SELECT `+repoColumns+` FROM repos WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, notFound("get repo", "repo")
	}
	if err != nil {
		return nil, classify("get repo", err)
	}
	return repo, nil
}

// GetRepoByPath retrieves a repository by its absolute path.
func (s *Store) GetRepoByPath(absolutePath string) (*Repo, error) {
	repo, err := scanRepo(s.conn.QueryRow(
		`SELECT `+repoColumns+` FROM repos WHERE absolute_path = ?`, absolutePath))
	if err == sql.ErrNoRows {
		return nil, notFound("get repo by path", "repo")
	}
	if err != nil {
		return nil, classify("get repo by path", err)
	}
	return repo, nil
}

// ListRepos returns all tracked repositories ordered by display name.
func (s *Store) ListRepos() ([]*Repo, error) {
	rows, err := s.conn.Query(
		`SELECT ` + repoColumns + ` FROM repos ORDER BY display_name, absolute_path`)
	if err != nil {
		return nil, classify("list repos", err)
	}
	defer rows.Close()

	var repos []*Repo
	for rows.Next() {
		repo, err := scanRepo(rows)
		if err != nil {
			return nil, classify("list repos", err)
		}
		repos = append(repos, repo)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list repos", err)
	}
	return repos, nil
}

// UpdateRepo updates the mutable repository fields.
func (s *Store) UpdateRepo(id string, displayName, defaultBranch *string, enabled *bool) (*Repo, error) {
	repo, err := s.GetRepo(id)
	if err != nil {
		return nil, err
	}
	if displayName != nil {
		repo.DisplayName = *displayName
	}
	if defaultBranch != nil {
		repo.DefaultBranch = *defaultBranch
	}
	if enabled != nil {
		repo.Enabled = *enabled
	}
	repo.UpdatedAt = s.now().UTC()

	_, err = s.conn.Exec(
		`UPDATE repos SET display_name = ?, default_branch = ?, enabled = ?, updated_at = ? WHERE id = ?`,
		repo.DisplayName, repo.DefaultBranch, repo.Enabled, repo.UpdatedAt, repo.ID,
	)
	if err != nil {
		return nil, classify("update repo", err)
	}
	return repo, nil
}

// DeleteRepo removes a repository. It refuses while non-terminal workers
// exist for it, so in-flight merges are never orphaned.
func (s *Store) DeleteRepo(id string) error {
	active, err := s.CountActiveWorkers(id)
	if err != nil {
		return err
	}
	if active > 0 {
		return conflict("delete repo",
			fmt.Errorf("%d active workers still attached to repo %s", active, id))
	}

	return s.InTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("PRAGMA defer_foreign_keys=ON"); err != nil {
			return classify("delete repo", err)
		}
		for _, stmt := range []string{
			`DELETE FROM item_tags WHERE item_id IN (SELECT id FROM items WHERE repo_id = ?)`,
			`DELETE FROM item_durations WHERE repo_id = ?`,
			`DELETE FROM items WHERE repo_id = ?`,
			`DELETE FROM sessions WHERE repo_id = ?`,
			`DELETE FROM workers WHERE repo_id = ?`,
			`DELETE FROM worker_history WHERE repo_id = ?`,
			`DELETE FROM signals WHERE repo_id = ?`,
			`DELETE FROM bugs WHERE repo_id = ?`,
			`DELETE FROM quick_wins WHERE repo_id = ?`,
			`DELETE FROM repos WHERE id = ?`,
		} {
			if _, err := tx.Exec(stmt, id); err != nil {
				return classify("delete repo", err)
			}
		}
		return nil
	})
}
