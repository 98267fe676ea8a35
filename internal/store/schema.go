package store

import "fmt"

// migrate creates the schema and applies pending additive column
// migrations. Schema evolution is forward-only and never destructive.
func (s *Store) migrate() error {
	schema := `
-- Repositories: one row per tracked checkout
CREATE TABLE IF NOT EXISTS repos (
    id              TEXT PRIMARY KEY,
    absolute_path   TEXT NOT NULL UNIQUE,
    display_name    TEXT NOT NULL,
    default_branch  TEXT NOT NULL,
    enabled         INTEGER NOT NULL DEFAULT 1,
    created_at      DATETIME NOT NULL,
    updated_at      DATETIME NOT NULL
);

-- Items: hierarchical task items with display ids
CREATE TABLE IF NOT EXISTS items (
    id               TEXT PRIMARY KEY,
    repo_id          TEXT NOT NULL REFERENCES repos(id),
    display_id       TEXT NOT NULL,
    title            TEXT NOT NULL,
    description      TEXT,
    story            TEXT,
    key_requirements TEXT NOT NULL DEFAULT '[]',
    files_to_change  TEXT NOT NULL DEFAULT '[]',
    testing          TEXT NOT NULL DEFAULT '[]',
    area_code        TEXT NOT NULL,
    section_number   INTEGER NOT NULL,
    workflow_type    TEXT,
    parent_id        TEXT REFERENCES items(id),
    sort_order       INTEGER NOT NULL DEFAULT 0,
    status           TEXT NOT NULL DEFAULT 'open',
    priority         TEXT NOT NULL DEFAULT 'medium',
    created_at       DATETIME NOT NULL,
    updated_at       DATETIME NOT NULL,
    UNIQUE(repo_id, display_id)
);

-- Tags: lowercase labels, one row per (item, tag)
CREATE TABLE IF NOT EXISTS item_tags (
    item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    tag     TEXT NOT NULL,
    UNIQUE(item_id, tag)
);

-- Completed-item durations, one row per item
CREATE TABLE IF NOT EXISTS item_durations (
    item_id      TEXT PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
    repo_id      TEXT NOT NULL REFERENCES repos(id),
    duration_ms  INTEGER NOT NULL,
    completed_at DATETIME NOT NULL
);

-- Operator sessions, at most one per repo
CREATE TABLE IF NOT EXISTS sessions (
    repo_id                 TEXT PRIMARY KEY REFERENCES repos(id),
    current_task            TEXT,
    current_item            TEXT,
    current_item_start_time DATETIME,
    status                  TEXT NOT NULL DEFAULT 'idle',
    mode                    TEXT,
    start_time              DATETIME,
    iteration               INTEGER NOT NULL DEFAULT 0,
    last_activity           DATETIME NOT NULL,
    files_touched           TEXT NOT NULL DEFAULT '[]',
    bug_fixes               TEXT NOT NULL DEFAULT '[]',
    scope_changes           TEXT NOT NULL DEFAULT '[]',
    deviations              TEXT NOT NULL DEFAULT '[]',
    also_did                TEXT NOT NULL DEFAULT '[]',
    anchor_task_id          TEXT,
    anchor_task_title       TEXT,
    anchor_set_at           DATETIME,
    anchor_set_by           TEXT,
    updated_at              DATETIME NOT NULL
);

-- Worker records
CREATE TABLE IF NOT EXISTS workers (
    id              TEXT PRIMARY KEY,
    repo_id         TEXT NOT NULL REFERENCES repos(id),
    username        TEXT NOT NULL,
    task_id         TEXT,
    task_title      TEXT,
    status          TEXT NOT NULL,
    message         TEXT,
    progress        INTEGER NOT NULL DEFAULT 0,
    worktree_path   TEXT,
    branch_name     TEXT,
    created_at      DATETIME NOT NULL,
    started_at      DATETIME,
    completed_at    DATETIME,
    heartbeat_at    DATETIME,
    next_task_id    TEXT,
    next_task_title TEXT
);

-- Terminal outcomes, one row per finished worker
CREATE TABLE IF NOT EXISTS worker_history (
    id              TEXT PRIMARY KEY,
    repo_id         TEXT NOT NULL REFERENCES repos(id),
    worker_id       TEXT NOT NULL,
    task_id         TEXT,
    task_title      TEXT,
    branch_name     TEXT,
    outcome         TEXT NOT NULL,
    merge_conflicts INTEGER NOT NULL DEFAULT 0,
    files_changed   INTEGER NOT NULL DEFAULT 0,
    insertions      INTEGER NOT NULL DEFAULT 0,
    deletions       INTEGER NOT NULL DEFAULT 0,
    started_at      DATETIME,
    completed_at    DATETIME NOT NULL,
    duration_ms     INTEGER
);

-- Manager signals: append-only, dismissable
CREATE TABLE IF NOT EXISTS signals (
    id              TEXT PRIMARY KEY,
    repo_id         TEXT NOT NULL REFERENCES repos(id),
    worker_id       TEXT,
    type            TEXT NOT NULL,
    message         TEXT NOT NULL,
    details         TEXT,
    action_required INTEGER NOT NULL DEFAULT 0,
    action_options  TEXT,
    dismissed       INTEGER NOT NULL DEFAULT 0,
    created_at      DATETIME NOT NULL,
    dismissed_at    DATETIME
);

-- Simple side records
CREATE TABLE IF NOT EXISTS bugs (
    id         TEXT PRIMARY KEY,
    repo_id    TEXT NOT NULL REFERENCES repos(id),
    item_id    TEXT,
    title      TEXT NOT NULL,
    status     TEXT NOT NULL DEFAULT 'open',
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS quick_wins (
    id         TEXT PRIMARY KEY,
    repo_id    TEXT NOT NULL REFERENCES repos(id),
    title      TEXT NOT NULL,
    done       INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_items_repo ON items(repo_id);
CREATE INDEX IF NOT EXISTS idx_items_parent ON items(parent_id);
CREATE INDEX IF NOT EXISTS idx_items_status ON items(repo_id, status);
CREATE INDEX IF NOT EXISTS idx_workers_repo ON workers(repo_id);
CREATE INDEX IF NOT EXISTS idx_workers_status ON workers(status);
CREATE INDEX IF NOT EXISTS idx_history_repo ON worker_history(repo_id);
CREATE INDEX IF NOT EXISTS idx_signals_repo ON signals(repo_id, dismissed);
`

	if _, err := s.conn.Exec(schema); err != nil {
		return classify("migrate", fmt.Errorf("execute schema: %w", err))
	}

	return s.applyColumnMigrations()
}

// columnMigration adds one column to an existing table. New columns must
// carry a default so old rows stay valid.
type columnMigration struct {
	table  string
	column string
	ddl    string
}

// pendingColumnMigrations lists columns added after the base schema
// shipped. Order matters; entries are never removed.
var pendingColumnMigrations = []columnMigration{
	{"workers", "next_task_id", "ALTER TABLE workers ADD COLUMN next_task_id TEXT"},
	{"workers", "next_task_title", "ALTER TABLE workers ADD COLUMN next_task_title TEXT"},
	{"items", "workflow_type", "ALTER TABLE items ADD COLUMN workflow_type TEXT"},
	{"sessions", "current_item_start_time", "ALTER TABLE sessions ADD COLUMN current_item_start_time DATETIME"},
}

func (s *Store) applyColumnMigrations() error {
	for _, m := range pendingColumnMigrations {
		exists, err := s.columnExists(m.table, m.column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := s.conn.Exec(m.ddl); err != nil {
			return classify("migrate", fmt.Errorf("add %s.%s: %w", m.table, m.column, err))
		}
	}
	return nil
}

func (s *Store) columnExists(table, column string) (bool, error) {
	rows, err := s.conn.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, classify("migrate", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal any
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return false, classify("migrate", err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, classify("migrate", rows.Err())
}
