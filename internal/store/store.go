// Package store is the durable persistence layer: a single-writer SQLite
// database holding repositories, items, tags, sessions, workers, signals,
// history, and the small side records. All other packages go through it.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/chkd/chkd/internal/clock"
)

// DBFileName is the database file created inside the data directory.
const DBFileName = "chkd.db"

// lockFileName guards the data directory against a second chkd process.
const lockFileName = "chkd.lock"

// Store wraps the SQLite connection with coordination-specific operations.
type Store struct {
	conn *sql.DB
	lock *flock.Flock
	path string
	now  func() time.Time
}

// SetClock routes the store's self-stamped timestamps (item and side
// record writes) through clk. Callers that pass timestamps explicitly
// are unaffected.
func (s *Store) SetClock(clk clock.Clock) {
	s.now = clk.Now
}

// Open creates the data directory if absent, acquires the process lock,
// opens the database, enables WAL mode and foreign keys, and applies the
// schema plus any pending additive migrations.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, &Error{Kind: KindIO, Op: "open", Err: fmt.Errorf("create data dir: %w", err)}
	}

	lock := flock.New(filepath.Join(dataDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, &Error{Kind: KindIO, Op: "open", Err: fmt.Errorf("acquire lock: %w", err)}
	}
	if !locked {
		return nil, conflict("open", fmt.Errorf("data directory %s is in use by another process", dataDir))
	}

	path := filepath.Join(dataDir, DBFileName)
	// _txlock=immediate makes write transactions take the write lock at
	// BEGIN, so concurrent transactions serialize instead of failing
	// mid-way with SQLITE_BUSY.
	conn, err := sql.Open("sqlite", path+"?_txlock=immediate")
	if err != nil {
		_ = lock.Unlock()
		return nil, classify("open", err)
	}

	// The store is the single writer; a second connection only causes
	// SQLITE_BUSY churn.
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			_ = lock.Unlock()
			return nil, classify("open", fmt.Errorf("%s: %w", pragma, err))
		}
	}

	s := &Store{conn: conn, lock: lock, path: path, now: time.Now}
	if err := s.migrate(); err != nil {
		conn.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return s, nil
}

// openTest opens an unlocked store against the given sqlite DSN.
// Used by tests that want :memory: databases.
func openTest(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, classify("open", err)
	}
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, classify("open", err)
	}
	s := &Store{conn: conn, path: dsn, now: time.Now}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database and releases the process lock.
func (s *Store) Close() error {
	err := s.conn.Close()
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
	return err
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// InTransaction executes fn inside an exclusive write transaction.
// The transaction is rolled back if fn returns an error or panics.
// Nested calls are not supported.
func (s *Store) InTransaction(fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return classify("begin", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}
