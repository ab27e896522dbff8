// Package cache persists suggestions and run history in SQLite so repeat
// requests for unchanged sources skip the completion API entirely.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"testsmith/internal/logging"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database holding cached suggestions and run history.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Entry is a cached suggestion keyed by source content.
type Entry struct {
	Key       string
	Path      string
	Provider  string
	Model     string
	Language  string
	Raw       string // full model completion
	Code      string // extracted test code
	CreatedAt time.Time
}

// Run records one suggestion run for the history command.
type Run struct {
	ID        string
	Path      string
	Provider  string
	Model     string
	FromCache bool
	Duration  time.Duration
	CreatedAt time.Time
}

// Open initializes the SQLite database at the given path.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryCache, "Open")
	defer timer.Stop()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL keeps readers unblocked during writes; busy_timeout covers
	// concurrent batch workers sharing the store.
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Cache("Store opened at %s", path)
	return s, nil
}

// migrations are applied in order; schema_version tracks progress.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS suggestions (
		key        TEXT PRIMARY KEY,
		path       TEXT NOT NULL,
		provider   TEXT NOT NULL,
		model      TEXT NOT NULL,
		language   TEXT NOT NULL DEFAULT '',
		raw        TEXT NOT NULL,
		code       TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id         TEXT PRIMARY KEY,
		path       TEXT NOT NULL,
		provider   TEXT NOT NULL,
		model      TEXT NOT NULL,
		from_cache INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC)`,
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		if _, err := s.db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
		logging.CacheDebug("applied migration %d", i+1)
	}

	return nil
}

// Get returns the cached entry for a key, or ok=false on a miss.
func (s *Store) Get(key string) (*Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var e Entry
	var createdAt int64
	err := s.db.QueryRow(
		`SELECT key, path, provider, model, language, raw, code, created_at FROM suggestions WHERE key = ?`,
		key,
	).Scan(&e.Key, &e.Path, &e.Provider, &e.Model, &e.Language, &e.Raw, &e.Code, &createdAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query suggestion: %w", err)
	}

	e.CreatedAt = time.Unix(createdAt, 0)
	logging.CacheDebug("hit for key %s (path=%s)", shortKey(key), e.Path)
	return &e, true, nil
}

// Put stores (or replaces) a cached entry.
func (s *Store) Put(e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO suggestions (key, path, provider, model, language, raw, code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Key, e.Path, e.Provider, e.Model, e.Language, e.Raw, e.Code, createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store suggestion: %w", err)
	}

	return nil
}

// RecordRun appends a run to the history.
func (s *Store) RecordRun(r *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	fromCache := 0
	if r.FromCache {
		fromCache = 1
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (id, path, provider, model, from_cache, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Path, r.Provider, r.Model, fromCache, r.Duration.Milliseconds(), createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, path, provider, model, from_cache, duration_ms, created_at
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var fromCache int
		var durationMs, createdAt int64
		if err := rows.Scan(&r.ID, &r.Path, &r.Provider, &r.Model, &fromCache, &durationMs, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.FromCache = fromCache != 0
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.CreatedAt = time.Unix(createdAt, 0)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Prune deletes suggestions older than the cutoff and returns the count.
func (s *Store) Prune(olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan).Unix()
	res, err := s.db.Exec(`DELETE FROM suggestions WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune suggestions: %w", err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		logging.Cache("pruned %d stale suggestions", n)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
