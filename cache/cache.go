// Package cache persists compiled bytecode containers in SQLite, keyed by
// the SHA-256 of the source that produced them. The cache is strictly an
// optimization: a miss or a corrupt row falls through to recompilation.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// CompileCache stores source-hash -> container mappings.
type CompileCache struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens a compile cache at the given path. Parent
// directories are created as needed.
func Open(path string) (*CompileCache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS compiled (
		hash BLOB PRIMARY KEY,
		container BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache table: %w", err)
	}

	return &CompileCache{db: db}, nil
}

// Get returns the cached container for a source hash. The boolean reports a
// hit; lookup failures are returned so callers can log them, but callers
// should treat any error as a miss.
func (c *CompileCache) Get(sum [32]byte) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var container []byte
	err := c.db.QueryRow("SELECT container FROM compiled WHERE hash = ?", sum[:]).Scan(&container)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup: %w", err)
	}
	return container, true, nil
}

// Put stores a container under a source hash, replacing any previous value.
func (c *CompileCache) Put(sum [32]byte, container []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		"INSERT INTO compiled (hash, container) VALUES (?, ?) ON CONFLICT(hash) DO UPDATE SET container = excluded.container",
		sum[:], container,
	)
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (c *CompileCache) Len() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM compiled").Scan(&n); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (c *CompileCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
