// Package cache provides a durable path-keyed store of content digests so
// repeat scans over unchanged trees avoid re-hashing.
//
// The store assumes content-immutable paths: a lookup is never invalidated
// by a change in size or modification time, only ever refreshed by an
// explicit Put call. This is a deliberate trade-off (see "Open Question
// decisions" in DESIGN.md); a safer cache would key on (path, size,
// mtime) and treat a mismatch as a miss, at the cost of hashing again after
// every touch of a watched tree.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/dwetterau/photo-manager/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS file_hashes (
	path          TEXT PRIMARY KEY,
	size          INTEGER NOT NULL,
	trailing_hash TEXT,
	full_hash     TEXT
);
CREATE INDEX IF NOT EXISTS idx_file_hashes_size ON file_hashes(size);
CREATE INDEX IF NOT EXISTS idx_file_hashes_trailing_hash ON file_hashes(trailing_hash);
CREATE INDEX IF NOT EXISTS idx_file_hashes_full_hash ON file_hashes(full_hash);
`

// Cache is a single-writer, path-keyed hash store backed by SQLite.
//
// A nil *sql.DB (enabled=false) turns every Cache method into an
// always-miss, discard-on-write no-op, matching the "failure to open is
// non-fatal" contract: a scan must never abort because the cache directory
// is unwritable.
type Cache struct {
	db      *sql.DB
	enabled bool
}

// DefaultPath returns <user-config-dir>/photo-manager/hash_cache.db, the
// location the core opens its cache from when the caller does not override
// it.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "photo-manager", "hash_cache.db"), nil
}

// Open opens (creating if necessary) the cache database at path. An empty
// path disables the cache. Any failure to open also yields a usable,
// disabled cache, returned together with the error, since a missing hash
// cache must never abort a scan; callers that want to surface the failure
// should log the returned error themselves.
func Open(path string) (*Cache, error) {
	if path == "" {
		return &Cache{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &Cache{}, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return &Cache{}, fmt.Errorf("open cache db: %w", err)
	}
	// The store is single-writer: one connection avoids
	// SQLITE_BUSY from concurrent writers without needing a busy timeout.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return &Cache{}, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Cache{db: db, enabled: true}, nil
}

// Close releases the underlying database handle. Safe to call on a
// disabled cache.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the cached entry for path, if any.
func (c *Cache) Get(path string) (types.CachedEntry, bool) {
	if !c.enabled {
		return types.CachedEntry{}, false
	}

	var (
		entry        types.CachedEntry
		trailingHash sql.NullString
		fullHash     sql.NullString
	)
	row := c.db.QueryRow(
		`SELECT size, trailing_hash, full_hash FROM file_hashes WHERE path = ?`, path)
	if err := row.Scan(&entry.Size, &trailingHash, &fullHash); err != nil {
		return types.CachedEntry{}, false
	}

	if trailingHash.Valid {
		entry.TrailingHash = trailingHash.String
		entry.HasTrailing = true
	}
	if fullHash.Valid {
		entry.FullHash = fullHash.String
		entry.HasFull = true
	}
	return entry, true
}

// PutSize inserts a size-only row if one does not already exist. An
// existing row, at any fill level, is left untouched.
func (c *Cache) PutSize(path string, size int64) error {
	if !c.enabled {
		return nil
	}
	_, err := c.db.Exec(
		`INSERT INTO file_hashes (path, size) VALUES (?, ?)
		 ON CONFLICT(path) DO NOTHING`, path, size)
	return err
}

// PutTrailing upserts the trailing hash for path, preserving any existing
// full_hash.
func (c *Cache) PutTrailing(path string, size int64, hash string) error {
	if !c.enabled {
		return nil
	}
	_, err := c.db.Exec(
		`INSERT INTO file_hashes (path, size, trailing_hash) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET size = excluded.size, trailing_hash = excluded.trailing_hash`,
		path, size, hash)
	return err
}

// PutFull upserts the full hash for path, preserving any existing
// trailing_hash.
func (c *Cache) PutFull(path string, size int64, hash string) error {
	if !c.enabled {
		return nil
	}
	_, err := c.db.Exec(
		`INSERT INTO file_hashes (path, size, full_hash) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET size = excluded.size, full_hash = excluded.full_hash`,
		path, size, hash)
	return err
}
