package cache

import (
	"path/filepath"
	"testing"
)

func TestCacheDisabled(t *testing.T) {
	c, err := Open("")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.PutSize("/test/file", 100); err != nil {
		t.Fatalf("PutSize on disabled cache returned error: %v", err)
	}
	if _, ok := c.Get("/test/file"); ok {
		t.Fatalf("Get() on disabled cache returned a hit")
	}
}

func TestPutSizeDoesNotOverwrite(t *testing.T) {
	tmpDir := t.TempDir()
	c, err := Open(filepath.Join(tmpDir, "cache.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.PutSize("/a.jpg", 100); err != nil {
		t.Fatalf("PutSize failed: %v", err)
	}
	if err := c.PutTrailing("/a.jpg", 100, "deadbeef"); err != nil {
		t.Fatalf("PutTrailing failed: %v", err)
	}
	// A later PutSize must not clobber the trailing hash already stored.
	if err := c.PutSize("/a.jpg", 100); err != nil {
		t.Fatalf("second PutSize failed: %v", err)
	}

	entry, ok := c.Get("/a.jpg")
	if !ok {
		t.Fatalf("expected a cache hit")
	}
	if !entry.HasTrailing || entry.TrailingHash != "deadbeef" {
		t.Fatalf("expected trailing hash to survive PutSize, got %+v", entry)
	}
}

func TestPutTrailingPreservesFullHash(t *testing.T) {
	tmpDir := t.TempDir()
	c, err := Open(filepath.Join(tmpDir, "cache.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.PutFull("/a.jpg", 100, "fullhash"); err != nil {
		t.Fatalf("PutFull failed: %v", err)
	}
	if err := c.PutTrailing("/a.jpg", 100, "trailhash"); err != nil {
		t.Fatalf("PutTrailing failed: %v", err)
	}

	entry, ok := c.Get("/a.jpg")
	if !ok {
		t.Fatalf("expected a cache hit")
	}
	if entry.FullHash != "fullhash" || entry.TrailingHash != "trailhash" {
		t.Fatalf("expected both hashes to survive upserts, got %+v", entry)
	}
}

func TestPutFullPreservesTrailingHash(t *testing.T) {
	tmpDir := t.TempDir()
	c, err := Open(filepath.Join(tmpDir, "cache.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.PutTrailing("/a.jpg", 100, "trailhash"); err != nil {
		t.Fatalf("PutTrailing failed: %v", err)
	}
	if err := c.PutFull("/a.jpg", 100, "fullhash"); err != nil {
		t.Fatalf("PutFull failed: %v", err)
	}

	entry, ok := c.Get("/a.jpg")
	if !ok {
		t.Fatalf("expected a cache hit")
	}
	if entry.FullHash != "fullhash" || entry.TrailingHash != "trailhash" {
		t.Fatalf("expected both hashes to survive upserts, got %+v", entry)
	}
}

func TestCacheRoundTripAcrossReopen(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "cache.db")

	c1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := c1.PutFull("/a.jpg", 1024, "abc123"); err != nil {
		t.Fatalf("PutFull failed: %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	c2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = c2.Close() }()

	entry, ok := c2.Get("/a.jpg")
	if !ok {
		t.Fatalf("expected a cache hit after reopen")
	}
	if entry.Size != 1024 || entry.FullHash != "abc123" {
		t.Fatalf("unexpected entry after reopen: %+v", entry)
	}
}

func TestGetMissForUnknownPath(t *testing.T) {
	tmpDir := t.TempDir()
	c, err := Open(filepath.Join(tmpDir, "cache.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer func() { _ = c.Close() }()

	if _, ok := c.Get("/never/stored"); ok {
		t.Fatalf("expected a miss for a path never stored")
	}
}

func TestCacheDirCreation(t *testing.T) {
	tmpDir := t.TempDir()
	nestedPath := filepath.Join(tmpDir, "a", "b", "c", "cache.db")

	c, err := Open(nestedPath)
	if err != nil {
		t.Fatalf("Open() failed with nested path: %v", err)
	}
	defer func() { _ = c.Close() }()

	rows, err := c.db.Query("SELECT 1")
	if err != nil {
		t.Fatalf("expected db to be usable: %v", err)
	}
	_ = rows.Close()
}
