package digest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestFullMatchesForIdenticalContent(t *testing.T) {
	dir := t.TempDir()
	content := []byte(strings.Repeat("A", 1000))
	a := writeFile(t, dir, "a.jpg", content)
	b := writeFile(t, dir, "b.jpg", content)

	ha, ok := Full(a)
	if !ok {
		t.Fatalf("Full(a) not ok")
	}
	hb, ok := Full(b)
	if !ok {
		t.Fatalf("Full(b) not ok")
	}
	if ha != hb {
		t.Fatalf("expected equal hashes, got %s != %s", ha, hb)
	}
	if len(ha) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(ha))
	}
}

func TestFullDiffersOnSingleByte(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.jpg", []byte("AAAA"))
	b := writeFile(t, dir, "b.jpg", []byte("AAAB"))

	ha, _ := Full(a)
	hb, _ := Full(b)
	if ha == hb {
		t.Fatalf("expected different hashes for differing content")
	}
}

func TestTrailingEqualsFullUnderOneMiB(t *testing.T) {
	dir := t.TempDir()
	content := []byte(strings.Repeat("x", 2048))
	p := writeFile(t, dir, "small.jpg", content)

	full, ok := Full(p)
	if !ok {
		t.Fatalf("Full not ok")
	}
	trailing, ok := Trailing(p, int64(len(content)))
	if !ok {
		t.Fatalf("Trailing not ok")
	}
	if full != trailing {
		t.Fatalf("expected Trailing == Full for small file: %s != %s", full, trailing)
	}
}

func TestTrailingIgnoresHeadDifference(t *testing.T) {
	dir := t.TempDir()
	size := TrailingSize + 4096
	tail := strings.Repeat("Y", size-2)

	a := writeFile(t, dir, "a.jpg", []byte("AA"+tail))
	b := writeFile(t, dir, "b.jpg", []byte("BB"+tail))

	ta, ok := Trailing(a, int64(size))
	if !ok {
		t.Fatalf("Trailing(a) not ok")
	}
	tb, ok := Trailing(b, int64(size))
	if !ok {
		t.Fatalf("Trailing(b) not ok")
	}
	if ta != tb {
		t.Fatalf("expected matching trailing hash despite differing head bytes")
	}

	fa, _ := Full(a)
	fb, _ := Full(b)
	if fa == fb {
		t.Fatalf("expected differing full hash for differing head bytes")
	}
}

func TestTrailingDetectsChangeInLastMiB(t *testing.T) {
	dir := t.TempDir()
	size := TrailingSize + 4096
	head := strings.Repeat("H", size-TrailingSize)

	a := writeFile(t, dir, "a.jpg", []byte(head+strings.Repeat("X", TrailingSize)))
	b := writeFile(t, dir, "b.jpg", []byte(head+strings.Repeat("Y", TrailingSize)))

	ta, _ := Trailing(a, int64(size))
	tb, _ := Trailing(b, int64(size))
	if ta == tb {
		t.Fatalf("expected differing trailing hash for differing tail bytes")
	}
}

func TestFullMissingFileNotOK(t *testing.T) {
	if _, ok := Full(filepath.Join(t.TempDir(), "missing")); ok {
		t.Fatalf("expected ok=false for missing file")
	}
}
