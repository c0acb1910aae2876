//go:build unix

package scanner

import (
	"os"
	"path/filepath"
	"slices"
	"sort"
	"testing"
)

func createFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	content := make([]byte, size)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

func runScanner(t *testing.T, roots []string) []string {
	t.Helper()
	var errs []error
	s := New(roots, 4, func(err error) { errs = append(errs, err) })
	results := s.Run()
	sort.Strings(results)
	return results
}

func TestDiscoversFilesAcrossNestedDirectories(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "a.jpg"), 10)
	createFile(t, filepath.Join(root, "sub", "b.jpg"), 10)
	createFile(t, filepath.Join(root, "sub", "deeper", "c.jpg"), 10)

	got := runScanner(t, []string{root})
	want := []string{
		filepath.Join(root, "a.jpg"),
		filepath.Join(root, "sub", "b.jpg"),
		filepath.Join(root, "sub", "deeper", "c.jpg"),
	}
	sort.Strings(want)
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// TestNonExistentPathHandling tests scanner behavior with non-existent
// paths: missing roots yield no files and no error.
func TestNonExistentPathHandling(t *testing.T) {
	root := t.TempDir()
	nonExistent := filepath.Join(root, "does-not-exist")

	got := runScanner(t, []string{nonExistent})
	if len(got) != 0 {
		t.Errorf("expected 0 files for non-existent path, got %d", len(got))
	}
}

// TestEmptyDirectoryYieldsEmpty tests that an empty root yields no files
// with no error.
func TestEmptyDirectoryYieldsEmpty(t *testing.T) {
	root := t.TempDir()
	got := runScanner(t, []string{root})
	if len(got) != 0 {
		t.Errorf("expected 0 files for empty root, got %d", len(got))
	}
}

// TestOverlappingPaths tests that overlapping roots produce duplicate
// entries; de-duplication across groups happens one layer up in the
// grouper, not in the scanner.
func TestOverlappingPaths(t *testing.T) {
	root := t.TempDir()
	subdir := filepath.Join(root, "subdir")
	createFile(t, filepath.Join(root, "file1.txt"), 100)
	createFile(t, filepath.Join(subdir, "file2.txt"), 100)

	got := runScanner(t, []string{root, subdir})
	if len(got) != 3 {
		t.Errorf("expected 3 file entries (overlapping paths), got %d", len(got))
	}
}

// TestDuplicatePaths tests that scanning the same root twice yields
// duplicate entries.
func TestDuplicatePaths(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "file.txt"), 100)

	got := runScanner(t, []string{root, root})
	if len(got) != 2 {
		t.Errorf("expected 2 file entries (duplicate roots), got %d", len(got))
	}
}

// TestFollowsSymlinkedDirectory tests that the scanner descends through a
// symlinked directory instead of skipping non-regular directory entries.
func TestFollowsSymlinkedDirectory(t *testing.T) {
	root := t.TempDir()
	realDir := filepath.Join(root, "real")
	createFile(t, filepath.Join(realDir, "a.jpg"), 10)

	linkDir := filepath.Join(root, "link")
	if err := os.Symlink(realDir, linkDir); err != nil {
		t.Fatal(err)
	}

	got := runScanner(t, []string{linkDir})
	want := []string{filepath.Join(linkDir, "a.jpg")}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// TestFollowsSymlinkedFile tests that a symlinked regular file is reported
// alongside its target.
func TestFollowsSymlinkedFile(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "real.jpg")
	createFile(t, target, 10)

	link := filepath.Join(root, "link.jpg")
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}

	got := runScanner(t, []string{root})
	want := []string{target, link}
	sort.Strings(want)
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// TestSymlinkCycleDoesNotHang tests that a directory symlink cycle is
// walked at most once per (dev, ino) pair instead of looping forever.
func TestSymlinkCycleDoesNotHang(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	if err := os.Mkdir(a, 0o755); err != nil {
		t.Fatal(err)
	}
	createFile(t, filepath.Join(a, "f.jpg"), 10)
	if err := os.Symlink(a, filepath.Join(a, "loop")); err != nil {
		t.Fatal(err)
	}

	got := runScanner(t, []string{a})
	want := []string{filepath.Join(a, "f.jpg")}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// TestPermissionErrorHandling tests that scanner continues when
// directories are unreadable, reporting the error via the callback.
func TestPermissionErrorHandling(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("skipping permission test when running as root")
	}

	root := t.TempDir()
	createFile(t, filepath.Join(root, "accessible.txt"), 100)

	unreadable := filepath.Join(root, "unreadable")
	if err := os.Mkdir(unreadable, 0o000); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chmod(unreadable, 0o755) }()

	var errCount int
	s := New([]string{root}, 2, func(error) { errCount++ })
	files := s.Run()

	if len(files) != 1 {
		t.Errorf("expected 1 file, got %d", len(files))
	}
	if errCount == 0 {
		t.Error("expected permission error to be reported")
	}
}

// TestFilenamesWithSpecialChars tests files with special characters in
// names.
func TestFilenamesWithSpecialChars(t *testing.T) {
	root := t.TempDir()
	specialNames := []string{
		"file with spaces.txt",
		"file\twith\ttabs.txt",
		"unicode_日本語.txt",
		"quotes'and\"double.txt",
	}
	for _, name := range specialNames {
		createFile(t, filepath.Join(root, name), 100)
	}

	got := runScanner(t, []string{root})
	if len(got) != len(specialNames) {
		t.Errorf("expected %d files, got %d", len(specialNames), len(got))
	}
}
