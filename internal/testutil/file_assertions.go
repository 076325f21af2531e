package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FileAssertions checks the state of an output tree. Calls chain.
type FileAssertions struct {
	t       *testing.T
	baseDir string
}

// NewFileAssertions creates a helper rooted at baseDir.
func NewFileAssertions(t *testing.T, baseDir string) *FileAssertions {
	return &FileAssertions{t: t, baseDir: baseDir}
}

func (fa *FileAssertions) path(rel string) string {
	return filepath.Join(fa.baseDir, filepath.FromSlash(rel))
}

func (fa *FileAssertions) read(rel string) (string, bool) {
	fa.t.Helper()
	// #nosec G304 - test helper, paths are controlled by test code
	data, err := os.ReadFile(fa.path(rel))
	if err != nil {
		fa.t.Errorf("Failed to read %s: %v", rel, err)
		return "", false
	}
	return string(data), true
}

// AssertFileExists validates that a regular file exists.
func (fa *FileAssertions) AssertFileExists(rel string) *FileAssertions {
	fa.t.Helper()
	info, err := os.Stat(fa.path(rel))
	switch {
	case err != nil:
		fa.t.Errorf("Expected file to exist: %s", rel)
	case !info.Mode().IsRegular():
		fa.t.Errorf("Expected %s to be a regular file", rel)
	}
	return fa
}

// AssertNotExists validates that nothing exists at rel.
func (fa *FileAssertions) AssertNotExists(rel string) *FileAssertions {
	fa.t.Helper()
	if _, err := os.Lstat(fa.path(rel)); err == nil {
		fa.t.Errorf("Expected %s to not exist", rel)
	}
	return fa
}

// AssertFileEquals validates the exact content of a file.
func (fa *FileAssertions) AssertFileEquals(rel, want string) *FileAssertions {
	fa.t.Helper()
	if got, ok := fa.read(rel); ok && got != want {
		fa.t.Errorf("Content of %s:\n got: %q\nwant: %q", rel, got, want)
	}
	return fa
}

// AssertFileContains validates that a file contains a substring.
func (fa *FileAssertions) AssertFileContains(rel, want string) *FileAssertions {
	fa.t.Helper()
	if got, ok := fa.read(rel); ok && !strings.Contains(got, want) {
		fa.t.Errorf("Expected %s to contain %q\nActual content:\n%s", rel, want, got)
	}
	return fa
}

// AssertFileCount validates the number of regular files in the whole tree.
func (fa *FileAssertions) AssertFileCount(want int) *FileAssertions {
	fa.t.Helper()
	if got := len(ReadTree(fa.t, fa.baseDir)); got != want {
		fa.t.Errorf("Expected %d files under %s, found %d", want, fa.baseDir, got)
	}
	return fa
}
