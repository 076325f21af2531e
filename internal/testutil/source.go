// Package testutil holds shared helpers for tests that build real source roots.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"git.home.luguber.info/inful/incscript/internal/config"
)

// NewSource creates a source root in a temp dir with the given config and
// content files. Keys in files are slash paths relative to filesystem/.
func NewSource(t *testing.T, configYAML string, files map[string]string) string {
	t.Helper()
	src := t.TempDir()
	content := filepath.Join(src, config.ContentDirName)
	mkdir(t, content)
	mkdir(t, filepath.Join(src, config.ScriptsDirName))
	write(t, filepath.Join(src, config.ConfigFileName), configYAML, 0o644)
	for name, body := range files {
		path := filepath.Join(content, filepath.FromSlash(name))
		mkdir(t, filepath.Dir(path))
		write(t, path, body, 0o644)
	}
	return src
}

// AddScript writes an executable into the scripts dir of src.
func AddScript(t *testing.T, src, name, body string) {
	t.Helper()
	write(t, filepath.Join(src, config.ScriptsDirName, name), body, 0o755)
}

// ReadTree returns every regular file under root keyed by slash path.
func ReadTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		// #nosec G304 - test helper, paths come from the walk
		data, err := os.ReadFile(path)
		out[filepath.ToSlash(rel)] = string(data)
		return err
	})
	if err != nil {
		t.Fatalf("read tree %s: %v", root, err)
	}
	return out
}

func mkdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
}

func write(t *testing.T, path, body string, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
