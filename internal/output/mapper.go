// Package output maps source file names to destination paths.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/incscript/internal/config"
	"git.home.luguber.info/inful/incscript/internal/util/sets"
)

// Mapper decides where a source file is written. Files whose extension is a
// wrapper extension become <base>/<index>; everything else keeps its name.
type Mapper struct {
	wrap  sets.Set[string]
	index string
}

// NewMapper builds a Mapper from extensions given without leading dots.
func NewMapper(wrapperExtensions sets.Set[string], index string) *Mapper {
	if index == "" {
		index = config.DefaultIndexFile
	}
	return &Mapper{wrap: wrapperExtensions.Clone(), index: index}
}

// FromConfig builds a Mapper from the top-level configuration.
func FromConfig(cfg *config.Config) *Mapper {
	return NewMapper(cfg.WrapperExtensions(), cfg.WrapperFolder.Index)
}

// Wraps reports whether name would be written into a wrapper folder.
func (m *Mapper) Wraps(name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return ext != "" && base != "" && m.wrap.Has(ext)
}

// Target returns the destination path for name under destDir without touching
// the filesystem.
func (m *Mapper) Target(name, destDir string) string {
	if m.Wraps(name) {
		return filepath.Join(destDir, strings.TrimSuffix(name, filepath.Ext(name)), m.index)
	}
	return filepath.Join(destDir, name)
}

// DestinationFor returns the destination path for name under destDir and
// creates the wrapper folder when one is needed.
func (m *Mapper) DestinationFor(name, destDir string) (string, error) {
	target := m.Target(name, destDir)
	if m.Wraps(name) {
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return "", fmt.Errorf("create wrapper folder for %s: %w", name, err)
		}
	}
	return target, nil
}
