// Package cascade computes the effective preferences of a content directory.
package cascade

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/incscript/internal/config"
	ferrors "git.home.luguber.info/inful/incscript/internal/foundation/errors"
	"git.home.luguber.info/inful/incscript/internal/prefs"
)

// Cascade returns the preferences in effect inside dir. When dir holds an
// override document it is decoded and merged over inherited with
// replace-wholesale semantics; otherwise inherited is returned unchanged.
//
// A present but undecodable override document is a fatal config error scoped
// to dir's subtree.
func Cascade(dir string, inherited prefs.Prefs) (prefs.Prefs, error) {
	path := filepath.Join(dir, config.OverrideFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return inherited, nil
	}
	if err != nil {
		return prefs.Prefs{}, ferrors.WrapError(err, ferrors.CategoryConfig, "cannot read override document").
			Fatal().WithContext("path", path).Build()
	}

	override, err := DecodeOverride(data)
	if err != nil {
		return prefs.Prefs{}, ferrors.WrapError(err, ferrors.CategoryConfig, "cannot decode override document").
			Fatal().WithContext("path", path).Build()
	}
	return inherited.Merge(override), nil
}

// DecodeOverride decodes an override document. An empty document merges nothing.
func DecodeOverride(data []byte) (map[string]any, error) {
	var override map[string]any
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, err
	}
	return override, nil
}
