package config

import (
	"os"
	"path/filepath"

	ferrors "git.home.luguber.info/inful/incscript/internal/foundation/errors"
)

// Layout holds the absolute paths of a validated source root.
type Layout struct {
	SourceRoot  string
	ConfigPath  string
	ContentRoot string
	ScriptsDir  string
}

// ResolveLayout checks that sourceRoot exists and carries the required entries:
// incscript_config.yaml, filesystem/ and scripts/.
func ResolveLayout(sourceRoot string) (Layout, error) {
	abs, err := filepath.Abs(sourceRoot)
	if err != nil {
		return Layout{}, ferrors.WrapError(err, ferrors.CategoryValidation, "invalid source root").
			Fatal().WithContext("source_root", sourceRoot).Build()
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Layout{}, ferrors.WrapError(err, ferrors.CategoryNotFound, "source root does not exist").
			Fatal().WithContext("source_root", abs).Build()
	}
	if !info.IsDir() {
		return Layout{}, ferrors.NotFoundError("source root is not a directory").
			WithContext("source_root", abs).Build()
	}

	l := Layout{
		SourceRoot:  abs,
		ConfigPath:  filepath.Join(abs, ConfigFileName),
		ContentRoot: filepath.Join(abs, ContentDirName),
		ScriptsDir:  filepath.Join(abs, ScriptsDirName),
	}
	if err := requireEntry(l.ConfigPath, false); err != nil {
		return Layout{}, err
	}
	if err := requireEntry(l.ContentRoot, true); err != nil {
		return Layout{}, err
	}
	if err := requireEntry(l.ScriptsDir, true); err != nil {
		return Layout{}, err
	}
	return l, nil
}

func requireEntry(path string, wantDir bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "source root is missing a required entry").
			Fatal().WithContext("path", path).Build()
	}
	if info.IsDir() != wantDir {
		kind := "file"
		if wantDir {
			kind = "directory"
		}
		return ferrors.ConfigError("required entry has the wrong type, expected a " + kind).
			WithContext("path", path).Build()
	}
	return nil
}
