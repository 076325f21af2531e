package config

import (
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/incscript/internal/foundation/errors"
	"git.home.luguber.info/inful/incscript/internal/prefs"
)

// Project is a loaded source root: its layout, typed settings and the root of
// the preferences cascade.
type Project struct {
	Layout Layout
	Config *Config
	Root   prefs.Prefs
	// Raw is the top-level config document as read from disk.
	Raw []byte
}

// Load validates the layout under sourceRoot and decodes incscript_config.yaml.
// All failures are fatal and happen before any output is written.
func Load(sourceRoot string) (*Project, error) {
	layout, err := ResolveLayout(sourceRoot)
	if err != nil {
		return nil, err
	}

	loaded, err := loadEnvFiles(layout.SourceRoot)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "cannot load .env file").
			Fatal().WithContext("source_root", layout.SourceRoot).Build()
	}
	for _, f := range loaded {
		slog.Debug("Loaded environment file", "path", f)
	}

	data, err := os.ReadFile(layout.ConfigPath)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "cannot read top-level config").
			Fatal().WithContext("path", layout.ConfigPath).Build()
	}
	cfg, root, err := Decode(data)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "cannot decode top-level config").
			Fatal().WithContext("path", layout.ConfigPath).Build()
	}
	return &Project{Layout: layout, Config: cfg, Root: root, Raw: data}, nil
}

// Decode parses a top-level config document into its typed settings and its
// untyped preferences, then applies defaults and validation.
func Decode(data []byte) (*Config, prefs.Prefs, error) {
	data = expandEnv(data)

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, prefs.Prefs{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, prefs.Prefs{}, err
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, prefs.Prefs{}, err
	}
	return &cfg, prefs.New(raw), nil
}
