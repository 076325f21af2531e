package config

import (
	"strings"
	"time"

	"git.home.luguber.info/inful/incscript/internal/prefs"
	"git.home.luguber.info/inful/incscript/internal/util/sets"
)

// Reserved names inside a source root.
const (
	ConfigFileName   = "incscript_config.yaml"
	ContentDirName   = "filesystem"
	ScriptsDirName   = "scripts"
	OverrideFileName = "_incscript.yaml"
	ExcludeMarker    = "_"
)

// Defaults applied when the top-level config leaves a field unset.
const (
	DefaultIndexFile     = "index.html"
	DefaultMaxDepth      = 32
	DefaultScriptTimeout = 30 * time.Second
	DefaultWorkers       = 1
)

// Config is the typed view of incscript_config.yaml. The same document, decoded
// untyped, is also the root of the preferences cascade.
type Config struct {
	WrapperFolder WrapperFolderConfig `yaml:"create_wrapper_folder"`
	Passthrough   PassthroughConfig   `yaml:"passthrough"`
	Compose       ComposeConfig       `yaml:"compose"`
	Scripts       ScriptsConfig       `yaml:"scripts"`
	Build         BuildConfig         `yaml:"build"`
}

// WrapperFolderConfig lists extensions whose files are written as
// <basename>/<index> instead of <filename>.
type WrapperFolderConfig struct {
	Extensions prefs.OneOrMany[string] `yaml:"extensions"`
	Index      string                  `yaml:"index"`
}

// PassthroughConfig lists files copied byte-for-byte without composition.
type PassthroughConfig struct {
	Extensions prefs.OneOrMany[string] `yaml:"extensions"`
	Paths      prefs.OneOrMany[string] `yaml:"paths"`
}

// ComposeConfig tunes content composition.
type ComposeConfig struct {
	Separator string `yaml:"separator"`
	MaxDepth  int    `yaml:"max_depth"`
}

// ScriptsConfig tunes the external script pipeline.
type ScriptsConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// BuildConfig tunes the tree walk.
type BuildConfig struct {
	Workers  int  `yaml:"workers"`
	FailFast bool `yaml:"fail_fast"`
}

// WrapperExtensions returns the wrapper-folder extensions without leading dots.
func (c *Config) WrapperExtensions() sets.Set[string] {
	return extensionSet(c.WrapperFolder.Extensions)
}

// PassthroughExtensions returns the passthrough extensions without leading dots.
func (c *Config) PassthroughExtensions() sets.Set[string] {
	return extensionSet(c.Passthrough.Extensions)
}

// PassthroughPaths returns content-relative slash paths copied verbatim.
func (c *Config) PassthroughPaths() sets.Set[string] {
	out := sets.New[string]()
	for _, p := range c.Passthrough.Paths.Items() {
		p = strings.Trim(strings.TrimSpace(p), "/")
		if p != "" {
			out.Add(p)
		}
	}
	return out
}

func extensionSet(list prefs.OneOrMany[string]) sets.Set[string] {
	out := sets.New[string]()
	for _, ext := range list.Items() {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext != "" {
			out.Add(ext)
		}
	}
	return out
}
