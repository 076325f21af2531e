package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const exampleConfig = `# incscript top-level configuration.
# Keys other than the ones below become root preferences for every page.
create_wrapper_folder:
  extensions: [md, html]
  index: index.html
passthrough:
  extensions: [jpg, jpeg, png, gif, ico, pdf]
  paths: []
compose:
  separator: ""
  max_depth: 32
scripts:
  timeout: 30s
build:
  workers: 1
  fail_fast: false
`

const exampleAbout = `---
page:
  scripts: ["@markdown"]
once_page_is_compiled:
  prepends: _header.html
  postpends: _footer.html
---
# Hello

This page was compiled by incscript.
`

const exampleHeader = "<!doctype html>\n<html><body>\n"

const exampleFooter = "</body></html>\n"

// Init scaffolds a source root with the required layout and a small example
// site. An existing config file is an error unless force is set; other
// existing example files are left alone.
func Init(sourceRoot string, force bool) error {
	configPath := filepath.Join(sourceRoot, ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	if err := os.MkdirAll(filepath.Join(sourceRoot, ScriptsDirName), 0o755); err != nil {
		return fmt.Errorf("create scripts directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(sourceRoot, ContentDirName), 0o755); err != nil {
		return fmt.Errorf("create content directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", configPath, err)
	}

	examples := []struct {
		name    string
		content string
	}{
		{"about.md", exampleAbout},
		{"_header.html", exampleHeader},
		{"_footer.html", exampleFooter},
	}
	for _, ex := range examples {
		path := filepath.Join(sourceRoot, ContentDirName, ex.name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(ex.content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
