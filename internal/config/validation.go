package config

import (
	"fmt"
	"strings"
)

// Validate checks invariants that defaults cannot repair.
func Validate(cfg *Config) error {
	idx := cfg.WrapperFolder.Index
	if strings.ContainsAny(idx, `/\`) || idx == "." || idx == ".." {
		return fmt.Errorf("create_wrapper_folder.index must be a plain file name, got %q", idx)
	}
	if strings.HasPrefix(idx, ExcludeMarker) {
		return fmt.Errorf("create_wrapper_folder.index must not start with %q", ExcludeMarker)
	}
	for _, ext := range cfg.WrapperFolder.Extensions.Items() {
		if strings.ContainsAny(ext, `/\`) {
			return fmt.Errorf("create_wrapper_folder.extensions: invalid extension %q", ext)
		}
	}
	if cfg.Build.Workers > 256 {
		return fmt.Errorf("build.workers must be at most 256, got %d", cfg.Build.Workers)
	}
	return nil
}
