package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
)

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// loadEnvFiles loads .env and .env.local from dir. Existing process variables
// are never overwritten. It returns the files that were loaded.
func loadEnvFiles(dir string) ([]string, error) {
	var loaded []string
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, err
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

// expandEnv replaces ${VAR} references with their values. Bare $VAR is left
// alone so literal dollar signs in content preferences survive.
func expandEnv(data []byte) []byte {
	return envRefPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envRefPattern.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}
