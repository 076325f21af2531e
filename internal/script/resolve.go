package script

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Kind tells where a script name resolved to.
type Kind int

const (
	KindUnresolved Kind = iota
	KindScriptsDir
	KindSearchPath
	KindBuiltin
)

func (k Kind) String() string {
	switch k {
	case KindScriptsDir:
		return "scripts_dir"
	case KindSearchPath:
		return "search_path"
	case KindBuiltin:
		return "builtin"
	default:
		return "unresolved"
	}
}

// Resolution is the outcome of resolving one script name.
type Resolution struct {
	Name string
	Kind Kind
	Path string
}

// BuiltinPrefix marks names that refer to built-in transforms.
const BuiltinPrefix = "@"

const pathCacheSize = 256

// resolver maps names to programs. The scripts directory listing is taken once
// and never changes; PATH lookups are memoized in a concurrency-safe LRU.
type resolver struct {
	scripts   map[string]string
	builtins  map[string]Builtin
	lookPath  func(string) (string, error)
	pathCache *lru.Cache[string, Resolution]
}

func newResolver(scriptsDir string, builtins map[string]Builtin, lookPath func(string) (string, error)) (*resolver, error) {
	scripts, err := listScripts(scriptsDir)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[string, Resolution](pathCacheSize)
	if err != nil {
		return nil, err
	}
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	return &resolver{scripts: scripts, builtins: builtins, lookPath: lookPath, pathCache: cache}, nil
}

func listScripts(dir string) (map[string]string, error) {
	out := map[string]string{}
	if dir == "" {
		return out, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list scripts directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out[e.Name()] = filepath.Join(dir, e.Name())
	}
	return out, nil
}

func (r *resolver) resolve(name string) Resolution {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return Resolution{Name: name}
	}
	if path, ok := r.scripts[name]; ok {
		return Resolution{Name: name, Kind: KindScriptsDir, Path: path}
	}
	if strings.HasPrefix(name, BuiltinPrefix) {
		if _, ok := r.builtins[strings.TrimPrefix(name, BuiltinPrefix)]; ok {
			return Resolution{Name: name, Kind: KindBuiltin}
		}
		return Resolution{Name: name}
	}
	if res, ok := r.pathCache.Get(name); ok {
		return res
	}
	res := Resolution{Name: name}
	if path, err := r.lookPath(name); err == nil {
		res = Resolution{Name: name, Kind: KindSearchPath, Path: path}
	}
	r.pathCache.Add(name, res)
	return res
}
