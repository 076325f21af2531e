package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/incscript/internal/logfields"
)

// TreeWatcher reports changes anywhere below a root directory. fsnotify is not
// recursive, so every directory is added individually and new directories are
// added as they appear.
type TreeWatcher struct {
	root     string
	ignore   []string
	files    []string
	onChange func(path string)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewTreeWatcher creates a watcher for root. Paths equal to or below any of
// ignore are never watched or reported.
func NewTreeWatcher(root string, ignore []string, onChange func(path string)) (*TreeWatcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch root: %w", err)
	}
	ignored := make([]string, 0, len(ignore))
	for _, p := range ignore {
		if a, err := filepath.Abs(p); err == nil {
			ignored = append(ignored, a)
		}
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &TreeWatcher{root: abs, ignore: ignored, onChange: onChange, watcher: watcher, done: make(chan struct{})}, nil
}

// IgnoreFile suppresses events for a file the build itself writes, including
// temporary siblings named with its base name as prefix. Call before Start.
func (w *TreeWatcher) IgnoreFile(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		w.files = append(w.files, abs)
	}
}

// Start watches the tree and delivers events until ctx is done or Close is called.
func (w *TreeWatcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}
	slog.Info("Watching source tree", logfields.Directory(w.root))
	go w.loop(ctx)
	return nil
}

// Close stops the watcher.
func (w *TreeWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.done:
		return nil
	default:
		close(w.done)
	}
	return w.watcher.Close()
}

func (w *TreeWatcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Source watcher error", logfields.Error(err))
		}
	}
}

func (w *TreeWatcher) handle(event fsnotify.Event) {
	if w.ignored(event.Name) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				slog.Warn("Cannot watch new directory", logfields.Directory(event.Name), logfields.Error(err))
			}
		}
	}
	slog.Debug("Source change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
	w.onChange(event.Name)
}

func (w *TreeWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Entries can vanish between the event and the walk.
			if path != dir {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *TreeWatcher) ignored(path string) bool {
	for _, f := range w.files {
		if filepath.Dir(path) == filepath.Dir(f) && strings.HasPrefix(filepath.Base(path), filepath.Base(f)) {
			return true
		}
	}
	for _, p := range w.ignore {
		rel, err := filepath.Rel(p, path)
		if err == nil && (rel == "." || filepath.IsLocal(rel)) {
			return true
		}
	}
	return false
}
