package build

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"git.home.luguber.info/inful/incscript/internal/cascade"
	"git.home.luguber.info/inful/incscript/internal/compose"
	"git.home.luguber.info/inful/incscript/internal/config"
	ferrors "git.home.luguber.info/inful/incscript/internal/foundation/errors"
	"git.home.luguber.info/inful/incscript/internal/logfields"
	"git.home.luguber.info/inful/incscript/internal/manifest"
	"git.home.luguber.info/inful/incscript/internal/metrics"
	"git.home.luguber.info/inful/incscript/internal/observability"
	"git.home.luguber.info/inful/incscript/internal/output"
	"git.home.luguber.info/inful/incscript/internal/prefs"
	"git.home.luguber.info/inful/incscript/internal/util/sets"
)

// WalkerOptions tunes a Walker.
type WalkerOptions struct {
	// Workers > 1 processes sibling subdirectories concurrently.
	Workers  int
	FailFast bool
	// PassthroughExtensions and PassthroughPaths select files copied verbatim.
	PassthroughExtensions sets.Set[string]
	PassthroughPaths      sets.Set[string]
	Recorder              metrics.Recorder
}

// Walker mirrors the content tree into a destination tree. A Walker can run
// several walks; each Walk has its own report.
type Walker struct {
	contentRoot string
	composer    *compose.Composer
	mapper      *output.Mapper
	opts        WalkerOptions
}

// NewWalker returns a Walker over contentRoot.
func NewWalker(contentRoot string, composer *compose.Composer, mapper *output.Mapper, opts WalkerOptions) *Walker {
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.PassthroughExtensions == nil {
		opts.PassthroughExtensions = sets.New[string]()
	}
	if opts.PassthroughPaths == nil {
		opts.PassthroughPaths = sets.New[string]()
	}
	return &Walker{contentRoot: contentRoot, composer: composer, mapper: mapper, opts: opts}
}

// walk is the state of a single Walk call.
type walk struct {
	*Walker
	destRoot string
	report   *Report
	cancel   context.CancelCauseFunc
	sem      chan struct{}
}

// Walk rebuilds destRoot from the content root using root as the top-level
// preferences. Per-file failures are recorded in the returned report; the
// error is non-nil only for fatal failures and cancellation.
func (w *Walker) Walk(ctx context.Context, root prefs.Prefs, destRoot string) (*Report, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	run := &walk{Walker: w, destRoot: destRoot, report: NewReport(), cancel: cancel}
	if w.opts.Workers > 1 {
		run.sem = make(chan struct{}, w.opts.Workers-1)
	}
	err := run.dir(ctx, "", root, destRoot)
	if err != nil {
		if cause := context.Cause(ctx); cause != nil {
			err = cause
		}
	}
	return run.report, err
}

// dir processes one content directory: cascade, destination rebuild, then
// subdirectories before files.
func (r *walk) dir(ctx context.Context, rel string, inherited prefs.Prefs, destDir string) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	srcDir := filepath.Join(r.contentRoot, filepath.FromSlash(rel))
	display := displayPath(rel)

	p, err := cascade.Cascade(srcDir, inherited)
	if err != nil {
		r.report.addSkip(path.Join(display, config.OverrideFileName), err)
		r.opts.Recorder.IncFileResult(metrics.ResultSkipped)
		observability.ErrorContext(ctx, "Skipping directory with invalid override document",
			logfields.Directory(display), logfields.Error(err))
		if err := clearSubtree(destDir, rel == ""); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot clear destination directory").
				Fatal().WithContext("path", destDir).Build()
		}
		if r.opts.FailFast {
			abort := ferrors.WrapError(fmt.Errorf("%w: %w", ErrSubtreeAborted, err), ferrors.CategoryRuntime,
				"build aborted by fail-fast").Fatal().WithContext("directory", display).Build()
			r.cancel(abort)
			return abort
		}
		return nil
	}

	if err := resetDir(destDir); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot rebuild destination directory").
			Fatal().WithContext("path", destDir).Build()
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		r.skip(ctx, display, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot list content directory").Build())
		return nil
	}

	var dirs, files []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, config.ExcludeMarker) {
			continue
		}
		info, err := os.Stat(filepath.Join(srcDir, name))
		if err != nil {
			r.skip(ctx, joinRel(rel, name), ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot stat content entry").Build())
			continue
		}
		switch {
		case info.IsDir() && e.Type()&os.ModeSymlink != 0:
			observability.WarnContext(ctx, "Not following symlinked directory", logfields.Path(joinRel(rel, name)))
		case info.IsDir():
			dirs = append(dirs, name)
		case e.Type()&os.ModeSymlink != 0 && !r.insideContent(filepath.Join(srcDir, name)):
			observability.WarnContext(ctx, "Ignoring symlink that leaves the content root", logfields.Path(joinRel(rel, name)))
		case info.Mode().IsRegular():
			files = append(files, name)
		default:
			observability.DebugContext(ctx, "Ignoring non-regular file", logfields.Path(joinRel(rel, name)))
		}
	}

	if err := r.subdirs(ctx, rel, p, destDir, dirs); err != nil {
		return err
	}
	for _, name := range files {
		if err := r.file(ctx, joinRel(rel, name), name, p, srcDir, destDir); err != nil {
			return err
		}
	}
	observability.DebugContext(ctx, "Directory complete",
		logfields.Directory(display), logfields.Count(len(dirs)+len(files)))
	return nil
}

// subdirs walks child directories. A free worker slot runs a child in its
// own goroutine; otherwise it runs inline, so nested walks never wait on
// slots held by their ancestors.
func (r *walk) subdirs(ctx context.Context, rel string, p prefs.Prefs, destDir string, names []string) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	record := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			r.cancel(err)
		}
	}

	for _, name := range names {
		childRel := joinRel(rel, name)
		childDest := filepath.Join(destDir, name)
		select {
		case r.sem <- struct{}{}:
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-r.sem }()
				if err := r.dir(ctx, childRel, p, childDest); err != nil {
					record(err)
				}
			}()
		default:
			if err := r.dir(ctx, childRel, p, childDest); err != nil {
				record(err)
			}
		}
		if ctx.Err() != nil {
			break
		}
	}
	wg.Wait()
	return firstErr
}

func (r *walk) file(ctx context.Context, rel, name string, p prefs.Prefs, srcDir, destDir string) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	ctx = observability.WithFile(ctx, rel)

	if r.passthrough(rel, name) {
		return r.copy(ctx, rel, filepath.Join(srcDir, name), filepath.Join(destDir, name))
	}

	page, err := r.composer.CompilePage(ctx, rel, p)
	if err != nil {
		return r.skip(ctx, rel, err)
	}
	target, err := r.mapper.DestinationFor(name, destDir)
	if err != nil {
		return r.skip(ctx, rel, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot create wrapper folder").Build())
	}
	if err := r.write(ctx, rel, target, page.Output, 0o644); err != nil {
		return r.skip(ctx, rel, err)
	}
	fp, err := manifest.Fingerprint(page.Fields, page.Output)
	if err != nil {
		observability.WarnContext(ctx, "Cannot fingerprint output", logfields.Path(rel), logfields.Error(err))
	}
	r.report.addEntry(manifest.Entry{Source: rel, Destination: r.destRel(target), Kind: manifest.KindComposed, Fingerprint: fp})
	r.opts.Recorder.IncFileResult(metrics.ResultWritten)
	return nil
}

func (r *walk) copy(ctx context.Context, rel, src, target string) error {
	info, err := os.Stat(src)
	if err != nil {
		return r.skip(ctx, rel, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot stat passthrough file").Build())
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return r.skip(ctx, rel, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot read passthrough file").Build())
	}
	if err := r.write(ctx, rel, target, data, info.Mode().Perm()); err != nil {
		return r.skip(ctx, rel, err)
	}
	fp, _ := manifest.Fingerprint(nil, data)
	r.report.addEntry(manifest.Entry{Source: rel, Destination: r.destRel(target), Kind: manifest.KindPassthrough, Fingerprint: fp})
	r.opts.Recorder.IncFileResult(metrics.ResultPassthrough)
	return nil
}

// write stores data at target. An existing file at target came from an
// earlier source in this run; it is overwritten and counted as a collision.
func (r *walk) write(ctx context.Context, rel, target string, data []byte, perm os.FileMode) error {
	if info, err := os.Lstat(target); err == nil {
		if info.IsDir() {
			return ferrors.FileSystemError("destination is a directory").
				WithContext("path", rel).WithContext("destination", r.destRel(target)).Build()
		}
		r.report.addCollision()
		observability.WarnContext(ctx, "Destination written twice, keeping the later file",
			logfields.Path(rel), logfields.Destination(r.destRel(target)))
	}
	if err := os.WriteFile(target, data, perm); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot write output file").
			WithContext("path", rel).Build()
	}
	return nil
}

// skip records a per-file failure. Cancellation is returned instead, since it
// ends the whole run.
func (r *walk) skip(ctx context.Context, rel string, err error) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	r.report.addSkip(rel, err)
	r.opts.Recorder.IncFileResult(metrics.ResultSkipped)
	observability.WarnContext(ctx, "Skipping file", logfields.Path(rel), logfields.Error(err))
	return nil
}

// passthrough reports whether a file is copied verbatim: its extension is
// listed, or its path or one of its parent directories is.
func (r *walk) passthrough(rel, name string) bool {
	if ext := strings.TrimPrefix(filepath.Ext(name), "."); ext != "" && r.opts.PassthroughExtensions.Has(ext) {
		return true
	}
	for p := rel; p != "." && p != ""; p = path.Dir(p) {
		if r.opts.PassthroughPaths.Has(p) {
			return true
		}
	}
	return false
}

// insideContent reports whether p resolves to a location under the content root.
func (r *walk) insideContent(p string) bool {
	target, err := filepath.EvalSymlinks(p)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(r.composer.Root(), target)
	return err == nil && filepath.IsLocal(rel)
}

func (r *walk) destRel(target string) string {
	rel, err := filepath.Rel(r.destRoot, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o750)
}

// clearSubtree removes the output of a skipped directory. The destination
// root itself is kept as an empty directory.
func clearSubtree(dir string, keep bool) error {
	if keep {
		return resetDir(dir)
	}
	return os.RemoveAll(dir)
}

func joinRel(rel, name string) string {
	if rel == "" {
		return name
	}
	return rel + "/" + name
}

func displayPath(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}
