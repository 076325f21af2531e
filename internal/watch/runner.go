package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	ferrors "git.home.luguber.info/inful/incscript/internal/foundation/errors"
	"git.home.luguber.info/inful/incscript/internal/logfields"
)

// Default timings.
const (
	DefaultDebounce = 500 * time.Millisecond
	DefaultMaxDelay = 10 * time.Second
)

// BuildFunc performs one full rebuild. Errors are logged and watching continues.
type BuildFunc func(ctx context.Context, trig Trigger) error

// Options configures a Runner.
type Options struct {
	SourceRoot      string
	DestinationRoot string
	Debounce        time.Duration
	MaxDelay        time.Duration
	// Interval > 0 also rebuilds on a fixed schedule.
	Interval time.Duration
	// OutputFiles are written by each build (manifest, metrics) and never
	// trigger a rebuild.
	OutputFiles []string
}

// Runner ties the watcher, scheduler and debouncer to a build function.
type Runner struct {
	opts  Options
	build BuildFunc
}

// NewRunner validates opts and returns a Runner.
func NewRunner(opts Options, build BuildFunc) (*Runner, error) {
	if build == nil {
		return nil, ferrors.ValidationError("build function is required").Build()
	}
	if opts.SourceRoot == "" {
		return nil, ferrors.ValidationError("source root is required").Build()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}
	if opts.MaxDelay < opts.Debounce {
		opts.MaxDelay = opts.Debounce
	}
	return &Runner{opts: opts, build: build}, nil
}

// Run builds once, then rebuilds on every coalesced change until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	debouncer, err := NewDebouncer(DebouncerConfig{QuietWindow: r.opts.Debounce, MaxDelay: r.opts.MaxDelay})
	if err != nil {
		return err
	}

	var ignore []string
	if r.opts.DestinationRoot != "" {
		ignore = append(ignore, r.opts.DestinationRoot)
	}
	watcher, err := NewTreeWatcher(r.opts.SourceRoot, ignore, func(path string) {
		debouncer.Request("fs:" + filepath.Base(path))
	})
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "cannot create source watcher").Fatal().Build()
	}
	defer func() { _ = watcher.Close() }()
	for _, f := range r.opts.OutputFiles {
		if f != "" {
			watcher.IgnoreFile(f)
		}
	}
	if err := watcher.Start(ctx); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "cannot watch source tree").Fatal().Build()
	}

	if r.opts.Interval > 0 {
		scheduler, err := NewScheduler()
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryRuntime, "cannot create scheduler").Fatal().Build()
		}
		if _, err := scheduler.SchedulePeriodicRebuild(r.opts.Interval, func() { debouncer.Request("interval") }); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryRuntime, "cannot schedule rebuilds").Fatal().Build()
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				slog.Warn("Scheduler shutdown failed", logfields.Error(err))
			}
		}()
	}

	// Capacity one: a trigger arriving during a build queues exactly one follow-up.
	pending := make(chan Trigger, 1)
	go debouncer.Run(ctx, func(t Trigger) {
		select {
		case pending <- t:
		default:
		}
	})

	r.runBuild(ctx, Trigger{RequestCount: 1, LastReason: "startup", Cause: "startup"})
	for {
		select {
		case <-ctx.Done():
			slog.Info("Watch stopped")
			return nil
		case t := <-pending:
			r.runBuild(ctx, t)
		}
	}
}

func (r *Runner) runBuild(ctx context.Context, t Trigger) {
	slog.Info("Rebuilding",
		slog.String("reason", t.LastReason),
		slog.String("cause", t.Cause),
		logfields.Count(t.RequestCount))
	if err := r.build(ctx, t); err != nil && ctx.Err() == nil {
		slog.Error("Rebuild failed", logfields.Error(err))
	}
}
