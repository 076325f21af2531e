package build

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/incscript/internal/compose"
	"git.home.luguber.info/inful/incscript/internal/config"
	ferrors "git.home.luguber.info/inful/incscript/internal/foundation/errors"
	"git.home.luguber.info/inful/incscript/internal/logfields"
	"git.home.luguber.info/inful/incscript/internal/manifest"
	"git.home.luguber.info/inful/incscript/internal/metrics"
	"git.home.luguber.info/inful/incscript/internal/observability"
	"git.home.luguber.info/inful/incscript/internal/output"
	"git.home.luguber.info/inful/incscript/internal/script"
)

// DefaultBuildService is the standard implementation of BuildService.
// It orchestrates the pipeline: load → walk (cascade, compose, write).
type DefaultBuildService struct {
	recorder metrics.Recorder
	lookPath func(string) (string, error)
	builtins map[string]script.Builtin
}

// NewBuildService creates a new DefaultBuildService with no-op metrics.
func NewBuildService() *DefaultBuildService {
	return &DefaultBuildService{recorder: metrics.NoopRecorder{}}
}

// WithRecorder sets the metrics recorder.
func (s *DefaultBuildService) WithRecorder(r metrics.Recorder) *DefaultBuildService {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	s.recorder = r
	return s
}

// WithLookPath replaces PATH resolution for scripts (for testing).
func (s *DefaultBuildService) WithLookPath(fn func(string) (string, error)) *DefaultBuildService {
	s.lookPath = fn
	return s
}

// WithBuiltins replaces the set of @-prefixed transforms.
func (s *DefaultBuildService) WithBuiltins(b map[string]script.Builtin) *DefaultBuildService {
	s.builtins = b
	return s
}

// Run executes the complete build pipeline.
func (s *DefaultBuildService) Run(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	startTime := time.Now()
	result := &BuildResult{
		BuildID:   observability.NewBuildID(),
		StartTime: startTime,
		Report:    NewReport(),
	}
	ctx = observability.WithBuildID(ctx, result.BuildID)

	// Stage 1: load and validate the source root
	ctx = observability.WithStage(ctx, "load")
	project, err := config.Load(req.SourceRoot)
	if err != nil {
		return s.finish(ctx, result, BuildStatusFailed), err
	}
	result.SourceRoot = project.Layout.SourceRoot
	result.ConfigHash = manifest.ConfigHash(project.Raw)

	dest, err := filepath.Abs(req.DestinationRoot)
	if err != nil {
		return s.finish(ctx, result, BuildStatusFailed),
			ferrors.WrapError(err, ferrors.CategoryValidation, "invalid destination root").Fatal().Build()
	}
	result.DestinationRoot = dest
	if err := checkDestination(project.Layout, dest); err != nil {
		return s.finish(ctx, result, BuildStatusFailed), err
	}

	cfg := project.Config
	workers := cfg.Build.Workers
	if req.Options.Workers > 0 {
		workers = req.Options.Workers
	}
	failFast := cfg.Build.FailFast
	if req.Options.FailFast != nil {
		failFast = *req.Options.FailFast
	}

	// Stage 2: assemble the pipeline
	pipe, err := script.New(script.Options{
		ScriptsDir:  project.Layout.ScriptsDir,
		SourceRoot:  project.Layout.SourceRoot,
		ContentRoot: project.Layout.ContentRoot,
		Timeout:     cfg.Scripts.Timeout,
		Builtins:    s.builtins,
		Recorder:    s.recorder,
		LookPath:    s.lookPath,
	})
	if err != nil {
		return s.finish(ctx, result, BuildStatusFailed), err
	}
	composer, err := compose.New(project.Layout.ContentRoot, pipe, compose.Options{
		Separator: cfg.Compose.Separator,
		MaxDepth:  cfg.Compose.MaxDepth,
	})
	if err != nil {
		return s.finish(ctx, result, BuildStatusFailed),
			ferrors.WrapError(err, ferrors.CategoryInternal, "cannot create composer").Fatal().Build()
	}
	walker := NewWalker(project.Layout.ContentRoot, composer, output.FromConfig(cfg), WalkerOptions{
		Workers:               workers,
		FailFast:              failFast,
		PassthroughExtensions: cfg.PassthroughExtensions(),
		PassthroughPaths:      cfg.PassthroughPaths(),
		Recorder:              s.recorder,
	})

	// Stage 3: walk the content tree
	ctx = observability.WithStage(ctx, "walk")
	observability.InfoContext(ctx, "Building",
		logfields.Path(result.SourceRoot),
		logfields.Destination(result.DestinationRoot),
		logfields.Count(workers))
	report, err := walker.Walk(ctx, project.Root, dest)
	result.Report = report

	switch {
	case err != nil && errors.Is(err, context.Canceled):
		return s.finish(ctx, result, BuildStatusCancelled), err
	case err != nil:
		return s.finish(ctx, result, BuildStatusFailed), err
	case len(report.Skipped()) > 0:
		return s.finish(ctx, result, BuildStatusPartial), nil
	default:
		return s.finish(ctx, result, BuildStatusSuccess), nil
	}
}

// finish stamps timing and status, records metrics and logs the summary.
func (s *DefaultBuildService) finish(ctx context.Context, result *BuildResult, status BuildStatus) *BuildResult {
	result.Status = status
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	switch status {
	case BuildStatusSuccess:
		s.recorder.IncBuildOutcome(metrics.OutcomeSuccess)
	case BuildStatusPartial:
		s.recorder.IncBuildOutcome(metrics.OutcomePartial)
	case BuildStatusCancelled:
		s.recorder.IncBuildOutcome(metrics.OutcomeCanceled)
	default:
		s.recorder.IncBuildOutcome(metrics.OutcomeFailed)
	}
	s.recorder.ObserveBuildDuration(result.Duration)

	if status == BuildStatusFailed || status == BuildStatusCancelled {
		return result
	}
	observability.InfoContext(ctx, "Build finished",
		slog.String("status", string(status)),
		slog.Int("written", result.Report.Count(manifest.KindComposed)),
		slog.Int("passthrough", result.Report.Count(manifest.KindPassthrough)),
		slog.Int("skipped", len(result.Report.Skipped())),
		logfields.DurationMS(float64(result.Duration.Microseconds())/1000))
	for _, skip := range result.Report.Skipped() {
		observability.WarnContext(ctx, "Skipped", logfields.Path(skip.Path), logfields.Error(skip.Err))
	}
	return result
}

// checkDestination rejects destinations that would delete or feed back into
// the source tree when rebuilt.
func checkDestination(layout config.Layout, dest string) error {
	switch {
	case within(dest, layout.SourceRoot):
		return ferrors.ConfigError("destination root contains the source root").
			WithCause(ErrUnsafeDestination).WithContext("destination", dest).Build()
	case within(layout.ContentRoot, dest), within(layout.ScriptsDir, dest):
		return ferrors.ConfigError("destination root is inside the source tree").
			WithCause(ErrUnsafeDestination).WithContext("destination", dest).Build()
	}
	return nil
}

// within reports whether child equals parent or lies below it.
func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || filepath.IsLocal(rel)
}
