package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/incscript/internal/manifest"
)

// BuildService is the canonical interface for compiling a source root.
// The CLI and watch mode are thin wrappers over it.
type BuildService interface {
	// Run loads the source root and rebuilds the destination root.
	// Returns a BuildResult with detailed outcomes and any fatal error.
	Run(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// BuildRequest contains all inputs required to execute a build.
type BuildRequest struct {
	// SourceRoot holds incscript_config.yaml, filesystem/ and scripts/.
	SourceRoot string

	// DestinationRoot is rebuilt destructively.
	DestinationRoot string

	// Options provides optional build behavior modifiers.
	Options BuildOptions
}

// BuildOptions overrides settings from the top-level config.
type BuildOptions struct {
	// Workers bounds concurrent subdirectory processing (0 = use config).
	Workers int

	// FailFast cancels the run on the first subtree failure when set.
	FailFast *bool
}

// BuildResult contains the outcome of a build execution.
type BuildResult struct {
	// BuildID identifies the run in logs and the manifest.
	BuildID string

	// Status indicates overall build outcome.
	Status BuildStatus

	// Report lists written, copied and skipped files.
	Report *Report

	// ConfigHash is the sha256 of the raw top-level config.
	ConfigHash string

	// SourceRoot and DestinationRoot are absolute.
	SourceRoot      string
	DestinationRoot string

	// Duration is the total build execution time.
	Duration time.Duration

	// StartTime is when the build started.
	StartTime time.Time

	// EndTime is when the build completed.
	EndTime time.Time
}

// Manifest converts the result into a build manifest.
func (r *BuildResult) Manifest() *manifest.BuildManifest {
	m := &manifest.BuildManifest{
		ID:        r.BuildID,
		Timestamp: r.StartTime.UTC(),
		Inputs: manifest.Inputs{
			SourceRoot:      r.SourceRoot,
			DestinationRoot: r.DestinationRoot,
			ConfigHash:      r.ConfigHash,
		},
		Status:   string(r.Status),
		Duration: r.Duration.Milliseconds(),
	}
	if r.Report != nil {
		m.Entries = r.Report.Entries()
		m.Skipped = len(r.Report.Skipped())
	}
	return m
}

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	// BuildStatusSuccess indicates every file was written.
	BuildStatusSuccess BuildStatus = "success"

	// BuildStatusPartial indicates the run completed but skipped files.
	BuildStatusPartial BuildStatus = "partial"

	// BuildStatusFailed indicates a fatal error stopped the build.
	BuildStatusFailed BuildStatus = "failed"

	// BuildStatusCancelled indicates the build was cancelled.
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsTerminal returns true if the status represents a final state.
func (s BuildStatus) IsTerminal() bool {
	return s == BuildStatusSuccess || s == BuildStatusPartial ||
		s == BuildStatusFailed || s == BuildStatusCancelled
}

// IsSuccess returns true if the build completed without skipping anything.
func (s BuildStatus) IsSuccess() bool {
	return s == BuildStatusSuccess
}
