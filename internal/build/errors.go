package build

import "errors"

// Sentinel errors for run-level failures. They are wrapped with context at the
// call site.
var (
	// ErrUnsafeDestination means the destination root overlaps the source root.
	ErrUnsafeDestination = errors.New("incscript: destination overlaps source root")
	// ErrSubtreeAborted marks a directory whose override document could not be
	// decoded; with fail-fast it cancels the whole run.
	ErrSubtreeAborted = errors.New("incscript: subtree aborted")
)
