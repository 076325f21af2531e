package metrics

import "time"

// ResultLabel enumerates per-file result categories for counters.
type ResultLabel string

const (
	ResultWritten     ResultLabel = "written"
	ResultPassthrough ResultLabel = "passthrough"
	ResultSkipped     ResultLabel = "skipped"
)

// BuildOutcome is the final status of a run.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomePartial  BuildOutcome = "partial"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// Recorder defines observability hooks for compiler runs. Implementations may
// forward to Prometheus; NoopRecorder is the default. All methods must be safe
// for concurrent use.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcome)
	IncFileResult(result ResultLabel)
	ObserveScriptDuration(script string, d time.Duration, success bool)
	IncScriptUnresolved(script string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration)                {}
func (NoopRecorder) IncBuildOutcome(BuildOutcome)                      {}
func (NoopRecorder) IncFileResult(ResultLabel)                         {}
func (NoopRecorder) ObserveScriptDuration(string, time.Duration, bool) {}
func (NoopRecorder) IncScriptUnresolved(string)                        {}
