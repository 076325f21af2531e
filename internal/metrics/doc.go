// Package metrics provides observability hooks for incscript runs.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	pipeline, _ := script.New(script.Options{Recorder: metrics.NoopRecorder{}})
//
// PrometheusRecorder registers histograms and counters on a registry. The CLI
// activates it when --metrics-file is given and writes the registry to that
// file after the run in the text exposition format.
package metrics
