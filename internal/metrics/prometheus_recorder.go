package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry         *prom.Registry
	buildDuration    prom.Histogram
	buildOutcome     *prom.CounterVec
	fileResults      *prom.CounterVec
	scriptDuration   *prom.HistogramVec
	scriptUnresolved *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the incscript metrics on reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: "incscript",
		Name:      "build_duration_seconds",
		Help:      "Total duration of a compiler run",
		Buckets:   prom.DefBuckets,
	})
	pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "incscript",
		Name:      "build_outcomes_total",
		Help:      "Compiler runs by final status",
	}, []string{"outcome"})
	pr.fileResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "incscript",
		Name:      "file_results_total",
		Help:      "Source files by result",
	}, []string{"result"})
	pr.scriptDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "incscript",
		Name:      "script_duration_seconds",
		Help:      "Duration of external script invocations",
		Buckets:   prom.DefBuckets,
	}, []string{"script", "result"})
	pr.scriptUnresolved = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "incscript",
		Name:      "script_unresolved_total",
		Help:      "Pipeline steps skipped because the script name did not resolve",
	}, []string{"script"})
	reg.MustRegister(pr.buildDuration, pr.buildOutcome, pr.fileResults, pr.scriptDuration, pr.scriptUnresolved)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.registry
}

// WriteTextfile writes the current metric values in the Prometheus text
// exposition format, suitable for the node_exporter textfile collector.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.registry)
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcome) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncFileResult(result ResultLabel) {
	if p == nil || p.fileResults == nil {
		return
	}
	p.fileResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveScriptDuration(script string, d time.Duration, success bool) {
	if p == nil || p.scriptDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.scriptDuration.WithLabelValues(script, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncScriptUnresolved(script string) {
	if p == nil || p.scriptUnresolved == nil {
		return
	}
	p.scriptUnresolved.WithLabelValues(script).Inc()
}
