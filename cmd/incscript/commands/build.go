package commands

import (
	"context"
	"fmt"
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/incscript/internal/build"
	ferrors "git.home.luguber.info/inful/incscript/internal/foundation/errors"
	"git.home.luguber.info/inful/incscript/internal/logfields"
	"git.home.luguber.info/inful/incscript/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Source      string `arg:"" name:"source-root" help:"Directory holding incscript_config.yaml, filesystem/ and scripts/" type:"path"`
	Destination string `arg:"" name:"destination-root" help:"Directory to rebuild" type:"path"`

	Workers     int    `short:"w" help:"Process up to N sibling directories concurrently (overrides build.workers)"`
	FailFast    bool   `name:"fail-fast" help:"Abort the run when an override document cannot be decoded"`
	Manifest    string `name:"manifest" help:"Write a YAML build manifest to FILE" placeholder:"FILE" type:"path"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics in text format to FILE" placeholder:"FILE" type:"path"`
}

func (b *BuildCmd) Run(g *Global, _ *CLI) error {
	_, err := RunBuild(contextOf(g), b.request(), Outputs{Manifest: b.Manifest, MetricsFile: b.MetricsFile})
	return err
}

func (b *BuildCmd) request() build.BuildRequest {
	req := build.BuildRequest{
		SourceRoot:      b.Source,
		DestinationRoot: b.Destination,
		Options:         build.BuildOptions{Workers: b.Workers},
	}
	if b.FailFast {
		ff := true
		req.Options.FailFast = &ff
	}
	return req
}

// Outputs names the optional side files written after a build.
type Outputs struct {
	Manifest    string
	MetricsFile string
}

// RunBuild executes one build, writes the requested side files and converts
// a partial result into a partial-category error.
func RunBuild(ctx context.Context, req build.BuildRequest, out Outputs) (*build.BuildResult, error) {
	var (
		recorder metrics.Recorder = metrics.NoopRecorder{}
		promRec  *metrics.PrometheusRecorder
	)
	if out.MetricsFile != "" {
		promRec = metrics.NewPrometheusRecorder(prom.NewRegistry())
		recorder = promRec
	}

	result, err := build.NewBuildService().WithRecorder(recorder).Run(ctx, req)

	if out.Manifest != "" && result != nil && (result.Status == build.BuildStatusSuccess || result.Status == build.BuildStatusPartial) {
		if werr := result.Manifest().WriteFile(out.Manifest); werr != nil {
			slog.Warn("Failed to write build manifest", logfields.Path(out.Manifest), logfields.Error(werr))
		} else {
			slog.Info("Wrote build manifest", logfields.Path(out.Manifest))
		}
	}
	if promRec != nil {
		if werr := promRec.WriteTextfile(out.MetricsFile); werr != nil {
			slog.Warn("Failed to write metrics file", logfields.Path(out.MetricsFile), logfields.Error(werr))
		}
	}

	if err != nil {
		return result, err
	}
	if result.Status == build.BuildStatusPartial {
		skipped := len(result.Report.Skipped())
		return result, ferrors.NewError(ferrors.CategoryPartial,
			fmt.Sprintf("build completed with %d skipped file(s)", skipped)).
			Warning().WithContext("skipped", skipped).Build()
	}
	return result, nil
}
