package commands

import (
	"context"
	"time"

	"git.home.luguber.info/inful/incscript/internal/build"
	ferrors "git.home.luguber.info/inful/incscript/internal/foundation/errors"
	"git.home.luguber.info/inful/incscript/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Source      string `arg:"" name:"source-root" help:"Directory holding incscript_config.yaml, filesystem/ and scripts/" type:"path"`
	Destination string `arg:"" name:"destination-root" help:"Directory to rebuild" type:"path"`

	Interval    time.Duration `help:"Also rebuild on this fixed interval (0 disables)" default:"0s"`
	Debounce    time.Duration `help:"Quiet period before a change triggers a rebuild" default:"500ms"`
	Workers     int           `short:"w" help:"Process up to N sibling directories concurrently (overrides build.workers)"`
	Manifest    string        `name:"manifest" help:"Write a YAML build manifest to FILE after every rebuild" placeholder:"FILE" type:"path"`
	MetricsFile string        `name:"metrics-file" help:"Write Prometheus metrics in text format to FILE after every rebuild" placeholder:"FILE" type:"path"`
}

func (w *WatchCmd) Run(g *Global, _ *CLI) error {
	req := build.BuildRequest{
		SourceRoot:      w.Source,
		DestinationRoot: w.Destination,
		Options:         build.BuildOptions{Workers: w.Workers},
	}
	out := Outputs{Manifest: w.Manifest, MetricsFile: w.MetricsFile}

	runner, err := watch.NewRunner(watch.Options{
		SourceRoot:      w.Source,
		DestinationRoot: w.Destination,
		Debounce:        w.Debounce,
		Interval:        w.Interval,
		OutputFiles:     []string{w.Manifest, w.MetricsFile},
	}, func(ctx context.Context, _ watch.Trigger) error {
		_, err := RunBuild(ctx, req, out)
		if ferrors.HasCategory(err, ferrors.CategoryPartial) {
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	return runner.Run(contextOf(g))
}
