package commands

import (
	"log/slog"

	"git.home.luguber.info/inful/incscript/internal/config"
	"git.home.luguber.info/inful/incscript/internal/logfields"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Source string `arg:"" name:"source-root" help:"Directory to scaffold" type:"path"`
	Force  bool   `help:"Overwrite an existing incscript_config.yaml"`
}

func (i *InitCmd) Run(_ *Global, _ *CLI) error {
	slog.Info("Initializing source root", logfields.Directory(i.Source), slog.Bool("force", i.Force))
	return config.Init(i.Source, i.Force)
}
