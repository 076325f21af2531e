package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/incscript/internal/foundation/normalization"
	"git.home.luguber.info/inful/incscript/internal/logfields"
)

// Global carries process-wide state into subcommands.
type Global struct {
	// Ctx is canceled on SIGINT or SIGTERM.
	Ctx    context.Context
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Verbose  bool             `short:"v" help:"Enable verbose logging"`
	LogLevel string           `name:"log-level" env:"INCSCRIPT_LOG_LEVEL" help:"Log level (debug, info, warn, error)"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" default:"withargs" help:"Compile <source-root> into <destination-root> (default command)"`
	Watch WatchCmd `cmd:"" help:"Rebuild whenever the source root changes"`
	Init  InitCmd  `cmd:"" help:"Scaffold a new source root"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose, c.LogLevel)}))
	slog.SetDefault(logger)
	if _, err := logLevels.Lookup(c.LogLevel); err != nil {
		logger.Warn("Ignoring log level", logfields.Error(err))
	}
	return nil
}

var logLevels = normalization.New(map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}, slog.LevelInfo)

// parseLogLevel maps -v and the log-level setting to a slog level. -v wins.
func parseLogLevel(verbose bool, level string) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return logLevels.Normalize(level)
}

func contextOf(g *Global) context.Context {
	if g == nil || g.Ctx == nil {
		return context.Background()
	}
	return g.Ctx
}
