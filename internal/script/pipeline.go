package script

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/incscript/internal/foundation/errors"
	"git.home.luguber.info/inful/incscript/internal/logfields"
	"git.home.luguber.info/inful/incscript/internal/metrics"
	"git.home.luguber.info/inful/incscript/internal/observability"
)

// Environment variables exported to every external script.
const (
	EnvSourceRoot  = "INCSCRIPT_SOURCE_ROOT"
	EnvContentRoot = "INCSCRIPT_CONTENT_ROOT"
	EnvFile        = "INCSCRIPT_FILE"
)

const (
	defaultTimeout = 30 * time.Second
	waitDelay      = 2 * time.Second
	stderrTailSize = 2048
)

// Options configures a Pipeline.
type Options struct {
	ScriptsDir  string
	SourceRoot  string
	ContentRoot string
	Timeout     time.Duration
	Builtins    map[string]Builtin
	Recorder    metrics.Recorder
	// LookPath overrides exec.LookPath for PATH resolution.
	LookPath func(string) (string, error)
}

// Pipeline runs text through named scripts. It is safe for concurrent use.
type Pipeline struct {
	resolver *resolver
	timeout  time.Duration
	env      []string
	recorder metrics.Recorder
}

// New lists the scripts directory and prepares the PATH cache.
func New(opts Options) (*Pipeline, error) {
	builtins := opts.Builtins
	if builtins == nil {
		builtins = DefaultBuiltins()
	}
	r, err := newResolver(opts.ScriptsDir, builtins, opts.LookPath)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "cannot read scripts directory").Fatal().Build()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	env := append(os.Environ(),
		EnvSourceRoot+"="+opts.SourceRoot,
		EnvContentRoot+"="+opts.ContentRoot,
	)
	return &Pipeline{resolver: r, timeout: timeout, env: env, recorder: recorder}, nil
}

// Resolve reports where name would be taken from.
func (p *Pipeline) Resolve(name string) Resolution {
	return p.resolver.resolve(name)
}

// Pipe feeds text through each named script in order. Unresolved names are
// skipped with a warning. The first failing step aborts the pipe.
func (p *Pipeline) Pipe(ctx context.Context, text []byte, names []string) ([]byte, error) {
	for _, name := range names {
		res := p.resolver.resolve(name)
		var (
			out []byte
			err error
		)
		switch res.Kind {
		case KindUnresolved:
			observability.WarnContext(ctx, "Script not found, skipping pipeline step", logfields.Script(name))
			p.recorder.IncScriptUnresolved(name)
			continue
		case KindBuiltin:
			out, err = p.runBuiltin(res, text)
		default:
			out, err = p.runProgram(ctx, res, text)
		}
		if err != nil {
			return nil, err
		}
		text = out
	}
	return text, nil
}

func (p *Pipeline) runBuiltin(res Resolution, text []byte) ([]byte, error) {
	fn := p.resolver.builtins[strings.TrimPrefix(res.Name, BuiltinPrefix)]
	out, err := fn(text)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryScript, "built-in transform failed").
			WithContext("script", res.Name).Build()
	}
	return out, nil
}

func (p *Pipeline) runProgram(ctx context.Context, res Resolution, text []byte) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// #nosec G204 -- the program path comes from the scripts directory or PATH, never from a shell string.
	cmd := exec.CommandContext(runCtx, res.Path)
	cmd.Stdin = bytes.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(append([]string(nil), p.env...), EnvFile+"="+observability.GetContext(ctx).File)
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)
	p.recorder.ObserveScriptDuration(res.Name, elapsed, err == nil)
	observability.DebugContext(ctx, "Script finished",
		logfields.Script(res.Name),
		logfields.Path(res.Path),
		logfields.DurationMS(float64(elapsed.Microseconds())/1000))

	if err == nil {
		return stdout.Bytes(), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	msg := "script failed"
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		msg = "script timed out after " + p.timeout.String()
	}
	b := ferrors.WrapError(err, ferrors.CategoryScript, msg).
		WithContext("script", res.Name).
		WithContext("path", res.Path)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		b = b.WithContext("exit_code", exitErr.ExitCode())
	}
	if tail := stderrTail(stderr.Bytes()); tail != "" {
		b = b.WithContext("stderr", tail)
	}
	return nil, b.Build()
}

func stderrTail(b []byte) string {
	if len(b) > stderrTailSize {
		b = b[len(b)-stderrTailSize:]
	}
	return strings.TrimSpace(string(b))
}
