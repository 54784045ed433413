// Package shell is the boundary between gmxwrap and the external commands it
// drives. A Runner turns a tool argv into a finished Result; the Local runner
// executes on the host, while the runners under internal/runner route the
// same argv into an ephemeral remote environment.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Result holds the outcome of one external command invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Ok reports whether the command exited with status zero.
func (r *Result) Ok() bool {
	return r.ExitCode == 0
}

// RunOption adjusts a single invocation.
type RunOption func(*RunSettings)

// RunSettings is the resolved form of a set of RunOptions, exposed so Runner
// implementations outside this package can honor them.
type RunSettings struct {
	Stdin string
}

// WithInput supplies canned responses for interactive prompts. Lines are
// joined with newlines and fed to the command's stdin.
func WithInput(lines ...string) RunOption {
	return func(s *RunSettings) {
		s.Stdin = strings.Join(lines, "\n") + "\n"
	}
}

// Settings resolves opts into their final values.
func Settings(opts []RunOption) RunSettings {
	var s RunSettings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Runner executes tool command lines.
//
// Commandline reports the argv that Run would actually execute, including
// any remote-exec indirection a decorating runner adds. Run blocks until the
// command finishes. A non-zero exit status is reported in Result.ExitCode,
// not as an error; errors are reserved for failures to run the command at
// all (missing executable, broken transport).
type Runner interface {
	Commandline(argv []string) []string
	Run(ctx context.Context, argv []string, opts ...RunOption) (*Result, error)
}

// Local runs commands directly on the host.
type Local struct {
	log *zap.Logger
	env []string
}

// NewLocal creates a host runner. A nil logger disables logging.
func NewLocal(log *zap.Logger) *Local {
	if log == nil {
		log = zap.NewNop()
	}
	return &Local{log: log}
}

// SetEnv adds environment variables (KEY=VALUE) on top of the ambient
// environment for every subsequent invocation.
func (l *Local) SetEnv(kv ...string) {
	l.env = append(l.env, kv...)
}

// Commandline is the identity for local execution.
func (l *Local) Commandline(argv []string) []string {
	return argv
}

// Run executes argv on the host and captures its output.
func (l *Local) Run(ctx context.Context, argv []string, opts ...RunOption) (*Result, error) {
	if len(argv) == 0 {
		return nil, errors.New("shell: empty command line")
	}
	settings := Settings(opts)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if len(l.env) > 0 {
		cmd.Env = append(os.Environ(), l.env...)
	}
	if settings.Stdin != "" {
		cmd.Stdin = strings.NewReader(settings.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	l.log.Debug("exec", zap.Strings("argv", argv))

	err := cmd.Run()
	res := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			l.log.Debug("exec finished", zap.String("command", argv[0]), zap.Int("exit", res.ExitCode))
			return res, nil
		}
		return nil, fmt.Errorf("shell: failed to run %s: %w", argv[0], err)
	}

	return res, nil
}
