// SPDX-License-Identifier: MPL-2.0

// Package execx provides the narrow command-execution layer every mutating
// phase goes through. Steps never call os/exec directly; they describe a
// Command and hand it to a Runner, which makes the whole sequence testable
// against a recording fake and printable in dry-run mode.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/syntax"
)

type (
	// Command describes a single external command invocation.
	Command struct {
		// Name is the executable name or path.
		Name string
		// Args are the command arguments.
		Args []string
		// Env contains variables overlaid on the parent environment.
		Env map[string]string
		// Stdin is fed to the process when non-nil.
		Stdin io.Reader
	}

	// Result captures the outcome of a completed command.
	Result struct {
		// Stdout is the captured standard output.
		Stdout string
		// Stderr is the captured standard error.
		Stderr string
		// ExitCode is the process exit status (0 on success).
		ExitCode int
	}

	// Runner runs an external command and captures status and output.
	Runner interface {
		Run(ctx context.Context, cmd Command) (Result, error)
		LookPath(name string) (string, error)
	}

	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// Option configures an ExecRunner.
	Option func(*ExecRunner)

	// ExecRunner is the host-mutating Runner backed by os/exec.
	ExecRunner struct {
		execCommand ExecCommandFunc
		lookPath    func(name string) (string, error)
		logger      *log.Logger
	}

	// ExitStatusError is returned when a command ran but exited non-zero.
	// The code is preserved so the process can terminate with the failing
	// command's status.
	ExitStatusError struct {
		Cmd    string
		Code   int
		Stderr string
	}
)

// Error implements the error interface.
func (e *ExitStatusError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", e.Cmd, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// ExitCode extracts the exit status carried by err, if any.
// Returns (0, false) when err carries no status.
func ExitCode(err error) (int, bool) {
	var ese *ExitStatusError
	if errors.As(err, &ese) {
		return ese.Code, true
	}
	return 0, false
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) Option {
	return func(r *ExecRunner) {
		r.execCommand = fn
	}
}

// WithLookPath sets a custom binary lookup function for testing.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(r *ExecRunner) {
		r.lookPath = fn
	}
}

// WithLogger sets the logger that records every issued command line.
func WithLogger(logger *log.Logger) Option {
	return func(r *ExecRunner) {
		r.logger = logger
	}
}

// NewExecRunner creates a Runner backed by the real host.
func NewExecRunner(opts ...Option) *ExecRunner {
	r := &ExecRunner{
		execCommand: exec.CommandContext,
		lookPath:    exec.LookPath,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes cmd, blocking until it exits. A non-zero exit status is
// returned as an *ExitStatusError wrapping the captured stderr; the Result
// is populated in every case where the process actually ran.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	if r.logger != nil {
		r.logger.Debug("exec", "cmd", QuoteLine(cmd.Name, cmd.Args...))
	}

	c := r.execCommand(ctx, cmd.Name, cmd.Args...)
	if len(cmd.Env) > 0 {
		// exec.Cmd.Env nil means "inherit everything"; once set, only the
		// listed variables reach the child, so start from the parent env.
		c.Env = os.Environ()
		for k, v := range cmd.Env {
			c.Env = append(c.Env, k+"="+v)
		}
	}
	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, &ExitStatusError{
				Cmd:    QuoteLine(cmd.Name, cmd.Args...),
				Code:   res.ExitCode,
				Stderr: res.Stderr,
			}
		}
		res.ExitCode = 1
		return res, fmt.Errorf("command %q failed to run: %w", cmd.Name, err)
	}

	return res, nil
}

// LookPath resolves name against PATH.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return r.lookPath(name)
}

// QuoteLine renders a command line the way a shell user would type it.
// Words that cannot be represented in POSIX shell are kept verbatim.
func QuoteLine(name string, args ...string) string {
	words := make([]string, 0, len(args)+1)
	for _, w := range append([]string{name}, args...) {
		q, err := syntax.Quote(w, syntax.LangBash)
		if err != nil {
			q = w
		}
		words = append(words, q)
	}
	return strings.Join(words, " ")
}
