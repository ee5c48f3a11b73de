// Package executor runs external commands with captured output, a working
// directory and extra environment, cancelled through a context.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
)

// Result holds the output of a finished command
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs a program to completion
type Executor interface {
	Execute(ctx context.Context, program string, args []string, opts ...Option) (*Result, error)
}

// Options configures command execution
type Options struct {
	// WorkingDir defaults to the current directory
	WorkingDir string

	// Env is appended to the current environment
	Env map[string]string

	// Stdin is fed to the command when set
	Stdin io.Reader

	// StdoutWriter and StderrWriter receive output as it is produced, in
	// addition to the captured buffers
	StdoutWriter io.Writer
	StderrWriter io.Writer
}

// Option is a function that modifies Options
type Option func(*Options)

// WithWorkingDir sets the working directory
func WithWorkingDir(dir string) Option {
	return func(o *Options) {
		o.WorkingDir = dir
	}
}

// WithEnvVar adds a single environment variable
func WithEnvVar(key, value string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		o.Env[key] = value
	}
}

// WithStdin feeds r to the command
func WithStdin(r io.Reader) Option {
	return func(o *Options) {
		o.Stdin = r
	}
}

// WithStdoutWriter tees stdout to w
func WithStdoutWriter(w io.Writer) Option {
	return func(o *Options) {
		o.StdoutWriter = w
	}
}

// WithStderrWriter tees stderr to w
func WithStderrWriter(w io.Writer) Option {
	return func(o *Options) {
		o.StderrWriter = w
	}
}

// CommandExecutor runs commands with os/exec
type CommandExecutor struct {
	defaults []Option
}

// New creates an executor applying defaults before per-call options
func New(defaults ...Option) *CommandExecutor {
	return &CommandExecutor{defaults: defaults}
}

// Execute runs program. A non-zero exit returns the populated result together
// with an error wrapping the *exec.ExitError.
func (c *CommandExecutor) Execute(ctx context.Context, program string, args []string, opts ...Option) (*Result, error) {
	options := &Options{}
	for _, opt := range c.defaults {
		opt(options)
	}
	for _, opt := range opts {
		opt(options)
	}

	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = options.WorkingDir
	if len(options.Env) > 0 {
		cmd.Env = os.Environ()
		keys := make([]string, 0, len(options.Env))
		for k := range options.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cmd.Env = append(cmd.Env, k+"="+options.Env[k])
		}
	}
	if options.Stdin != nil {
		cmd.Stdin = options.Stdin
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = tee(&stdout, options.StdoutWriter)
	cmd.Stderr = tee(&stderr, options.StderrWriter)

	err := cmd.Run()
	result := &Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = -1
	}

	if err != nil {
		return result, fmt.Errorf("command execution failed: %w", err)
	}
	return result, nil
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}
