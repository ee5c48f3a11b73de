// Package p4 drives a Perforce server through the p4 command line client.
package p4

import (
	"context"
	"fmt"
	"strings"

	"github.com/sdejongh/p4harmonize/pkg/executor"
)

// Connection identifies the server, user and workspace. Empty fields fall
// back to the p4 environment (P4PORT, P4CONFIG, ...).
type Connection struct {
	Port   string
	User   string
	Client string
}

// GlobalArgs returns the connection flags placed before every command
func (c Connection) GlobalArgs() []string {
	var args []string
	if c.Port != "" {
		args = append(args, "-p", c.Port)
	}
	if c.User != "" {
		args = append(args, "-u", c.User)
	}
	if c.Client != "" {
		args = append(args, "-c", c.Client)
	}
	return args
}

// Runner executes one p4 invocation and returns its standard output
type Runner interface {
	Run(ctx context.Context, input string, args ...string) (string, error)
}

// CommandError is a p4 invocation that failed
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = "no error output"
	}
	return fmt.Sprintf("p4 %s: exit status %d: %s", strings.Join(e.Args, " "), e.ExitCode, msg)
}

// Messages p4 reports on stderr with a failing exit status that only mean
// there was nothing to do
var benignMessages = []string{
	"no such file(s)",
	"file(s) up-to-date",
	"file(s) not opened on this client",
	"file(s) not opened for edit",
}

func isBenign(stderr string) bool {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ok := false
		for _, m := range benignMessages {
			if strings.Contains(line, m) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// CommandRunner runs the p4 binary
type CommandRunner struct {
	program string
	conn    Connection
	exec    executor.Executor
}

// NewCommandRunner creates a runner for conn. exec defaults to os/exec.
func NewCommandRunner(conn Connection, exec executor.Executor) *CommandRunner {
	if exec == nil {
		exec = executor.New()
	}
	return &CommandRunner{program: "p4", conn: conn, exec: exec}
}

// Run executes p4 with the connection flags followed by args.
// A failing exit status whose error output only says there was nothing to
// do is not an error.
func (r *CommandRunner) Run(ctx context.Context, input string, args ...string) (string, error) {
	full := append(r.conn.GlobalArgs(), args...)

	var opts []executor.Option
	if input != "" {
		opts = append(opts, executor.WithStdin(strings.NewReader(input)))
	}

	result, err := r.exec.Execute(ctx, r.program, full, opts...)
	if err == nil {
		return result.Stdout, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if result == nil || result.ExitCode < 0 {
		return "", fmt.Errorf("failed to run p4: %w", err)
	}
	if isBenign(result.Stderr) {
		return result.Stdout, nil
	}
	return "", &CommandError{Args: args, ExitCode: result.ExitCode, Stderr: result.Stderr}
}
