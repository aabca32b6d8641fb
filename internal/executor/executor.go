// Package executor runs the external tools the update checks depend on.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"archupdates/internal/logger"
)

// CommandError describes a command that ran but did not succeed.
// Stderr is kept so callers can classify the failure.
type CommandError struct {
	Name     string
	Args     []string
	Stderr   string
	ExitCode int
	Err      error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Name, strings.Join(e.Args, " "), e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + firstLine(stderr)
	}
	return msg
}

// Unwrap returns the underlying exec error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// Executor runs commands with a stable, non-localized environment.
type Executor struct {
	dryRun bool
	env    []string
}

// New creates a new Executor with the given options.
func New(dryRun bool) *Executor {
	return &Executor{
		dryRun: dryRun,
		// Tool output is parsed, so force the C locale. VCS clients must
		// never stop to ask for credentials.
		env: append(os.Environ(), "LC_ALL=C", "GIT_TERMINAL_PROMPT=0"),
	}
}

// SetDryRun enables or disables dry-run mode.
func (e *Executor) SetDryRun(dryRun bool) {
	e.dryRun = dryRun
}

// DryRun reports whether commands are only printed.
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// Output runs a command and returns its stdout. A non-zero exit is reported
// as a *CommandError carrying the captured stderr.
func (e *Executor) Output(ctx context.Context, name string, args ...string) (string, error) {
	if e.dryRun {
		e.printDryRun(name, args)
		return "", nil
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = e.env
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Executing: %s %s", name, strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		// A cancelled context is reported as such, not as an exit status.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stdout.String(), ctxErr
		}
		cmdErr := &CommandError{
			Name:     name,
			Args:     args,
			Stderr:   stderr.String(),
			ExitCode: -1,
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		return stdout.String(), cmdErr
	}
	return stdout.String(), nil
}

// Available reports whether name can be found in PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func (e *Executor) printDryRun(name string, args []string) {
	fmt.Printf("[dry-run] Would execute: %s %s\n", name, strings.Join(args, " "))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
