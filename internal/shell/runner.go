package shell

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Runner executes a shell command line synchronously and reports its exit status.
type Runner interface {
	Run(ctx context.Context, command string) (int, error)
}

// FailedToStart is the status reported when the shell could not be started.
const FailedToStart = -1

// System runs command lines through an interpreter such as /system/bin/sh.
type System struct {
	// Shell is the absolute path of the interpreter, invoked as `<Shell> -c <command>`.
	Shell string
}

// NewSystem returns a Runner that uses the given interpreter.
func NewSystem(shellPath string) *System {
	return &System{Shell: shellPath}
}

// Run blocks until the command exits and returns its exit status.
// A non-zero exit is not an error; an error means the status is unknown.
// The child is not tied to ctx: once started it always runs to completion.
func (s *System) Run(_ context.Context, command string) (int, error) {
	//nolint:gosec,noctx // The command line comes from configuration, not user input.
	cmd := exec.Command(s.Shell, "-c", command)

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	return FailedToStart, fmt.Errorf("run %s: %w", s.Shell, err)
}
