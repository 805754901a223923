package updater

import (
	"errors"
	"fmt"

	"github.com/ubports/ubupdater/internal/domain/install"
)

// Driver states.
const (
	StateIdle                = "idle"
	StatePreparingPartitions = "preparing_partitions"
	StateExecuting           = "executing"
	StateSucceeded           = "succeeded"
	StateFailed              = "failed"
)

// Driver events.
const (
	EventPrepare = "prepare"
	EventExecute = "execute"
	EventSucceed = "succeed"
	EventFail    = "fail"
)

// ErrUpgraderRunning is returned when another upgrader process is still alive.
var ErrUpgraderRunning = errors.New("the upgrader is already running")

// PartitionSetupError reports that the install mounts could not be prepared.
type PartitionSetupError struct {
	Err error
}

// Error implements error.
func (e *PartitionSetupError) Error() string {
	return fmt.Sprintf("set up partitions: %v", e.Err)
}

// Unwrap returns the underlying setup failure.
func (e *PartitionSetupError) Unwrap() error {
	return e.Err
}

// ScriptExecutionError reports a non-zero exit of the upgrader or a failure to start it.
type ScriptExecutionError struct {
	// ExitCode is the upgrader exit status, shell.FailedToStart if it never ran.
	ExitCode int
	// Err is set when the status is unknown.
	Err error
}

// Error implements error.
func (e *ScriptExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("run upgrader: exit code %d: %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("run upgrader: exit code %d", e.ExitCode)
}

// Unwrap returns the start failure, if any.
func (e *ScriptExecutionError) Unwrap() error {
	return e.Err
}

// displayedExitCode is the code shown to the user for a failed attempt.
// Failures before the upgrader ran are shown as the install error code.
func displayedExitCode(cause error) int {
	var scriptErr *ScriptExecutionError
	if errors.As(cause, &scriptErr) {
		return scriptErr.ExitCode
	}

	return int(install.Error)
}
