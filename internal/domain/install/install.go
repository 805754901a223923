package install

import "fmt"

// Result is the outcome of an install attempt as seen by the recovery menu.
type Result int

const (
	// Success means the upgrader exited with status zero.
	Success Result = iota
	// Error means the attempt failed; details are on screen and in the log file.
	Error
)

// String returns the recovery-style name of the result.
func (r Result) String() string {
	switch r {
	case Success:
		return "INSTALL_SUCCESS"
	case Error:
		return "INSTALL_ERROR"
	default:
		return fmt.Sprintf("INSTALL_UNKNOWN(%d)", int(r))
	}
}

// ExitCode maps the result to a process exit status.
func (r Result) ExitCode() int {
	if r == Success {
		return 0
	}

	return 1
}

// FromExitStatus classifies an upgrader exit status.
func FromExitStatus(status int) Result {
	if status == 0 {
		return Success
	}

	return Error
}

// Background is the screen shown behind the progress indicator.
type Background int

// Backgrounds known to the recovery UI.
const (
	BackgroundNone Background = iota
	BackgroundInstallingUpdate
	BackgroundErasing
	BackgroundNoCommand
	BackgroundError
)

// String returns the background name used in logs.
func (b Background) String() string {
	switch b {
	case BackgroundNone:
		return "none"
	case BackgroundInstallingUpdate:
		return "installing_update"
	case BackgroundErasing:
		return "erasing"
	case BackgroundNoCommand:
		return "no_command"
	case BackgroundError:
		return "error"
	default:
		return fmt.Sprintf("background(%d)", int(b))
	}
}

// ProgressType is the style of the progress indicator.
type ProgressType int

// Progress styles known to the recovery UI.
const (
	// ProgressEmpty hides the indicator.
	ProgressEmpty ProgressType = iota
	// ProgressIndeterminate animates without a known percentage.
	ProgressIndeterminate
	// ProgressDeterminate shows a percentage bar.
	ProgressDeterminate
)

// String returns the progress style name used in logs.
func (p ProgressType) String() string {
	switch p {
	case ProgressEmpty:
		return "empty"
	case ProgressIndeterminate:
		return "indeterminate"
	case ProgressDeterminate:
		return "determinate"
	default:
		return fmt.Sprintf("progress(%d)", int(p))
	}
}

// Command formats the upgrader invocation. The output of the upgrader,
// stdout and stderr alike, is redirected into the log file.
func Command(script, commandFile, logFile string) string {
	return fmt.Sprintf("%s %s &> %s", script, commandFile, logFile)
}
