package updater

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/ubports/ubupdater/internal/domain/install"
	"github.com/ubports/ubupdater/internal/logger"
)

// attempt is a single pass through the update state machine.
type attempt struct {
	d       *Driver
	machine *fsm.FSM
	// cause is the typed failure recorded by the callback that failed.
	cause error
}

// newAttempt builds a state machine in the idle state.
func (d *Driver) newAttempt() *attempt {
	a := &attempt{d: d}

	events := fsm.Events{
		{Name: EventPrepare, Src: []string{StateIdle}, Dst: StatePreparingPartitions},
		{Name: EventExecute, Src: []string{StatePreparingPartitions}, Dst: StateExecuting},
		{Name: EventSucceed, Src: []string{StateExecuting}, Dst: StateSucceeded},
		{
			Name: EventFail,
			Src:  []string{StateIdle, StatePreparingPartitions, StateExecuting},
			Dst:  StateFailed,
		},
	}

	callbacks := fsm.Callbacks{
		"before_" + EventPrepare:           a.guardNotRunning,
		"enter_" + StatePreparingPartitions: wrapEvent(a.preparePartitions),
		"enter_" + StateExecuting:           wrapEvent(a.executeScript),
		"enter_" + StateSucceeded:           a.enterSucceeded,
		"enter_" + StateFailed:              a.enterFailed,
		"enter_state": func(ctx context.Context, e *fsm.Event) {
			logger.DebugKV(ctx, "Driver state changed", "event", e.Event, "from", e.Src, "to", e.Dst)
		},
	}

	a.machine = fsm.NewFSM(StateIdle, events, callbacks)

	return a
}

// wrapEvent adapts an error-returning action to a fsm callback.
func wrapEvent(fn func(ctx context.Context, e *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, e *fsm.Event) {
		if err := fn(ctx, e); err != nil {
			e.Err = err
		}
	}
}

// fire triggers an event and returns the recorded cause on failure.
func (a *attempt) fire(ctx context.Context, event string) error {
	err := a.machine.Event(ctx, event)
	if err == nil {
		return nil
	}

	if a.cause == nil {
		a.cause = err
	}

	return a.cause
}

// guardNotRunning refuses to start while another upgrader is alive.
func (a *attempt) guardNotRunning(ctx context.Context, e *fsm.Event) {
	running, err := a.d.processes.IsRunning(a.d.cfg.UpdateScript)
	if err != nil {
		// An unreadable process table must not block the update.
		logger.WarnKV(ctx, "Unable to list processes", "error", err)
		return
	}

	if running {
		a.d.ui.Print("Ubuntu update script is already running; aborting\n")
		a.cause = ErrUpgraderRunning
		e.Cancel(ErrUpgraderRunning)
	}
}

// preparePartitions hides the text so the animation shows and maps the
// install partitions.
func (a *attempt) preparePartitions(ctx context.Context, _ *fsm.Event) error {
	ui := a.d.ui

	ui.ShowText(false)
	ui.Print("Setting up partitions...\n")

	if err := a.d.partitions.SetupInstallMounts(ctx); err != nil {
		ui.Print("Failed to set up expected mounts for install; aborting\n")

		a.cause = &PartitionSetupError{Err: err}

		return a.cause
	}

	// The upgrader mounts by path only, so it needs the refreshed fstab.
	a.d.partitions.LoadVolumeTable(ctx)

	return nil
}

// executeScript switches the UI to progress mode and runs the upgrader.
func (a *attempt) executeScript(ctx context.Context, _ *fsm.Event) error {
	ui := a.d.ui

	ui.Print("Executing Ubuntu update script...\n")
	ui.SetBackground(install.BackgroundInstallingUpdate)
	ui.SetProgressType(install.ProgressIndeterminate)

	command := a.d.Command()
	logger.InfoKV(ctx, "Running upgrader", "command", command)

	status, err := a.d.runner.Run(ctx, command)
	if err != nil || install.FromExitStatus(status) != install.Success {
		a.cause = &ScriptExecutionError{ExitCode: status, Err: err}
		return a.cause
	}

	return nil
}

func (a *attempt) enterSucceeded(ctx context.Context, _ *fsm.Event) {
	logger.Info(ctx, "Upgrader finished successfully")

	a.d.ui.SetEnableReboot(true)
	a.d.ui.Print("\n")
}

// enterFailed puts the text back on screen with the exit code and a pointer
// to the upgrader log. The order of the two lines is relied on by log scrapers.
func (a *attempt) enterFailed(ctx context.Context, _ *fsm.Event) {
	code := displayedExitCode(a.cause)
	logger.ErrorKV(ctx, "Ubuntu update failed", "exit_code", code, "error", a.cause)

	ui := a.d.ui
	ui.ShowText(true)
	ui.Print("Error installing Ubuntu update, exit code: %d\n", code)
	ui.Print("Please go to Advanced -> View recovery logs -> %s\n", a.d.cfg.LogFile)
	ui.SetProgressType(install.ProgressEmpty)
}
