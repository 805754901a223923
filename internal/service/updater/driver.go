package updater

import (
	"context"
	"time"

	"github.com/ubports/ubupdater/internal/config"
	"github.com/ubports/ubupdater/internal/domain/install"
	"github.com/ubports/ubupdater/internal/logger"
	"github.com/ubports/ubupdater/internal/partition"
	"github.com/ubports/ubupdater/internal/recovery"
	"github.com/ubports/ubupdater/internal/shell"
)

// Sleeper pauses for the given duration or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Driver runs Ubuntu updates against a recovery UI supplied by the caller.
type Driver struct {
	cfg        *config.Config
	ui         recovery.UI
	runner     shell.Runner
	partitions partition.Setup
	processes  shell.ProcessFinder
	sleep      Sleeper

	// last is the most recent production attempt.
	last *attempt
}

// Option configures a Driver.
type Option func(*Driver)

// WithRunner replaces the shell used to run the upgrader.
func WithRunner(runner shell.Runner) Option {
	return func(d *Driver) {
		d.runner = runner
	}
}

// WithPartitions replaces the partition setup steps.
func WithPartitions(setup partition.Setup) Option {
	return func(d *Driver) {
		d.partitions = setup
	}
}

// WithProcessFinder replaces the running-upgrader lookup.
func WithProcessFinder(finder shell.ProcessFinder) Option {
	return func(d *Driver) {
		d.processes = finder
	}
}

// WithSleeper replaces the pause used by test mode.
func WithSleeper(sleep Sleeper) Option {
	return func(d *Driver) {
		d.sleep = sleep
	}
}

// New returns a Driver for the given configuration and UI.
// Capabilities not supplied through options talk to the real system.
func New(cfg *config.Config, ui recovery.UI, opts ...Option) *Driver {
	d := &Driver{
		cfg: cfg,
		ui:  ui,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.runner == nil {
		d.runner = shell.NewSystem(cfg.Shell)
	}

	if d.partitions == nil {
		d.partitions = partition.NewCommands(d.runner, cfg.SetupMountsCommand, cfg.VolumeTableCommand)
	}

	if d.processes == nil {
		d.processes = shell.NewProcesses()
	}

	if d.sleep == nil {
		d.sleep = sleepContext
	}

	return d
}

// Command returns the upgrader command line for the configured paths.
func (d *Driver) Command() string {
	return install.Command(d.cfg.UpdateScript, d.cfg.CommandFile, d.cfg.LogFile)
}

// State returns the state the last update attempt ended in.
func (d *Driver) State() string {
	if d.last == nil {
		return StateIdle
	}

	return d.last.machine.Current()
}

// Update prepares the partitions, runs the upgrader once and reports the result.
// The returned error explains an Error result; the user sees it on the UI.
// Nothing is retried.
func (d *Driver) Update(ctx context.Context) (install.Result, error) {
	ctx = logger.WithName(ctx, "driver")

	a := d.newAttempt()
	d.last = a

	for _, event := range []string{EventPrepare, EventExecute, EventSucceed} {
		if err := a.fire(ctx, event); err != nil {
			// The fail transition is valid from every non-terminal state.
			_ = a.machine.Event(ctx, EventFail)

			return install.Error, err
		}
	}

	return install.Success, nil
}

// TestUpdate plays the update UI choreography without running anything and
// always reports an error, since no update took place.
func (d *Driver) TestUpdate(ctx context.Context) install.Result {
	ctx = logger.WithName(ctx, "driver")
	logger.Info(ctx, "Running test update")

	ui := d.ui

	// Hidden text lets the install animation show.
	ui.ShowText(false)
	ui.Print("Executing Ubuntu update script...\n")
	ui.SetBackground(install.BackgroundInstallingUpdate)
	ui.SetProgressType(install.ProgressIndeterminate)

	if err := d.sleep(ctx, d.cfg.TestDelay); err != nil {
		return d.interruptTest(ctx, err)
	}

	ui.ShowText(true)
	ui.Print("... not really though, this is just a test.\n")
	ui.Print("\nNormally this would call ->\n%s\n", d.Command())
	ui.Print("\nCounting down from %d instead.\n", d.cfg.Countdown)

	for n := d.cfg.Countdown; n > 0; n-- {
		if n == d.cfg.Countdown {
			ui.Print("%d", n)
		} else {
			ui.Print(" %d", n)
		}

		if err := d.sleep(ctx, d.cfg.CountdownStep); err != nil {
			return d.interruptTest(ctx, err)
		}
	}

	ui.Print("\n")
	ui.Print("\nDone with counting, have a nice day!\n")

	return install.Error
}

func (d *Driver) interruptTest(ctx context.Context, err error) install.Result {
	logger.WarnKV(ctx, "Test update interrupted", "error", err)

	d.ui.ShowText(true)
	d.ui.Print("\nTest update interrupted.\n")
	d.ui.SetProgressType(install.ProgressEmpty)

	return install.Error
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
