package updater

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ubports/ubupdater/internal/config"
	"github.com/ubports/ubupdater/internal/domain/install"
)

var (
	errTestMounts = errors.New("test mounts error")
	errTestStart  = errors.New("test start error")
	errTestList   = errors.New("test list error")
)

// recordingUI stores every UI call in order.
type recordingUI struct {
	calls []string
	text  strings.Builder
}

func (u *recordingUI) Print(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	u.text.WriteString(s)
	u.calls = append(u.calls, "print:"+s)
}

func (u *recordingUI) ShowText(visible bool) {
	u.calls = append(u.calls, fmt.Sprintf("show_text:%t", visible))
}

func (u *recordingUI) SetBackground(b install.Background) {
	u.calls = append(u.calls, "background:"+b.String())
}

func (u *recordingUI) SetProgressType(p install.ProgressType) {
	u.calls = append(u.calls, "progress:"+p.String())
}

func (u *recordingUI) SetEnableReboot(enabled bool) {
	u.calls = append(u.calls, fmt.Sprintf("reboot:%t", enabled))
}

func (u *recordingUI) has(call string) bool {
	for _, c := range u.calls {
		if c == call {
			return true
		}
	}

	return false
}

// stubRunner returns a fixed status and counts invocations.
type stubRunner struct {
	status   int
	err      error
	commands []string
}

func (r *stubRunner) Run(_ context.Context, command string) (int, error) {
	r.commands = append(r.commands, command)
	return r.status, r.err
}

// stubPartitions fails SetupInstallMounts on demand.
type stubPartitions struct {
	err         error
	mountCalls  int
	reloadCalls int
}

func (p *stubPartitions) SetupInstallMounts(context.Context) error {
	p.mountCalls++
	return p.err
}

func (p *stubPartitions) LoadVolumeTable(context.Context) {
	p.reloadCalls++
}

// stubFinder reports a fixed running state.
type stubFinder struct {
	running bool
	err     error
}

func (f stubFinder) IsRunning(string) (bool, error) {
	return f.running, f.err
}

// noSleep records requested pauses without waiting.
type noSleep struct {
	pauses []time.Duration
}

func (s *noSleep) sleep(_ context.Context, d time.Duration) error {
	s.pauses = append(s.pauses, d)
	return nil
}

type fixture struct {
	ui         *recordingUI
	runner     *stubRunner
	partitions *stubPartitions
	sleeper    *noSleep
	driver     *Driver
}

func newFixture(status int, finder stubFinder) *fixture {
	f := &fixture{
		ui:         new(recordingUI),
		runner:     &stubRunner{status: status},
		partitions: new(stubPartitions),
		sleeper:    new(noSleep),
	}

	f.driver = New(config.Default(), f.ui,
		WithRunner(f.runner),
		WithPartitions(f.partitions),
		WithProcessFinder(finder),
		WithSleeper(f.sleeper.sleep),
	)

	return f
}

// TestUpdate_Success checks the production path when the upgrader exits with zero.
func TestUpdate_Success(t *testing.T) {
	t.Parallel()

	f := newFixture(0, stubFinder{})

	result, err := f.driver.Update(context.Background())
	require.NoError(t, err)
	require.Equal(t, install.Success, result)
	require.Equal(t, StateSucceeded, f.driver.State())

	require.Equal(t, []string{
		"/sbin/system-image-upgrader /cache/recovery/ubuntu_command &> /cache/ubuntu_updater.log",
	}, f.runner.commands)

	require.Equal(t, []string{
		"show_text:false",
		"print:Setting up partitions...\n",
		"print:Executing Ubuntu update script...\n",
		"background:installing_update",
		"progress:indeterminate",
		"reboot:true",
		"print:\n",
	}, f.ui.calls)

	// Success must not bring the text back.
	require.False(t, f.ui.has("show_text:true"))
	require.Equal(t, 1, f.partitions.mountCalls)
	require.Equal(t, 1, f.partitions.reloadCalls)
}

// TestUpdate_ScriptFailure checks that any non-zero exit is reported with the log path.
func TestUpdate_ScriptFailure(t *testing.T) {
	t.Parallel()

	for _, status := range []int{1, 2, 127, 256} {
		f := newFixture(status, stubFinder{})

		result, err := f.driver.Update(context.Background())
		require.Equal(t, install.Error, result)
		require.Equal(t, StateFailed, f.driver.State())

		var scriptErr *ScriptExecutionError
		require.ErrorAs(t, err, &scriptErr)
		require.Equal(t, status, scriptErr.ExitCode)

		text := f.ui.text.String()
		require.Contains(t, text, fmt.Sprintf("Error installing Ubuntu update, exit code: %d\n", status))
		require.Contains(t, text, "Please go to Advanced -> View recovery logs -> /cache/ubuntu_updater.log\n")
		require.Less(t,
			strings.Index(text, "exit code:"),
			strings.Index(text, "View recovery logs"),
		)

		require.True(t, f.ui.has("show_text:true"))
		require.Equal(t, "progress:empty", f.ui.calls[len(f.ui.calls)-1])
		require.False(t, f.ui.has("reboot:true"))
		require.Len(t, f.runner.commands, 1)
	}
}

// TestUpdate_StartFailure treats an unknown status as a failed run.
func TestUpdate_StartFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(-1, stubFinder{})
	f.runner.err = errTestStart

	result, err := f.driver.Update(context.Background())
	require.Equal(t, install.Error, result)
	require.ErrorIs(t, err, errTestStart)

	var scriptErr *ScriptExecutionError
	require.ErrorAs(t, err, &scriptErr)
	require.Equal(t, -1, scriptErr.ExitCode)
	require.Contains(t, f.ui.text.String(), "exit code: -1\n")
}

// TestUpdate_PartitionSetupFailure ensures the upgrader is never started.
func TestUpdate_PartitionSetupFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(0, stubFinder{})
	f.partitions.err = errTestMounts

	result, err := f.driver.Update(context.Background())
	require.Equal(t, install.Error, result)
	require.Equal(t, StateFailed, f.driver.State())

	var setupErr *PartitionSetupError
	require.ErrorAs(t, err, &setupErr)
	require.ErrorIs(t, err, errTestMounts)

	require.Empty(t, f.runner.commands)
	require.Zero(t, f.partitions.reloadCalls)

	text := f.ui.text.String()
	require.Contains(t, text, "Failed to set up expected mounts for install; aborting\n")
	require.Contains(t, text, "Error installing Ubuntu update, exit code: 1\n")
	require.False(t, f.ui.has("background:installing_update"))
}

// TestUpdate_UpgraderAlreadyRunning refuses a second concurrent upgrade.
func TestUpdate_UpgraderAlreadyRunning(t *testing.T) {
	t.Parallel()

	f := newFixture(0, stubFinder{running: true})

	result, err := f.driver.Update(context.Background())
	require.Equal(t, install.Error, result)
	require.ErrorIs(t, err, ErrUpgraderRunning)
	require.Equal(t, StateFailed, f.driver.State())

	require.Empty(t, f.runner.commands)
	require.Zero(t, f.partitions.mountCalls)
	require.Contains(t, f.ui.text.String(), "already running")
}

// TestUpdate_ProcessListErrorDoesNotBlock keeps going when processes cannot be listed.
func TestUpdate_ProcessListErrorDoesNotBlock(t *testing.T) {
	t.Parallel()

	f := newFixture(0, stubFinder{err: errTestList})

	result, err := f.driver.Update(context.Background())
	require.NoError(t, err)
	require.Equal(t, install.Success, result)
}

// TestUpdate_FreshAttemptEachRun runs the machine from idle every time.
func TestUpdate_FreshAttemptEachRun(t *testing.T) {
	t.Parallel()

	f := newFixture(0, stubFinder{})
	require.Equal(t, StateIdle, f.driver.State())

	_, err := f.driver.Update(context.Background())
	require.NoError(t, err)

	f.runner.status = 5

	result, err := f.driver.Update(context.Background())
	require.Error(t, err)
	require.Equal(t, install.Error, result)
	require.Len(t, f.runner.commands, 2)
}

// TestTestUpdate_NeverRunsAnything verifies the preview path and its countdown.
func TestTestUpdate_NeverRunsAnything(t *testing.T) {
	t.Parallel()

	f := newFixture(0, stubFinder{running: true})

	result := f.driver.TestUpdate(context.Background())
	require.Equal(t, install.Error, result)

	require.Empty(t, f.runner.commands)
	require.Zero(t, f.partitions.mountCalls)

	require.Equal(t, []time.Duration{
		config.DefaultTestDelay,
		time.Second, time.Second, time.Second, time.Second, time.Second,
	}, f.sleeper.pauses)

	text := f.ui.text.String()
	require.Contains(t, text, "... not really though, this is just a test.\n")
	require.Contains(t, text,
		"\nNormally this would call ->\n"+f.driver.Command()+"\n")
	require.Contains(t, text, "5 4 3 2 1\n")
	require.True(t, strings.HasSuffix(text, "\nDone with counting, have a nice day!\n"))

	require.Equal(t, "show_text:false", f.ui.calls[0])
	require.True(t, f.ui.has("show_text:true"))
}

// TestTestUpdate_Canceled stops the preview when the context is done.
func TestTestUpdate_Canceled(t *testing.T) {
	t.Parallel()

	ui := new(recordingUI)
	driver := New(config.Default(), ui,
		WithRunner(new(stubRunner)),
		WithPartitions(new(stubPartitions)),
		WithProcessFinder(stubFinder{}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Equal(t, install.Error, driver.TestUpdate(ctx))
	require.NotContains(t, ui.text.String(), "Done with counting")
	require.Equal(t, "progress:empty", ui.calls[len(ui.calls)-1])
}
