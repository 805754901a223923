// Package partition prepares the install partitions before the upgrader runs.
package partition

import (
	"context"
	"errors"
	"fmt"

	"github.com/ubports/ubupdater/internal/logger"
	"github.com/ubports/ubupdater/internal/shell"
)

// Setup maps logical partitions and refreshes the volume table.
type Setup interface {
	// SetupInstallMounts creates the device nodes the upgrader mounts.
	SetupInstallMounts(ctx context.Context) error
	// LoadVolumeTable rereads the fstab the upgrader relies on for manual mounts.
	LoadVolumeTable(ctx context.Context)
}

// ErrMountsCommandFailed is returned when the mounts command exits non-zero.
var ErrMountsCommandFailed = errors.New("setup mounts command failed")

// Commands implements Setup by running configured shell command lines.
// An empty command line means the step has nothing to do on this device.
type Commands struct {
	runner      shell.Runner
	mounts      string
	volumeTable string
}

// NewCommands returns a Setup backed by the given runner and command lines.
func NewCommands(runner shell.Runner, mounts, volumeTable string) *Commands {
	return &Commands{
		runner:      runner,
		mounts:      mounts,
		volumeTable: volumeTable,
	}
}

// SetupInstallMounts runs the mounts command and fails on a non-zero exit.
func (c *Commands) SetupInstallMounts(ctx context.Context) error {
	if c.mounts == "" {
		logger.Debug(ctx, "No mounts command configured, skipping")
		return nil
	}

	status, err := c.runner.Run(ctx, c.mounts)
	if err != nil {
		return fmt.Errorf("setup mounts: %w", err)
	}

	if status != 0 {
		return fmt.Errorf("%w: exit code %d", ErrMountsCommandFailed, status)
	}

	return nil
}

// LoadVolumeTable runs the volume table command. Failures are only logged,
// the upgrader falls back to the table loaded at boot.
func (c *Commands) LoadVolumeTable(ctx context.Context) {
	if c.volumeTable == "" {
		return
	}

	status, err := c.runner.Run(ctx, c.volumeTable)
	if err != nil || status != 0 {
		logger.WarnKV(ctx, "Reloading volume table failed", "exit_code", status, "error", err)
	}
}
