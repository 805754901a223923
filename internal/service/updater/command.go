package updater

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ubports/ubupdater/internal/config"
	"github.com/ubports/ubupdater/internal/domain/install"
	"github.com/ubports/ubupdater/internal/logger"
	"github.com/ubports/ubupdater/internal/recovery"
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// Test plays the UI choreography without running the upgrader.
	Test bool
	// Output receives the console UI text. Defaults to os.Stdout.
	Output io.Writer
	// DriverOptions are applied on top of the defaults.
	DriverOptions []Option
}

// Run loads the configuration, drives one update on a console UI and returns its result.
func Run(ctx context.Context, opts *Options) (install.Result, error) {
	ctx = logger.WithName(ctx, "ubupdater")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return install.Error, fmt.Errorf("load configuration: %w", err)
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	ui := recovery.NewConsole(ctx, out)
	defer ui.Flush()

	driver := New(cfg, ui, opts.DriverOptions...)

	if opts.Test {
		return driver.TestUpdate(ctx), nil
	}

	logger.InfoKV(ctx, "Starting Ubuntu update",
		"command_file", cfg.CommandFile,
		"update_script", cfg.UpdateScript,
		"log_file", cfg.LogFile)

	result, err := driver.Update(ctx)
	if err != nil {
		return result, err
	}

	logger.Info(ctx, "Ubuntu update completed")

	return result, nil
}
