package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ubports/ubupdater/internal/domain/install"
	"github.com/ubports/ubupdater/internal/logger"
	"github.com/ubports/ubupdater/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel of the stderr logger.
	logLevel string

	// rootCmd groups the update commands.
	rootCmd = &cobra.Command{
		Use:   "ubupdater",
		Short: "Apply a staged Ubuntu update from recovery.",
		Long: `Drives the recovery UI around a single run of the system-image upgrader.

"update" runs the configured upgrade script against the staged command file,
"test-update" plays the same UI sequence without running anything and
"stage" installs a command file for the next update.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
	}
)

// exitError carries an install result through cobra.
type exitError struct {
	result install.Result
	err    error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}

	return e.result.String()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// resultError converts a driver outcome into a command error.
func resultError(result install.Result, err error) error {
	if err == nil && result == install.Success {
		return nil
	}

	return &exitError{result: result, err: err}
}

// Execute runs the ubupdater CLI and exits with the install result code.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	err := rootCmd.Execute()

	logger.Sync()

	if err == nil {
		return
	}

	var exitErr *exitError
	if !errors.As(err, &exitErr) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(install.Error.ExitCode())
	}

	if exitErr.err != nil {
		_, _ = fmt.Fprintln(os.Stderr, exitErr.err)
	}

	os.Exit(exitErr.result.ExitCode())
}

func notifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (built-in defaults if empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
