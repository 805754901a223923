package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ubports/ubupdater/internal/logger"
	"github.com/ubports/ubupdater/internal/service/validator"
	"github.com/ubports/ubupdater/internal/version"
)

// newRootCommand builds the command that validates a single sparse image.
func newRootCommand() *cobra.Command {
	// logLevel of the stderr logger.
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "simgtest <sparse_image_file>",
		Short: "Check that a sparse image can be imported.",
		Long: `Imports an Android sparse image with CRC verification and discards it.

Use "-" to read the image from standard input. The exit status is 0 for a
valid image, 1 for a usage error, 2 when the file cannot be opened and 3
when the image cannot be parsed.`,
		Version: version.Short(),
		// Argument count is reported by the validator with its own exit status.
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			options := &validator.Options{
				Args:  args,
				Stdin: cmd.InOrStdin(),
			}

			return validator.Run(ctx, options)
		},
	}

	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	return rootCmd
}

// run executes simgtest with the given arguments and returns the exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCommand()
	rootCmd.SetArgs(append([]string{}, args...))
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()

	logger.Sync()

	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
	}

	return validator.ExitCode(err)
}

// Execute runs the simgtest CLI and exits with the validator's status.
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
