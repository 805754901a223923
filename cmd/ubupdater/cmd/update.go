package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ubports/ubupdater/internal/service/updater"
)

func newUpdateCommand(use, short string, test bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := notifyContext()
			defer stop()

			options := &updater.Options{
				ConfigPath: configPath,
				Test:       test,
				Output:     cmd.OutOrStdout(),
			}

			return resultError(updater.Run(ctx, options))
		},
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(
		newUpdateCommand("update", "Run the upgrade script on the staged command file.", false),
		newUpdateCommand("test-update", "Play the update UI sequence without running the upgrader.", true),
	)
}
