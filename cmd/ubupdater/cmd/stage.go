package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ubports/ubupdater/internal/service/stager"
)

var (
	// checksum is the expected base64 SHA-512 of the staged file.
	checksum string

	stageCmd = &cobra.Command{
		Use:   "stage <command-file|->",
		Short: "Install a command file for the next update.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := notifyContext()
			defer stop()

			options := &stager.Options{
				ConfigPath: configPath,
				Source:     args[0],
				Checksum:   checksum,
				Stdin:      cmd.InOrStdin(),
			}

			return stager.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	stageCmd.Flags().StringVar(&checksum, "sha512", "", "expected base64 SHA-512 checksum of the command file")
	rootCmd.AddCommand(stageCmd)
}
