package commands

import (
	"github.com/spf13/cobra"

	"aibootstrap/cmd/aibootstrap/handlers"
)

// Diag returns the command writing a troubleshooting bundle.
//
// Secrets in configuration and logs are redacted before packaging.
func Diag() *cobra.Command {
	var opts handlers.Options
	var output string

	cmd := &cobra.Command{
		Use:   "diag",
		Short: "Create a diagnostic ZIP with config, logs, run record and source lists",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Diag(opts, output, handlers.DefaultStreams())
		},
	}

	bindConfigFlags(cmd, &opts)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: aibootstrap-diag-<timestamp>.zip)")

	return cmd
}
