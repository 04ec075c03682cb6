package commands

import (
	"github.com/spf13/cobra"

	"aibootstrap/cmd/aibootstrap/handlers"
)

// Status returns the command printing the last run record.
func Status() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the outcome of the last provisioning run",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Status(jsonOutput, handlers.DefaultStreams())
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
