package commands

import (
	"github.com/spf13/cobra"

	"aibootstrap/cmd/aibootstrap/handlers"
)

// Plan returns the command that predicts each step without applying it.
func Plan() *cobra.Command {
	var opts handlers.Options
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show which steps a run would apply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Plan(cmd.Context(), opts, jsonOutput, handlers.DefaultStreams())
		},
	}

	bindConfigFlags(cmd, &opts)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
