package commands

import (
	"github.com/spf13/cobra"

	"aibootstrap/cmd/aibootstrap/handlers"
)

// Verify returns the command checking a provisioned machine after reboot.
func Verify() *cobra.Command {
	var opts handlers.Options
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check driver, CUDA toolkit, keyring and uv after reboot",
		Long: `Check the result of a provisioning run.

The driver check reads /proc/driver/nvidia; binaries built with -tags cuda
query NVML instead and also report the CUDA driver version.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Verify(cmd.Context(), opts, jsonOutput, handlers.DefaultStreams())
		},
	}

	bindConfigFlags(cmd, &opts)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
