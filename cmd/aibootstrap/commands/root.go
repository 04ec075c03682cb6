// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"aibootstrap/cmd/aibootstrap/handlers"
)

// Root returns the root command for the aibootstrap CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "aibootstrap",
		Short:         "Provision a Debian machine with the NVIDIA driver and CUDA toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(Run())
	cmd.AddCommand(Plan())
	cmd.AddCommand(Verify())
	cmd.AddCommand(Status())
	cmd.AddCommand(Diag())
	cmd.AddCommand(Version())

	return cmd
}

// bindConfigFlags registers the flags every config-reading command shares
func bindConfigFlags(cmd *cobra.Command, opts *handlers.Options) {
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: /etc/aibootstrap/config.yaml)")
	cmd.Flags().StringVarP(&opts.User, "user", "u", "", "Target user receiving sudo and the user-level setup")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "Write JSON logs to this file instead of stderr")
}
