package commands

import (
	"github.com/spf13/cobra"

	"aibootstrap/cmd/aibootstrap/handlers"
)

// Run returns the command executing the provisioning sequence.
//
// Optional flags:
//
//	--yes, -y: Skip the confirmation prompt
//	--user, -u: Target user (default: prompt)
//	--config, -c: Path to configuration file
func Run() *cobra.Command {
	var opts handlers.RunOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Provision this machine",
		Long: `Run the provisioning sequence. Must be executed as root.

Every step checks first whether its work is already done, so running the
command again after a failure or on a provisioned machine is safe.

Exit codes:
  0  success
  1  a step failed
  2  not running as root
  3  confirmation declined
  4  invalid configuration

Examples:
  # Interactive run
  sudo aibootstrap run

  # Unattended run for user alice
  sudo aibootstrap run --yes --user alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Run(cmd.Context(), opts, handlers.DefaultStreams())
		},
	}

	bindConfigFlags(cmd, &opts.Options)
	cmd.Flags().BoolVarP(&opts.AssumeYes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
