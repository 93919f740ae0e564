package commands

import (
	"github.com/spf13/cobra"

	"github.com/scautomation/scprovision/cmd/scprovision/handlers"
)

// Run returns the command performing the whole provisioning sequence.
//
// Optional flags:
//
//	--report, -r: write a YAML report of the run to the given file ("-" for stdout)
//
// Every configuration key can also be set through the environment, e.g.
// SCPROVISION_SERVER_ADDRESS or SCPROVISION_ADMIN_NEW_PASSWORD.
func Run(opts *handlers.Options) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Provision the appliance",
		Long: `Provision a freshly installed SecurityCenter appliance.

The sequence is: login, upload and apply the license, register the Nessus
activation code, change the administrator password, create the scan zone,
the Nessus scanner, the organization, the repository and the Security
Manager, then log out.

The run stops at the first failing step. Steps that already succeeded are
not undone.

Examples:
  # Provision using scprovision.yaml in the current directory
  scprovision run

  # Use a specific file and keep a report
  scprovision run -c lab.yaml --report lab-report.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Run(cmd.Context(), *opts, reportPath)
		},
	}

	cmd.Flags().StringVarP(&reportPath, "report", "r", "", "Write a YAML report of the run to this file")

	return cmd
}
