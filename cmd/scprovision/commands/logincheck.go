package commands

import (
	"github.com/spf13/cobra"

	"github.com/scautomation/scprovision/cmd/scprovision/handlers"
)

// LoginCheck returns the command verifying that the appliance is reachable
// and accepts the configured credentials.
func LoginCheck(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "login-check",
		Short: "Log in and out with the configured credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.LoginCheck(cmd.Context(), *opts)
		},
	}
}
