// Package commands defines the CLI command structure and flag bindings.
// Command execution is delegated to the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/scautomation/scprovision/cmd/scprovision/handlers"
)

// Root returns the root command for the scprovision CLI.
func Root() *cobra.Command {
	opts := &handlers.Options{}

	cmd := &cobra.Command{
		Use:           "scprovision",
		Short:         "Provision a fresh SecurityCenter appliance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: scprovision.yaml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warning, error (overrides log.level)")

	cmd.AddCommand(Run(opts))
	cmd.AddCommand(LoginCheck(opts))
	cmd.AddCommand(Version())

	return cmd
}
