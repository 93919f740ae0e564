// Package main is the entry point for the scprovision CLI.
//
// scprovision configures a freshly installed SecurityCenter appliance through
// its REST API: license, Nessus activation, administrator password, scan
// zone, scanner, organization, repository and Security Manager.
//
// Commands: run, login-check, version.
//
// For detailed usage information, run:
//
//	scprovision --help
package main

import (
	"fmt"
	"os"

	"github.com/scautomation/scprovision/cmd/scprovision/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
