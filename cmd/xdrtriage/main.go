// xdrtriage — incident triage and remediation for a Check Point XDR tenant.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xdrtriage/xdrtriage/cmd/xdrtriage/cli"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "xdrtriage",
		Short: "xdrtriage — incident triage and remediation for Check Point XDR",
		Long: `xdrtriage polls an XDR tenant for recently updated incidents, classifies
them by severity and status, forwards high/critical detail to a Splunk HTTP
Event Collector, and bulk-annotates/closes tickets matching severity or
dangerous-IP policy.

Credentials come from config.properties or the encrypted vault.`,
		Version:      version,
		SilenceUsage: true,
	}

	cli.AddGlobalFlags(rootCmd)

	// Register command groups
	cli.RegisterReportCommands(rootCmd)
	cli.RegisterForwardCommands(rootCmd)
	cli.RegisterCloseCommands(rootCmd)
	cli.RegisterDetailCommands(rootCmd)
	cli.RegisterSweepCommands(rootCmd)
	cli.RegisterShellCommands(rootCmd)
	cli.RegisterVaultCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
