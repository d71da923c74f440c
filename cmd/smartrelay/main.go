// Smartrelay is the relay controller daemon.
//
// It joins the configured wireless network, falls back to a provisioning
// access point with a captive setup page when it cannot, and once connected
// exposes its relays as bridge lights and MQTT switches. Firmware updates are
// accepted over the network when an update password is set.
//
// Usage:
//
//	smartrelay [command] [flags]
//
// See 'smartrelay run --help' for the controller options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/smartrelay/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "smartrelay",
	Short: "Smartrelay network relay controller",
	Long: `Network relay controller firmware.

The controller drives relay outputs from a local bridge API and an MQTT
broker. Without a reachable network it opens a setup access point where
the network and broker can be configured from a phone.

For operator commands (scan, switch, firmware push), use the separate
'smartrelay-cfg' utility.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("smartrelay %s (commit: %s)\n", version.Version, version.Commit)
	},
}
