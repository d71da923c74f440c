// Smartrelay-cfg is the operator utility for smartrelay controllers.
//
// It finds controllers on the local network, lists and switches their
// relays through the bridge API, and pushes firmware images over the
// update channel.
//
// Usage:
//
//	smartrelay-cfg [command] [flags]
//
// See 'smartrelay-cfg --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/smartrelay/internal/logging"
	"github.com/muurk/smartrelay/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "smartrelay-cfg",
	Short: "Smartrelay operator utility",
	Long: `A standalone utility for operating smartrelay controllers.

Provides discovery, relay switching and firmware upload. Logging is
silent unless SMARTRELAY_LOG_LEVEL is set.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitializeFromEnv()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("smartrelay-cfg %s (commit: %s)\n", version.Version, version.Commit)
	},
}
