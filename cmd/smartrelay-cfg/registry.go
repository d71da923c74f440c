package main

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/smartrelay/internal/config"
	"github.com/muurk/smartrelay/internal/logging"
)

var registry *config.Registry

// loadRegistry returns the known-controller registry. An unreadable file is
// logged and replaced by an empty registry that is not saved.
func loadRegistry() *config.Registry {
	if registry != nil {
		return registry
	}
	r, err := config.LoadRegistry()
	if err != nil {
		logging.Warn("Known controllers unavailable", zap.Error(err))
		r = config.NewRegistry()
	}
	registry = r
	return r
}

func saveRegistry() {
	r := loadRegistry()
	if r.Path() == "" {
		return
	}
	if err := r.Save(); err != nil {
		logging.Warn("Failed to save known controllers", zap.Error(err))
	}
}

// resolveDevice maps a nickname or instance name to its last known address.
func resolveDevice(name string) (string, bool) {
	return loadRegistry().Resolve(name)
}

// resolveHost is resolveDevice without the API port, for the update channel.
func resolveHost(name string) string {
	addr, ok := resolveDevice(name)
	if !ok {
		return name
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

var aliasCmd = &cobra.Command{
	Use:   "alias <controller> <nickname>",
	Short: "Give a known controller a nickname",
	Long: `Give a controller found by 'scan' a nickname that can be used with
--device. An empty nickname ("") removes it.`,
	Example: `  smartrelay-cfg alias smartrelay-a1b2c3 kitchen
  smartrelay-cfg list --device kitchen`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r := loadRegistry()
		instance, _, ok := r.Find(args[0])
		if !ok {
			return fmt.Errorf("unknown controller %q (run 'smartrelay-cfg scan' first)", args[0])
		}
		r.SetNickname(instance, args[1])
		saveRegistry()
		fmt.Printf("✓ %s is now %q\n", instance, args[1])
		return nil
	},
}

var labelCmd = &cobra.Command{
	Use:     "label <controller> <switch> <label>",
	Short:   "Set the display label of a switch",
	Example: `  smartrelay-cfg label kitchen fan "Ceiling fan"`,
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		r := loadRegistry()
		instance, _, ok := r.Find(args[0])
		if !ok {
			return fmt.Errorf("unknown controller %q (run 'smartrelay-cfg scan' first)", args[0])
		}
		r.SetLabel(instance, args[1], args[2])
		saveRegistry()
		fmt.Printf("✓ %s/%s labelled %q\n", instance, args[1], args[2])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(aliasCmd)
	rootCmd.AddCommand(labelCmd)
}
