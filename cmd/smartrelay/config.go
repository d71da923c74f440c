package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muurk/smartrelay/internal/configstore"
)

var (
	setServer string
	setPort   string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the stored broker settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored broker settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := configstore.Open(configDir)
		if err != nil {
			return err
		}
		cfg := store.Load()
		fmt.Printf("Config file: %s\n\n", store.Path())
		fmt.Printf("  mqtt_server: %s\n", cfg.Server)
		fmt.Printf("  mqtt_port:   %s\n", cfg.Port)
		fmt.Printf("  broker:      %s\n", cfg.BrokerURL())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the stored broker settings",
	Long: `Change the MQTT broker the controller connects to.

Omitted values keep their stored setting. Values are checked against the
same bounds as the setup page before anything is written.`,
	Example: `  smartrelay config set --server broker.lan --port 8883
  smartrelay config set --port 1884`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if setServer == "" && setPort == "" {
			return fmt.Errorf("nothing to set (use --server and/or --port)")
		}

		store, err := configstore.Open(configDir)
		if err != nil {
			return err
		}
		settings := configstore.NewSettings(store.Load())
		if err := settings.Apply(setServer, setPort); err != nil {
			return err
		}
		if err := settings.Persist(store); err != nil {
			return err
		}

		cfg := settings.Current()
		fmt.Printf("✓ Saved %s (broker %s)\n", store.Path(), cfg.BrokerURL())
		return nil
	},
}

func init() {
	configCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Directory holding config.yaml (default: user config directory)")

	configSetCmd.Flags().StringVar(&setServer, "server", "", "MQTT broker host")
	configSetCmd.Flags().StringVar(&setPort, "port", "", "MQTT broker port")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
