package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the device profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadProfiles()
		if err != nil {
			return err
		}

		for _, p := range table.Profiles {
			fmt.Printf("%s\n", p.Name)
			if p.Description != "" {
				fmt.Printf("   %s\n", p.Description)
			}
			fmt.Printf("   MQTT:    %s\n", enabled(p.MQTTEnabled))
			fmt.Printf("   Bridge:  %s\n", enabled(p.BridgeEnabled))
			fmt.Printf("   Status:  pin %d (%s)\n", p.StatusPin, p.StatusPolarity)
			if len(p.Devices) > 0 {
				devices := make([]string, len(p.Devices))
				for i, d := range p.Devices {
					devices[i] = fmt.Sprintf("%s=pin %d (%s)", d.Name, d.Pin, d.Polarity)
				}
				fmt.Printf("   Devices: %s\n", strings.Join(devices, ", "))
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	profilesCmd.Flags().StringVar(&profilesFile, "profiles-file", "", "YAML profile table replacing the built-in one")
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
