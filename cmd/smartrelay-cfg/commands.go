package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/smartrelay/internal/discovery"
	"github.com/muurk/smartrelay/internal/ota"
	"github.com/muurk/smartrelay/internal/relayclient"
	"github.com/muurk/smartrelay/internal/ui"
	"github.com/muurk/smartrelay/internal/update"
)

// PasswordEnvVar supplies the update password for push when --password is unset.
const PasswordEnvVar = "SMARTRELAY_OTA_PASSWORD"

var (
	deviceAddr   string
	scanTimeout  int
	requestTime  time.Duration
	firmwareFile string
	pushPassword string
	updatePort   int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&deviceAddr, "device", "", "Controller address host[:port], or a nickname set with alias")
	rootCmd.PersistentFlags().DurationVar(&requestTime, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(switchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pushCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for controllers on the network",
	Long: `Scan for smartrelay controllers using mDNS/DNS-SD discovery.

Controllers announce their bridge API once connected to a network. The
scan lists each one with its address, firmware version and relay count.`,
	Example: `  # Scan for 5 seconds (default)
  smartrelay-cfg scan

  # Longer scan for busy networks
  smartrelay-cfg scan --scan-timeout 15`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "scan-timeout", 5, "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	reg := loadRegistry()
	if !cmd.Flags().Changed("scan-timeout") && reg.Preferences.DiscoverTimeout > 0 {
		scanTimeout = reg.Preferences.DiscoverTimeout
	}
	fmt.Printf("Scanning for smartrelay controllers (timeout: %ds)...\n\n", scanTimeout)

	devices, err := discovery.ScanForDevices(time.Duration(scanTimeout) * time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		ui.PrintWarning("No controllers found")
		fmt.Println("Troubleshooting:")
		fmt.Println("  - Ensure the controller is powered on and joined to this network")
		fmt.Println("  - A controller in setup mode is reachable on its own access point only")
		fmt.Println("  - Try increasing --scan-timeout")
		fmt.Println("  - Use --device to address a controller directly")
		return nil
	}

	fmt.Printf("Found %d controller(s):\n\n", len(devices))
	for i, d := range devices {
		reg.RecordSeen(d.Instance, d.Address(), d.Version())

		title := d.Instance
		if c := reg.GetController(d.Instance); c.Nickname != "" {
			title = fmt.Sprintf("%s (%s)", c.Nickname, d.Instance)
		}
		fmt.Printf("%d. %s\n", i+1, title)
		fmt.Printf("   Address:  %s\n", d.Address())
		if v := d.Version(); v != "" {
			fmt.Printf("   Firmware: %s\n", v)
		}
		fmt.Printf("   Switches: %d\n", d.SwitchCount())
		fmt.Println()
	}

	saveRegistry()

	fmt.Println("Use 'smartrelay-cfg list --device <address|nickname>' to show a controller's switches")
	fmt.Println("Use 'smartrelay-cfg alias <instance> <nickname>' to name a controller")
	return nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a controller's switches",
	Example: `  smartrelay-cfg list --device 192.168.1.40
  smartrelay-cfg list --device relay.local:8080`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTime)
	defer cancel()

	switches, err := client.Switches(ctx)
	if err != nil {
		return reportDeviceError("Could not list switches", err, client.Address)
	}

	_, known, _ := loadRegistry().Find(deviceAddr)
	rows := make([]ui.SwitchRow, len(switches))
	for i, s := range switches {
		name := s.Name
		if label := known.Label(s.Name); label != s.Name {
			name = fmt.Sprintf("%s (%s)", s.Name, label)
		}
		rows[i] = ui.SwitchRow{ID: s.ID, Name: name, On: s.On}
	}
	fmt.Println(ui.RenderSwitchTable(rows))
	return nil
}

var switchCmd = &cobra.Command{
	Use:   "switch <name|id> <on|off>",
	Short: "Switch a relay on or off",
	Long: `Switch one relay of a controller.

The controller queues the command and applies it on its next main-loop
iteration, so the relay follows within milliseconds of the reply.`,
	Example: `  smartrelay-cfg switch light on --device 192.168.1.40
  smartrelay-cfg switch 2 off --device 192.168.1.40`,
	Args: cobra.ExactArgs(2),
	RunE: runSwitch,
}

func runSwitch(cmd *cobra.Command, args []string) error {
	on, err := parseOnOff(args[1])
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTime)
	defer cancel()

	s, err := client.Set(ctx, args[0], on)
	if err != nil {
		return reportDeviceError("Switch failed", err, client.Address)
	}

	ui.PrintSuccess("Switched",
		ui.Param{Key: "Switch", Value: s.Name},
		ui.Param{Key: "State", Value: onOff(s.On)},
		ui.Param{Key: "Controller", Value: client.Address},
	)
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a controller's status",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTime)
	defer cancel()

	st, err := client.Status(ctx)
	if err != nil {
		return reportDeviceError("Could not read status", err, client.Address)
	}

	details := []ui.Param{
		{Key: "Name", Value: st.Name},
		{Key: "Firmware", Value: st.Version},
		{Key: "Profile", Value: st.Profile},
		{Key: "State", Value: st.State},
		{Key: "Unknown cmds", Value: strconv.Itoa(st.UnknownCommands)},
	}
	if st.UpdatesEnabled {
		details = append(details, ui.Param{Key: "Update", Value: fmt.Sprintf("%s (%d%%)", st.Update.Phase, st.Update.Percent)})
		if st.Update.LastError != "" {
			details = append(details, ui.Param{Key: "Last error", Value: st.Update.LastError})
		}
	} else {
		details = append(details, ui.Param{Key: "Update", Value: "disabled"})
	}
	ui.PrintSuccess("Controller status", details...)
	return nil
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload a firmware image",
	Long: `Upload a firmware image to a controller over its update channel.

The password is taken from --password, then SMARTRELAY_OTA_PASSWORD, and
is prompted for otherwise. The controller verifies the image, installs it
and restarts.`,
	Example: `  smartrelay-cfg push --device 192.168.1.40 --file smartrelay-arm64
  SMARTRELAY_OTA_PASSWORD=secret smartrelay-cfg push --device relay.local --file build/smartrelay`,
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVar(&firmwareFile, "file", "", "Firmware image to upload")
	pushCmd.Flags().StringVar(&pushPassword, "password", "", "Update password")
	pushCmd.Flags().IntVar(&updatePort, "update-port", ota.DefaultPort, "Update channel port when --device has none")
	_ = pushCmd.MarkFlagRequired("file")
}

func runPush(cmd *cobra.Command, args []string) error {
	if deviceAddr == "" {
		return fmt.Errorf("--device is required for push")
	}

	image, err := os.ReadFile(firmwareFile)
	if err != nil {
		return fmt.Errorf("failed to read firmware image: %w", err)
	}

	password := pushPassword
	if password == "" {
		password = os.Getenv(PasswordEnvVar)
	}
	if password == "" {
		password, err = ui.ReadPassword("Update password:")
		if err != nil {
			return err
		}
	}

	port := updatePort
	if prefs := loadRegistry().Preferences; !cmd.Flags().Changed("update-port") && prefs.UpdatePort > 0 {
		port = prefs.UpdatePort
	}
	host := withDefaultPort(resolveHost(deviceAddr), port)
	ui.PrintHeader("Firmware push", "smartrelay-cfg push",
		ui.Param{Key: "Controller", Value: host},
		ui.Param{Key: "Image", Value: firmwareFile},
		ui.Param{Key: "Size", Value: fmt.Sprintf("%d bytes", len(image))},
	)

	pusher := ota.NewPusher(host, password)
	err = ui.RunPush(cmd.Context(), "Uploading firmware...", int64(len(image)),
		func(ctx context.Context, progress ui.ProgressFunc) error {
			return pusher.Push(ctx, image, ota.Progress(progress))
		})
	if err != nil {
		ui.PrintFailure("Firmware push", err, pushTroubleshooting(err))
		return err
	}

	ui.PrintSuccess("Firmware installed",
		ui.Param{Key: "Controller", Value: host},
		ui.Param{Key: "Next", Value: "controller is restarting"},
	)
	return nil
}

func pushTroubleshooting(err error) []string {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	kind, ok := update.KindOf(err)
	if !ok {
		return []string{
			"Check the controller is connected and reachable",
			"Updates are disabled when the controller has no update password",
			"Verify --update-port matches the controller's --update-port",
		}
	}
	switch kind {
	case update.AuthFailure:
		return []string{"The update password was rejected", "Check SMARTRELAY_OTA_PASSWORD on the controller"}
	case update.BeginFailure:
		return []string{"The controller could not stage the image", "Another update may be in progress, or the disk is full"}
	case update.ConnectFailure:
		return []string{"The update session could not be established", "Check for a proxy or firewall between you and the controller"}
	case update.ReceiveFailure:
		return []string{"The transfer broke off", "Retry on a more stable connection"}
	case update.EndFailure:
		return []string{"The image failed verification or could not be installed", "Check the file is a complete image for this controller"}
	}
	return nil
}

func newClient() (*relayclient.Client, error) {
	if deviceAddr == "" {
		return nil, fmt.Errorf("--device is required (use 'smartrelay-cfg scan' to find controllers)")
	}
	addr := deviceAddr
	if resolved, ok := resolveDevice(deviceAddr); ok {
		addr = resolved
	}
	client := relayclient.NewClient(addr)
	client.Timeout = requestTime
	return client, nil
}

func reportDeviceError(title string, err error, address string) error {
	devErr := relayclient.ClassifyError(err, address)
	ui.PrintFailure(title, errors.New(relayclient.GetShortErrorMessage(devErr)),
		ui.TipsFromHint(relayclient.GetTroubleshootingHint(devErr)))
	return devErr
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid state %q (want on or off)", s)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func withDefaultPort(addr string, port int) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(strings.Trim(addr, "[]"), strconv.Itoa(port))
}
