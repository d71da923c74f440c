package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/smartrelay/internal/app"
	"github.com/muurk/smartrelay/internal/gpio"
	"github.com/muurk/smartrelay/internal/logging"
	"github.com/muurk/smartrelay/internal/profile"
	"github.com/muurk/smartrelay/internal/system"
	"github.com/muurk/smartrelay/internal/version"
	"github.com/muurk/smartrelay/internal/wifi"
)

// OTAPasswordEnvVar supplies the update password when --ota-password is unset.
const OTAPasswordEnvVar = "SMARTRELAY_OTA_PASSWORD"

// Run command flags
var (
	profileName  string
	profilesFile string
	configDir    string
	deviceName   string

	wifiBackend string
	iface       string
	simNetworks map[string]string
	simState    string
	gpioChip    string

	connectTimeout     time.Duration
	portalTimeout      time.Duration
	saveConnectTimeout time.Duration
	apClientCheck      bool
	apSSID             string
	apPassword         string
	portalAddr         string
	dnsAddr            string

	httpPort      int
	updatePort    int
	advertiseHost string
	discovery     bool
	otaPassword   string
	firmwarePath  string
	mqttPrefix    string

	restartMode string
	logLevel    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the controller",
	Long: `Start the relay controller.

The controller tries the stored wireless credentials first. If that fails
within --connect-timeout it opens the setup access point and serves the
provisioning page until credentials are submitted or --portal-timeout
expires, in which case the device restarts.

Once connected it serves the bridge API and /status on --http-port, the
firmware update channel on --update-port, and connects to the MQTT broker
when the selected profile enables it.`,
	Example: `  # Simulated wifi and in-memory pins, for a development machine
  smartrelay run --sim-network home=password1 --http-port 8080

  # On the device
  SMARTRELAY_OTA_PASSWORD=secret smartrelay run --profile relay-normal \
      --wifi-backend nmcli --iface wlan0 --gpio-chip gpiochip0

  # Restart by re-executing instead of exiting under a supervisor
  smartrelay run --restart-mode exec`,
	RunE: runController,
}

func init() {
	defaults := app.DefaultConfig()
	conn := defaults.Connectivity

	f := runCmd.Flags()
	f.StringVar(&profileName, "profile", profile.DefaultName, "Device profile to run")
	f.StringVar(&profilesFile, "profiles-file", "", "YAML profile table replacing the built-in one")
	f.StringVar(&configDir, "config-dir", "", "Directory holding config.yaml (default: user config directory)")
	f.StringVar(&deviceName, "name", defaults.Name, "Device name reported to clients")

	f.StringVar(&wifiBackend, "wifi-backend", "sim", "Wireless backend (sim, nmcli)")
	f.StringVar(&iface, "iface", "wlan0", "Wireless interface for the nmcli backend")
	f.StringToStringVar(&simNetworks, "sim-network", nil, "Network known to the sim backend, as ssid=password (repeatable)")
	f.StringVar(&simState, "sim-state", "", "File where the sim backend remembers credentials")
	f.StringVar(&gpioChip, "gpio-chip", "", "GPIO character device, e.g. gpiochip0 (empty = in-memory pins)")

	f.DurationVar(&connectTimeout, "connect-timeout", conn.ConnectTimeout, "Time allowed to join with stored credentials")
	f.DurationVar(&portalTimeout, "portal-timeout", conn.PortalTimeout, "Time the setup access point stays open")
	f.DurationVar(&saveConnectTimeout, "save-connect-timeout", conn.SaveConnectTimeout, "Time allowed to join with submitted credentials")
	f.BoolVar(&apClientCheck, "ap-client-check", conn.APClientCheck, "Keep the access point open while a client is associated")
	f.StringVar(&apSSID, "ap-ssid", conn.APSSID, "Setup access point SSID")
	f.StringVar(&apPassword, "ap-password", conn.APPassword, "Setup access point password (empty = open)")
	f.StringVar(&portalAddr, "portal-addr", net.JoinHostPort(defaults.Portal.HTTPHost, strconv.Itoa(defaults.Portal.HTTPPort)), "Setup page listen address")
	f.StringVar(&dnsAddr, "dns-addr", defaults.Portal.DNSAddr, "Captive DNS listen address (empty = disabled)")

	f.IntVar(&httpPort, "http-port", defaults.HTTPPort, "Bridge API and status port")
	f.IntVar(&updatePort, "update-port", defaults.UpdatePort, "Firmware update port (equal to --http-port shares the listener)")
	f.StringVar(&advertiseHost, "advertise-host", "", "Address announced by discovery (default: outbound address)")
	f.BoolVar(&discovery, "discovery", defaults.Discovery, "Announce the bridge over SSDP and mDNS")
	f.StringVar(&otaPassword, "ota-password", "", "Firmware update password (or "+OTAPasswordEnvVar+"); empty disables updates")
	f.StringVar(&firmwarePath, "firmware-path", "", "Where installed firmware is written (default: running executable)")
	f.StringVar(&mqttPrefix, "mqtt-prefix", "", "MQTT topic prefix")

	f.StringVar(&restartMode, "restart-mode", system.ModeExec.String(), "How to restart (exec, reboot, exit)")
	f.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runController(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	mode, err := system.ParseMode(restartMode)
	if err != nil {
		return err
	}
	restarter := system.NewRestarter(mode)

	wireless, err := newWiFi()
	if err != nil {
		return err
	}

	driver, err := newGPIO()
	if err != nil {
		return err
	}

	a, err := app.New(cfg, app.Backends{
		GPIO:      driver,
		WiFi:      wireless,
		Restarter: restarter,
	})
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("failed to create controller: %w", err)
	}
	restarter.BeforeRestart(a.Shutdown)

	logging.Info("Starting smartrelay",
		zap.String("version", version.Full()),
		zap.String("profile", cfg.Profile.Name),
		zap.String("wifi_backend", wifiBackend),
		zap.String("restart_mode", mode.String()),
		zap.Bool("updates_enabled", cfg.OTAPassword != ""),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Run(ctx)
}

func buildConfig() (app.Config, error) {
	table, err := loadProfiles()
	if err != nil {
		return app.Config{}, err
	}
	prof, err := table.Select(profileName)
	if err != nil {
		return app.Config{}, err
	}

	cfg := app.DefaultConfig()
	cfg.Name = deviceName
	cfg.Profile = prof
	cfg.ConfigDir = configDir

	cfg.Connectivity.ConnectTimeout = connectTimeout
	cfg.Connectivity.PortalTimeout = portalTimeout
	cfg.Connectivity.SaveConnectTimeout = saveConnectTimeout
	cfg.Connectivity.APClientCheck = apClientCheck
	cfg.Connectivity.APSSID = apSSID
	cfg.Connectivity.APPassword = apPassword

	host, port, err := splitHostPort(portalAddr)
	if err != nil {
		return app.Config{}, fmt.Errorf("invalid --portal-addr: %w", err)
	}
	cfg.Portal.HTTPHost = host
	cfg.Portal.HTTPPort = port
	cfg.Portal.DNSAddr = dnsAddr

	cfg.HTTPPort = httpPort
	cfg.UpdatePort = updatePort
	cfg.AdvertiseHost = advertiseHost
	cfg.Discovery = discovery
	cfg.FirmwarePath = firmwarePath
	cfg.MQTTPrefix = mqttPrefix

	cfg.OTAPassword = otaPassword
	if cfg.OTAPassword == "" {
		cfg.OTAPassword = os.Getenv(OTAPasswordEnvVar)
	}
	return cfg, nil
}

func loadProfiles() (*profile.Table, error) {
	if profilesFile != "" {
		return profile.LoadFile(profilesFile)
	}
	return profile.Builtin()
}

func newWiFi() (app.WiFi, error) {
	switch wifiBackend {
	case "sim":
		sim, err := wifi.NewSim(simNetworks, simState)
		if err != nil {
			return nil, err
		}
		return sim, nil
	case "nmcli":
		return wifi.NewNMCLI(iface, app.DefaultConfig().Portal.APIP), nil
	default:
		return nil, fmt.Errorf("unknown wifi backend %q (want sim or nmcli)", wifiBackend)
	}
}

func newGPIO() (gpio.Driver, error) {
	if gpioChip == "" {
		logging.Warn("No GPIO chip given, relays are simulated in memory")
		return gpio.NewMemDriver(), nil
	}
	driver, err := gpio.NewChipDriver(gpioChip)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO chip %s: %w", gpioChip, err)
	}
	return driver, nil
}

func splitHostPort(addr string) (string, int, error) {
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(p)
	if err != nil || port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q", p)
	}
	return host, port, nil
}
