package wifi

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/muurk/smartrelay/internal/logging"
	"go.uber.org/zap"
)

// APConnectionName is the NetworkManager profile used for the access point.
const APConnectionName = "smartrelay-ap"

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// NMCLI drives NetworkManager through the nmcli command. NetworkManager keeps
// the stored credentials itself, as saved connection profiles.
type NMCLI struct {
	Iface     string
	APAddress string
	Run       Runner

	mu       sync.Mutex
	apActive bool
}

// NewNMCLI creates a backend for the given wireless interface
func NewNMCLI(iface, apAddress string) *NMCLI {
	return &NMCLI{Iface: iface, APAddress: apAddress, Run: execRunner}
}

func (n *NMCLI) run(ctx context.Context, name string, args ...string) (string, error) {
	logging.Debug("Running command", zap.String("cmd", name), zap.Strings("args", redact(args)))
	out, err := n.Run(ctx, name, args...)
	if err != nil {
		return string(out), fmt.Errorf("%s %s failed: %w: %s", name, args[0], err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// Join implements Station
func (n *NMCLI) Join(ctx context.Context, creds *Credentials) error {
	if creds == nil {
		out, err := n.run(ctx, "nmcli", "-t", "-f", "NAME,TYPE", "connection", "show")
		if err != nil {
			return err
		}
		if !hasStationProfile(out) {
			return ErrNoCredentials
		}
		_, err = n.run(ctx, "nmcli", "device", "connect", n.Iface)
		return err
	}

	args := []string{"device", "wifi", "connect", creds.SSID}
	if creds.Password != "" {
		args = append(args, "password", creds.Password)
	}
	args = append(args, "ifname", n.Iface)
	_, err := n.run(ctx, "nmcli", args...)
	return err
}

// Start implements AccessPoint
func (n *NMCLI) Start(ctx context.Context, ssid, password string) error {
	if err := (Credentials{SSID: ssid, Password: password}).Validate(); err != nil {
		return fmt.Errorf("invalid access point settings: %w", err)
	}

	// A stale profile from a previous boot would shadow the new settings.
	_, _ = n.run(ctx, "nmcli", "connection", "delete", APConnectionName)

	args := []string{
		"connection", "add", "type", "wifi",
		"ifname", n.Iface,
		"con-name", APConnectionName,
		"autoconnect", "no",
		"ssid", ssid,
		"802-11-wireless.mode", "ap",
		"802-11-wireless.band", "bg",
		"ipv4.method", "shared",
		"ipv4.addresses", n.APAddress + "/24",
	}
	if password != "" {
		args = append(args, "wifi-sec.key-mgmt", "wpa-psk", "wifi-sec.psk", password)
	}
	if _, err := n.run(ctx, "nmcli", args...); err != nil {
		return err
	}
	if _, err := n.run(ctx, "nmcli", "connection", "up", APConnectionName); err != nil {
		return err
	}

	n.mu.Lock()
	n.apActive = true
	n.mu.Unlock()
	return nil
}

// Stop implements AccessPoint
func (n *NMCLI) Stop() error {
	n.mu.Lock()
	active := n.apActive
	n.apActive = false
	n.mu.Unlock()

	if !active {
		return nil
	}
	ctx := context.Background()
	_, err := n.run(ctx, "nmcli", "connection", "down", APConnectionName)
	// Left in place, the profile would count as stored credentials next boot.
	if _, delErr := n.run(ctx, "nmcli", "connection", "delete", APConnectionName); delErr != nil {
		logging.Warn("Failed to delete access point profile", zap.Error(delErr))
	}
	return err
}

// Clients implements AccessPoint by counting stations reported by iw
func (n *NMCLI) Clients() int {
	out, err := n.run(context.Background(), "iw", "dev", n.Iface, "station", "dump")
	if err != nil {
		logging.Debug("Station dump failed", zap.Error(err))
		return 0
	}
	return countStations(out)
}

// hasStationProfile reports whether a terse NAME,TYPE listing holds a
// wireless profile other than the access point's.
func hasStationProfile(listing string) bool {
	scanner := bufio.NewScanner(bytes.NewBufferString(listing))
	for scanner.Scan() {
		line := scanner.Text()
		i := strings.LastIndex(line, ":")
		if i < 0 {
			continue
		}
		name := strings.ReplaceAll(line[:i], `\:`, ":")
		if line[i+1:] == "802-11-wireless" && name != APConnectionName {
			return true
		}
	}
	return false
}

func countStations(dump string) int {
	count := 0
	scanner := bufio.NewScanner(bytes.NewBufferString(dump))
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "Station ") {
			count++
		}
	}
	return count
}

// redact hides passwords in logged argument lists.
func redact(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "password" || out[i] == "wifi-sec.psk" {
			out[i+1] = "********"
		}
	}
	return out
}
