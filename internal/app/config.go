package app

import (
	"fmt"

	"github.com/muurk/smartrelay/internal/connectivity"
	"github.com/muurk/smartrelay/internal/gpio"
	"github.com/muurk/smartrelay/internal/hue"
	"github.com/muurk/smartrelay/internal/ota"
	"github.com/muurk/smartrelay/internal/portal"
	"github.com/muurk/smartrelay/internal/profile"
	"github.com/muurk/smartrelay/internal/wifi"
)

// Config is everything the controller is started with.
type Config struct {
	Name    string
	Profile *profile.Profile
	// ConfigDir holds config.yaml; empty uses the user config directory.
	ConfigDir string

	Connectivity connectivity.Options
	Portal       portal.Config

	// HTTPHost and HTTPPort serve the bridge API and /status.
	HTTPHost string
	HTTPPort int
	// UpdatePort serves /update. Equal to a non-zero HTTPPort shares the
	// listener.
	UpdatePort int
	// AdvertiseHost is put in SSDP replies; empty picks the outbound address.
	AdvertiseHost string
	// Discovery enables SSDP and mDNS.
	Discovery bool

	// OTAPassword gates updates; empty disables the update channel.
	OTAPassword  string
	FirmwarePath string

	MQTTPrefix string
}

// DefaultConfig returns the settings used on the device
func DefaultConfig() Config {
	return Config{
		Name:         "smartrelay",
		Connectivity: connectivity.DefaultOptions(),
		Portal:       portal.DefaultConfig(),
		HTTPPort:     hue.DefaultPort,
		UpdatePort:   ota.DefaultPort,
		Discovery:    true,
	}
}

func (c Config) validate() error {
	if c.Profile == nil {
		return fmt.Errorf("profile is required")
	}
	if err := c.Profile.Validate(); err != nil {
		return fmt.Errorf("profile %q: %w", c.Profile.Name, err)
	}
	return c.Connectivity.Validate()
}

func (c Config) sharedListener() bool {
	return c.UpdatePort != 0 && c.UpdatePort == c.HTTPPort
}

// WiFi is a backend acting as both station and access point.
type WiFi interface {
	wifi.Station
	wifi.AccessPoint
}

// Restarter restarts the device.
type Restarter interface {
	Restart(reason string) error
}

// Backends are the hardware collaborators.
type Backends struct {
	GPIO      gpio.Driver
	WiFi      WiFi
	Restarter Restarter
}

func (b Backends) validate() error {
	switch {
	case b.GPIO == nil:
		return fmt.Errorf("gpio driver is required")
	case b.WiFi == nil:
		return fmt.Errorf("wifi backend is required")
	case b.Restarter == nil:
		return fmt.Errorf("restarter is required")
	}
	return nil
}
