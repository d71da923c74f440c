package connectivity

import (
	"fmt"
	"time"

	"github.com/muurk/smartrelay/internal/wifi"
)

// MinTimeout is the smallest accepted value for any of the timeouts.
const MinTimeout = time.Second

// Options tune the connectivity lifecycle
type Options struct {
	// ConnectTimeout bounds the join with stored credentials.
	ConnectTimeout time.Duration
	// PortalTimeout is how long the provisioning access point stays open.
	PortalTimeout time.Duration
	// SaveConnectTimeout bounds the join with submitted credentials.
	SaveConnectTimeout time.Duration
	// APClientCheck extends the portal window while a station is associated.
	APClientCheck bool
	// APSSID and APPassword describe the provisioning network.
	APSSID     string
	APPassword string
}

// DefaultOptions returns the stock timings
func DefaultOptions() Options {
	return Options{
		ConnectTimeout:     30 * time.Second,
		PortalTimeout:      90 * time.Second,
		SaveConnectTimeout: 30 * time.Second,
		APClientCheck:      true,
		APSSID:             "smartrelay-setup",
	}
}

// Validate checks the timeouts and the access point settings
func (o Options) Validate() error {
	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"connect timeout", o.ConnectTimeout},
		{"portal timeout", o.PortalTimeout},
		{"save-connect timeout", o.SaveConnectTimeout},
	}
	for _, t := range timeouts {
		if t.d < MinTimeout {
			return fmt.Errorf("%s must be at least %s, got %s", t.name, MinTimeout, t.d)
		}
	}

	if err := (wifi.Credentials{SSID: o.APSSID, Password: o.APPassword}).Validate(); err != nil {
		return fmt.Errorf("invalid access point: %w", err)
	}
	return nil
}
