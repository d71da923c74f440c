package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device represents a discovered controller on the network
type Device struct {
	// Instance is the advertised mDNS instance name (e.g., "smartrelay")
	Instance string

	// Hostname is the mDNS hostname (e.g., "relay-kitchen.local.")
	Hostname string

	// IP is the IPv4 address (e.g., "192.168.1.40")
	IP string

	// Port is the bridge API port (typically 80)
	Port int

	// Metadata contains the mDNS TXT record data
	// Common fields: "model=smartrelay", "version=1.2.0", "devices=1"
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("smartrelay %s (%s) at %s", d.Instance, d.Hostname, d.Address())
}

// Address returns host:port, suitable for --device
func (d *Device) Address() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// BaseURL returns the HTTP base URL for the device
func (d *Device) BaseURL() string {
	return "http://" + d.Address()
}

// Version returns the advertised firmware version, or "" if unknown
func (d *Device) Version() string {
	return d.GetMetadata("version")
}

// SwitchCount returns the advertised number of switches, or -1 if unknown
func (d *Device) SwitchCount() int {
	n, err := strconv.Atoi(d.GetMetadata("devices"))
	if err != nil {
		return -1
	}
	return n
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
