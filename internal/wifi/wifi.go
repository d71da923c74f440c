package wifi

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Limits of an 802.11 network name and a WPA2 passphrase.
const (
	MaxSSIDLen     = 32
	MaxPasswordLen = 63
	MinPasswordLen = 8
)

var (
	// ErrNoCredentials is returned by Join(ctx, nil) when nothing is stored.
	ErrNoCredentials = errors.New("no stored wifi credentials")
	// ErrNetworkNotFound is returned when the SSID is not in range.
	ErrNetworkNotFound = errors.New("network not found")
	// ErrAuth is returned when the network rejects the password.
	ErrAuth = errors.New("authentication rejected")
)

// Credentials identify a network to join.
type Credentials struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password,omitempty"`
}

// Validate checks the SSID and password lengths.
func (c Credentials) Validate() error {
	if c.SSID == "" {
		return fmt.Errorf("SSID cannot be empty")
	}
	if len(c.SSID) > MaxSSIDLen {
		return fmt.Errorf("SSID too long (max %d bytes): %d bytes", MaxSSIDLen, len(c.SSID))
	}
	if !utf8.ValidString(c.SSID) {
		return fmt.Errorf("SSID contains invalid UTF-8")
	}
	if c.Password != "" && (len(c.Password) < MinPasswordLen || len(c.Password) > MaxPasswordLen) {
		return fmt.Errorf("password must be %d-%d characters or empty for an open network", MinPasswordLen, MaxPasswordLen)
	}
	return nil
}

// Station joins networks as a client.
type Station interface {
	// Join connects using creds, or the stored credentials when creds is nil.
	// A successful join with explicit credentials stores them for next time.
	// The caller bounds the attempt with ctx.
	Join(ctx context.Context, creds *Credentials) error
}

// AccessPoint hosts the provisioning network.
type AccessPoint interface {
	// Start opens the access point. An empty password makes it open.
	Start(ctx context.Context, ssid, password string) error
	// Stop closes the access point. Stopping a stopped AP is a no-op.
	Stop() error
	// Clients returns the number of associated stations.
	Clients() int
}
