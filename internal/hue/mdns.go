package hue

import (
	"fmt"

	"github.com/grandcat/zeroconf"
	"github.com/muurk/smartrelay/internal/logging"
	"github.com/muurk/smartrelay/internal/version"
	"go.uber.org/zap"
)

// mDNS service the emulated bridge is published as.
const (
	ServiceType = "_hue._tcp"
	Domain      = "local."
	// ModelTXT marks controllers so smartrelay-cfg can tell them from real
	// bridges.
	ModelTXT = "model=smartrelay"
)

// Advertise publishes the bridge over mDNS. Call Shutdown on the result to
// withdraw it.
func Advertise(instance string, port int, deviceCount int) (*zeroconf.Server, error) {
	txt := []string{
		ModelTXT,
		"version=" + version.Version,
		fmt.Sprintf("devices=%d", deviceCount),
	}

	srv, err := zeroconf.Register(instance, ServiceType, Domain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising over mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return srv, nil
}
