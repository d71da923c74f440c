package configstore

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Field sizes of the persisted parameters, terminator included. The usable
// length is one less.
const (
	ServerFieldSize = 40
	PortFieldSize   = 6

	MaxServerLen = ServerFieldSize - 1
	MaxPortLen   = PortFieldSize - 1
)

// Built-in defaults used until a stored config is loaded or a new one is
// captured by the provisioning portal.
const (
	DefaultServer = "192.168.1.1"
	DefaultPort   = "1883"
)

// ConnectionConfig holds the MQTT broker parameters.
type ConnectionConfig struct {
	Server string `yaml:"mqtt_server"`
	Port   string `yaml:"mqtt_port"`
}

// Defaults returns the built-in configuration
func Defaults() ConnectionConfig {
	return ConnectionConfig{
		Server: DefaultServer,
		Port:   DefaultPort,
	}
}

// Validate checks both fields against their bounds.
func (c ConnectionConfig) Validate() error {
	if err := ValidateServer(c.Server); err != nil {
		return err
	}
	return ValidatePort(c.Port)
}

// BrokerURL returns the paho-style broker address, e.g. "tcp://192.168.1.1:1883"
func (c ConnectionConfig) BrokerURL() string {
	return "tcp://" + net.JoinHostPort(c.Server, c.Port)
}

// ValidateServer validates a broker hostname or IP address.
// It must be non-empty, at most MaxServerLen characters, and free of
// whitespace and control characters.
func ValidateServer(server string) error {
	if server == "" {
		return NewValidationError("server cannot be empty")
	}
	if len(server) > MaxServerLen {
		return NewValidationError(fmt.Sprintf("server too long (max %d chars): %d chars", MaxServerLen, len(server)))
	}
	if !utf8.ValidString(server) {
		return NewValidationError("server is not valid UTF-8")
	}
	if strings.ContainsFunc(server, func(r rune) bool { return r == ' ' || !unicode.IsPrint(r) }) {
		return NewValidationError("server contains whitespace or non-printable characters")
	}
	return nil
}

// ValidatePort validates a broker port.
// It must be at most MaxPortLen digits and in the range 1-65535.
func ValidatePort(port string) error {
	if port == "" {
		return NewValidationError("port cannot be empty")
	}
	if len(port) > MaxPortLen {
		return NewValidationError(fmt.Sprintf("port too long (max %d chars): %d chars", MaxPortLen, len(port)))
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 || strings.HasPrefix(port, "+") {
		return NewValidationError(fmt.Sprintf("port must be 1-65535, got %q", port))
	}
	return nil
}
