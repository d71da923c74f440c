package gpio

import (
	"fmt"
	"strings"
)

// Polarity maps a logical "active" state onto a physical output level.
type Polarity int

const (
	// PolarityNormal drives the pin high when active.
	PolarityNormal Polarity = iota
	// PolarityInverted drives the pin low when active (low-level trigger relays,
	// the ESP8266 builtin LED).
	PolarityInverted
)

// String returns the configuration name of the polarity
func (p Polarity) String() string {
	switch p {
	case PolarityNormal:
		return "normal"
	case PolarityInverted:
		return "inverted"
	default:
		return fmt.Sprintf("Polarity(%d)", int(p))
	}
}

// Level returns the physical level (true = high) for a logical state.
func (p Polarity) Level(active bool) bool {
	if p == PolarityInverted {
		return !active
	}
	return active
}

// ParsePolarity parses "normal"/"inverted" (and the aliases "active-high",
// "active-low").
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "active-high":
		return PolarityNormal, nil
	case "inverted", "active-low":
		return PolarityInverted, nil
	default:
		return PolarityNormal, fmt.Errorf("unknown polarity %q (expected normal or inverted)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so polarities can be
// written as strings in YAML tables and CLI flags.
func (p *Polarity) UnmarshalText(text []byte) error {
	parsed, err := ParsePolarity(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (p Polarity) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Pin is a single digital output.
type Pin interface {
	// Set drives the pin high (true) or low (false).
	Set(high bool) error
	// Get returns the last level driven onto the pin.
	Get() bool
	// Toggle inverts the current level.
	Toggle() error
}

// Driver hands out output pins by line number.
type Driver interface {
	// Output claims a line as an output with the given initial level.
	Output(line int, initialHigh bool) (Pin, error)
	// Close releases every claimed line.
	Close() error
}

// LevelName renders a level for logs.
func LevelName(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW"
}
