package profile

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/muurk/smartrelay/internal/gpio"
	"gopkg.in/yaml.v3"
)

// DefaultName is the profile selected when none is given.
const DefaultName = "relay-inverted"

//go:embed profiles.yaml
var builtinYAML []byte

// DeviceSpec describes one virtual switch and the relay pin behind it.
type DeviceSpec struct {
	Name     string        `yaml:"name"`
	Pin      int           `yaml:"pin"`
	Polarity gpio.Polarity `yaml:"polarity"`
}

// Profile is one row of the variant table.
type Profile struct {
	Name           string        `yaml:"name"`
	Description    string        `yaml:"description,omitempty"`
	MQTTEnabled    bool          `yaml:"mqtt_enabled"`
	BridgeEnabled  bool          `yaml:"bridge_enabled"`
	StatusPin      int           `yaml:"status_pin"`
	StatusPolarity gpio.Polarity `yaml:"status_polarity"`
	Devices        []DeviceSpec  `yaml:"devices,omitempty"`
}

// Table is the full set of profiles.
type Table struct {
	Version  int       `yaml:"version"`
	Profiles []Profile `yaml:"profiles"`
}

// Builtin returns the table compiled into the binary
func Builtin() (*Table, error) {
	return Parse(builtinYAML)
}

// LoadFile reads a table from a YAML file
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes and validates a table
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks names are unique and pins are not shared within a profile.
func (t *Table) Validate() error {
	if len(t.Profiles) == 0 {
		return fmt.Errorf("profile table is empty")
	}

	seen := make(map[string]bool)
	for i := range t.Profiles {
		p := &t.Profiles[i]
		if p.Name == "" {
			return fmt.Errorf("profile %d has no name", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate profile %q", p.Name)
		}
		seen[p.Name] = true

		if err := p.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", p.Name, err)
		}
	}
	return nil
}

// Validate checks a single profile
func (p *Profile) Validate() error {
	if p.StatusPin < 0 {
		return fmt.Errorf("status_pin must be >= 0, got %d", p.StatusPin)
	}
	if p.BridgeEnabled && len(p.Devices) == 0 {
		return fmt.Errorf("bridge_enabled requires at least one device")
	}

	pins := map[int]string{p.StatusPin: "status"}
	names := make(map[string]bool)
	for _, d := range p.Devices {
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("device with pin %d has no name", d.Pin)
		}
		if names[d.Name] {
			return fmt.Errorf("duplicate device name %q", d.Name)
		}
		names[d.Name] = true

		if d.Pin < 0 {
			return fmt.Errorf("device %q: pin must be >= 0, got %d", d.Name, d.Pin)
		}
		if owner, ok := pins[d.Pin]; ok {
			return fmt.Errorf("device %q: pin %d already used by %s", d.Name, d.Pin, owner)
		}
		pins[d.Pin] = d.Name
	}
	return nil
}

// Select returns the named profile
func (t *Table) Select(name string) (*Profile, error) {
	if name == "" {
		name = DefaultName
	}
	for i := range t.Profiles {
		if t.Profiles[i].Name == name {
			p := t.Profiles[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(t.Names(), ", "))
}

// Names lists the profile names in table order
func (t *Table) Names() []string {
	names := make([]string, len(t.Profiles))
	for i, p := range t.Profiles {
		names[i] = p.Name
	}
	return names
}
