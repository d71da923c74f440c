package config

import (
	"strings"
	"time"
)

// Registry is the operator's record of known controllers.
type Registry struct {
	Version     int                    `yaml:"version"`
	Controllers map[string]*Controller `yaml:"controllers,omitempty"` // Keyed by mDNS instance name
	Preferences *Preferences           `yaml:"preferences,omitempty"`

	path string
}

// Controller is what the operator knows about one controller.
type Controller struct {
	Nickname    string            `yaml:"nickname,omitempty"`     // User-friendly name, usable with --device
	LastAddress string            `yaml:"last_address,omitempty"` // host:port of the bridge API
	LastSeen    time.Time         `yaml:"last_seen,omitempty"`    // Last discovery time
	Firmware    string            `yaml:"firmware,omitempty"`     // Last reported firmware
	Labels      map[string]string `yaml:"labels,omitempty"`       // Switch name to display label
}

// Preferences are operator-wide defaults.
type Preferences struct {
	DiscoverTimeout int `yaml:"discover_timeout"` // mDNS scan timeout in seconds
	UpdatePort      int `yaml:"update_port"`      // Port used by push when --device has none
}

// NewRegistry creates a registry with default preferences
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Controllers: make(map[string]*Controller),
		Preferences: defaultPreferences(),
	}
}

func defaultPreferences() *Preferences {
	return &Preferences{
		DiscoverTimeout: 5,
		UpdatePort:      8266,
	}
}

// GetController returns the controller recorded under instance, or nil
func (r *Registry) GetController(instance string) *Controller {
	return r.Controllers[instance]
}

// EnsureController returns the entry for instance, creating it if needed.
func (r *Registry) EnsureController(instance string) *Controller {
	if r.Controllers == nil {
		r.Controllers = make(map[string]*Controller)
	}
	if c, ok := r.Controllers[instance]; ok {
		return c
	}
	c := &Controller{}
	r.Controllers[instance] = c
	return c
}

// RecordSeen stores a controller's address and firmware from a scan.
func (r *Registry) RecordSeen(instance, address, firmware string) {
	c := r.EnsureController(instance)
	c.LastSeen = time.Now()
	c.LastAddress = address
	if firmware != "" {
		c.Firmware = firmware
	}
}

// SetNickname names a controller. An empty nickname clears it.
func (r *Registry) SetNickname(instance, nickname string) {
	r.EnsureController(instance).Nickname = nickname
}

// SetLabel sets the display label of one switch.
func (r *Registry) SetLabel(instance, switchName, label string) {
	c := r.EnsureController(instance)
	if c.Labels == nil {
		c.Labels = make(map[string]string)
	}
	if label == "" {
		delete(c.Labels, switchName)
		return
	}
	c.Labels[switchName] = label
}

// Find returns the controller whose nickname, instance name or last address
// equals name. Names match case-insensitively.
func (r *Registry) Find(name string) (instance string, c *Controller, ok bool) {
	for inst, c := range r.Controllers {
		if strings.EqualFold(c.Nickname, name) || strings.EqualFold(inst, name) || (c.LastAddress != "" && c.LastAddress == name) {
			return inst, c, true
		}
	}
	return "", nil, false
}

// Resolve maps a nickname or instance name to the last known address. ok is
// false when nothing matches or the match has no address yet; the caller
// then treats name as an address.
func (r *Registry) Resolve(name string) (address string, ok bool) {
	_, c, found := r.Find(name)
	if !found || c.LastAddress == "" {
		return "", false
	}
	return c.LastAddress, true
}

// Label returns the display label of a switch, or its name when unset.
func (c *Controller) Label(switchName string) string {
	if c != nil {
		if l, ok := c.Labels[switchName]; ok {
			return l
		}
	}
	return switchName
}
