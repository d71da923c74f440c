package bridge

import (
	"fmt"
	"sync"

	"github.com/muurk/smartrelay/internal/events"
	"github.com/muurk/smartrelay/internal/gpio"
	"github.com/muurk/smartrelay/internal/logging"
	"github.com/muurk/smartrelay/internal/profile"
	"go.uber.org/zap"
)

// Device is a virtual switch backed by one output pin.
type Device struct {
	ID       int
	Name     string
	Pin      int
	Polarity gpio.Polarity
	On       bool
	// Value is the last brightness sent with a command (0-255).
	Value uint8

	out gpio.Pin
}

// Command asks a device to switch. Value is optional brightness.
type Command struct {
	Source string
	Device string
	On     bool
	Value  *uint8
}

// StateSink is told about every applied command.
type StateSink interface {
	PublishState(device string, on bool)
}

// Bridge maps commands to relay pins. Handle is called from the main loop
// only; reads for observability may come from any goroutine.
type Bridge struct {
	mu      sync.RWMutex
	devices []*Device
	byName  map[string]*Device
	unknown int
	sinks   []StateSink
}

// New claims one output per device, driven to the device's off level.
func New(driver gpio.Driver, specs []profile.DeviceSpec) (*Bridge, error) {
	b := &Bridge{byName: make(map[string]*Device, len(specs))}

	for i, spec := range specs {
		if _, dup := b.byName[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate device %q", spec.Name)
		}

		out, err := driver.Output(spec.Pin, spec.Polarity.Level(false))
		if err != nil {
			return nil, fmt.Errorf("device %q: failed to claim pin %d: %w", spec.Name, spec.Pin, err)
		}

		d := &Device{
			ID:       i + 1,
			Name:     spec.Name,
			Pin:      spec.Pin,
			Polarity: spec.Polarity,
			out:      out,
		}
		b.devices = append(b.devices, d)
		b.byName[d.Name] = d

		logging.Info("Registered device",
			zap.Int("id", d.ID),
			zap.String("name", d.Name),
			zap.Int("pin", d.Pin),
			zap.String("polarity", d.Polarity.String()),
		)
	}
	return b, nil
}

// Subscribe adds a sink for state changes
func (b *Bridge) Subscribe(sink StateSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

// Handle applies one command. An unknown name is recorded and returned as an
// UnknownDevice *CommandError; no pin or state changes.
func (b *Bridge) Handle(cmd Command) error {
	b.mu.Lock()
	d, ok := b.byName[cmd.Device]
	if !ok {
		b.unknown++
		b.mu.Unlock()
		logging.LogCommand(cmd.Source, cmd.Device, cmd.On, UnknownDevice.String())
		return &CommandError{Kind: UnknownDevice, Device: cmd.Device}
	}

	if err := d.out.Set(d.Polarity.Level(cmd.On)); err != nil {
		b.mu.Unlock()
		logging.LogCommand(cmd.Source, cmd.Device, cmd.On, PinFailure.String())
		return &CommandError{Kind: PinFailure, Device: cmd.Device, Err: err}
	}
	d.On = cmd.On
	if cmd.Value != nil {
		d.Value = *cmd.Value
	}
	sinks := append([]StateSink(nil), b.sinks...)
	b.mu.Unlock()

	logging.LogCommand(cmd.Source, cmd.Device, cmd.On, "applied")

	for _, s := range sinks {
		s.PublishState(d.Name, cmd.On)
	}
	return nil
}

// Dispatch handles a queued Command. It reports false for other events.
func (b *Bridge) Dispatch(ev events.Event) bool {
	cmd, ok := ev.(Command)
	if !ok {
		return false
	}
	_ = b.Handle(cmd)
	return true
}

// Devices returns a snapshot of every device in registration order
func (b *Bridge) Devices() []Device {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Device, len(b.devices))
	for i, d := range b.devices {
		out[i] = *d
		out[i].out = nil
	}
	return out
}

// Device returns a snapshot of one device by ID
func (b *Bridge) Device(id int) (Device, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if id < 1 || id > len(b.devices) {
		return Device{}, false
	}
	d := *b.devices[id-1]
	d.out = nil
	return d, true
}

// States returns every device's on/off state by name
func (b *Bridge) States() map[string]bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]bool, len(b.devices))
	for _, d := range b.devices {
		out[d.Name] = d.On
	}
	return out
}

// UnknownCount returns how many commands named no device
func (b *Bridge) UnknownCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.unknown
}
