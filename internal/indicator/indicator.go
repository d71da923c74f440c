package indicator

import (
	"fmt"
	"sync"
	"time"

	"github.com/muurk/smartrelay/internal/gpio"
	"github.com/muurk/smartrelay/internal/logging"
	"go.uber.org/zap"
)

// Mode is the blink pattern currently shown on the status pin.
type Mode int

const (
	// ModeOff holds the pin at its inactive level.
	ModeOff Mode = iota
	// ModeConnecting toggles once per second while joining a known network.
	ModeConnecting
	// ModeProvisioning toggles five times per second while the portal is open.
	ModeProvisioning
	// ModeConnected holds the pin at the steady connected level.
	ModeConnected
)

// Toggle periods for the blinking modes.
const (
	ConnectingInterval   = time.Second
	ProvisioningInterval = 200 * time.Millisecond
)

// String returns a human-readable mode name
func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeConnecting:
		return "connecting"
	case ModeProvisioning:
		return "provisioning"
	case ModeConnected:
		return "connected"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Interval returns the toggle period of a blinking mode, or zero.
func (m Mode) Interval() time.Duration {
	switch m {
	case ModeConnecting:
		return ConnectingInterval
	case ModeProvisioning:
		return ProvisioningInterval
	default:
		return 0
	}
}

// Indicator drives one status pin. Only one blink timer is armed at a time.
type Indicator struct {
	pin      gpio.Pin
	polarity gpio.Polarity

	mu   sync.Mutex
	mode Mode
	stop chan struct{}
	done chan struct{}
}

// New creates an indicator on pin. The connected level is the polarity's
// active level, so an inverted LED is lit by driving it low.
func New(pin gpio.Pin, polarity gpio.Polarity) *Indicator {
	return &Indicator{
		pin:      pin,
		polarity: polarity,
		mode:     ModeOff,
	}
}

// SetMode switches the pattern, cancelling any running timer first.
func (i *Indicator) SetMode(mode Mode) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.cancelLocked()
	i.mode = mode

	switch mode {
	case ModeConnecting, ModeProvisioning:
		i.armLocked(mode.Interval())
	case ModeConnected:
		i.drive(i.polarity.Level(true))
	default:
		i.drive(i.polarity.Level(false))
	}

	logging.Debug("Status indicator mode", zap.String("mode", mode.String()))
}

// Stop halts blinking and forces the connected level.
func (i *Indicator) Stop() {
	i.SetMode(ModeConnected)
}

// Mode returns the active mode
func (i *Indicator) Mode() Mode {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.mode
}

func (i *Indicator) armLocked(interval time.Duration) {
	stop := make(chan struct{})
	done := make(chan struct{})
	i.stop, i.done = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = i.pin.Toggle()
			}
		}
	}()
}

// cancelLocked stops the running timer and waits for it so no toggle can land
// after the new mode's first write.
func (i *Indicator) cancelLocked() {
	if i.stop == nil {
		return
	}
	close(i.stop)
	<-i.done
	i.stop, i.done = nil, nil
}

func (i *Indicator) drive(high bool) {
	if err := i.pin.Set(high); err != nil {
		logging.Warn("Failed to drive status pin", zap.Error(err))
	}
}
