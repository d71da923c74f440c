package connectivity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/muurk/smartrelay/internal/indicator"
)

// State is the connectivity phase. Exactly one is active at a time.
type State int

const (
	Idle State = iota
	Connecting
	ProvisioningAP
	Connected
	RestartPending
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Connecting:
		return "Connecting"
	case ProvisioningAP:
		return "ProvisioningAP"
	case Connected:
		return "Connected"
	case RestartPending:
		return "RestartPending"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IndicatorMode is the status pattern shown while in s.
func (s State) IndicatorMode() indicator.Mode {
	switch s {
	case Connecting:
		return indicator.ModeConnecting
	case ProvisioningAP:
		return indicator.ModeProvisioning
	case Connected:
		return indicator.ModeConnected
	default:
		return indicator.ModeOff
	}
}

// ProvisioningSession tracks one access-point window. It only exists while
// the manager is in ProvisioningAP.
type ProvisioningSession struct {
	ID        string
	SSID      string
	StartedAt time.Time
	Deadline  time.Time
}

func newSession(ssid string, now time.Time, timeout time.Duration) *ProvisioningSession {
	return &ProvisioningSession{
		ID:        uuid.NewString(),
		SSID:      ssid,
		StartedAt: now,
		Deadline:  now.Add(timeout),
	}
}

// Remaining returns the time left before the deadline, never negative
func (s *ProvisioningSession) Remaining(now time.Time) time.Duration {
	d := s.Deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
