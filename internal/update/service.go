package update

import (
	"fmt"
	"sync"
	"time"

	"github.com/muurk/smartrelay/internal/events"
	"github.com/muurk/smartrelay/internal/logging"
	"go.uber.org/zap"
)

// Phase is where the current or last attempt stands
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseReceiving
	PhaseCompleted
	PhaseFailed
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseReceiving:
		return "receiving"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Status is a snapshot of the update service
type Status struct {
	Phase     Phase     `json:"-"`
	PhaseName string    `json:"phase"`
	Percent   int       `json:"percent"`
	Attempts  int       `json:"attempts"`
	Failures  int       `json:"failures"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service tracks update attempts. Errors only abandon the attempt; a
// completed attempt runs the completion hook, normally a restart into the
// new image.
type Service struct {
	onComplete func() error

	mu     sync.RWMutex
	status Status
}

// NewService creates a service. onComplete may be nil.
func NewService(onComplete func() error) *Service {
	return &Service{
		onComplete: onComplete,
		status:     Status{Phase: PhaseIdle, PhaseName: PhaseIdle.String(), UpdatedAt: time.Now()},
	}
}

// OnStart implements Hooks
func (s *Service) OnStart() {
	s.mu.Lock()
	s.status.Attempts++
	s.set(PhaseReceiving)
	s.status.Percent = 0
	s.status.LastError = ""
	attempt := s.status.Attempts
	s.mu.Unlock()

	logging.LogUpdate("start", zap.Int("attempt", attempt))
}

// OnProgress implements Hooks. Values are clamped to 0-100 and never go
// backwards within an attempt.
func (s *Service) OnProgress(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	s.mu.Lock()
	if s.status.Phase != PhaseReceiving || percent <= s.status.Percent {
		s.mu.Unlock()
		return
	}
	s.status.Percent = percent
	s.status.UpdatedAt = time.Now()
	s.mu.Unlock()

	logging.Debug("Firmware update progress", zap.Int("percent", percent))
}

// OnEnd implements Hooks
func (s *Service) OnEnd() {
	s.mu.Lock()
	s.set(PhaseCompleted)
	s.status.Percent = 100
	s.mu.Unlock()

	logging.LogUpdate("end")

	if s.onComplete != nil {
		if err := s.onComplete(); err != nil {
			logging.Error("Update completion hook failed", zap.Error(err))
		}
	}
}

// OnError implements Hooks. The device keeps running.
func (s *Service) OnError(kind ErrorKind) {
	s.mu.Lock()
	if s.status.Phase != PhaseReceiving {
		// Refused before a transfer began.
		s.status.Attempts++
	}
	s.status.Failures++
	s.status.LastError = kind.String()
	s.set(PhaseFailed)
	s.mu.Unlock()

	logging.LogUpdate("error", zap.String("kind", kind.String()))
}

// set must be called with mu held.
func (s *Service) set(p Phase) {
	s.status.Phase = p
	s.status.PhaseName = p.String()
	s.status.UpdatedAt = time.Now()
}

// Status returns a snapshot
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Handle applies a queued hook event. It reports false for events that did
// not come from Deferred.
func (s *Service) Handle(ev events.Event) bool {
	switch e := ev.(type) {
	case startEvent:
		s.OnStart()
	case progressEvent:
		s.OnProgress(e.percent)
	case endEvent:
		s.OnEnd()
	case errorEvent:
		s.OnError(e.kind)
	default:
		return false
	}
	return true
}
