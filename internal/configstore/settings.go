package configstore

import (
	"sync"

	"github.com/muurk/smartrelay/internal/logging"
	"go.uber.org/zap"
)

// Saver is the part of Store that Settings needs to persist itself.
type Saver interface {
	Save(cfg ConnectionConfig) error
}

// Settings is the in-memory working copy of the connection parameters with a
// dirty flag. It is written by the connectivity path and may be read from
// other goroutines.
type Settings struct {
	mu      sync.Mutex
	current ConnectionConfig
	dirty   bool
}

// NewSettings wraps a loaded config. The result starts clean.
func NewSettings(cfg ConnectionConfig) *Settings {
	return &Settings{current: cfg}
}

// Current returns a copy of the working config
func (s *Settings) Current() ConnectionConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Dirty reports whether there are unsaved changes
func (s *Settings) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Apply overwrites the working config with submitted values and marks it
// dirty. Empty values keep the current field. Values exceeding their bounds
// are rejected and nothing is changed.
func (s *Settings) Apply(server, port string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	if server != "" {
		next.Server = server
	}
	if port != "" {
		next.Port = port
	}

	if err := next.Validate(); err != nil {
		return err
	}

	s.current = next
	s.dirty = true
	return nil
}

// Persist saves the working config when dirty. A failed write is reported and
// leaves the flag set so a later Persist can retry.
func (s *Settings) Persist(store Saver) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	if err := store.Save(s.current); err != nil {
		logging.Warn("Failed to save config, will retry on next persist", zap.Error(err))
		return err
	}
	s.dirty = false
	return nil
}
