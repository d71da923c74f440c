package wifi

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/muurk/smartrelay/internal/logging"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Sim is an in-process wireless stack. It knows a fixed set of networks and
// remembers the last credentials that joined successfully, optionally in a
// YAML state file so the memory survives a restart.
type Sim struct {
	// JoinDelay is how long a join takes before it succeeds or fails.
	JoinDelay time.Duration

	mu        sync.Mutex
	networks  map[string]string
	stored    *Credentials
	statePath string
	joined    string
	apSSID    string
	clients   int
}

type simState struct {
	Stored *Credentials `yaml:"stored,omitempty"`
}

// NewSim creates a simulator. networks maps SSID to password ("" for open).
// When statePath is set, stored credentials are loaded from and saved to it.
func NewSim(networks map[string]string, statePath string) (*Sim, error) {
	s := &Sim{
		networks:  make(map[string]string, len(networks)),
		statePath: statePath,
	}
	for ssid, pw := range networks {
		s.networks[ssid] = pw
	}

	if statePath == "" {
		return s, nil
	}

	data, err := os.ReadFile(statePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read wifi state: %w", err)
	}
	var st simState
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse wifi state: %w", err)
	}
	s.stored = st.Stored
	return s, nil
}

// Store replaces the remembered credentials without joining
func (s *Sim) Store(creds *Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeLocked(creds)
}

// Stored returns the remembered credentials, or nil
func (s *Sim) Stored() *Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stored == nil {
		return nil
	}
	c := *s.stored
	return &c
}

// Joined returns the SSID of the current network, or ""
func (s *Sim) Joined() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joined
}

// Join implements Station
func (s *Sim) Join(ctx context.Context, creds *Credentials) error {
	s.mu.Lock()
	target := creds
	if target == nil {
		if s.stored == nil {
			s.mu.Unlock()
			return ErrNoCredentials
		}
		c := *s.stored
		target = &c
	}
	delay := s.JoinDelay
	s.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pw, ok := s.networks[target.SSID]
	if !ok {
		return fmt.Errorf("%s: %w", target.SSID, ErrNetworkNotFound)
	}
	if pw != target.Password {
		return fmt.Errorf("%s: %w", target.SSID, ErrAuth)
	}

	if creds != nil {
		if err := s.storeLocked(creds); err != nil {
			return err
		}
	}

	s.joined = target.SSID
	logging.Debug("Simulated join succeeded", zap.String("ssid", target.SSID))
	return nil
}

// Start implements AccessPoint
func (s *Sim) Start(ctx context.Context, ssid, password string) error {
	if err := (Credentials{SSID: ssid, Password: password}).Validate(); err != nil {
		return fmt.Errorf("invalid access point settings: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apSSID = ssid
	s.clients = 0
	return nil
}

// Stop implements AccessPoint
func (s *Sim) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apSSID = ""
	s.clients = 0
	return nil
}

// Clients implements AccessPoint
func (s *Sim) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients
}

// SetClients sets the number of stations associated with the access point
func (s *Sim) SetClients(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = n
}

// AccessPointSSID returns the SSID being served, or "" when stopped
func (s *Sim) AccessPointSSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apSSID
}

func (s *Sim) storeLocked(creds *Credentials) error {
	var next *Credentials
	if creds != nil {
		c := *creds
		next = &c
	}

	if s.statePath == "" {
		s.stored = next
		return nil
	}

	data, err := yaml.Marshal(simState{Stored: next})
	if err != nil {
		return fmt.Errorf("failed to marshal wifi state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.statePath), 0700); err != nil {
		return fmt.Errorf("failed to create wifi state directory: %w", err)
	}
	tmp := s.statePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write wifi state: %w", err)
	}
	if err := os.Rename(tmp, s.statePath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace wifi state: %w", err)
	}
	s.stored = next
	return nil
}
