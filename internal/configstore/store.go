package configstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/muurk/smartrelay/internal/logging"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	appName    = "smartrelay"
	configFile = "config.yaml"
)

// GetConfigDir returns the OS-appropriate configuration directory:
//   - Linux: $XDG_CONFIG_HOME/smartrelay or $HOME/.config/smartrelay
//   - macOS: $HOME/.config/smartrelay
//   - Windows: %LOCALAPPDATA%\smartrelay
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			return filepath.Join(xdgConfigHome, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// Store persists a ConnectionConfig as a small YAML record.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a store backed by the file at path
func New(path string) *Store {
	return &Store{path: path}
}

// Open creates a store in dir, or in GetConfigDir() when dir is empty
func Open(dir string) (*Store, error) {
	if dir == "" {
		var err error
		dir, err = GetConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
	}
	return New(filepath.Join(dir, configFile)), nil
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Load reads the stored record. It never fails: a missing file yields the
// defaults, and a malformed or out-of-bound record is logged as a
// ParseFailure and also yields the defaults.
func (s *Store) Load() ConnectionConfig {
	cfg, err := s.read()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Info("No stored config, using defaults", zap.String("path", s.path))
		} else {
			logging.Warn("Stored config unusable, using defaults",
				zap.String("path", s.path),
				zap.Error(err),
			)
		}
		return Defaults()
	}

	logging.Info("Loaded stored config",
		zap.String("path", s.path),
		zap.String("mqtt_server", cfg.Server),
		zap.String("mqtt_port", cfg.Port),
	)
	return cfg
}

// read returns the stored record or the reason it cannot be used.
func (s *Store) read() (ConnectionConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ConnectionConfig{}, err
		}
		return ConnectionConfig{}, NewParseError(s.path, "failed to read config file", err)
	}

	var cfg ConnectionConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ConnectionConfig{}, NewParseError(s.path, "failed to parse config file", err)
	}

	// A record missing a field keeps that field's default.
	defaults := Defaults()
	if cfg.Server == "" {
		cfg.Server = defaults.Server
	}
	if cfg.Port == "" {
		cfg.Port = defaults.Port
	}

	if err := cfg.Validate(); err != nil {
		return ConnectionConfig{}, NewParseError(s.path, "stored values out of bounds", err)
	}
	return cfg, nil
}

// Save writes cfg atomically (temp file + rename). Values are expected to have
// been validated by the caller.
func (s *Store) Save(cfg ConnectionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return NewWriteError(s.path, "failed to create config directory", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return NewWriteError(s.path, "failed to marshal config", err)
	}

	header := []byte(`# smartrelay connection parameters
# Written by the controller after provisioning; edit with 'smartrelay config set'.

`)
	data = append(header, data...)

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return NewWriteError(s.path, "failed to write temporary config file", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return NewWriteError(s.path, "failed to replace config file", err)
	}

	logging.Info("Saved config",
		zap.String("path", s.path),
		zap.String("mqtt_server", cfg.Server),
		zap.String("mqtt_port", cfg.Port),
	)
	return nil
}
