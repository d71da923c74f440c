package configstore

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG resolution is linux-only")
	}

	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "smartrelay"), dir)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), store.Path())
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "config.yaml"))
	assert.Equal(t, Defaults(), store.Load())
}

func TestLoadMalformedReturnsDefaults(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not yaml", "mqtt_server: [unterminated\n"},
		{"wrong shape", "- a\n- b\n"},
		{"server too long", "mqtt_server: " + strings.Repeat("x", ServerFieldSize) + "\nmqtt_port: \"1883\"\n"},
		{"port too long", "mqtt_server: broker\nmqtt_port: \"1234567\"\n"},
		{"port not numeric", "mqtt_server: broker\nmqtt_port: mqtt\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			store := New(path)
			assert.Equal(t, Defaults(), store.Load())

			_, err := store.read()
			assert.True(t, IsParseError(err), "read() error = %v, want ParseFailure", err)
		})
	}
}

func TestLoadPartialKeepsDefaultForMissingField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mqtt_server: broker.lan\n"), 0600))

	got := New(path).Load()
	assert.Equal(t, "broker.lan", got.Server)
	assert.Equal(t, DefaultPort, got.Port)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "nested", "config.yaml"))
	cfg := ConnectionConfig{Server: "10.0.0.5", Port: "8883"}

	require.NoError(t, store.Save(cfg))
	assert.Equal(t, cfg, store.Load())

	// Saving what was loaded leaves the file unchanged.
	before, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	require.NoError(t, store.Save(store.Load()))
	after, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	_, err = os.Stat(store.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file should be gone after save")
}

func TestSaveFileFormat(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, store.Save(ConnectionConfig{Server: "broker", Port: "1883"}))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "# smartrelay"), "missing header: %q", content)
	assert.Contains(t, content, "mqtt_server: broker")
	assert.Contains(t, content, `mqtt_port: "1883"`)
}

func TestSaveWriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	// Parent "directory" is a regular file, so MkdirAll fails.
	store := New(filepath.Join(blocker, "config.yaml"))
	err := store.Save(Defaults())
	require.Error(t, err)
	assert.True(t, IsWriteError(err), "Save() error = %v, want WriteFailure", err)
}
