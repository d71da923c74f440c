package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/smartrelay/internal/profile"
)

func TestSplitHostPort(t *testing.T) {
	tests := []struct {
		addr     string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{":80", "", 80, false},
		{"192.168.4.1:8080", "192.168.4.1", 8080, false},
		{"127.0.0.1:0", "127.0.0.1", 0, false},
		{"nohost", "", 0, true},
		{":http", "", 0, true},
		{":70000", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			host, port, err := splitHostPort(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPort, port)
		})
	}
}

func TestBuildConfigPasswordFromEnv(t *testing.T) {
	profileName = profile.DefaultName
	profilesFile = ""
	portalAddr = ":80"
	otaPassword = ""
	t.Setenv(OTAPasswordEnvVar, "from-env")

	cfg, err := buildConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.OTAPassword)
	assert.Equal(t, profile.DefaultName, cfg.Profile.Name)

	otaPassword = "from-flag"
	t.Cleanup(func() { otaPassword = "" })
	cfg, err = buildConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.OTAPassword)
}

func TestBuildConfigUnknownProfile(t *testing.T) {
	profileName = "no-such-profile"
	t.Cleanup(func() { profileName = profile.DefaultName })
	portalAddr = ":80"

	_, err := buildConfig()
	assert.ErrorContains(t, err, "unknown profile")
}

func TestNewWiFiBackends(t *testing.T) {
	wifiBackend = "sim"
	w, err := newWiFi()
	require.NoError(t, err)
	assert.NotNil(t, w)

	wifiBackend = "nmcli"
	w, err = newWiFi()
	require.NoError(t, err)
	assert.NotNil(t, w)

	wifiBackend = "carrier-pigeon"
	_, err = newWiFi()
	assert.Error(t, err)
	wifiBackend = "sim"
}
