package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/muurk/smartrelay/internal/config"
	"github.com/muurk/smartrelay/internal/update"
)

func TestParseOnOff(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"on", true, false},
		{"ON", true, false},
		{"1", true, false},
		{"off", false, false},
		{"False", false, false},
		{"toggle", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseOnOff(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithDefaultPort(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"192.168.1.40", "192.168.1.40:8266"},
		{"192.168.1.40:9000", "192.168.1.40:9000"},
		{"relay.local", "relay.local:8266"},
		{"fe80::1", "[fe80::1]:8266"},
		{"[fe80::1]", "[fe80::1]:8266"},
		{"[fe80::1]:80", "[fe80::1]:80"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, withDefaultPort(tt.addr, 8266), tt.addr)
	}
}

func TestPushTroubleshooting(t *testing.T) {
	auth := fmt.Errorf("push: %w", update.NewError(update.AuthFailure, "bad password", nil))
	assert.Contains(t, pushTroubleshooting(auth)[0], "password was rejected")

	end := update.NewError(update.EndFailure, "md5 mismatch", nil)
	assert.Contains(t, pushTroubleshooting(end)[0], "verification")

	assert.Len(t, pushTroubleshooting(errors.New("dial tcp: refused")), 3)
}

func TestNewClientRequiresDevice(t *testing.T) {
	registry = config.NewRegistry()
	t.Cleanup(func() { registry = nil })

	deviceAddr = ""
	_, err := newClient()
	assert.Error(t, err)

	deviceAddr = "10.0.0.5"
	t.Cleanup(func() { deviceAddr = "" })
	c, err := newClient()
	assert.NoError(t, err)
	assert.Equal(t, "10.0.0.5:80", c.Address)
}

func TestNewClientResolvesNickname(t *testing.T) {
	registry = config.NewRegistry()
	registry.RecordSeen("smartrelay-a1b2c3", "10.0.0.7:8080", "")
	registry.SetNickname("smartrelay-a1b2c3", "kitchen")
	t.Cleanup(func() { registry = nil; deviceAddr = "" })

	deviceAddr = "kitchen"
	c, err := newClient()
	assert.NoError(t, err)
	assert.Equal(t, "10.0.0.7:8080", c.Address)

	assert.Equal(t, "10.0.0.7", resolveHost("kitchen"))
	assert.Equal(t, "10.0.0.9", resolveHost("10.0.0.9"))
}
