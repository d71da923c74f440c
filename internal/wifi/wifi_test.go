package wifi

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsValidate(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr bool
	}{
		{"open network", Credentials{SSID: "home"}, false},
		{"wpa2", Credentials{SSID: "home", Password: "password1"}, false},
		{"max ssid", Credentials{SSID: strings.Repeat("s", 32)}, false},
		{"ssid too long", Credentials{SSID: strings.Repeat("s", 33)}, true},
		{"empty ssid", Credentials{Password: "password1"}, true},
		{"short password", Credentials{SSID: "home", Password: "short"}, true},
		{"long password", Credentials{SSID: "home", Password: strings.Repeat("p", 64)}, true},
		{"bad utf8", Credentials{SSID: "\xff\xfe"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSimJoinWithoutStoredCredentials(t *testing.T) {
	sim, err := NewSim(map[string]string{"home": "password1"}, "")
	require.NoError(t, err)

	err = sim.Join(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.Equal(t, "", sim.Joined())
}

func TestSimJoinStoresCredentials(t *testing.T) {
	state := filepath.Join(t.TempDir(), "wifi.yaml")
	sim, err := NewSim(map[string]string{"home": "password1"}, state)
	require.NoError(t, err)

	require.NoError(t, sim.Join(context.Background(), &Credentials{SSID: "home", Password: "password1"}))
	assert.Equal(t, "home", sim.Joined())
	require.NotNil(t, sim.Stored())

	// A fresh simulator reading the same state file can join from memory.
	again, err := NewSim(map[string]string{"home": "password1"}, state)
	require.NoError(t, err)
	require.NoError(t, again.Join(context.Background(), nil))
	assert.Equal(t, "home", again.Joined())
}

func TestSimJoinFailures(t *testing.T) {
	sim, err := NewSim(map[string]string{"home": "password1"}, "")
	require.NoError(t, err)

	err = sim.Join(context.Background(), &Credentials{SSID: "home", Password: "wrongpass"})
	assert.ErrorIs(t, err, ErrAuth)

	err = sim.Join(context.Background(), &Credentials{SSID: "cafe"})
	assert.ErrorIs(t, err, ErrNetworkNotFound)

	assert.Nil(t, sim.Stored(), "failed joins must not store credentials")
}

func TestSimJoinStateWriteFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	sim, err := NewSim(map[string]string{"home": "password1"}, filepath.Join(dir, "wifi.yaml"))
	require.NoError(t, err)

	// A regular file where the state directory should be makes the write fail.
	require.NoError(t, os.WriteFile(dir, []byte("x"), 0600))

	err = sim.Join(context.Background(), &Credentials{SSID: "home", Password: "password1"})
	require.Error(t, err)
	assert.Equal(t, "", sim.Joined())
	assert.Nil(t, sim.Stored())
}

func TestSimJoinHonoursContext(t *testing.T) {
	sim, err := NewSim(map[string]string{"home": ""}, "")
	require.NoError(t, err)
	sim.JoinDelay = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = sim.Join(ctx, &Credentials{SSID: "home"})
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "Join() error = %v", err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSimAccessPoint(t *testing.T) {
	sim, err := NewSim(nil, "")
	require.NoError(t, err)

	require.NoError(t, sim.Start(context.Background(), "smartrelay-setup", ""))
	assert.Equal(t, "smartrelay-setup", sim.AccessPointSSID())

	sim.SetClients(2)
	assert.Equal(t, 2, sim.Clients())

	require.NoError(t, sim.Stop())
	assert.Equal(t, "", sim.AccessPointSSID())
	assert.Equal(t, 0, sim.Clients())

	assert.Error(t, sim.Start(context.Background(), "", ""))
}

type recordedCall struct {
	name string
	args []string
}

func fakeRunner(calls *[]recordedCall, outputs map[string]string, fail map[string]bool) Runner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedCall{name, args})
		key := name + " " + strings.Join(args, " ")
		for prefix, out := range outputs {
			if strings.HasPrefix(key, prefix) {
				return []byte(out), nil
			}
		}
		for prefix := range fail {
			if strings.HasPrefix(key, prefix) {
				return []byte("Error: failed"), errors.New("exit status 10")
			}
		}
		return nil, nil
	}
}

func TestNMCLIJoinStored(t *testing.T) {
	var calls []recordedCall
	n := NewNMCLI("wlan0", "192.168.4.1")
	n.Run = fakeRunner(&calls, map[string]string{
		"nmcli -t -f NAME,TYPE connection show": "lo:loopback\nhome:802-11-wireless\n",
	}, nil)

	require.NoError(t, n.Join(context.Background(), nil))
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"device", "connect", "wlan0"}, calls[1].args)
}

func TestNMCLIJoinNoStored(t *testing.T) {
	var calls []recordedCall
	n := NewNMCLI("wlan0", "192.168.4.1")
	n.Run = fakeRunner(&calls, map[string]string{
		"nmcli -t -f NAME,TYPE connection show": "lo:loopback\nWired connection 1:802-3-ethernet\n",
	}, nil)

	assert.ErrorIs(t, n.Join(context.Background(), nil), ErrNoCredentials)
	assert.Len(t, calls, 1)
}

func TestNMCLIJoinIgnoresAccessPointProfile(t *testing.T) {
	var calls []recordedCall
	n := NewNMCLI("wlan0", "192.168.4.1")
	n.Run = fakeRunner(&calls, map[string]string{
		"nmcli -t -f NAME,TYPE connection show": "lo:loopback\n" + APConnectionName + ":802-11-wireless\n",
	}, nil)

	require.NoError(t, n.Start(context.Background(), "smartrelay-setup", ""))
	require.NoError(t, n.Stop())

	calls = nil
	assert.ErrorIs(t, n.Join(context.Background(), nil), ErrNoCredentials)
	for _, c := range calls {
		assert.NotEqual(t, []string{"device", "connect", "wlan0"}, c.args)
	}
}

func TestHasStationProfile(t *testing.T) {
	tests := []struct {
		name    string
		listing string
		want    bool
	}{
		{"empty", "", false},
		{"station", "home:802-11-wireless\n", true},
		{"only ap", APConnectionName + ":802-11-wireless\n", false},
		{"ap and station", APConnectionName + ":802-11-wireless\nhome:802-11-wireless\n", true},
		{"escaped colon", `my\:net:802-11-wireless` + "\n", true},
		{"ethernet", "eth:802-3-ethernet\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasStationProfile(tt.listing))
		})
	}
}

func TestNMCLIJoinExplicit(t *testing.T) {
	var calls []recordedCall
	n := NewNMCLI("wlan0", "192.168.4.1")
	n.Run = fakeRunner(&calls, nil, nil)

	require.NoError(t, n.Join(context.Background(), &Credentials{SSID: "home", Password: "password1"}))
	assert.Equal(t, []string{"device", "wifi", "connect", "home", "password", "password1", "ifname", "wlan0"}, calls[0].args)
}

func TestNMCLIJoinFailure(t *testing.T) {
	var calls []recordedCall
	n := NewNMCLI("wlan0", "192.168.4.1")
	n.Run = fakeRunner(&calls, nil, map[string]bool{"nmcli device wifi connect": true})

	err := n.Join(context.Background(), &Credentials{SSID: "home"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error: failed")
}

func TestNMCLIAccessPoint(t *testing.T) {
	var calls []recordedCall
	n := NewNMCLI("wlan0", "192.168.4.1")
	n.Run = fakeRunner(&calls, map[string]string{
		"iw dev wlan0 station dump": "Station aa:bb:cc:dd:ee:ff (on wlan0)\n\tinactive time: 10 ms\nStation 11:22:33:44:55:66 (on wlan0)\n",
	}, map[string]bool{"nmcli connection delete": true})

	require.NoError(t, n.Start(context.Background(), "smartrelay-setup", "password1"))

	var add []string
	for _, c := range calls {
		if len(c.args) > 1 && c.args[0] == "connection" && c.args[1] == "add" {
			add = c.args
		}
	}
	require.NotNil(t, add, "expected a connection add call")
	joined := strings.Join(add, " ")
	assert.Contains(t, joined, "ssid smartrelay-setup")
	assert.Contains(t, joined, "ipv4.addresses 192.168.4.1/24")
	assert.Contains(t, joined, "wifi-sec.psk password1")

	assert.Equal(t, 2, n.Clients())

	// A failed delete is logged, not returned.
	calls = nil
	require.NoError(t, n.Stop())
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"connection", "down", APConnectionName}, calls[0].args)
	assert.Equal(t, []string{"connection", "delete", APConnectionName}, calls[1].args)

	// Second stop is a no-op.
	calls = nil
	require.NoError(t, n.Stop())
	assert.Empty(t, calls)
}

func TestRedact(t *testing.T) {
	got := redact([]string{"device", "wifi", "connect", "home", "password", "secret"})
	assert.Equal(t, "********", got[5])
	assert.Equal(t, "home", got[3])
}
