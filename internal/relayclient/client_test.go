package relayclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muurk/smartrelay/internal/bridge"
	"github.com/muurk/smartrelay/internal/events"
	"github.com/muurk/smartrelay/internal/gpio"
	"github.com/muurk/smartrelay/internal/hue"
	"github.com/muurk/smartrelay/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type controller struct {
	bridge *bridge.Bridge
	queue  *events.Queue
	srv    *httptest.Server
}

// newController serves the real bridge API backed by in-memory pins.
func newController(t *testing.T) *controller {
	t.Helper()
	b, err := bridge.New(gpio.NewMemDriver(), []profile.DeviceSpec{
		{Name: "light", Pin: 5, Polarity: gpio.PolarityInverted},
		{Name: "fan", Pin: 6},
	})
	require.NoError(t, err)

	q := events.NewQueue()
	api := hue.NewAPI(hue.Info{Serial: "a1b2c3d4e5f6"}, b, q)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &controller{bridge: b, queue: q, srv: srv}
}

func (c *controller) client() *Client {
	client := NewClient(strings.TrimPrefix(c.srv.URL, "http://"))
	client.SetRetry(1, 10*time.Millisecond)
	return client
}

func TestNewClientDefaultPort(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"192.168.1.40", "192.168.1.40:80"},
		{"192.168.1.40:8080", "192.168.1.40:8080"},
		{"relay.local", "relay.local:80"},
	}

	for _, tt := range tests {
		if got := NewClient(tt.input).Address; got != tt.want {
			t.Errorf("NewClient(%q).Address = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSwitches(t *testing.T) {
	c := newController(t)

	switches, err := c.client().Switches(context.Background())
	require.NoError(t, err)
	require.Len(t, switches, 2)

	assert.Equal(t, 1, switches[0].ID)
	assert.Equal(t, "light", switches[0].Name)
	assert.Equal(t, 2, switches[1].ID)
	assert.Equal(t, "fan", switches[1].Name)
	assert.False(t, switches[0].On)
	assert.Equal(t, "a1:b2:c3:d4:e5:f6-01", switches[0].UniqueID)
}

func TestSetQueuesCommand(t *testing.T) {
	c := newController(t)

	s, err := c.client().Set(context.Background(), "fan", true)
	require.NoError(t, err)
	assert.Equal(t, 2, s.ID)
	assert.True(t, s.On)

	var got []bridge.Command
	c.queue.Drain(func(ev events.Event) { got = append(got, ev.(bridge.Command)) })
	require.Len(t, got, 1)
	assert.Equal(t, "fan", got[0].Device)
	assert.True(t, got[0].On)
	assert.Equal(t, "hue", got[0].Source)
}

func TestSetOffByID(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.bridge.Handle(bridge.Command{Device: "light", On: true}))

	_, err := c.client().Set(context.Background(), "1", false)
	require.NoError(t, err)

	c.queue.Drain(func(ev events.Event) { c.bridge.Dispatch(ev) })
	assert.False(t, c.bridge.States()["light"])
}

func TestSetUnknownSwitch(t *testing.T) {
	c := newController(t)

	_, err := c.client().Set(context.Background(), "heater", true)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "light, fan")
	assert.Equal(t, 0, c.queue.Len())
}

func TestPair(t *testing.T) {
	c := newController(t)

	user, err := c.client().Pair(context.Background(), "smartrelay-cfg#test")
	require.NoError(t, err)
	assert.Len(t, user, 32)
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"kitchen","version":"1.2.0","profile":"relay-inverted","state":"Connected",
			"unknown_commands":2,"updates_enabled":true,"update":{"phase":"Idle","percent":0,"attempts":1,"failures":1,"last_error":"AuthFailure"}}`))
	}))
	defer srv.Close()

	client := NewClient(strings.TrimPrefix(srv.URL, "http://"))
	st, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "kitchen", st.Name)
	assert.Equal(t, "Connected", st.State)
	assert.Equal(t, 2, st.UnknownCommands)
	assert.Equal(t, "AuthFailure", st.Update.LastError)
}

func TestStatusRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"state":"Connected"}`))
	}))
	defer srv.Close()

	client := NewClient(strings.TrimPrefix(srv.URL, "http://"))
	client.SetRetry(2, 10*time.Millisecond)

	st, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Connected", st.State)
	assert.Equal(t, int32(2), calls.Load())
}

func TestStatusDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(strings.TrimPrefix(srv.URL, "http://"))
	client.SetRetry(3, 10*time.Millisecond)

	_, err := client.Status(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "Controller error (HTTP 404)", GetShortErrorMessage(err))
}

func TestUnreachableController(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	client := NewClient(addr)
	client.SetRetry(1, 10*time.Millisecond)

	_, err := client.Switches(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetworkError(err), "got %v", err)
}
