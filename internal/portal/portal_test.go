package portal

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/muurk/smartrelay/internal/configstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postForm(t *testing.T, h http.Handler, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFormRendersBounds(t *testing.T) {
	p := New(Config{APIP: "192.168.4.1"})
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="server" maxlength="40"`)
	assert.Contains(t, body, `name="port" maxlength="6"`)
	assert.Contains(t, body, `value="192.168.1.1"`)
	assert.Contains(t, body, `value="1883"`)
}

func TestSaveDeliversSubmission(t *testing.T) {
	p := New(Config{})
	rec := postForm(t, p.Handler(), url.Values{
		"ssid":     {"home"},
		"password": {"password1"},
		"server":   {"broker.lan"},
		"port":     {"8883"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "joining <b>home</b>")

	select {
	case sub := <-p.Submissions():
		assert.Equal(t, "home", sub.Credentials.SSID)
		assert.Equal(t, "password1", sub.Credentials.Password)
		assert.Equal(t, "broker.lan", sub.Server)
		assert.Equal(t, "8883", sub.Port)
	default:
		t.Fatal("no submission delivered")
	}
}

func TestSaveEmptyParametersAllowed(t *testing.T) {
	p := New(Config{})
	rec := postForm(t, p.Handler(), url.Values{"ssid": {"home"}})
	require.Equal(t, http.StatusOK, rec.Code)

	sub := <-p.Submissions()
	assert.Equal(t, "", sub.Server)
	assert.Equal(t, "", sub.Port)
}

func TestSaveRejectsOverBound(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
	}{
		{"server 40 chars", url.Values{"ssid": {"home"}, "server": {strings.Repeat("s", 40)}}},
		{"port 6 chars", url.Values{"ssid": {"home"}, "port": {"123456"}}},
		{"port not numeric", url.Values{"ssid": {"home"}, "port": {"abc"}}},
		{"missing ssid", url.Values{"server": {"broker"}}},
		{"short password", url.Values{"ssid": {"home"}, "password": {"abc"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(Config{})
			rec := postForm(t, p.Handler(), tt.values)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `class="error"`)

			select {
			case sub := <-p.Submissions():
				t.Fatalf("rejected form delivered: %+v", sub)
			default:
			}
		})
	}
}

func TestSaveBusy(t *testing.T) {
	p := New(Config{})
	values := url.Values{"ssid": {"home"}}

	require.Equal(t, http.StatusOK, postForm(t, p.Handler(), values).Code)
	assert.Equal(t, http.StatusServiceUnavailable, postForm(t, p.Handler(), values).Code)
}

func TestStatusShown(t *testing.T) {
	p := New(Config{})
	p.SetStatus("Could not join home")

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), "Could not join home")
}

func TestProbeRedirect(t *testing.T) {
	p := New(Config{APIP: "192.168.4.1"})
	for _, path := range []string{"/generate_204", "/hotspot-detect.html", "/connecttest.txt"} {
		rec := httptest.NewRecorder()
		p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "http://192.168.4.1/", rec.Header().Get("Location"), path)
	}
}

func TestCaptiveDNS(t *testing.T) {
	srv, err := startDNS("127.0.0.1:0", net.ParseIP("192.168.4.1").To4())
	require.NoError(t, err)
	defer func() { _ = srv.Shutdown() }()

	addr := srv.PacketConn.LocalAddr().String()
	client := &dns.Client{Timeout: 2 * time.Second}

	m := new(dns.Msg)
	m.SetQuestion("connectivitycheck.gstatic.com.", dns.TypeA)
	resp, _, err := client.Exchange(m, addr)
	require.NoError(t, err)
	require.Len(t, resp.Answer, 1)
	a, ok := resp.Answer[0].(*dns.A)
	require.True(t, ok, "answer type %T", resp.Answer[0])
	assert.Equal(t, "192.168.4.1", a.A.String())

	m = new(dns.Msg)
	m.SetQuestion("example.com.", dns.TypeAAAA)
	resp, _, err = client.Exchange(m, addr)
	require.NoError(t, err)
	assert.Empty(t, resp.Answer)
}

func TestStartStop(t *testing.T) {
	p := New(Config{HTTPHost: "127.0.0.1", HTTPPort: 0, DNSAddr: "127.0.0.1:0", APIP: "192.168.4.1"})
	require.NoError(t, p.Start(configstore.ConnectionConfig{Server: "broker", Port: "1884"}))
	assert.Error(t, p.Start(configstore.Defaults()), "second Start should fail")

	resp, err := http.Get("http://" + p.Addr() + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, p.Stop(context.Background()))
	assert.Equal(t, "", p.Addr())
	require.NoError(t, p.Stop(context.Background()))
}

func TestStartInvalidAPIP(t *testing.T) {
	p := New(Config{HTTPHost: "127.0.0.1", DNSAddr: "127.0.0.1:0", APIP: "not-an-ip"})
	assert.Error(t, p.Start(configstore.Defaults()))
	assert.Equal(t, "", p.Addr())
}

func TestStartFailsCleanlyWhenDNSPortTaken(t *testing.T) {
	taken, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	p := New(Config{HTTPHost: "127.0.0.1", DNSAddr: taken.LocalAddr().String(), APIP: "192.168.4.1"})
	for i := 0; i < 50; i++ {
		err := p.Start(configstore.Defaults())
		require.Error(t, err)
		assert.Empty(t, p.Addr())
	}
	assert.NoError(t, p.Stop(context.Background()))
}
