package ota

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/smartrelay/internal/update"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHooks struct {
	mu       sync.Mutex
	calls    []string
	progress []int
	done     chan struct{}
}

func newRecordingHooks() *recordingHooks {
	return &recordingHooks{done: make(chan struct{}, 8)}
}

func (h *recordingHooks) OnStart() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, "start")
}

func (h *recordingHooks) OnProgress(percent int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.progress = append(h.progress, percent)
}

func (h *recordingHooks) OnEnd() {
	h.mu.Lock()
	h.calls = append(h.calls, "end")
	h.mu.Unlock()
	h.done <- struct{}{}
}

func (h *recordingHooks) OnError(kind update.ErrorKind) {
	h.mu.Lock()
	h.calls = append(h.calls, "error:"+kind.String())
	h.mu.Unlock()
	h.done <- struct{}{}
}

func (h *recordingHooks) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("no terminal hook call")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

type fixture struct {
	hooks  *recordingHooks
	target string
	srv    *httptest.Server
	host   string
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	dir := t.TempDir()
	target := filepath.Join(dir, "smartrelay")
	require.NoError(t, os.WriteFile(target, []byte("old image"), 0755))

	cfg := Config{Password: "s3cret", Target: target}
	if mutate != nil {
		mutate(&cfg)
	}

	hooks := newRecordingHooks()
	recv, err := NewReceiver(cfg, hooks)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.Handle(Path, recv)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &fixture{
		hooks:  hooks,
		target: target,
		srv:    srv,
		host:   strings.TrimPrefix(srv.URL, "http://"),
	}
}

func TestPushInstallsImage(t *testing.T) {
	f := newFixture(t, nil)
	image := bytes.Repeat([]byte("firmware"), 5000)

	p := NewPusher(f.host, "s3cret")
	p.ChunkSize = 4000

	var lastSent int64
	err := p.Push(context.Background(), image, func(sent, total int64) {
		assert.Equal(t, int64(len(image)), total)
		assert.Greater(t, sent, lastSent)
		lastSent = sent
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(image)), lastSent)

	assert.Equal(t, []string{"start", "end"}, f.hooks.wait(t))

	got, err := os.ReadFile(f.target)
	require.NoError(t, err)
	assert.Equal(t, image, got)

	_, err = os.Stat(f.target + ".new")
	assert.True(t, os.IsNotExist(err), "staging file should be renamed away")

	f.hooks.mu.Lock()
	progress := append([]int(nil), f.hooks.progress...)
	f.hooks.mu.Unlock()
	require.NotEmpty(t, progress)
	assert.Equal(t, 100, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.Greater(t, progress[i], progress[i-1], "progress must increase")
	}
}

func TestPushWrongPassword(t *testing.T) {
	f := newFixture(t, nil)

	err := NewPusher(f.host, "guess").Push(context.Background(), []byte("image"), nil)
	require.Error(t, err)
	assert.True(t, update.IsAuthFailure(err), "Push() error = %v", err)

	assert.Equal(t, []string{"error:AuthFailure"}, f.hooks.wait(t))

	got, _ := os.ReadFile(f.target)
	assert.Equal(t, "old image", string(got))
	_, err = os.Stat(f.target + ".new")
	assert.True(t, os.IsNotExist(err), "no staging file before authentication")
}

func TestPushTooLarge(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.MaxSize = 10 })

	err := NewPusher(f.host, "s3cret").Push(context.Background(), make([]byte, 11), nil)
	kind, ok := update.KindOf(err)
	require.True(t, ok, "Push() error = %v", err)
	assert.Equal(t, update.BeginFailure, kind)
	assert.Equal(t, []string{"error:BeginFailure"}, f.hooks.wait(t))
}

func TestStagingUnavailable(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		c.Staging = filepath.Join(filepath.Dir(c.Target), "missing-dir", "image.new")
	})

	err := NewPusher(f.host, "s3cret").Push(context.Background(), []byte("image"), nil)
	kind, _ := update.KindOf(err)
	assert.Equal(t, update.BeginFailure, kind)
	assert.Equal(t, []string{"error:BeginFailure"}, f.hooks.wait(t))
}

// rawSession performs the begin/ready handshake by hand.
func rawSession(t *testing.T, f *fixture, begin Message) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+f.host+Path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.WriteJSON(begin))
	var ready Message
	require.NoError(t, conn.ReadJSON(&ready))
	require.Equal(t, TypeReady, ready.Type)
	assert.NotEmpty(t, ready.Session)
	return conn
}

func TestChecksumMismatch(t *testing.T) {
	f := newFixture(t, nil)
	conn := rawSession(t, f, Message{
		Type:     TypeBegin,
		Password: "s3cret",
		Size:     5,
		MD5:      "00000000000000000000000000000000",
	})

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("image")))
	require.NoError(t, conn.WriteJSON(Message{Type: TypeEnd}))

	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, TypeError, reply.Type)
	assert.Equal(t, "EndFailure", reply.Kind)

	assert.Equal(t, []string{"start", "error:EndFailure"}, f.hooks.wait(t))
	got, _ := os.ReadFile(f.target)
	assert.Equal(t, "old image", string(got))
}

func TestShortImage(t *testing.T) {
	f := newFixture(t, nil)
	conn := rawSession(t, f, Message{Type: TypeBegin, Password: "s3cret", Size: 10})

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("12345")))
	require.NoError(t, conn.WriteJSON(Message{Type: TypeEnd}))

	assert.Equal(t, []string{"start", "error:EndFailure"}, f.hooks.wait(t))
}

func TestOversizeData(t *testing.T) {
	f := newFixture(t, nil)
	conn := rawSession(t, f, Message{Type: TypeBegin, Password: "s3cret", Size: 4})

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("12345")))

	assert.Equal(t, []string{"start", "error:ReceiveFailure"}, f.hooks.wait(t))
	_, err := os.Stat(f.target + ".new")
	assert.True(t, os.IsNotExist(err), "staging file removed after failure")
}

func TestInterruptedTransfer(t *testing.T) {
	f := newFixture(t, nil)
	conn := rawSession(t, f, Message{Type: TypeBegin, Password: "s3cret", Size: 100})

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("partial")))
	require.NoError(t, conn.Close())

	assert.Equal(t, []string{"start", "error:ReceiveFailure"}, f.hooks.wait(t))
}

func TestBusyReceiver(t *testing.T) {
	f := newFixture(t, nil)
	_ = rawSession(t, f, Message{Type: TypeBegin, Password: "s3cret", Size: 100})

	err := NewPusher(f.host, "s3cret").Push(context.Background(), []byte("image"), nil)
	kind, _ := update.KindOf(err)
	assert.Equal(t, update.BeginFailure, kind)
	assert.Equal(t, []string{"start", "error:BeginFailure"}, f.hooks.wait(t))
}

func TestMissingBegin(t *testing.T) {
	f := newFixture(t, nil)
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+f.host+Path, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Message{Type: TypeEnd}))
	assert.Equal(t, []string{"error:ConnectFailure"}, f.hooks.wait(t))
}

func TestPlainHTTPRequest(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := http.Get(f.srv.URL + Path)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, []string{"error:ConnectFailure"}, f.hooks.wait(t))
}

func TestPushUnreachable(t *testing.T) {
	p := NewPusher("127.0.0.1:1", "s3cret")
	err := p.Push(context.Background(), []byte("image"), nil)
	kind, ok := update.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, update.ConnectFailure, kind)
}

func TestNewPusherDefaultPort(t *testing.T) {
	assert.Equal(t, "ws://relay.local:8266/update", NewPusher("relay.local", "x").URL)
	assert.Equal(t, "ws://10.0.0.2:80/update", NewPusher("10.0.0.2:80", "x").URL)
}

func TestNewReceiverValidation(t *testing.T) {
	_, err := NewReceiver(Config{Target: "/tmp/x"}, newRecordingHooks())
	assert.Error(t, err, "password required")

	_, err = NewReceiver(Config{Password: "x"}, newRecordingHooks())
	assert.Error(t, err, "target required")

	r, err := NewReceiver(Config{Password: "x", Target: "/tmp/x"}, newRecordingHooks())
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.new", r.config.Staging)
	assert.Equal(t, int64(DefaultMaxSize), r.config.MaxSize)
}
