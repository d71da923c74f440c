package ota

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/muurk/smartrelay/internal/logging"
	"github.com/muurk/smartrelay/internal/update"
	"go.uber.org/zap"
)

// DefaultMaxSize caps the accepted image size.
const DefaultMaxSize = 64 << 20

// Config configures a Receiver
type Config struct {
	// Password gates every attempt. It must not be empty.
	Password string
	// Target is the file replaced by a verified image.
	Target string
	// Staging receives the image while it arrives. Defaults to Target+".new".
	Staging string
	// MaxSize is the largest accepted image. Defaults to DefaultMaxSize.
	MaxSize int64
	// IdleTimeout bounds the wait for each frame. Defaults to 30s.
	IdleTimeout time.Duration
}

// DefaultTarget returns the running executable
func DefaultTarget() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	return exe, nil
}

// Receiver is the device side of the update channel. It reports every
// attempt through Hooks.
type Receiver struct {
	config   Config
	hooks    update.Hooks
	upgrader websocket.Upgrader
	busy     atomic.Bool
}

// NewReceiver validates config and creates a receiver
func NewReceiver(config Config, hooks update.Hooks) (*Receiver, error) {
	if config.Password == "" {
		return nil, fmt.Errorf("update password is required")
	}
	if config.Target == "" {
		return nil, fmt.Errorf("update target is required")
	}
	if config.Staging == "" {
		config.Staging = config.Target + ".new"
	}
	if config.MaxSize <= 0 {
		config.MaxSize = DefaultMaxSize
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 30 * time.Second
	}

	return &Receiver{
		config: config,
		hooks:  hooks,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 4 * 1024,
		},
	}, nil
}

// attempt is one connection's transfer state.
type attempt struct {
	r        *Receiver
	conn     *websocket.Conn
	session  string
	holding  bool
	staging  *os.File
	hash     hash.Hash
	expected Message
	received int64
	percent  int
}

// ServeHTTP upgrades the request and runs one update attempt
func (r *Receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if !websocket.IsWebSocketUpgrade(req) {
		logging.Warn("Update request without websocket upgrade", zap.String("remote_addr", req.RemoteAddr))
		r.hooks.OnError(update.ConnectFailure)
		http.Error(w, "websocket upgrade required", http.StatusBadRequest)
		return
	}

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		logging.Warn("Update upgrade failed", zap.String("remote_addr", req.RemoteAddr), zap.Error(err))
		r.hooks.OnError(update.ConnectFailure)
		return
	}
	defer conn.Close()

	a := &attempt{r: r, conn: conn, session: uuid.NewString()}
	logging.LogUpdate("connect",
		zap.String("session", a.session),
		zap.String("remote_addr", req.RemoteAddr),
	)

	if err := a.run(); err != nil {
		a.fail(err)
	}
}

func (a *attempt) run() error {
	if err := a.readBegin(); err != nil {
		return err
	}
	if err := a.begin(); err != nil {
		return err
	}
	if err := a.receive(); err != nil {
		return err
	}
	return a.finish()
}

func (a *attempt) readBegin() error {
	_ = a.conn.SetReadDeadline(time.Now().Add(a.r.config.IdleTimeout))
	if err := a.conn.ReadJSON(&a.expected); err != nil {
		return update.NewError(update.ConnectFailure, "no begin message", err)
	}
	if a.expected.Type != TypeBegin {
		return update.NewError(update.ConnectFailure, fmt.Sprintf("expected %q message, got %q", TypeBegin, a.expected.Type), nil)
	}

	if subtle.ConstantTimeCompare([]byte(a.expected.Password), []byte(a.r.config.Password)) != 1 {
		return update.NewError(update.AuthFailure, "password mismatch", nil)
	}
	return nil
}

func (a *attempt) begin() error {
	size := a.expected.Size
	if size <= 0 || size > a.r.config.MaxSize {
		return update.NewError(update.BeginFailure, fmt.Sprintf("image size %d outside 1-%d", size, a.r.config.MaxSize), nil)
	}
	if a.expected.MD5 != "" {
		if b, err := hex.DecodeString(a.expected.MD5); err != nil || len(b) != md5.Size {
			return update.NewError(update.BeginFailure, "malformed md5", err)
		}
	}

	if !a.r.busy.CompareAndSwap(false, true) {
		return update.NewError(update.BeginFailure, "another update is in progress", nil)
	}
	a.holding = true

	f, err := os.OpenFile(a.r.config.Staging, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0755)
	if err != nil {
		return update.NewError(update.BeginFailure, "cannot open staging file", err)
	}
	a.staging = f
	a.hash = md5.New()

	if err := a.send(Message{Type: TypeReady, Session: a.session}); err != nil {
		return update.NewError(update.ConnectFailure, "failed to acknowledge begin", err)
	}

	a.r.hooks.OnStart()
	logging.LogUpdate("begin",
		zap.String("session", a.session),
		zap.Int64("size", size),
	)
	return nil
}

func (a *attempt) receive() error {
	for {
		_ = a.conn.SetReadDeadline(time.Now().Add(a.r.config.IdleTimeout))
		mt, data, err := a.conn.ReadMessage()
		if err != nil {
			return update.NewError(update.ReceiveFailure, "transfer interrupted", err)
		}

		if mt == websocket.TextMessage {
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil || msg.Type != TypeEnd {
				return update.NewError(update.ReceiveFailure, "unexpected control message during transfer", err)
			}
			return nil
		}
		if mt != websocket.BinaryMessage {
			continue
		}

		if a.received+int64(len(data)) > a.expected.Size {
			return update.NewError(update.ReceiveFailure, "more data than announced", nil)
		}
		if _, err := a.staging.Write(data); err != nil {
			return update.NewError(update.ReceiveFailure, "failed to write image", err)
		}
		a.hash.Write(data)
		a.received += int64(len(data))

		if pct := int(a.received * 100 / a.expected.Size); pct > a.percent {
			a.percent = pct
			a.r.hooks.OnProgress(pct)
		}
	}
}

func (a *attempt) finish() error {
	if a.received != a.expected.Size {
		return update.NewError(update.EndFailure, fmt.Sprintf("received %d of %d bytes", a.received, a.expected.Size), nil)
	}

	sum := hex.EncodeToString(a.hash.Sum(nil))
	if a.expected.MD5 != "" && !strings.EqualFold(sum, a.expected.MD5) {
		return update.NewError(update.EndFailure, fmt.Sprintf("md5 mismatch: got %s, want %s", sum, a.expected.MD5), nil)
	}

	if err := a.staging.Sync(); err != nil {
		return update.NewError(update.EndFailure, "failed to flush image", err)
	}
	if err := a.staging.Close(); err != nil {
		return update.NewError(update.EndFailure, "failed to close image", err)
	}

	if err := os.Rename(a.r.config.Staging, a.r.config.Target); err != nil {
		return update.NewError(update.EndFailure, "failed to install image", err)
	}
	a.staging = nil
	a.release()

	logging.LogUpdate("installed",
		zap.String("session", a.session),
		zap.String("target", a.r.config.Target),
		zap.String("md5", sum),
	)

	_ = a.send(Message{Type: TypeDone, Session: a.session})
	a.r.hooks.OnEnd()
	return nil
}

// fail reports err to the peer and the hooks and discards the staged image.
func (a *attempt) fail(err error) {
	kind, ok := update.KindOf(err)
	if !ok {
		kind = update.ReceiveFailure
	}

	logging.Warn("Update attempt abandoned",
		zap.String("session", a.session),
		zap.String("kind", kind.String()),
		zap.Error(err),
	)

	_ = a.send(Message{Type: TypeError, Session: a.session, Kind: kind.String(), Error: err.Error()})

	if a.staging != nil {
		_ = a.staging.Close()
		_ = os.Remove(a.r.config.Staging)
		a.staging = nil
	}
	a.release()

	a.r.hooks.OnError(kind)
}

func (a *attempt) release() {
	if a.holding {
		a.holding = false
		a.r.busy.Store(false)
	}
}

func (a *attempt) send(msg Message) error {
	_ = a.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return a.conn.WriteJSON(msg)
}
