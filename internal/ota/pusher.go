package ota

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/smartrelay/internal/update"
)

// DefaultChunkSize is the size of each binary frame sent by Pusher.
const DefaultChunkSize = 16 * 1024

// Pusher is the operator side of the update channel.
type Pusher struct {
	URL       string
	Password  string
	ChunkSize int
	Timeout   time.Duration
	Dialer    *websocket.Dialer
}

// NewPusher creates a pusher for host, which may include a port. A missing
// port means DefaultPort.
func NewPusher(host, password string) *Pusher {
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, strconv.Itoa(DefaultPort))
	}
	u := url.URL{Scheme: "ws", Host: host, Path: Path}
	return &Pusher{
		URL:       u.String(),
		Password:  password,
		ChunkSize: DefaultChunkSize,
		Timeout:   30 * time.Second,
		Dialer:    websocket.DefaultDialer,
	}
}

// Progress is called after each chunk with the bytes sent so far.
type Progress func(sent, total int64)

// Push sends image and waits for the device to confirm installation. A
// device-side refusal is returned as *update.Error with the reported kind.
func (p *Pusher) Push(ctx context.Context, image []byte, progress Progress) error {
	if len(image) == 0 {
		return fmt.Errorf("image is empty")
	}
	chunk := p.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}

	dialer := p.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, p.URL, nil)
	if err != nil {
		return update.NewError(update.ConnectFailure, "failed to connect to "+p.URL, err)
	}
	defer conn.Close()

	// Abort blocking reads and writes when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	sum := md5.Sum(image)
	total := int64(len(image))
	begin := Message{
		Type:     TypeBegin,
		Password: p.Password,
		Size:     total,
		MD5:      hex.EncodeToString(sum[:]),
	}
	if err := conn.WriteJSON(begin); err != nil {
		return update.NewError(update.ConnectFailure, "failed to send begin", err)
	}
	if _, err := p.expect(conn, TypeReady); err != nil {
		return err
	}

	var sent int64
	for off := 0; off < len(image); off += chunk {
		end := off + chunk
		if end > len(image) {
			end = len(image)
		}
		_ = conn.SetWriteDeadline(time.Now().Add(p.timeout()))
		if err := conn.WriteMessage(websocket.BinaryMessage, image[off:end]); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return update.NewError(update.ReceiveFailure, "failed to send image data", err)
		}
		sent += int64(end - off)
		if progress != nil {
			progress(sent, total)
		}
	}

	if err := conn.WriteJSON(Message{Type: TypeEnd}); err != nil {
		return update.NewError(update.ReceiveFailure, "failed to send end", err)
	}
	if _, err := p.expect(conn, TypeDone); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}

func (p *Pusher) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return 30 * time.Second
}

// expect reads the next control message and turns device errors into
// *update.Error.
func (p *Pusher) expect(conn *websocket.Conn, want string) (Message, error) {
	_ = conn.SetReadDeadline(time.Now().Add(p.timeout()))

	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		return msg, update.NewError(update.ConnectFailure, fmt.Sprintf("no %q from device", want), err)
	}

	switch msg.Type {
	case want:
		return msg, nil
	case TypeError:
		kind, ok := update.ParseErrorKind(msg.Kind)
		if !ok {
			kind = update.ReceiveFailure
		}
		return msg, update.NewError(kind, msg.Error, nil)
	default:
		return msg, update.NewError(update.ConnectFailure, fmt.Sprintf("expected %q, got %q", want, msg.Type), nil)
	}
}
