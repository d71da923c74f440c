package mqttlink

import (
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/muurk/smartrelay/internal/bridge"
	"github.com/muurk/smartrelay/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	topic    string
	payload  []byte
	retained bool
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return m.retained }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type published struct {
	topic    string
	retained bool
	payload  interface{}
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *recordingPublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic, retained, payload})
	return doneToken{}
}

func newLink(prefix string) (*Link, *events.Queue) {
	q := events.NewQueue()
	return New(Config{BrokerURL: "tcp://127.0.0.1:1883", Prefix: prefix}, []string{"light", "fan"}, q), q
}

func TestTopics(t *testing.T) {
	l, _ := newLink("")
	assert.Equal(t, "smartrelay/status", l.StatusTopic())
	assert.Equal(t, "smartrelay/light/set", l.CommandTopic("light"))
	assert.Equal(t, "smartrelay/light/state", l.StateTopic("light"))

	l, _ = newLink("home/relay/")
	assert.Equal(t, "home/relay/status", l.StatusTopic())
	assert.Equal(t, "home/relay/fan/set", l.CommandTopic("fan"))
}

func TestParseCommandTopic(t *testing.T) {
	l, _ := newLink("home")

	tests := []struct {
		topic  string
		device string
		ok     bool
	}{
		{"home/light/set", "light", true},
		{"home/fan/set", "fan", true},
		{"home/light/state", "", false},
		{"other/light/set", "", false},
		{"home//set", "", false},
		{"home/a/b/set", "", false},
		{"home/status", "", false},
	}

	for _, tt := range tests {
		device, ok := l.parseCommandTopic(tt.topic)
		if ok != tt.ok || device != tt.device {
			t.Errorf("parseCommandTopic(%q) = %q, %v, want %q, %v", tt.topic, device, ok, tt.device, tt.ok)
		}
	}
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		payload string
		on      bool
		ok      bool
	}{
		{"ON", true, true},
		{"on", true, true},
		{"true", true, true},
		{"1", true, true},
		{" OFF\n", false, true},
		{"false", false, true},
		{"0", false, true},
		{"toggle", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		on, ok := ParsePayload([]byte(tt.payload))
		if on != tt.on || ok != tt.ok {
			t.Errorf("ParsePayload(%q) = %v, %v, want %v, %v", tt.payload, on, ok, tt.on, tt.ok)
		}
	}
}

func TestHandleMessageQueuesCommand(t *testing.T) {
	l, q := newLink("")

	l.handleMessage(nil, &fakeMessage{topic: "smartrelay/light/set", payload: []byte("ON")})
	l.handleMessage(nil, &fakeMessage{topic: "smartrelay/fan/set", payload: []byte("off")})

	var got []bridge.Command
	q.Drain(func(ev events.Event) {
		got = append(got, ev.(bridge.Command))
	})

	assert.Equal(t, []bridge.Command{
		{Source: "mqtt", Device: "light", On: true},
		{Source: "mqtt", Device: "fan", On: false},
	}, got)
}

func TestHandleMessageIgnores(t *testing.T) {
	tests := []struct {
		name string
		msg  *fakeMessage
	}{
		{"retained", &fakeMessage{topic: "smartrelay/light/set", payload: []byte("ON"), retained: true}},
		{"bad payload", &fakeMessage{topic: "smartrelay/light/set", payload: []byte("dim")}},
		{"state topic", &fakeMessage{topic: "smartrelay/light/state", payload: []byte("ON")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, q := newLink("")
			l.handleMessage(nil, tt.msg)
			assert.Equal(t, 0, q.Len())
		})
	}
}

// Unknown device names still reach the queue so the bridge records them.
func TestHandleMessageUnknownDevice(t *testing.T) {
	l, q := newLink("")
	l.handleMessage(nil, &fakeMessage{topic: "smartrelay/heater/set", payload: []byte("ON")})
	assert.Equal(t, 1, q.Len())
}

func TestPublishState(t *testing.T) {
	l, _ := newLink("")

	// Not connected: dropped silently.
	l.PublishState("light", true)

	pub := &recordingPublisher{}
	l.pub = pub
	l.PublishState("light", true)
	l.PublishState("fan", false)

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, published{"smartrelay/light/state", true, "ON"}, pub.msgs[0])
	assert.Equal(t, published{"smartrelay/fan/state", true, "OFF"}, pub.msgs[1])
}

func TestConfigDefaults(t *testing.T) {
	l := New(Config{BrokerURL: "tcp://x:1883"}, nil, events.NewQueue())
	assert.Equal(t, DefaultPrefix, l.cfg.Prefix)
	assert.Equal(t, DefaultPrefix, l.cfg.ClientID)
	assert.Equal(t, 10*time.Second, l.cfg.ConnectTimeout)
}
