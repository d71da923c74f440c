package mqttlink

import (
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/muurk/smartrelay/internal/bridge"
	"github.com/muurk/smartrelay/internal/events"
	"github.com/muurk/smartrelay/internal/logging"
	"go.uber.org/zap"
)

// DefaultPrefix is the topic root used when none is configured.
const DefaultPrefix = "smartrelay"

// Availability payloads.
const (
	Online  = "online"
	Offline = "offline"
)

const (
	statusSuffix = "status"
	setSuffix    = "set"
	stateSuffix  = "state"
)

// Config holds the broker connection parameters.
type Config struct {
	// BrokerURL is the paho broker address, e.g. "tcp://192.168.1.1:1883".
	BrokerURL string
	ClientID  string
	Prefix    string
	// ConnectTimeout bounds the initial connection attempt.
	ConnectTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	c.Prefix = strings.TrimSuffix(c.Prefix, "/")
	if c.ClientID == "" {
		c.ClientID = c.Prefix
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}

// publisher is the part of mqtt.Client used for outgoing messages.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Link bridges MQTT topics to the command queue.
type Link struct {
	cfg     Config
	queue   *events.Queue
	devices []string

	mu     sync.Mutex
	client mqtt.Client
	pub    publisher
}

// New creates a link for the named devices. Connect must be called before
// anything is published.
func New(cfg Config, devices []string, queue *events.Queue) *Link {
	cfg.applyDefaults()
	return &Link{
		cfg:     cfg,
		queue:   queue,
		devices: append([]string(nil), devices...),
	}
}

// StatusTopic returns the availability topic
func (l *Link) StatusTopic() string {
	return l.cfg.Prefix + "/" + statusSuffix
}

// CommandTopic returns the topic a device listens on
func (l *Link) CommandTopic(device string) string {
	return fmt.Sprintf("%s/%s/%s", l.cfg.Prefix, device, setSuffix)
}

// StateTopic returns the topic a device reports on
func (l *Link) StateTopic(device string) string {
	return fmt.Sprintf("%s/%s/%s", l.cfg.Prefix, device, stateSuffix)
}

// Connect dials the broker. Reconnects are automatic; subscriptions and the
// online message are renewed on every (re)connect.
func (l *Link) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(l.cfg.BrokerURL)
	opts.SetClientID(l.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetWill(l.StatusTopic(), Offline, 1, true)
	opts.SetOnConnectHandler(l.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logging.Warn("MQTT connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(l.cfg.ConnectTimeout) {
		// ConnectRetry keeps trying in the background.
		logging.Warn("MQTT broker not reachable yet, retrying in background",
			zap.String("broker", l.cfg.BrokerURL),
		)
	} else if err := token.Error(); err != nil {
		client.Disconnect(0)
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", l.cfg.BrokerURL, err)
	}

	l.mu.Lock()
	l.client = client
	l.pub = client
	l.mu.Unlock()
	return nil
}

func (l *Link) onConnect(c mqtt.Client) {
	logging.Info("Connected to MQTT broker",
		zap.String("broker", l.cfg.BrokerURL),
		zap.String("prefix", l.cfg.Prefix),
	)
	c.Publish(l.StatusTopic(), 1, true, Online)

	filters := make(map[string]byte, len(l.devices))
	for _, d := range l.devices {
		filters[l.CommandTopic(d)] = 1
	}
	if len(filters) == 0 {
		return
	}
	token := c.SubscribeMultiple(filters, l.handleMessage)
	go func() {
		if token.Wait() && token.Error() != nil {
			logging.Error("MQTT subscribe failed", zap.Error(token.Error()))
		}
	}()
}

// handleMessage runs on a paho goroutine; it only enqueues.
func (l *Link) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	if msg.Retained() {
		// A retained command would replay on every reconnect.
		return
	}

	device, ok := l.parseCommandTopic(msg.Topic())
	if !ok {
		logging.Debug("Ignoring MQTT message", zap.String("topic", msg.Topic()))
		return
	}

	on, ok := ParsePayload(msg.Payload())
	if !ok {
		logging.Warn("Invalid MQTT command payload",
			zap.String("topic", msg.Topic()),
			zap.ByteString("payload", msg.Payload()),
		)
		return
	}

	l.queue.Push(bridge.Command{Source: "mqtt", Device: device, On: on})
}

// parseCommandTopic extracts the device name from "<prefix>/<device>/set".
func (l *Link) parseCommandTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, l.cfg.Prefix+"/")
	if !ok {
		return "", false
	}
	device, ok := strings.CutSuffix(rest, "/"+setSuffix)
	if !ok || device == "" || strings.Contains(device, "/") {
		return "", false
	}
	return device, true
}

// ParsePayload accepts ON/OFF, true/false and 1/0, case-insensitively.
func ParsePayload(payload []byte) (on bool, ok bool) {
	switch strings.ToUpper(strings.TrimSpace(string(payload))) {
	case "ON", "TRUE", "1":
		return true, true
	case "OFF", "FALSE", "0":
		return false, true
	}
	return false, false
}

// StatePayload is the state topic payload for on
func StatePayload(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// PublishState implements bridge.StateSink. It does not wait for the broker.
func (l *Link) PublishState(device string, on bool) {
	l.mu.Lock()
	pub := l.pub
	l.mu.Unlock()
	if pub == nil {
		return
	}

	topic := l.StateTopic(device)
	token := pub.Publish(topic, 1, true, StatePayload(on))
	go func() {
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			logging.Warn("MQTT state publish failed", zap.String("topic", topic), zap.Error(token.Error()))
		}
	}()
}

// Close publishes offline and disconnects
func (l *Link) Close() {
	l.mu.Lock()
	client := l.client
	l.client, l.pub = nil, nil
	l.mu.Unlock()
	if client == nil {
		return
	}

	if client.IsConnected() {
		client.Publish(l.StatusTopic(), 1, true, Offline).WaitTimeout(time.Second)
	}
	client.Disconnect(250)
	logging.Info("Disconnected from MQTT broker")
}
