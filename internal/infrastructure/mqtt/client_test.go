package mqtt

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/aq-logger/internal/infrastructure/config"
	"github.com/nerrad567/aq-logger/internal/infrastructure/logging"
	"github.com/nerrad567/aq-logger/internal/reading"
)

// fakeToken is an already-completed paho token.
type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.timeout {
		close(ch)
	}
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeBroker records publishes instead of talking to a broker.
type fakeBroker struct {
	mu           sync.Mutex
	connected    bool
	publishErr   error
	messages     []published
	disconnected bool
}

func (b *fakeBroker) Connect() pahomqtt.Token { return &fakeToken{} }

func (b *fakeBroker) Disconnect(uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	b.disconnected = true
}

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	var body []byte
	switch p := payload.(type) {
	case []byte:
		body = p
	case string:
		body = []byte(p)
	}
	b.messages = append(b.messages, published{topic: topic, qos: qos, retained: retained, payload: body})
	return &fakeToken{err: b.publishErr}
}

func (b *fakeBroker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func testIdentity() reading.RunIdentity {
	return reading.RunIdentity{
		RunID:    uuid.MustParse("6f1c2a9e-0b7d-4e55-9a51-2f0c8f3f6b10"),
		HostName: "pi-kitchen",
	}
}

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "aq-logger-test",
		},
		QoS:         1,
		TopicPrefix: "aqlogger",
	}
}

// newTestClient wires a Client to a fake broker, as Connect would after a successful connect.
func newTestClient(b *fakeBroker) *Client {
	cfg := testConfig()
	id := testIdentity()
	b.connected = true
	return &Client{
		client:    b,
		cfg:       cfg,
		id:        id,
		topics:    Topics{Prefix: cfg.TopicPrefix, Host: id.HostName},
		log:       logging.Nop(),
		connected: true,
	}
}

func testReading() reading.Reading {
	return reading.Reading{
		Timestamp:       time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Temperature:     21.5,
		Humidity:        45,
		Pressure:        1013.25,
		GasResistance:   120000,
		AirQualityIndex: 88.4,
	}
}

// =============================================================================
// Topic Tests
// =============================================================================

func TestTopics(t *testing.T) {
	topics := Topics{Prefix: "home/aq", Host: "pi-kitchen"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Readings", topics.Readings(), "home/aq/readings/pi-kitchen"},
		{"Status", topics.Status(), "home/aq/status/pi-kitchen"},
		{"AllReadings", topics.AllReadings(), "home/aq/readings/+"},
		{"default prefix", Topics{Host: "shed"}.Readings(), "aqlogger/readings/shed"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

// =============================================================================
// Options Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "logger", Password: "pw"}

	opts := buildClientOptions(cfg, testIdentity())

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "aq-logger-test-pi-kitchen" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "logger" || opts.Password != "pw" {
		t.Errorf("credentials not applied: %q/%q", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}

	cfg.Broker.TLS = true
	opts = buildClientOptions(cfg, testIdentity())
	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q with TLS, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS config not applied")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := pahomqtt.NewClientOptions()
	topics := Topics{Prefix: "aqlogger", Host: "pi-kitchen"}
	configureLWT(opts, topics, testIdentity())

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false")
	}
	if opts.WillTopic != "aqlogger/status/pi-kitchen" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}
	if !opts.WillRetained {
		t.Error("WillRetained = false, want true")
	}
	if !strings.Contains(string(opts.WillPayload), `"unexpected_disconnect"`) {
		t.Errorf("WillPayload = %s", opts.WillPayload)
	}
}

// =============================================================================
// Publish Tests
// =============================================================================

func TestObserve(t *testing.T) {
	b := &fakeBroker{}
	c := newTestClient(b)

	if err := c.Observe(testReading()); err != nil {
		t.Fatalf("Observe() error = %v", err)
	}

	if len(b.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(b.messages))
	}
	msg := b.messages[0]
	if msg.topic != "aqlogger/readings/pi-kitchen" {
		t.Errorf("topic = %q", msg.topic)
	}
	if msg.qos != 1 || msg.retained {
		t.Errorf("qos = %d retained = %v, want 1 false", msg.qos, msg.retained)
	}

	var body readingMessage
	if err := json.Unmarshal(msg.payload, &body); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if body.RunID != "6f1c2a9e-0b7d-4e55-9a51-2f0c8f3f6b10" || body.HostName != "pi-kitchen" {
		t.Errorf("identity = %q/%q", body.RunID, body.HostName)
	}
	got, err := reading.DecodeRecord(body.Reading)
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	if !got.Timestamp.Equal(testReading().Timestamp) || got.AirQualityIndex != 88.4 {
		t.Errorf("decoded reading = %+v", got)
	}
}

func TestObserve_InvalidReading(t *testing.T) {
	b := &fakeBroker{}
	c := newTestClient(b)

	r := testReading()
	r.Humidity = math.NaN()
	err := c.Observe(r)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Observe() error = %v, want ErrPublishFailed", err)
	}
	if len(b.messages) != 0 {
		t.Errorf("published %d messages, want 0", len(b.messages))
	}
}

func TestPublish_Validation(t *testing.T) {
	c := newTestClient(&fakeBroker{})

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"qos 3", "a/b", []byte("x"), 3, ErrInvalidQoS},
		{"too large", "a/b", make([]byte, maxPayloadSize+1), 0, ErrPublishFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPublish_Disconnected(t *testing.T) {
	b := &fakeBroker{}
	c := newTestClient(b)
	b.connected = false

	if err := c.Observe(testReading()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Observe() error = %v, want ErrNotConnected", err)
	}
}

func TestPublish_BrokerError(t *testing.T) {
	b := &fakeBroker{publishErr: errors.New("not authorised")}
	c := newTestClient(b)

	if err := c.Observe(testReading()); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Observe() error = %v, want ErrPublishFailed", err)
	}
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestHandleConnect_PublishesOnline(t *testing.T) {
	b := &fakeBroker{}
	c := newTestClient(b)
	c.setConnected(false)

	c.handleConnect()

	if !c.IsConnected() {
		t.Error("IsConnected() = false after handleConnect")
	}
	if len(b.messages) != 1 || b.messages[0].topic != "aqlogger/status/pi-kitchen" || !b.messages[0].retained {
		t.Fatalf("messages = %+v, want one retained status", b.messages)
	}
	if !strings.Contains(string(b.messages[0].payload), `"online"`) {
		t.Errorf("payload = %s", b.messages[0].payload)
	}
}

func TestHandleDisconnect(t *testing.T) {
	c := newTestClient(&fakeBroker{})
	c.handleDisconnect(errors.New("EOF"))
	if c.IsConnected() {
		t.Error("IsConnected() = true after connection lost")
	}
}

func TestClose_PublishesOffline(t *testing.T) {
	b := &fakeBroker{}
	c := newTestClient(b)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !b.disconnected {
		t.Error("broker not disconnected")
	}
	if len(b.messages) != 1 || !strings.Contains(string(b.messages[0].payload), "graceful_shutdown") {
		t.Errorf("messages = %+v, want graceful offline status", b.messages)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
}

func TestCloseNil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() on nil client = true")
	}
}
