package mqtt

import (
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/aq-logger/internal/infrastructure/config"
	"github.com/nerrad567/aq-logger/internal/infrastructure/logging"
	"github.com/nerrad567/aq-logger/internal/reading"
)

// broker is the part of pahomqtt.Client this package uses.
type broker interface {
	Connect() pahomqtt.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	IsConnected() bool
}

// Client publishes readings and the logger's online status to an MQTT broker.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client broker
	cfg    config.MQTTConfig
	id     reading.RunIdentity
	topics Topics
	log    *logging.Logger

	// connected tracks current connection state.
	connected bool
	connMu    sync.RWMutex
}

// Connect establishes a connection to the MQTT broker.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth, TLS)
//  2. Configures Last Will and Testament (LWT) on the status topic
//  3. Sets up auto-reconnect with exponential backoff
//  4. Attempts initial connection with timeout
//  5. Publishes online status (again after every reconnect)
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: wraps ErrConnectionFailed if the initial connection fails within timeout
func Connect(cfg config.MQTTConfig, id reading.RunIdentity, log *logging.Logger) (*Client, error) {
	if log == nil {
		log = logging.Nop()
	}
	topics := Topics{Prefix: cfg.TopicPrefix, Host: id.HostName}

	opts := buildClientOptions(cfg, id)
	configureLWT(opts, topics, id)

	c := &Client{
		cfg:    cfg,
		id:     id,
		topics: topics,
		log:    log.With("component", "mqtt", "broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port)),
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		c.log.Debug("reconnecting to broker")
	})

	pc := pahomqtt.NewClient(opts)
	token := pc.Connect()
	if !token.WaitTimeout(connectTimeout) {
		// ConnectRetry keeps paho trying in the background; stop it.
		pc.Disconnect(0)
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	c.client = pc

	// The OnConnect callback runs asynchronously and may not have run yet.
	c.setConnected(true)

	return c, nil
}

// Topics returns the topics this client publishes to.
func (c *Client) Topics() Topics {
	return c.topics
}

func (c *Client) handleConnect() {
	c.setConnected(true)
	c.log.Info("connected to broker")
	c.publishOnlineStatus()
}

func (c *Client) handleDisconnect(err error) {
	c.setConnected(false)
	c.log.Warn("broker connection lost", "error", err)
}

func (c *Client) setConnected(v bool) {
	c.connMu.Lock()
	c.connected = v
	c.connMu.Unlock()
}

// publishOnlineStatus publishes the retained online status.
func (c *Client) publishOnlineStatus() {
	if c.client == nil {
		return
	}
	c.client.Publish(c.topics.Status(), byte(c.cfg.QoS), true, statusPayload(c.id, "online", ""))
}

// Close gracefully disconnects from the MQTT broker.
//
// It publishes a graceful offline status (different from the LWT crash
// status), waits for it, then disconnects.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.client.Publish(c.topics.Status(), byte(c.cfg.QoS), true, statusPayload(c.id, "offline", reasonShutdown))
		token.WaitTimeout(publishTimeout)
	}

	c.client.Disconnect(disconnectGrace)
	c.setConnected(false)

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	if c == nil || c.client == nil {
		return false
	}
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client.IsConnected()
}
