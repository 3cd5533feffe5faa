package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/aq-logger/internal/infrastructure/config"
	"github.com/nerrad567/aq-logger/internal/reading"
)

const (
	connectTimeout  = 10 * time.Second
	publishTimeout  = 5 * time.Second
	keepAlive       = 60 * time.Second
	disconnectGrace = 1000 // ms

	reconnectInitialDelay = 1 * time.Second
	reconnectMaxDelay     = 60 * time.Second

	maxQoS        = 2
	tlsMinVersion = tls.VersionTLS12
)

// Status reasons carried on the retained status topic.
const (
	reasonUnexpected = "unexpected_disconnect"
	reasonShutdown   = "graceful_shutdown"
)

// buildClientOptions maps the mqtt config section onto paho options.
// Auto-reconnect is always on; the broker may come and go under a
// long-running logger.
func buildClientOptions(cfg config.MQTTConfig, id reading.RunIdentity) *pahomqtt.ClientOptions {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)).
		SetClientID(clientID(cfg, id)).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(reconnectInitialDelay).
		SetMaxReconnectInterval(reconnectMaxDelay).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username).SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}
	return opts
}

// clientID suffixes the configured id with the host name so that several
// loggers can share one broker.
func clientID(cfg config.MQTTConfig, id reading.RunIdentity) string {
	if id.HostName == "" {
		return cfg.Broker.ClientID
	}
	return cfg.Broker.ClientID + "-" + id.HostName
}

// statusMessage is the retained payload on Topics.Status.
type statusMessage struct {
	Status    string `json:"status"`
	RunID     string `json:"run_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func statusPayload(id reading.RunIdentity, status, reason string) string {
	//nolint:errcheck // strings only
	b, _ := json.Marshal(statusMessage{
		Status:    status,
		RunID:     id.RunID.String(),
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return string(b)
}

// configureLWT registers a retained offline status the broker publishes
// if the logger vanishes without a clean disconnect.
func configureLWT(opts *pahomqtt.ClientOptions, topics Topics, id reading.RunIdentity) {
	opts.SetWill(topics.Status(), statusPayload(id, "offline", reasonUnexpected), 1, true)
}
