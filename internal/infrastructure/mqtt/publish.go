package mqtt

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/aq-logger/internal/reading"
)

// Maximum payload size for MQTT messages (1MB).
const maxPayloadSize = 1 << 20 // 1MB

// readingMessage is the payload published for every reading.
type readingMessage struct {
	RunID    string          `json:"run_id"`
	HostName string          `json:"host_name"`
	Reading  json.RawMessage `json:"reading"`
}

// Publish sends a message to the specified MQTT topic.
//
// QoS Levels:
//   - 0: At most once (fire and forget)
//   - 1: At least once (guaranteed delivery, may duplicate)
//   - 2: Exactly once (guaranteed, no duplicates, higher overhead)
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// Observe publishes r to the readings topic at the configured QoS.
// It makes Client usable as an observation sink next to the console.
func (c *Client) Observe(r reading.Reading) error {
	payload, err := buildReadingPayload(r, c.id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return c.Publish(c.topics.Readings(), payload, byte(c.cfg.QoS), false)
}

func buildReadingPayload(r reading.Reading, id reading.RunIdentity) ([]byte, error) {
	rec, err := reading.EncodeRecord(r)
	if err != nil {
		return nil, err
	}
	return json.Marshal(readingMessage{
		RunID:    id.RunID.String(),
		HostName: id.HostName,
		Reading:  rec,
	})
}
