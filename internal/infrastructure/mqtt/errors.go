package mqtt

import "errors"

// Sentinel errors, checked with errors.Is.
var (
	// ErrNotConnected is returned by Publish and Observe while the broker link is down.
	ErrNotConnected = errors.New("mqtt: broker link down")

	// ErrConnectionFailed wraps a failed or timed-out initial connect.
	ErrConnectionFailed = errors.New("mqtt: broker connect failed")

	// ErrPublishFailed wraps a publish the broker did not acknowledge in time.
	ErrPublishFailed = errors.New("mqtt: publish not acknowledged")

	// ErrInvalidQoS rejects a QoS outside 0..2.
	ErrInvalidQoS = errors.New("mqtt: qos out of range")

	// ErrInvalidTopic rejects an empty topic.
	ErrInvalidTopic = errors.New("mqtt: empty topic")
)
