package mqtt

import "fmt"

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "aqlogger"

// Topics builds the topics one logger instance publishes to.
// Every instance is keyed by its host name so several loggers can share a broker:
//
//	topics := mqtt.Topics{Prefix: "aqlogger", Host: "pi-kitchen"}
//	topics.Readings() // "aqlogger/readings/pi-kitchen"
type Topics struct {
	Prefix string
	Host   string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// Readings returns the topic every reading is published to.
//
// Example: aqlogger/readings/pi-kitchen
func (t Topics) Readings() string {
	return fmt.Sprintf("%s/readings/%s", t.prefix(), t.Host)
}

// Status returns the retained online/offline topic, also used for the LWT.
//
// Example: aqlogger/status/pi-kitchen
func (t Topics) Status() string {
	return fmt.Sprintf("%s/status/%s", t.prefix(), t.Host)
}

// AllReadings returns a pattern matching the readings of every host.
//
// Pattern: aqlogger/readings/+
func (t Topics) AllReadings() string {
	return fmt.Sprintf("%s/readings/+", t.prefix())
}
