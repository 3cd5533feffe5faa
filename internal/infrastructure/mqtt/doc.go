// Package mqtt publishes readings to an MQTT broker as a secondary
// observation sink.
//
// The logger's durable path is the remote store and the local buffer; MQTT
// is best effort. A publish that fails is reported to the caller and never
// retried, and nothing is queued while the broker is away.
//
// Topics, keyed by the host name of the logger:
//
//	aqlogger/readings/<host>   one JSON message per reading, not retained
//	aqlogger/status/<host>     retained online/offline, doubles as the LWT
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, identity, log)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Observe(r)
package mqtt
