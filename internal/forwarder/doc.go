// Package forwarder is the store-and-forward core of the logger.
//
// A Forwarder takes one reading at a time through Log. In local mode the
// reading is only shown on the sinks. In remote mode it is also written to
// the remote store, or appended to the durable buffer when the store cannot
// take it. The next successful connection replays the buffer, oldest first,
// before the new reading is written.
//
// # State machine
//
//	Local         sinks only, forever
//	Connected     write ok          -> Connected
//	              write fails       -> Disconnected, reading buffered
//	Disconnected  reconnect fails   -> Disconnected, reading buffered
//	              reconnect ok      -> Connected, buffer replayed, reading written
//
// Transitions happen only inside Log; there is no background reconnection.
// A reading is never dropped: a failed replay puts the undelivered tail of
// the backlog back into the buffer, followed by the current reading.
//
// Callers branch on Result.Outcome. Only OutcomeFatal (the buffer itself
// failed) should stop the process.
package forwarder
