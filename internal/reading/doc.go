// Package reading defines the sensor sample that flows through the logger,
// the identity attached to it when it is stored remotely, and the versioned
// record format used by the durable buffer.
//
// Record format (version 1), one JSON object per record:
//
//	{"v":1,"ts":"2024-05-01T10:00:00Z","temperature":21.4,"humidity":45.1,
//	 "pressure":1012.3,"gas":120000,"quality":87.5}
//
// Decoding rejects any other version so that a future format change can be
// introduced without misreading old buffers.
package reading
