package influxdb

import "errors"

// Sentinel errors for InfluxDB operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, influxdb.ErrConnectionFailed) {
//	    // buffer and retry on the next reading
//	}
var (
	// ErrNotConnected indicates a write was attempted without a session.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the server could not be reached, timed
	// out, or refused a provisioning or sign-in request.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed indicates the server did not accept a point.
	ErrWriteFailed = errors.New("influxdb: write failed")
)
