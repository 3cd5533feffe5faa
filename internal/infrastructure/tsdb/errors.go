package tsdb

import "errors"

// Sentinel errors for VictoriaMetrics operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, tsdb.ErrWriteFailed) {
//	    // buffer the reading
//	}
var (
	// ErrNotConnected indicates a write was attempted before a successful Connect.
	ErrNotConnected = errors.New("tsdb: not connected")

	// ErrConnectionFailed indicates the server could not be reached or timed out.
	ErrConnectionFailed = errors.New("tsdb: connection failed")

	// ErrWriteFailed indicates the server did not accept a write.
	ErrWriteFailed = errors.New("tsdb: write failed")
)
