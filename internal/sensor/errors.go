package sensor

import "errors"

var (
	// ErrUnknownDriver indicates a sensor driver name that is not supported.
	ErrUnknownDriver = errors.New("sensor: unknown driver")

	// ErrInitFailed indicates the sensor hardware could not be opened.
	ErrInitFailed = errors.New("sensor: initialisation failed")

	// ErrReadFailed indicates a single sample could not be taken.
	ErrReadFailed = errors.New("sensor: read failed")

	// ErrClosed indicates a read from a closed source.
	ErrClosed = errors.New("sensor: closed")
)
