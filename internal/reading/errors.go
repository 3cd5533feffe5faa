package reading

import "errors"

var (
	// ErrInvalidReading indicates a reading with a missing timestamp or non-finite values.
	ErrInvalidReading = errors.New("reading: invalid reading")

	// ErrUnsupportedVersion indicates a buffered record written in an unknown format.
	ErrUnsupportedVersion = errors.New("reading: unsupported record version")

	// ErrMalformedRecord indicates a buffered record that could not be decoded.
	ErrMalformedRecord = errors.New("reading: malformed record")
)
