package buffer

import "errors"

var (
	// ErrConfiguration indicates the buffer location cannot be used: it is a
	// directory, its parent cannot be created, or it cannot be opened for append.
	ErrConfiguration = errors.New("buffer: invalid buffer location")

	// ErrIO indicates a read or write of the buffer failed at runtime.
	ErrIO = errors.New("buffer: i/o failure")

	// ErrClosed indicates an operation on a closed buffer.
	ErrClosed = errors.New("buffer: closed")
)
