package forwarder

import "errors"

var (
	// ErrMissingDependency indicates remote mode was requested without a store or buffer.
	ErrMissingDependency = errors.New("forwarder: remote mode needs a store and a buffer")
)
