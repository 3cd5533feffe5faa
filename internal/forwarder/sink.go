package forwarder

import (
	"fmt"
	"io"

	"github.com/nerrad567/aq-logger/internal/reading"
)

// Sink receives every reading before it is persisted.
type Sink interface {
	Observe(r reading.Reading) error
}

// ConsoleSink writes the human-readable line of every reading to W.
type ConsoleSink struct {
	W io.Writer
}

// Observe implements Sink.
func (s ConsoleSink) Observe(r reading.Reading) error {
	_, err := fmt.Fprintln(s.W, r.String())
	return err
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(r reading.Reading) error

// Observe implements Sink.
func (f SinkFunc) Observe(r reading.Reading) error {
	return f(r)
}
