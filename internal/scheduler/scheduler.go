// Package scheduler drives the sensor at a fixed rate and hands every
// reading to the forwarder.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/aq-logger/internal/forwarder"
	"github.com/nerrad567/aq-logger/internal/infrastructure/logging"
	"github.com/nerrad567/aq-logger/internal/reading"
	"github.com/nerrad567/aq-logger/internal/sensor"
)

// Logger accepts readings. *forwarder.Forwarder implements it.
type Logger interface {
	Log(r reading.Reading) forwarder.Result
}

// Options configures Run.
type Options struct {
	Source   sensor.Source
	Logger   Logger
	Interval time.Duration
	Log      *logging.Logger
}

// IntervalForFrequency converts readings per hour to the wait between
// readings, truncated to whole seconds.
func IntervalForFrequency(perHour int) time.Duration {
	if perHour <= 0 {
		return time.Hour
	}
	return time.Duration(3600/perHour) * time.Second
}

// Run takes one reading immediately and then one per interval until ctx is
// cancelled. A reading in progress always completes; cancellation is only
// noticed between cycles.
//
// Returns:
//   - nil when ctx is cancelled
//   - error wrapping Result.Err when the forwarder reports OutcomeFatal
func Run(ctx context.Context, opts Options) error {
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("component", "scheduler")

	interval := opts.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	log.Info("polling started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := cycle(ctx, opts, log); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
		// A tick and a cancellation can be ready together; shutdown wins.
		if ctx.Err() != nil {
			log.Info("polling stopped")
			return nil
		}
	}
}

func cycle(ctx context.Context, opts Options, log *logging.Logger) error {
	// The read itself must not be cut short by shutdown.
	r, err := opts.Source.Read(context.WithoutCancel(ctx))
	if err != nil {
		log.Warn("sensor read failed, skipping cycle", "error", err)
		return nil
	}

	res := opts.Logger.Log(r)
	switch res.Outcome {
	case forwarder.OutcomeFatal:
		return fmt.Errorf("logging reading: %w", res.Err)
	case forwarder.OutcomeBuffered:
		log.Debug("reading buffered", "replayed", res.Replayed)
	case forwarder.OutcomeDelivered:
		log.Debug("reading delivered", "replayed", res.Replayed)
	}
	return nil
}
