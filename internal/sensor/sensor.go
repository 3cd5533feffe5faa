package sensor

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/aq-logger/internal/infrastructure/config"
	"github.com/nerrad567/aq-logger/internal/infrastructure/logging"
	"github.com/nerrad567/aq-logger/internal/reading"
)

// Source takes readings.
type Source interface {
	// Read takes one sample. It returns ctx.Err() if ctx is already done.
	Read(ctx context.Context) (reading.Reading, error)
	Close() error
}

// Open returns the source selected by cfg.Driver.
func Open(cfg config.SensorConfig, log *logging.Logger) (Source, error) {
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("component", "sensor", "driver", cfg.Driver)

	scorer := scorerFor(cfg)

	switch cfg.Driver {
	case config.SensorBMXX80:
		s, err := NewBMXX80(cfg.I2CBus, cfg.I2CAddress, scorer)
		if err != nil {
			return nil, err
		}
		log.Info("sensor opened", "device", s.String())
		return s, nil
	case config.SensorSimulated, "":
		log.Info("using simulated sensor", "seed", cfg.Seed)
		return NewSimulated(cfg.Seed, scorer), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func scorerFor(cfg config.SensorConfig) QualityScorer {
	return QualityScorer{
		HumidityBaseline:  cfg.HumidityBaseline,
		HumidityWeighting: cfg.HumidityWeighting,
		GasBaseline:       cfg.GasBaseline,
	}
}

// clock is overridden in tests.
type clock func() time.Time
