package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/nerrad567/aq-logger/internal/reading"
)

// DefaultI2CAddress is the primary address of BME280/BME680 breakouts.
const DefaultI2CAddress = 0x76

// environment is what BMXX80 needs from the periph device.
type environment interface {
	Sense(e *physic.Env) error
	Halt() error
	String() string
}

// BMXX80 reads a Bosch BMP180/BMP280/BME280 over I²C.
//
// The family has no gas heater, so GasResistance is always 0 and the gas
// part of the quality index is the full share.
type BMXX80 struct {
	dev    environment
	bus    i2c.BusCloser
	scorer QualityScorer
	now    clock

	mu     sync.Mutex
	closed bool
}

// NewBMXX80 initialises the host drivers and opens the device.
// An empty bus name selects the first bus found, usually /dev/i2c-1.
func NewBMXX80(busName string, addr uint16, scorer QualityScorer) (*BMXX80, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: host init: %w", ErrInitFailed, err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("%w: opening i2c bus %q: %w", ErrInitFailed, busName, err)
	}

	if addr == 0 {
		addr = DefaultI2CAddress
	}
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("%w: bmxx80 at 0x%x: %w", ErrInitFailed, addr, err)
	}

	return &BMXX80{dev: dev, bus: bus, scorer: scorer, now: time.Now}, nil
}

// Read takes one forced-mode measurement.
func (s *BMXX80) Read(ctx context.Context) (reading.Reading, error) {
	if err := ctx.Err(); err != nil {
		return reading.Reading{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return reading.Reading{}, ErrClosed
	}

	var env physic.Env
	if err := s.dev.Sense(&env); err != nil {
		return reading.Reading{}, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	return s.convert(env), nil
}

func (s *BMXX80) convert(env physic.Env) reading.Reading {
	humidity := float64(env.Humidity) / float64(physic.PercentRH)
	// physic.Pressure is in nano pascals.
	pressure := float64(env.Pressure) / float64(physic.Pascal) / 100

	return reading.Reading{
		Timestamp:       s.now(),
		Temperature:     env.Temperature.Celsius(),
		Humidity:        humidity,
		Pressure:        pressure,
		GasResistance:   0,
		AirQualityIndex: s.scorer.Score(humidity, 0),
	}
}

// String names the device.
func (s *BMXX80) String() string {
	return s.dev.String()
}

// Close halts the device and releases the bus. Safe to call repeatedly.
func (s *BMXX80) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.dev.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halting sensor: %w", err))
	}
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing i2c bus: %w", err))
		}
	}
	return errors.Join(errs...)
}
