package sensor

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nerrad567/aq-logger/internal/reading"
)

// Simulated is a Source that wanders around typical indoor conditions.
// The same seed yields the same sequence of values.
type Simulated struct {
	scorer QualityScorer
	now    clock

	mu     sync.Mutex
	rng    *rand.Rand
	closed bool

	temperature float64
	humidity    float64
	pressure    float64
	gas         float64
}

// NewSimulated creates a simulated source.
func NewSimulated(seed int64, scorer QualityScorer) *Simulated {
	return &Simulated{
		scorer:      scorer,
		now:         time.Now,
		rng:         rand.New(rand.NewPCG(uint64(seed), 0x61712d6c6f67)),
		temperature: 21,
		humidity:    45,
		pressure:    1013.25,
		gas:         120000,
	}
}

// Read advances the walk one step.
func (s *Simulated) Read(ctx context.Context) (reading.Reading, error) {
	if err := ctx.Err(); err != nil {
		return reading.Reading{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return reading.Reading{}, ErrClosed
	}

	s.temperature = step(s.rng, s.temperature, 0.2, 10, 35)
	s.humidity = step(s.rng, s.humidity, 1, 10, 90)
	s.pressure = step(s.rng, s.pressure, 0.5, 950, 1050)
	s.gas = step(s.rng, s.gas, 2500, 5000, 400000)

	return reading.Reading{
		Timestamp:       s.now(),
		Temperature:     s.temperature,
		Humidity:        s.humidity,
		Pressure:        s.pressure,
		GasResistance:   s.gas,
		AirQualityIndex: s.scorer.Score(s.humidity, s.gas),
	}, nil
}

// Close stops the source.
func (s *Simulated) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// step moves v by up to ±maxDelta, clamped to [lo, hi].
func step(rng *rand.Rand, v, maxDelta, lo, hi float64) float64 {
	v += (rng.Float64()*2 - 1) * maxDelta
	return min(max(v, lo), hi)
}
