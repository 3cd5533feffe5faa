package reading

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// consoleTimeLayout renders dd/mm/yyyy hh:mm:ss.mmm in local time.
const consoleTimeLayout = "02/01/2006 15:04:05.000"

// Reading is one sensor sample. It is a value type; the logger never
// modifies a reading it is handed.
type Reading struct {
	Timestamp time.Time

	// Temperature in degrees Celsius.
	Temperature float64
	// Humidity in percent relative humidity.
	Humidity float64
	// Pressure in hectopascals.
	Pressure float64
	// GasResistance in ohms.
	GasResistance float64
	// AirQualityIndex is the derived quality score: 100 at the scorer's
	// baselines, higher for gas resistance above the gas baseline.
	AirQualityIndex float64
}

// String renders the reading as the human-readable console line.
func (r Reading) String() string {
	return fmt.Sprintf("%s: Temp %s°C, Humidity %.2f %%RH, Pressure %.2f hPa, Gas Resistance %s Ohms, Quality Index: %.2f",
		r.Timestamp.Local().Format(consoleTimeLayout),
		strconv.FormatFloat(r.Temperature, 'f', -1, 64),
		r.Humidity,
		r.Pressure,
		strconv.FormatFloat(r.GasResistance, 'f', -1, 64),
		r.AirQualityIndex,
	)
}

// Validate reports whether the reading can be persisted: it needs a
// timestamp and finite measurements.
func (r Reading) Validate() error {
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidReading)
	}
	for name, v := range map[string]float64{
		"temperature": r.Temperature,
		"humidity":    r.Humidity,
		"pressure":    r.Pressure,
		"gas":         r.GasResistance,
		"quality":     r.AirQualityIndex,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidReading, name)
		}
	}
	return nil
}

// RunIdentity tags every reading written during one process lifetime.
type RunIdentity struct {
	RunID    uuid.UUID
	HostName string
}

// NewRunIdentity generates a fresh run ID and captures the host name.
func NewRunIdentity() (RunIdentity, error) {
	host, err := os.Hostname()
	if err != nil {
		return RunIdentity{}, fmt.Errorf("reading host name: %w", err)
	}
	return RunIdentity{RunID: uuid.New(), HostName: host}, nil
}
