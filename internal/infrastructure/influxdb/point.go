package influxdb

import (
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/aq-logger/internal/reading"
)

// Measurement is the name every reading is written under.
const Measurement = "air_quality"

// Tag and field keys of a reading point.
const (
	TagRunID    = "run_id"
	TagHostName = "host_name"

	FieldTemperature = "temperature"
	FieldHumidity    = "humidity"
	FieldPressure    = "pressure"
	FieldGas         = "gas"
	FieldQuality     = "quality"
)

// NewReadingPoint builds the point for one reading, tagged with the run
// identity and stamped with the reading's capture time.
func NewReadingPoint(r reading.Reading, id reading.RunIdentity) *write.Point {
	return write.NewPoint(
		Measurement,
		map[string]string{
			TagRunID:    id.RunID.String(),
			TagHostName: id.HostName,
		},
		map[string]interface{}{
			FieldTemperature: r.Temperature,
			FieldHumidity:    r.Humidity,
			FieldPressure:    r.Pressure,
			FieldGas:         r.GasResistance,
			FieldQuality:     r.AirQualityIndex,
		},
		r.Timestamp,
	)
}
