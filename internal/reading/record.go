package reading

import (
	"encoding/json"
	"fmt"
	"time"
)

// RecordVersion is the current buffered record format.
const RecordVersion = 1

// record is the on-disk form of a buffered reading.
type record struct {
	Version     int       `json:"v"`
	Timestamp   time.Time `json:"ts"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Pressure    float64   `json:"pressure"`
	Gas         float64   `json:"gas"`
	Quality     float64   `json:"quality"`
}

// EncodeRecord serialises a reading as a single-line versioned JSON record.
// The result never contains a newline.
func EncodeRecord(r Reading) ([]byte, error) {
	data, err := json.Marshal(record{
		Version:     RecordVersion,
		Timestamp:   r.Timestamp.UTC(),
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Pressure:    r.Pressure,
		Gas:         r.GasResistance,
		Quality:     r.AirQualityIndex,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReading, err)
	}
	return data, nil
}

// DecodeRecord parses a record produced by EncodeRecord.
func DecodeRecord(data []byte) (Reading, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	if rec.Version != RecordVersion {
		return Reading{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, rec.Version)
	}

	r := Reading{
		Timestamp:       rec.Timestamp,
		Temperature:     rec.Temperature,
		Humidity:        rec.Humidity,
		Pressure:        rec.Pressure,
		GasResistance:   rec.Gas,
		AirQualityIndex: rec.Quality,
	}
	if err := r.Validate(); err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	return r, nil
}
