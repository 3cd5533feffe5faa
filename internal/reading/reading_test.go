package reading_test

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/aq-logger/internal/reading"
)

func sample() reading.Reading {
	return reading.Reading{
		Timestamp:       time.Date(2024, 5, 1, 10, 0, 0, 123_000_000, time.UTC),
		Temperature:     21.4,
		Humidity:        45.127,
		Pressure:        1012.3,
		GasResistance:   120000,
		AirQualityIndex: 87.456,
	}
}

func TestReading_String(t *testing.T) {
	r := sample()
	want := r.Timestamp.Local().Format("02/01/2006 15:04:05.000") +
		": Temp 21.4°C, Humidity 45.13 %RH, Pressure 1012.30 hPa, Gas Resistance 120000 Ohms, Quality Index: 87.46"

	if got := r.String(); got != want {
		t.Errorf("String() =\n%q\nwant\n%q", got, want)
	}
}

func TestReading_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*reading.Reading)
		wantErr bool
	}{
		{name: "valid", mutate: func(*reading.Reading) {}},
		{name: "zero timestamp", mutate: func(r *reading.Reading) { r.Timestamp = time.Time{} }, wantErr: true},
		{name: "nan temperature", mutate: func(r *reading.Reading) { r.Temperature = math.NaN() }, wantErr: true},
		{name: "inf gas", mutate: func(r *reading.Reading) { r.GasResistance = math.Inf(1) }, wantErr: true},
		{name: "negative values allowed", mutate: func(r *reading.Reading) { r.Temperature = -12.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sample()
			tt.mutate(&r)
			err := r.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, reading.ErrInvalidReading) {
				t.Errorf("Validate() error = %v, want ErrInvalidReading", err)
			}
		})
	}
}

func TestRecord_RoundTripPreservesReading(t *testing.T) {
	in := sample()
	data, err := reading.EncodeRecord(in)
	if err != nil {
		t.Fatalf("EncodeRecord() error = %v", err)
	}
	if strings.Contains(string(data), "\n") {
		t.Fatalf("encoded record contains newline: %q", data)
	}
	if !strings.HasPrefix(string(data), `{"v":1,`) {
		t.Errorf("encoded record = %q, want version prefix", data)
	}

	out, err := reading.DecodeRecord(data)
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	if !out.Timestamp.Equal(in.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", out.Timestamp, in.Timestamp)
	}
	in.Timestamp = out.Timestamp
	if out != in {
		t.Errorf("DecodeRecord() = %+v, want %+v", out, in)
	}
}

func TestDecodeRecord_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "future version", data: `{"v":2,"ts":"2024-05-01T10:00:00Z"}`, wantErr: reading.ErrUnsupportedVersion},
		{name: "missing version", data: `{"ts":"2024-05-01T10:00:00Z"}`, wantErr: reading.ErrUnsupportedVersion},
		{name: "torn line", data: `{"v":1,"ts":"2024-05-01T1`, wantErr: reading.ErrMalformedRecord},
		{name: "missing timestamp", data: `{"v":1,"temperature":20}`, wantErr: reading.ErrMalformedRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reading.DecodeRecord([]byte(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodeRecord() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeRecord_RejectsNonFinite(t *testing.T) {
	r := sample()
	r.Pressure = math.NaN()
	if _, err := reading.EncodeRecord(r); !errors.Is(err, reading.ErrInvalidReading) {
		t.Errorf("EncodeRecord() error = %v, want ErrInvalidReading", err)
	}
}

func TestNewRunIdentity(t *testing.T) {
	a, err := reading.NewRunIdentity()
	if err != nil {
		t.Fatalf("NewRunIdentity() error = %v", err)
	}
	b, err := reading.NewRunIdentity()
	if err != nil {
		t.Fatalf("NewRunIdentity() error = %v", err)
	}

	if a.RunID == uuid.Nil {
		t.Error("RunID is nil")
	}
	if a.RunID == b.RunID {
		t.Error("two identities share a run ID")
	}
	if a.HostName == "" || a.HostName != b.HostName {
		t.Errorf("HostName = %q / %q, want equal non-empty", a.HostName, b.HostName)
	}
}
