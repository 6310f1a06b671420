package models

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() Telemetry {
	return Telemetry{
		SatelliteID: "sat-1",
		Timestamp:   time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC),
		Altitude:    550,
		Velocity:    7.6,
		Status:      StatusHealthy,
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("critical")
	require.NoError(t, err)
	assert.Equal(t, StatusCritical, s)

	for _, raw := range []string{"", "unknown", "Healthy", "CRITICAL"} {
		_, err := ParseStatus(raw)
		assert.Error(t, err, raw)
	}
}

func TestTelemetryValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Telemetry)
		ok     bool
	}{
		{"valid", func(*Telemetry) {}, true},
		{"max length id", func(r *Telemetry) { r.SatelliteID = strings.Repeat("S", 64) }, true},
		{"multibyte id at limit", func(r *Telemetry) { r.SatelliteID = strings.Repeat("é", 64) }, true},
		{"empty id", func(r *Telemetry) { r.SatelliteID = "" }, false},
		{"long id", func(r *Telemetry) { r.SatelliteID = strings.Repeat("S", 65) }, false},
		{"bad status", func(r *Telemetry) { r.Status = "unknown" }, false},
		{"zero timestamp", func(r *Telemetry) { r.Timestamp = time.Time{} }, false},
		{"negative altitude", func(r *Telemetry) { r.Altitude = -1 }, false},
		{"nan velocity", func(r *Telemetry) { r.Velocity = math.NaN() }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(&r)
			err := r.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidRecord))
		})
	}
}
