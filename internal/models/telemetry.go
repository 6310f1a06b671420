package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
)

// MaxSatelliteIDLength is the column width of satellite_id, counted in characters.
const MaxSatelliteIDLength = 64

// ErrInvalidRecord is returned by the save hooks when a row would violate the table constraints.
var ErrInvalidRecord = errors.New("invalid telemetry record")

// Status is the health status reported with a telemetry sample.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusCritical Status = "critical"
)

// Statuses returns every accepted status in a stable order.
func Statuses() []Status {
	return []Status{StatusHealthy, StatusCritical}
}

func (s Status) Valid() bool {
	return s == StatusHealthy || s == StatusCritical
}

// ParseStatus accepts only the exact lower-case enum values.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("status must be one of %s", strings.Join(statusNames(), ", "))
	}
	return s, nil
}

func statusNames() []string {
	names := make([]string, 0, 2)
	for _, s := range Statuses() {
		names = append(names, string(s))
	}
	return names
}

// Telemetry is a single satellite observation.
type Telemetry struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SatelliteID string    `gorm:"column:satellite_id;type:varchar(64);not null;index:idx_telemetry_satellite_id;check:chk_telemetry_satellite_id_length,length(satellite_id) <= 64" json:"satelliteId"`
	Timestamp   time.Time `gorm:"column:timestamp;not null" json:"timestamp"`
	Altitude    float64   `gorm:"column:altitude;not null;check:chk_telemetry_altitude,altitude >= 0" json:"altitude"`
	Velocity    float64   `gorm:"column:velocity;not null;check:chk_telemetry_velocity,velocity >= 0" json:"velocity"`
	Status      Status    `gorm:"column:status;type:varchar(16);not null;index:idx_telemetry_status;check:chk_telemetry_status,status IN ('healthy','critical')" json:"status"`
	Created     time.Time `gorm:"column:created;not null" json:"created"`
	Updated     time.Time `gorm:"column:updated;not null;autoUpdateTime" json:"updated"`
}

func (Telemetry) TableName() string {
	return "telemetry"
}

// Validate checks the same constraints the table enforces.
func (t *Telemetry) Validate() error {
	if t.SatelliteID == "" {
		return fmt.Errorf("%w: satellite id is empty", ErrInvalidRecord)
	}
	if utf8.RuneCountInString(t.SatelliteID) > MaxSatelliteIDLength {
		return fmt.Errorf("%w: satellite id exceeds %d characters", ErrInvalidRecord, MaxSatelliteIDLength)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, t.Status)
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is not set", ErrInvalidRecord)
	}
	if !isNonNegative(t.Altitude) || !isNonNegative(t.Velocity) {
		return fmt.Errorf("%w: altitude and velocity must be finite and non-negative", ErrInvalidRecord)
	}
	return nil
}

func isNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func (t *Telemetry) BeforeSave(tx *gorm.DB) error {
	return t.Validate()
}

// BeforeCreate stamps created and updated with the same instant.
func (t *Telemetry) BeforeCreate(tx *gorm.DB) error {
	if t.Created.IsZero() {
		t.Created = tx.Statement.DB.NowFunc()
	}
	t.Updated = t.Created
	return nil
}
