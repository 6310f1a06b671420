package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"satellite-telemetry/internal/metrics"
	"satellite-telemetry/internal/models"
	"satellite-telemetry/internal/pagination"
	"satellite-telemetry/internal/repository"

	"go.uber.org/zap"
)

// CreateTelemetryRequest is the create payload. Pointers distinguish a missing field from a zero value.
type CreateTelemetryRequest struct {
	SatelliteID *string  `json:"satelliteId"`
	Timestamp   *string  `json:"timestamp"`
	Altitude    *float64 `json:"altitude"`
	Velocity    *float64 `json:"velocity"`
	Status      *string  `json:"status"`
}

// ListQuery carries raw query-string values; empty strings mean "not supplied".
type ListQuery struct {
	Page        string
	Size        string
	SatelliteID string
	Status      string
}

type TelemetryService interface {
	Create(ctx context.Context, req CreateTelemetryRequest) (*models.Telemetry, error)
	List(ctx context.Context, query ListQuery) (*pagination.Page[models.Telemetry], error)
	Get(ctx context.Context, id uint) (*models.Telemetry, error)
	Delete(ctx context.Context, id uint) error
	Export(ctx context.Context, satelliteID, status string) ([]models.Telemetry, int64, error)
	CountByStatus(ctx context.Context) (map[models.Status]int64, error)
	CheckDBConnection(ctx context.Context) error
}

type Options struct {
	DefaultPageSize int
	MaxPageSize     int
	ExportMaxRows   int
}

type telemetryService struct {
	repo   repository.TelemetryRepository
	opts   Options
	logger *zap.Logger
}

func NewTelemetryService(repo repository.TelemetryRepository, opts Options, logger *zap.Logger) TelemetryService {
	if opts.DefaultPageSize < 1 {
		opts.DefaultPageSize = pagination.DefaultSize
	}
	if opts.MaxPageSize < 1 {
		opts.MaxPageSize = pagination.MaxSize
	}
	if opts.ExportMaxRows < 1 {
		opts.ExportMaxRows = 10000
	}
	return &telemetryService{repo: repo, opts: opts, logger: logger}
}

// Zone-less timestamps are read as UTC. Fractional seconds are accepted by both layouts.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, errors.New("must be an ISO 8601 date-time")
}

func validateSatelliteID(field, id string, verr *ValidationError) {
	if utf8.RuneCountInString(id) > models.MaxSatelliteIDLength {
		verr.add(field, fmt.Sprintf("must be at most %d characters", models.MaxSatelliteIDLength))
	}
}

func validatePositive(field string, v *float64, verr *ValidationError) {
	switch {
	case v == nil:
		verr.add(field, "is required")
	case math.IsNaN(*v) || math.IsInf(*v, 0):
		verr.add(field, "must be a finite number")
	case *v <= 0:
		verr.add(field, "must be greater than 0")
	}
}

// ValidateCreate converts a request into a record or reports every invalid field.
func ValidateCreate(req CreateTelemetryRequest) (*models.Telemetry, error) {
	verr := &ValidationError{}
	record := &models.Telemetry{}

	if req.SatelliteID == nil || strings.TrimSpace(*req.SatelliteID) == "" {
		verr.add("satelliteId", "is required")
	} else {
		validateSatelliteID("satelliteId", *req.SatelliteID, verr)
		record.SatelliteID = *req.SatelliteID
	}

	if req.Timestamp == nil || *req.Timestamp == "" {
		verr.add("timestamp", "is required")
	} else if ts, err := parseTimestamp(*req.Timestamp); err != nil {
		verr.add("timestamp", err.Error())
	} else {
		record.Timestamp = ts
	}

	validatePositive("altitude", req.Altitude, verr)
	if req.Altitude != nil {
		record.Altitude = *req.Altitude
	}
	validatePositive("velocity", req.Velocity, verr)
	if req.Velocity != nil {
		record.Velocity = *req.Velocity
	}

	if req.Status == nil {
		verr.add("status", "is required")
	} else if status, err := models.ParseStatus(*req.Status); err != nil {
		verr.add("status", err.Error())
	} else {
		record.Status = status
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return record, nil
}

func parsePositiveInt(field, raw string, fallback int, verr *ValidationError) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		verr.add(field, "must be an integer")
		return fallback
	}
	if n < 1 {
		verr.add(field, "must be greater than or equal to 1")
		return fallback
	}
	return n
}

func parseFilter(satelliteID, status string, verr *ValidationError) repository.Filter {
	filter := repository.Filter{SatelliteID: satelliteID}
	validateSatelliteID("satelliteId", satelliteID, verr)
	if status != "" {
		s, err := models.ParseStatus(status)
		if err != nil {
			verr.add("status", err.Error())
		}
		filter.Status = s
	}
	return filter
}

// parseListQuery validates paging and filter parameters. Out-of-range values are rejected, not clamped.
func (s *telemetryService) parseListQuery(query ListQuery) (pagination.Params, repository.Filter, error) {
	verr := &ValidationError{}

	params := pagination.Params{
		Page: parsePositiveInt("page", query.Page, pagination.DefaultPage, verr),
		Size: parsePositiveInt("size", query.Size, s.opts.DefaultPageSize, verr),
	}
	if params.Size > s.opts.MaxPageSize {
		verr.add("size", fmt.Sprintf("must be less than or equal to %d", s.opts.MaxPageSize))
	}
	filter := parseFilter(query.SatelliteID, query.Status, verr)

	return params, filter, verr.orNil()
}

// ParseID accepts only positive base-10 integers.
func ParseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 63)
	if err != nil || id == 0 {
		return 0, newValidationError("id", "must be a positive integer")
	}
	return uint(id), nil
}

func (s *telemetryService) rejected(err error) error {
	metrics.TelemetryValidationFailures.Inc()
	return err
}

func (s *telemetryService) Create(ctx context.Context, req CreateTelemetryRequest) (*models.Telemetry, error) {
	record, err := ValidateCreate(req)
	if err != nil {
		return nil, s.rejected(err)
	}

	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, models.ErrInvalidRecord) {
			return nil, s.rejected(newValidationError("record", err.Error()))
		}
		s.logger.Error("Failed to save telemetry record", zap.Error(err))
		return nil, fmt.Errorf("failed to create telemetry: %w", err)
	}

	metrics.TelemetryCreated.WithLabelValues(string(record.Status)).Inc()
	s.logger.Debug("Telemetry record created",
		zap.Uint("id", record.ID),
		zap.String("satellite_id", record.SatelliteID),
		zap.String("status", string(record.Status)),
	)
	return record, nil
}

func (s *telemetryService) List(ctx context.Context, query ListQuery) (*pagination.Page[models.Telemetry], error) {
	params, filter, err := s.parseListQuery(query)
	if err != nil {
		return nil, s.rejected(err)
	}

	items, total, err := s.repo.List(ctx, filter, params.Offset(), params.Size)
	if err != nil {
		s.logger.Error("Failed to list telemetry", zap.Error(err))
		return nil, fmt.Errorf("failed to list telemetry: %w", err)
	}

	page := pagination.NewPage(items, total, params)
	return &page, nil
}

func (s *telemetryService) Get(ctx context.Context, id uint) (*models.Telemetry, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get telemetry", zap.Uint("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get telemetry: %w", err)
	}
	if record == nil {
		return nil, ErrNotFound
	}
	return record, nil
}

func (s *telemetryService) Delete(ctx context.Context, id uint) error {
	removed, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to delete telemetry", zap.Uint("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete telemetry: %w", err)
	}
	if !removed {
		return ErrNotFound
	}
	metrics.TelemetryDeleted.Inc()
	return nil
}

// Export returns up to ExportMaxRows matching records, newest first, plus the full match count.
func (s *telemetryService) Export(ctx context.Context, satelliteID, status string) ([]models.Telemetry, int64, error) {
	verr := &ValidationError{}
	filter := parseFilter(satelliteID, status, verr)
	if err := verr.orNil(); err != nil {
		return nil, 0, s.rejected(err)
	}

	items, total, err := s.repo.List(ctx, filter, 0, s.opts.ExportMaxRows)
	if err != nil {
		s.logger.Error("Failed to export telemetry", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to export telemetry: %w", err)
	}
	return items, total, nil
}

func (s *telemetryService) CountByStatus(ctx context.Context) (map[models.Status]int64, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count telemetry: %w", err)
	}
	return counts, nil
}

func (s *telemetryService) CheckDBConnection(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
