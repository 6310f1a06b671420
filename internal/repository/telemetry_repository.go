package repository

import (
	"context"
	"errors"

	"satellite-telemetry/internal/models"

	"gorm.io/gorm"
)

// Filter restricts a listing; zero-valued fields match everything.
type Filter struct {
	SatelliteID string
	Status      models.Status
}

type TelemetryRepository interface {
	Create(ctx context.Context, telemetry *models.Telemetry) error
	// GetByID returns nil without an error when the id does not exist.
	GetByID(ctx context.Context, id uint) (*models.Telemetry, error)
	List(ctx context.Context, filter Filter, offset, limit int) ([]models.Telemetry, int64, error)
	// DeleteByID reports whether a row was removed.
	DeleteByID(ctx context.Context, id uint) (bool, error)
	CountByStatus(ctx context.Context) (map[models.Status]int64, error)
	Ping(ctx context.Context) error
}

type telemetryRepository struct {
	db *gorm.DB
}

func NewTelemetryRepository(db *gorm.DB) TelemetryRepository {
	return &telemetryRepository{db: db}
}

func (r *telemetryRepository) Create(ctx context.Context, telemetry *models.Telemetry) error {
	telemetry.ID = 0
	return r.db.WithContext(ctx).Create(telemetry).Error
}

func (r *telemetryRepository) GetByID(ctx context.Context, id uint) (*models.Telemetry, error) {
	var telemetry models.Telemetry
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&telemetry).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &telemetry, nil
}

func (r *telemetryRepository) filtered(ctx context.Context, filter Filter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Telemetry{})
	if filter.SatelliteID != "" {
		q = q.Where("satellite_id = ?", filter.SatelliteID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	return q
}

func (r *telemetryRepository) List(ctx context.Context, filter Filter, offset, limit int) ([]models.Telemetry, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	telemetries := []models.Telemetry{}
	if total == 0 || int64(offset) >= total || limit < 1 {
		return telemetries, total, nil
	}

	err := r.filtered(ctx, filter).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&telemetries).
		Error
	if err != nil {
		return nil, 0, err
	}
	return telemetries, total, nil
}

func (r *telemetryRepository) DeleteByID(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Telemetry{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *telemetryRepository) CountByStatus(ctx context.Context) (map[models.Status]int64, error) {
	var rows []struct {
		Status models.Status
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Telemetry{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.Status]int64, len(models.Statuses()))
	for _, s := range models.Statuses() {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *telemetryRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
