package worker

import (
	"context"
	"database/sql"
	"time"

	"satellite-telemetry/internal/metrics"
	"satellite-telemetry/internal/models"

	"go.uber.org/zap"
)

type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[models.Status]int64, error)
}

// StatsWorker periodically publishes record counts and connection pool usage as gauges.
type StatsWorker struct {
	counter  StatusCounter
	db       *sql.DB
	interval time.Duration
	logger   *zap.Logger
}

func NewStatsWorker(counter StatusCounter, db *sql.DB, interval time.Duration, logger *zap.Logger) *StatsWorker {
	return &StatsWorker{
		counter:  counter,
		db:       db,
		interval: interval,
		logger:   logger,
	}
}

func (w *StatsWorker) Name() string { return "stats" }

func (w *StatsWorker) Run(ctx context.Context) {
	w.collect(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.collect(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *StatsWorker) collect(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	if w.db != nil {
		stats := w.db.Stats()
		metrics.DBOpenConnections.Set(float64(stats.OpenConnections))
		metrics.DBInUseConnections.Set(float64(stats.InUse))
	}

	counts, err := w.counter.CountByStatus(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("Stats worker: failed to count telemetry", zap.Error(err))
		}
		return
	}
	for status, n := range counts {
		metrics.TelemetryRecords.WithLabelValues(string(status)).Set(float64(n))
	}
}
