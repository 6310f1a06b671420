package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})

	// Telemetry
	TelemetryCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_records_created_total",
		Help: "Telemetry records persisted, by status",
	}, []string{"status"})

	TelemetryDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_records_deleted_total",
		Help: "Telemetry records removed",
	})

	TelemetryValidationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_validation_failures_total",
		Help: "Requests rejected before reaching the store",
	})

	TelemetryRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "telemetry_records",
		Help: "Stored telemetry records, by status, as of the last stats sample",
	}, []string{"status"})

	// DB
	DBOpenConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Number of open database connections",
	})

	DBInUseConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "db_in_use_connections",
		Help: "Number of database connections currently in use",
	})
)
