package handlers

import (
	"context"
	"net/http"
	"time"

	"satellite-telemetry/internal/models"
	"satellite-telemetry/internal/service"
	"satellite-telemetry/pkg/redis"

	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type HealthHandler struct {
	service      service.TelemetryService
	redisClient  *goredis.Client
	statsEnabled bool
	logger       *zap.Logger
}

// NewHealthHandler accepts a nil redisClient when Redis is disabled.
func NewHealthHandler(service service.TelemetryService, redisClient *goredis.Client, statsEnabled bool, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		service:      service,
		redisClient:  redisClient,
		statsEnabled: statsEnabled,
		logger:       logger,
	}
}

func (h *HealthHandler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/system/stats", h.Stats)
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  "connected",
	}
	code := http.StatusOK

	if err := h.service.CheckDBConnection(ctx); err != nil {
		h.logger.Warn("Health check: database unreachable", zap.Error(err))
		body["status"] = "degraded"
		body["database"] = "unreachable"
		code = http.StatusServiceUnavailable
	}

	if h.redisClient != nil {
		body["redis"] = "connected"
		if err := h.redisClient.Ping(ctx).Err(); err != nil {
			h.logger.Warn("Health check: redis unreachable", zap.Error(err))
			body["redis"] = "unreachable"
		}
	}

	c.JSON(code, body)
}

func (h *HealthHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	counts, err := h.service.CountByStatus(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	var total int64
	byStatus := make(gin.H, len(counts))
	for _, status := range models.Statuses() {
		byStatus[string(status)] = counts[status]
		total += counts[status]
	}

	body := gin.H{
		"database": gin.H{
			"telemetry_total":     total,
			"telemetry_by_status": byStatus,
		},
		"workers": gin.H{
			"stats_enabled": h.statsEnabled,
		},
	}

	if h.redisClient != nil {
		redisStats, err := redis.GetStats(ctx, h.redisClient)
		if err != nil {
			h.logger.Warn("Failed to read redis stats", zap.Error(err))
			body["redis"] = gin.H{"error": "unavailable"}
		} else {
			body["redis"] = redisStats
		}
	}

	c.JSON(http.StatusOK, body)
}
