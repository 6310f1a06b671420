package handlers

import (
	"time"

	"satellite-telemetry/internal/cache"
	"satellite-telemetry/internal/config"
	"satellite-telemetry/internal/middleware"
	"satellite-telemetry/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type RouterDeps struct {
	Config      *config.Config
	Service     service.TelemetryService
	RedisClient *goredis.Client
	Logger      *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Metrics(),
		middleware.Recovery(log),
	)

	origins := []string{"http://localhost:3000"}
	if cfg.App.FrontendURL != "" && cfg.App.FrontendURL != origins[0] {
		origins = append(origins, cfg.App.FrontendURL)
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Location", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.RateLimit.Enabled {
		if deps.RedisClient != nil {
			store := cache.NewRedisCounterStore(deps.RedisClient, "ratelimit:")
			r.Use(middleware.RedisRateLimitMiddleware(store, int64(cfg.RateLimit.RequestsPerSecond), time.Second, log))
			log.Info("Rate limiting enabled (redis)", zap.Int("requests_per_second", cfg.RateLimit.RequestsPerSecond))
		} else {
			limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
			r.Use(middleware.IPRateLimitMiddleware(limiter, log))
			log.Info("Rate limiting enabled (in-process)",
				zap.Int("requests_per_second", cfg.RateLimit.RequestsPerSecond),
				zap.Int("burst", cfg.RateLimit.Burst),
			)
		}
	}

	NewTelemetryHandler(deps.Service, log).Register(r)
	NewHealthHandler(deps.Service, deps.RedisClient, cfg.Workers.StatsEnabled, log).Register(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
