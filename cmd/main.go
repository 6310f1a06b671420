package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"satellite-telemetry/internal/config"
	"satellite-telemetry/internal/handlers"
	"satellite-telemetry/internal/logger"
	"satellite-telemetry/internal/repository"
	"satellite-telemetry/internal/service"
	"satellite-telemetry/internal/worker"
	"satellite-telemetry/pkg/database"
	"satellite-telemetry/pkg/redis"

	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	zlog, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatal("Failed to init logger: ", err)
	}
	defer zlog.Sync()

	zlog.Info("=== Satellite Telemetry Service Starting ===")

	db, err := database.Connect(database.Config{
		Driver:          cfg.DB.Driver,
		Path:            cfg.DB.Path,
		Host:            cfg.DB.Host,
		Port:            cfg.DB.Port,
		User:            cfg.DB.User,
		Password:        cfg.DB.Password,
		DBName:          cfg.DB.DBName,
		SSLMode:         cfg.DB.SSLMode,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		Debug:           cfg.App.Debug,
	}, zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db); err != nil {
			zlog.Warn("Failed to close database", zap.Error(err))
		}
	}()

	if err := database.Migrate(db); err != nil {
		zlog.Fatal("Failed to migrate database", zap.Error(err))
	}

	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.Connect(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, zlog)
		if err != nil {
			zlog.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	telemetryRepo := repository.NewTelemetryRepository(db)
	telemetryService := service.NewTelemetryService(telemetryRepo, service.Options{
		DefaultPageSize: cfg.Pagination.DefaultSize,
		MaxPageSize:     cfg.Pagination.MaxSize,
		ExportMaxRows:   cfg.Export.MaxRows,
	}, zlog)

	scheduler := worker.NewScheduler(zlog)
	if cfg.Workers.StatsEnabled {
		sqlDB, err := db.DB()
		if err != nil {
			zlog.Fatal("Failed to get database handle", zap.Error(err))
		}
		scheduler.AddWorker(worker.NewStatsWorker(telemetryService, sqlDB, cfg.Workers.StatsInterval, zlog))
		zlog.Info("Stats worker enabled", zap.Duration("interval", cfg.Workers.StatsInterval))
	}
	scheduler.Start(context.Background())
	defer func() {
		if err := scheduler.Stop(); err != nil {
			zlog.Warn("Scheduler shutdown", zap.Error(err))
		}
	}()

	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
		zlog.Info("Running in DEBUG mode")
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Config:      cfg,
		Service:     telemetryService,
		RedisClient: redisClient,
		Logger:      zlog,
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		zlog.Info("Server starting",
			zap.String("addr", server.Addr),
			zap.String("db_driver", cfg.DB.Driver),
			zap.Bool("redis", redisClient != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-quit
	zlog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
	}

	zlog.Info("Server exited properly")
}
