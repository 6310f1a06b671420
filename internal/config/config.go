// Package config reads service settings from the environment (and .env, loaded by main) through Viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type Config struct {
	App struct {
		Port        string
		Debug       bool
		FrontendURL string
	}
	DB struct {
		Driver          string
		Path            string
		Host            string
		Port            string
		User            string
		Password        string
		DBName          string
		SSLMode         string
		MaxOpenConns    int
		MaxIdleConns    int
		ConnMaxLifetime time.Duration
	}
	Redis struct {
		Enabled  bool
		Host     string
		Port     string
		Password string
		DB       int
	}
	RateLimit struct {
		Enabled           bool
		RequestsPerSecond int
		Burst             int
	}
	Pagination struct {
		DefaultSize int
		MaxSize     int
	}
	Export struct {
		MaxRows int
	}
	Workers struct {
		StatsEnabled  bool
		StatsInterval time.Duration
	}
	Log struct {
		Level string
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")

	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DB_PATH", "./telemetry.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "telemetry")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 0)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME", time.Hour)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	v.SetDefault("PAGE_DEFAULT_SIZE", 50)
	v.SetDefault("PAGE_MAX_SIZE", 100)

	v.SetDefault("EXPORT_MAX_ROWS", 10000)

	v.SetDefault("WORKER_STATS_ENABLED", true)
	v.SetDefault("WORKER_STATS_INTERVAL", 30*time.Second)

	v.SetDefault("LOG_LEVEL", "info")
}

// Load builds the config from environment variables, falling back to defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{}

	// App
	cfg.App.Port = v.GetString("PORT")
	cfg.App.Debug = v.GetBool("DEBUG")
	cfg.App.FrontendURL = v.GetString("FRONTEND_URL")

	// DB
	cfg.DB.Driver = v.GetString("DB_DRIVER")
	cfg.DB.Path = v.GetString("DB_PATH")
	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.DBName = v.GetString("DB_NAME")
	cfg.DB.SSLMode = v.GetString("DB_SSLMODE")
	cfg.DB.MaxOpenConns = v.GetInt("DB_MAX_OPEN_CONNS")
	cfg.DB.MaxIdleConns = v.GetInt("DB_MAX_IDLE_CONNS")
	cfg.DB.ConnMaxLifetime = v.GetDuration("DB_CONN_MAX_LIFETIME")

	// Redis
	cfg.Redis.Enabled = v.GetBool("REDIS_ENABLED")
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	// Rate limit
	cfg.RateLimit.Enabled = v.GetBool("RATE_LIMIT_ENABLED")
	cfg.RateLimit.RequestsPerSecond = v.GetInt("RATE_LIMIT_RPS")
	cfg.RateLimit.Burst = v.GetInt("RATE_LIMIT_BURST")

	// Pagination
	cfg.Pagination.DefaultSize = v.GetInt("PAGE_DEFAULT_SIZE")
	cfg.Pagination.MaxSize = v.GetInt("PAGE_MAX_SIZE")

	cfg.Export.MaxRows = v.GetInt("EXPORT_MAX_ROWS")

	// Workers
	cfg.Workers.StatsEnabled = v.GetBool("WORKER_STATS_ENABLED")
	cfg.Workers.StatsInterval = v.GetDuration("WORKER_STATS_INTERVAL")

	cfg.Log.Level = v.GetString("LOG_LEVEL")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.App.Port == "" {
		return errors.New("config: PORT must be set")
	}
	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.Path == "" {
			return errors.New("config: DB_PATH must be set for the sqlite driver")
		}
	case DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q (use %s, %s or %s)", c.DB.Driver, DriverSQLite, DriverPostgres, DriverMySQL)
	}
	if c.Pagination.DefaultSize < 1 || c.Pagination.MaxSize < 1 {
		return errors.New("config: PAGE_DEFAULT_SIZE and PAGE_MAX_SIZE must be positive")
	}
	if c.Pagination.DefaultSize > c.Pagination.MaxSize {
		return errors.New("config: PAGE_DEFAULT_SIZE must not exceed PAGE_MAX_SIZE")
	}
	if c.Export.MaxRows < 1 {
		return errors.New("config: EXPORT_MAX_ROWS must be positive")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond < 1 || c.RateLimit.Burst < 1) {
		return errors.New("config: RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.Workers.StatsEnabled && c.Workers.StatsInterval <= 0 {
		return errors.New("config: WORKER_STATS_INTERVAL must be positive")
	}
	return nil
}
