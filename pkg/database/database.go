package database

import (
	"context"
	"fmt"
	"time"

	"satellite-telemetry/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
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
	Debug           bool
}

// now truncates to microseconds so values survive a round trip through postgres unchanged.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func dialector(config Config) (gorm.Dialector, error) {
	switch config.Driver {
	case "sqlite", "":
		dsn := fmt.Sprintf("file:%s?_busy_timeout=30000&_journal_mode=WAL&_foreign_keys=on", config.Path)
		return sqlite.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode,
		)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			config.User, config.Password, config.Host, config.Port, config.DBName,
		)
		precision := 6
		return mysql.New(mysql.Config{DSN: dsn, DefaultDatetimePrecision: &precision}), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}
}

func Connect(config Config, log *zap.Logger) (*gorm.DB, error) {
	d, err := dialector(config)
	if err != nil {
		return nil, err
	}

	level := logger.Warn
	if config.Debug {
		level = logger.Info
	}

	db, err := gorm.Open(d, &gorm.Config{
		Logger:  logger.Default.LogMode(level),
		NowFunc: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	maxOpen := config.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 100
		// SQLite allows one writer; a single connection turns lock contention into queueing.
		if d.Name() == "sqlite" {
			maxOpen = 1
		}
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Database connected", zap.String("driver", d.Name()), zap.Int("max_open_conns", maxOpen))
	return db, nil
}

// Migrate creates the telemetry table, its constraints and indexes when they are missing.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Telemetry{}); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
