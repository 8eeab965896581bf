package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pooltap.app/earnhub/internal/config"
	"pooltap.app/earnhub/pkg/logger"
)

// Connect opens the postgres pool, retrying with exponential backoff until
// cfg.DBConnectTimeout elapses.
func Connect(ctx context.Context, cfg *config.Config, log *logger.Logger) (*gorm.DB, error) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.DBHost, cfg.DBUser, cfg.DBPass, cfg.DBName, cfg.DBPort,
		)
	}

	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}

	attempt := 0
	open := func() (*gorm.DB, error) {
		attempt++
		db, err := gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, err
		}
		if err := Ping(ctx, db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := backoff.Retry(ctx, open,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(cfg.DBConnectTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("database not ready, retrying", "attempt", attempt, "retry_in", next.String(), "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after %d attempts: %w", attempt, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxOpenConns / 2)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Info("database connected", "host", cfg.DBHost, "attempts", attempt)
	return db, nil
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(pingCtx)
}
