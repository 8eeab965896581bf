package testutil

import (
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pooltap.app/earnhub/internal/bootstrap"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	pgOnce sync.Once
	pgDB   *gorm.DB
	pgErr  error
)

// PostgresDB returns a shared, migrated postgres handle with a real
// connection pool, for tests that need concurrent transactions. Tests share
// the database, so fixtures must use unique identifiers (see UniqueID).
func PostgresDB(t *testing.T) *gorm.DB {
	t.Helper()

	pgOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			pgErr = errMissingDSN
			return
		}

		pgDB, pgErr = gorm.Open(postgres.Open(dsn), &gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if pgErr != nil {
			return
		}

		sqlDB, err := pgDB.DB()
		if err != nil {
			pgErr = err
			return
		}
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(20)

		// packages run in parallel processes against the same database
		pgErr = pgDB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", 4173).Error; err != nil {
				return err
			}
			return bootstrap.Migrate(tx)
		})
	})

	if errors.Is(pgErr, errMissingDSN) {
		t.Skip("set TEST_POSTGRES_DSN to run concurrency tests against postgres")
	}
	if pgErr != nil {
		t.Fatalf("failed to init postgres test db: %v", pgErr)
	}
	return pgDB
}

// UniqueID returns an identifier that will not collide across test runs.
func UniqueID(prefix string) string {
	return prefix + "-" + uuid.NewString()[:12]
}
