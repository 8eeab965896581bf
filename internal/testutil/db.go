package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pooltap.app/earnhub/internal/bootstrap"
	"pooltap.app/earnhub/internal/entity"
)

// DB returns a migrated in-memory sqlite database private to the test.
// Only one connection is opened, so code under test must not query the root
// handle while it holds a transaction.
func DB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := bootstrap.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a player with a zero score in the current window.
func CreateUser(t *testing.T, db *gorm.DB, identifier, username string) *entity.User {
	t.Helper()
	return CreateUserWithScore(t, db, identifier, username, 0)
}

func CreateUserWithScore(t *testing.T, db *gorm.DB, identifier, username string, score int64) *entity.User {
	t.Helper()
	code, err := entity.NewReferralCode()
	if err != nil {
		t.Fatalf("referral code: %v", err)
	}
	user := &entity.User{
		Identifier:   identifier,
		Username:     username,
		Score:        score,
		WeeklyScore:  score,
		ReferralCode: code,
		WeekStart:    entity.WeekWindowStart(time.Now()),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", identifier, err)
	}
	return user
}

// CreateTask inserts an active task worth points.
func CreateTask(t *testing.T, db *gorm.DB, name string, points int64, requiresEvidence bool) *entity.Task {
	t.Helper()
	task := &entity.Task{
		Name:             name,
		Slug:             fmt.Sprintf("%s-%s", name, uuid.NewString()[:8]),
		Link:             "https://t.me/pooltap",
		Points:           points,
		RequiresEvidence: requiresEvidence,
	}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("create task %s: %v", name, err)
	}
	return task
}
