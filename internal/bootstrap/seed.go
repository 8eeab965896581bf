package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"pooltap.app/earnhub/internal/entity"
	"pooltap.app/earnhub/pkg/logger"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.ScoreEvent{},
		&entity.ReferralEdge{},
		&entity.Task{},
		&entity.TaskCompletion{},
	)
}

// SeedAdmin makes sure identifier exists and carries the admin role. A
// non-empty password becomes the admin login password; an empty one leaves
// any stored password alone.
func SeedAdmin(db *gorm.DB, identifier, password string, log *logger.Logger) error {
	if identifier == "" {
		return nil
	}

	fields := map[string]interface{}{"role": entity.RoleAdmin}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		fields["password_hash"] = string(hash)
	} else {
		log.Warn("ADMIN_PASSWORD not set, admin login stays disabled unless a password is stored", "identifier", identifier)
	}

	var user entity.User
	err := db.Where("identifier = ?", identifier).First(&user).Error
	switch {
	case err == nil:
		if err := db.Model(&user).Updates(fields).Error; err != nil {
			return err
		}
		log.Info("admin user ensured", "identifier", identifier)
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	code, err := entity.NewReferralCode()
	if err != nil {
		return fmt.Errorf("generate referral code: %w", err)
	}

	admin := entity.User{
		Identifier:   identifier,
		Username:     "admin",
		Role:         entity.RoleAdmin,
		ReferralCode: code,
		WeekStart:    entity.WeekWindowStart(time.Now()),
	}
	if hash, ok := fields["password_hash"].(string); ok {
		admin.PasswordHash = hash
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Info("admin user seeded", "identifier", identifier)
	return nil
}
