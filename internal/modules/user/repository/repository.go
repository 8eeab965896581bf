package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pooltap.app/earnhub/internal/entity"
	"pooltap.app/earnhub/pkg/apperror"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByIdentifier(ctx context.Context, identifier string) (*entity.User, error)
	Update(ctx context.Context, identifier string, fields map[string]interface{}) error
	Delete(ctx context.Context, identifier string) error
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.User{}).Count(&count).Error; err != nil {
		return 0, apperror.FromStorage(err)
	}
	return count, nil
}

// Create returns gorm.ErrDuplicatedKey untouched so callers can tell a
// referral code collision from a concurrent registration.
func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	return apperror.FromStorage(err)
}

func (r *userRepository) FindByIdentifier(ctx context.Context, identifier string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Where("identifier = ?", identifier).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s not found: %w", identifier, apperror.ErrNotFound)
	}
	if err != nil {
		return nil, apperror.FromStorage(err)
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, identifier string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("identifier = ?", identifier).
		Updates(fields)
	if res.Error != nil {
		return apperror.FromStorage(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s not found: %w", identifier, apperror.ErrNotFound)
	}
	return nil
}

// Delete removes the user together with its history, completions and
// referral edges. Users it referred keep their accounts but lose the
// dangling referrer.
func (r *userRepository) Delete(ctx context.Context, identifier string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("identifier = ?", identifier).Delete(&entity.User{})
		if res.Error != nil {
			return apperror.FromStorage(res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %s not found: %w", identifier, apperror.ErrNotFound)
		}

		if err := tx.Where("user_identifier = ?", identifier).Delete(&entity.ScoreEvent{}).Error; err != nil {
			return apperror.FromStorage(err)
		}
		if err := tx.Where("user_identifier = ?", identifier).Delete(&entity.TaskCompletion{}).Error; err != nil {
			return apperror.FromStorage(err)
		}
		err := tx.Model(&entity.User{}).
			Where("referrer = ?", identifier).
			Update("referrer", nil).Error
		if err != nil {
			return apperror.FromStorage(err)
		}
		err = tx.Where("referral_identifier = ? OR referrer_identifier = ?", identifier, identifier).
			Delete(&entity.ReferralEdge{}).Error
		return apperror.FromStorage(err)
	})
}
