package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"pooltap.app/earnhub/internal/entity"
	"pooltap.app/earnhub/pkg/apperror"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type StatRepository interface {
	CountUsers(ctx context.Context) (int64, error)
	SumScores(ctx context.Context) (int64, error)
	TopByScore(ctx context.Context, limit int) ([]*entity.User, error)
	PageUsers(ctx context.Context, limit, offset int) ([]*entity.User, error)
	// SearchByUsername matches a case-insensitive substring, best scores first.
	SearchByUsername(ctx context.Context, q string, limit int) ([]*entity.User, error)
}

type statRepository struct {
	db *gorm.DB
}

func NewStatRepository(db *gorm.DB) StatRepository {
	return &statRepository{db: db}
}

func (r *statRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).Count(&count).Error
	return count, apperror.FromStorage(err)
}

func (r *statRepository) SumScores(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).Select("COALESCE(SUM(score), 0)").Scan(&total).Error
	return total, apperror.FromStorage(err)
}

func (r *statRepository) TopByScore(ctx context.Context, limit int) ([]*entity.User, error) {
	var users []*entity.User
	err := r.db.WithContext(ctx).
		Order("score DESC").
		Order("identifier ASC").
		Limit(limit).
		Find(&users).Error
	return users, apperror.FromStorage(err)
}

func (r *statRepository) PageUsers(ctx context.Context, limit, offset int) ([]*entity.User, error) {
	var users []*entity.User
	err := r.db.WithContext(ctx).
		Order("score DESC").
		Order("identifier ASC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	return users, apperror.FromStorage(err)
}

func (r *statRepository) SearchByUsername(ctx context.Context, q string, limit int) ([]*entity.User, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"

	var users []*entity.User
	err := r.db.WithContext(ctx).
		Where(`LOWER(username) LIKE ? ESCAPE '\'`, pattern).
		Order("score DESC").
		Order("identifier ASC").
		Limit(limit).
		Find(&users).Error
	return users, apperror.FromStorage(err)
}
