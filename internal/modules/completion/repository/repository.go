package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pooltap.app/earnhub/internal/entity"
	"pooltap.app/earnhub/pkg/apperror"
)

type CompletionRepository interface {
	WithTx(tx *gorm.DB) CompletionRepository
	UserExists(ctx context.Context, identifier string) (bool, error)
	Create(ctx context.Context, completion *entity.TaskCompletion) error
	Find(ctx context.Context, identifier string, taskID uuid.UUID) (*entity.TaskCompletion, error)
	// FindForUpdate locks the row until the surrounding transaction ends.
	FindForUpdate(ctx context.Context, identifier string, taskID uuid.UUID) (*entity.TaskCompletion, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.TaskCompletion, error)
	// Transition applies fields only while the row is still in from. It
	// returns false when another writer moved it first.
	Transition(ctx context.Context, id uuid.UUID, from entity.CompletionStatus, fields map[string]interface{}) (bool, error)
	ListByUser(ctx context.Context, identifier string) ([]*entity.TaskCompletion, error)
	ListByStatus(ctx context.Context, status entity.CompletionStatus, limit, offset int) ([]*entity.TaskCompletion, int64, error)
}

type completionRepository struct {
	db *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) CompletionRepository {
	return &completionRepository{db: db}
}

func (r *completionRepository) WithTx(tx *gorm.DB) CompletionRepository {
	return &completionRepository{db: tx}
}

func (r *completionRepository) UserExists(ctx context.Context, identifier string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).Where("identifier = ?", identifier).Count(&count).Error
	return count > 0, apperror.FromStorage(err)
}

func (r *completionRepository) Create(ctx context.Context, completion *entity.TaskCompletion) error {
	err := r.db.WithContext(ctx).Create(completion).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("task already started: %w", apperror.ErrConflict)
	}
	return apperror.FromStorage(err)
}

func (r *completionRepository) Find(ctx context.Context, identifier string, taskID uuid.UUID) (*entity.TaskCompletion, error) {
	return r.first(r.db.WithContext(ctx).Where("user_identifier = ? AND task_id = ?", identifier, taskID))
}

func (r *completionRepository) FindForUpdate(ctx context.Context, identifier string, taskID uuid.UUID) (*entity.TaskCompletion, error) {
	return r.first(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_identifier = ? AND task_id = ?", identifier, taskID))
}

func (r *completionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.TaskCompletion, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *completionRepository) first(q *gorm.DB) (*entity.TaskCompletion, error) {
	var completion entity.TaskCompletion
	err := q.First(&completion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("completion not found: %w", apperror.ErrNotFound)
	}
	if err != nil {
		return nil, apperror.FromStorage(err)
	}
	return &completion, nil
}

func (r *completionRepository) Transition(ctx context.Context, id uuid.UUID, from entity.CompletionStatus, fields map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.TaskCompletion{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return false, apperror.FromStorage(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *completionRepository) ListByUser(ctx context.Context, identifier string) ([]*entity.TaskCompletion, error) {
	var list []*entity.TaskCompletion
	err := r.db.WithContext(ctx).
		Where("user_identifier = ?", identifier).
		Order("started_at DESC").
		Find(&list).Error
	return list, apperror.FromStorage(err)
}

func (r *completionRepository) ListByStatus(ctx context.Context, status entity.CompletionStatus, limit, offset int) ([]*entity.TaskCompletion, int64, error) {
	var (
		list  []*entity.TaskCompletion
		total int64
	)

	query := r.db.WithContext(ctx).Model(&entity.TaskCompletion{}).Where("status = ?", status).Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperror.FromStorage(err)
	}

	err := query.
		Order("submitted_at ASC").
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	if err != nil {
		return nil, 0, apperror.FromStorage(err)
	}
	return list, total, nil
}
