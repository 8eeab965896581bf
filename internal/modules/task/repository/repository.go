package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pooltap.app/earnhub/internal/entity"
	"pooltap.app/earnhub/pkg/apperror"
)

type TaskRepository interface {
	Create(ctx context.Context, task *entity.Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Task, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	FindAll(ctx context.Context) ([]*entity.Task, error)
	FindActive(ctx context.Context, now time.Time) ([]*entity.Task, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *entity.Task) error {
	err := r.db.WithContext(ctx).Create(task).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("task %s already exists: %w", task.Slug, apperror.ErrConflict)
	}
	return apperror.FromStorage(err)
}

func (r *taskRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	var task entity.Task
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("task not found: %w", apperror.ErrNotFound)
	}
	if err != nil {
		return nil, apperror.FromStorage(err)
	}
	return &task, nil
}

func (r *taskRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Task{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, apperror.FromStorage(err)
}

func (r *taskRepository) FindAll(ctx context.Context) ([]*entity.Task, error) {
	var tasks []*entity.Task
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&tasks).Error
	return tasks, apperror.FromStorage(err)
}

func (r *taskRepository) FindActive(ctx context.Context, now time.Time) ([]*entity.Task, error) {
	var tasks []*entity.Task
	err := r.db.WithContext(ctx).
		Where("expiry_date IS NULL OR expiry_date >= ?", now).
		Order("created_at DESC").
		Find(&tasks).Error
	return tasks, apperror.FromStorage(err)
}

func (r *taskRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&entity.Task{}).Where("id = ?", id).Updates(fields)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("task slug already in use: %w", apperror.ErrConflict)
	}
	if res.Error != nil {
		return apperror.FromStorage(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task not found: %w", apperror.ErrNotFound)
	}
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&entity.Task{}, "id = ?", id)
	if res.Error != nil {
		return apperror.FromStorage(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task not found: %w", apperror.ErrNotFound)
	}
	return nil
}
