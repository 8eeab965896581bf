package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/microcosm-cc/bluemonday"

	"pooltap.app/earnhub/internal/entity"
	taskDto "pooltap.app/earnhub/internal/modules/task/dto"
	taskRepo "pooltap.app/earnhub/internal/modules/task/repository"
	"pooltap.app/earnhub/pkg/apperror"
	"pooltap.app/earnhub/pkg/logger"
)

const maxSlugSuffix = 20

type TaskService interface {
	Create(ctx context.Context, req taskDto.CreateTaskRequest) (*taskDto.TaskResponse, error)
	Update(ctx context.Context, id uuid.UUID, req taskDto.UpdateTaskRequest) (*taskDto.TaskResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*taskDto.TaskResponse, error)
	List(ctx context.Context) ([]taskDto.TaskResponse, error)
	ListActive(ctx context.Context) ([]taskDto.TaskResponse, error)
	// FindActive returns the task entity when it can still be started.
	FindActive(ctx context.Context, id uuid.UUID) (*entity.Task, error)
}

type taskService struct {
	repo      taskRepo.TaskRepository
	sanitizer *bluemonday.Policy
	log       *logger.Logger
	now       func() time.Time
}

func NewTaskService(repo taskRepo.TaskRepository, log *logger.Logger) TaskService {
	return &taskService{
		repo:      repo,
		sanitizer: bluemonday.UGCPolicy(),
		log:       log.With("component", "task"),
		now:       time.Now,
	}
}

func (s *taskService) Create(ctx context.Context, req taskDto.CreateTaskRequest) (*taskDto.TaskResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("task name is required: %w", apperror.ErrValidation)
	}
	if req.Points <= 0 {
		return nil, fmt.Errorf("points must be positive: %w", apperror.ErrValidation)
	}

	taskSlug, err := s.uniqueSlug(ctx, name)
	if err != nil {
		return nil, err
	}

	requiresEvidence := true
	if req.RequiresEvidence != nil {
		requiresEvidence = *req.RequiresEvidence
	}

	task := &entity.Task{
		Name:             name,
		Slug:             taskSlug,
		Description:      s.sanitizer.Sanitize(req.Description),
		Link:             strings.TrimSpace(req.Link),
		Icon:             strings.TrimSpace(req.Icon),
		Points:           req.Points,
		ExpiryDate:       utc(req.ExpiryDate),
		RequiresEvidence: requiresEvidence,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.log.Info("task created", "task_id", task.ID, "slug", task.Slug, "points", task.Points)
	resp := taskDto.NewTaskResponse(task, s.now())
	return &resp, nil
}

func (s *taskService) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "task"
	}

	candidate := base
	for i := 2; i <= maxSlugSuffix; i++ {
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("task %q already exists: %w", name, apperror.ErrConflict)
}

func (s *taskService) Update(ctx context.Context, id uuid.UUID, req taskDto.UpdateTaskRequest) (*taskDto.TaskResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("task name must not be blank: %w", apperror.ErrValidation)
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = s.sanitizer.Sanitize(*req.Description)
	}
	if req.Link != nil {
		fields["link"] = strings.TrimSpace(*req.Link)
	}
	if req.Icon != nil {
		fields["icon"] = strings.TrimSpace(*req.Icon)
	}
	if req.Points != nil {
		if *req.Points <= 0 {
			return nil, fmt.Errorf("points must be positive: %w", apperror.ErrValidation)
		}
		fields["points"] = *req.Points
	}
	if req.ClearExpiry {
		fields["expiry_date"] = nil
	} else if req.ExpiryDate != nil {
		fields["expiry_date"] = *utc(req.ExpiryDate)
	}
	if req.RequiresEvidence != nil {
		fields["requires_evidence"] = *req.RequiresEvidence
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			return nil, err
		}
		s.log.Info("task updated", "task_id", id)
	}
	return s.Get(ctx, id)
}

func (s *taskService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("task deleted", "task_id", id)
	return nil
}

func (s *taskService) Get(ctx context.Context, id uuid.UUID) (*taskDto.TaskResponse, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := taskDto.NewTaskResponse(task, s.now())
	return &resp, nil
}

func (s *taskService) List(ctx context.Context) ([]taskDto.TaskResponse, error) {
	tasks, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.toResponses(tasks), nil
}

func (s *taskService) ListActive(ctx context.Context) ([]taskDto.TaskResponse, error) {
	tasks, err := s.repo.FindActive(ctx, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return s.toResponses(tasks), nil
}

func (s *taskService) FindActive(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.ActiveAt(s.now()) {
		return nil, fmt.Errorf("task has expired: %w", apperror.ErrNotFound)
	}
	return task, nil
}

func (s *taskService) toResponses(tasks []*entity.Task) []taskDto.TaskResponse {
	now := s.now()
	out := make([]taskDto.TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskDto.NewTaskResponse(t, now))
	}
	return out
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
