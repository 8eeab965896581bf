package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pooltap.app/earnhub/internal/entity"
	completionDto "pooltap.app/earnhub/internal/modules/completion/dto"
	completionRepo "pooltap.app/earnhub/internal/modules/completion/repository"
	completionService "pooltap.app/earnhub/internal/modules/completion/service"
	moderationDto "pooltap.app/earnhub/internal/modules/moderation/dto"
	"pooltap.app/earnhub/pkg/apperror"
	commonDto "pooltap.app/earnhub/pkg/dto"
	"pooltap.app/earnhub/pkg/logger"
)

type ModerationService interface {
	// ListPending returns completions awaiting review, oldest submission first.
	ListPending(ctx context.Context, q commonDto.PageQuery) (*moderationDto.PendingResponse, error)
	Decide(ctx context.Context, id uuid.UUID, outcome completionService.Outcome, moderator string) (*completionDto.CompletionResponse, error)
	// BulkDecide decides each id independently; a failure never undoes an
	// earlier success.
	BulkDecide(ctx context.Context, ids []uuid.UUID, outcome completionService.Outcome, moderator string) (*moderationDto.BulkDecideResponse, error)
}

type moderationService struct {
	repo        completionRepo.CompletionRepository
	completions completionService.CompletionService
	log         *logger.Logger
}

func NewModerationService(repo completionRepo.CompletionRepository, completions completionService.CompletionService, log *logger.Logger) ModerationService {
	return &moderationService{
		repo:        repo,
		completions: completions,
		log:         log.With("component", "moderation"),
	}
}

func (s *moderationService) ListPending(ctx context.Context, q commonDto.PageQuery) (*moderationDto.PendingResponse, error) {
	q = q.Normalize(20)

	list, total, err := s.repo.ListByStatus(ctx, entity.StatusValidating, q.Limit, q.Offset())
	if err != nil {
		return nil, err
	}

	return &moderationDto.PendingResponse{
		Data: completionDto.NewCompletionResponses(list),
		Meta: commonDto.NewPaginationMeta(q, total),
	}, nil
}

func (s *moderationService) Decide(ctx context.Context, id uuid.UUID, outcome completionService.Outcome, moderator string) (*completionDto.CompletionResponse, error) {
	return s.completions.Decide(ctx, id, outcome, moderator)
}

func (s *moderationService) BulkDecide(ctx context.Context, ids []uuid.UUID, outcome completionService.Outcome, moderator string) (*moderationDto.BulkDecideResponse, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("ids must not be empty: %w", apperror.ErrValidation)
	}
	if len(ids) > moderationDto.MaxBulkIDs {
		return nil, fmt.Errorf("at most %d ids per request: %w", moderationDto.MaxBulkIDs, apperror.ErrValidation)
	}
	if !outcome.Valid() {
		return nil, fmt.Errorf("outcome must be approved or rejected: %w", apperror.ErrValidation)
	}

	resp := &moderationDto.BulkDecideResponse{Results: make([]moderationDto.BulkItem, 0, len(ids))}
	seen := make(map[uuid.UUID]struct{}, len(ids))

	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		item := moderationDto.BulkItem{ID: id}
		completion, err := s.completions.Decide(ctx, id, outcome, moderator)
		switch {
		case err == nil:
			item.Result = moderationDto.ResultDecided
			item.Status = string(completion.Status)
			resp.Decided++
		case errors.Is(err, apperror.ErrInvalidState):
			item.Result = moderationDto.ResultSkipped
			item.Error = err.Error()
			resp.Skipped++
		case errors.Is(err, apperror.ErrNotFound):
			item.Result = moderationDto.ResultNotFound
			resp.Failed++
		default:
			s.log.Error("bulk decide failed", "completion_id", id, "error", err)
			item.Result = moderationDto.ResultError
			item.Error = err.Error()
			resp.Failed++
		}
		resp.Results = append(resp.Results, item)
	}

	s.log.Info("bulk decision", "moderator", moderator, "outcome", outcome,
		"decided", resp.Decided, "skipped", resp.Skipped, "failed", resp.Failed)
	return resp, nil
}
