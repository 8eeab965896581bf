package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pooltap.app/earnhub/internal/entity"
	completionDto "pooltap.app/earnhub/internal/modules/completion/dto"
	completionRepo "pooltap.app/earnhub/internal/modules/completion/repository"
	ledgerService "pooltap.app/earnhub/internal/modules/ledger/service"
	taskService "pooltap.app/earnhub/internal/modules/task/service"
	"pooltap.app/earnhub/pkg/apperror"
	"pooltap.app/earnhub/pkg/logger"
	"pooltap.app/earnhub/pkg/storage"
)

// Outcome is a moderator decision on submitted evidence.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

func (o Outcome) Valid() bool {
	return o == OutcomeApproved || o == OutcomeRejected
}

type CompletionService interface {
	Start(ctx context.Context, identifier string, taskID uuid.UUID) (*completionDto.CompletionResponse, error)
	MarkReturned(ctx context.Context, identifier string, taskID uuid.UUID) (*completionDto.CompletionResponse, error)
	// Confirm approves tasks that need no evidence.
	Confirm(ctx context.Context, identifier string, taskID uuid.UUID) (*completionDto.CompletionResponse, error)
	SubmitEvidence(ctx context.Context, identifier string, taskID uuid.UUID, evidenceURL string) (*completionDto.CompletionResponse, error)
	// SubmitEvidenceFile uploads r to the evidence store and submits the returned URL.
	SubmitEvidenceFile(ctx context.Context, identifier string, taskID uuid.UUID, r io.Reader, fileName string) (*completionDto.CompletionResponse, error)
	Decide(ctx context.Context, id uuid.UUID, outcome Outcome, moderator string) (*completionDto.CompletionResponse, error)
	// Claim credits the task points exactly once. Claiming again returns the
	// stored record.
	Claim(ctx context.Context, identifier string, taskID uuid.UUID) (*completionDto.CompletionResponse, error)
	ListMine(ctx context.Context, identifier string) ([]completionDto.CompletionResponse, error)
}

type completionService struct {
	db         *gorm.DB
	repo       completionRepo.CompletionRepository
	tasks      taskService.TaskService
	ledger     ledgerService.LedgerService
	evidence   storage.EvidenceStorage
	maxRetries int
	log        *logger.Logger
	now        func() time.Time
}

func NewCompletionService(
	db *gorm.DB,
	repo completionRepo.CompletionRepository,
	tasks taskService.TaskService,
	ledger ledgerService.LedgerService,
	evidence storage.EvidenceStorage,
	maxRetries int,
	log *logger.Logger,
) CompletionService {
	return &completionService{
		db:         db,
		repo:       repo,
		tasks:      tasks,
		ledger:     ledger,
		evidence:   evidence,
		maxRetries: maxRetries,
		log:        log.With("component", "completion"),
		now:        time.Now,
	}
}

func (s *completionService) Start(ctx context.Context, identifier string, taskID uuid.UUID) (*completionDto.CompletionResponse, error) {
	task, err := s.tasks.FindActive(ctx, taskID)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.UserExists(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("user not found: %w", apperror.ErrNotFound)
	}

	now := s.now().UTC()
	existing, err := s.repo.Find(ctx, identifier, taskID)
	if errors.Is(err, apperror.ErrNotFound) {
		completion := &entity.TaskCompletion{
			UserIdentifier:   identifier,
			TaskID:           task.ID,
			TaskName:         task.Name,
			TaskPoints:       task.Points,
			RequiresEvidence: task.RequiresEvidence,
			Status:           entity.StatusStarted,
			Attempts:         1,
			StartedAt:        now,
		}
		if err := s.repo.Create(ctx, completion); err != nil {
			return nil, err
		}
		s.log.Info("task started", "identifier", identifier, "task_id", taskID)
		return respond(completion), nil
	}
	if err != nil {
		return nil, err
	}

	if existing.Status != entity.StatusRejected {
		return nil, fmt.Errorf("task is already %s: %w", existing.Status, apperror.ErrConflict)
	}
	if existing.Attempts > s.maxRetries {
		return nil, fmt.Errorf("task was attempted %d times: %w", existing.Attempts, apperror.ErrRetryLimitExceeded)
	}

	// restart picks up the task's current name and points
	return s.advance(ctx, existing, eventRestart, map[string]interface{}{
		"attempts":          existing.Attempts + 1,
		"task_name":         task.Name,
		"task_points":       task.Points,
		"requires_evidence": task.RequiresEvidence,
		"started_at":        now,
		"returned_at":       nil,
		"submitted_at":      nil,
		"decided_at":        nil,
		"decided_by":        nil,
		"evidence_url":      nil,
	})
}

func (s *completionService) MarkReturned(ctx context.Context, identifier string, taskID uuid.UUID) (*completionDto.CompletionResponse, error) {
	completion, err := s.repo.Find(ctx, identifier, taskID)
	if err != nil {
		return nil, err
	}
	return s.advance(ctx, completion, eventReturn, map[string]interface{}{
		"returned_at": s.now().UTC(),
	})
}

func (s *completionService) Confirm(ctx context.Context, identifier string, taskID uuid.UUID) (*completionDto.CompletionResponse, error) {
	completion, err := s.repo.Find(ctx, identifier, taskID)
	if err != nil {
		return nil, err
	}
	if completion.RequiresEvidence {
		return nil, fmt.Errorf("task requires evidence: %w", apperror.ErrInvalidState)
	}
	return s.advance(ctx, completion, eventConfirm, map[string]interface{}{
		"decided_at": s.now().UTC(),
	})
}

func (s *completionService) SubmitEvidence(ctx context.Context, identifier string, taskID uuid.UUID, evidenceURL string) (*completionDto.CompletionResponse, error) {
	if !validEvidenceURL(evidenceURL) {
		return nil, fmt.Errorf("evidence url must be an absolute http(s) url: %w", apperror.ErrValidation)
	}

	completion, err := s.repo.Find(ctx, identifier, taskID)
	if err != nil {
		return nil, err
	}
	return s.advance(ctx, completion, eventSubmit, map[string]interface{}{
		"evidence_url": evidenceURL,
		"submitted_at": s.now().UTC(),
	})
}

func (s *completionService) SubmitEvidenceFile(ctx context.Context, identifier string, taskID uuid.UUID, r io.Reader, fileName string) (*completionDto.CompletionResponse, error) {
	if s.evidence == nil {
		return nil, fmt.Errorf("evidence upload is not configured: %w", apperror.ErrDependencyUnavailable)
	}
	if !storage.AllowedFile(fileName) {
		return nil, fmt.Errorf("%s: %w", storage.ErrUnsupportedFile.Error(), apperror.ErrValidation)
	}

	// avoid uploading for a completion that cannot take evidence
	completion, err := s.repo.Find(ctx, identifier, taskID)
	if err != nil {
		return nil, err
	}
	if _, ok := next(completion.Status, eventSubmit); !ok {
		return nil, invalidTransition(completion.Status, eventSubmit)
	}

	evidenceURL, err := s.evidence.Upload(ctx, r, fileName)
	if err != nil {
		return nil, fmt.Errorf("evidence upload failed: %w", errors.Join(apperror.ErrDependencyUnavailable, err))
	}

	resp, err := s.SubmitEvidence(ctx, identifier, taskID, evidenceURL)
	if err != nil {
		if delErr := s.evidence.Delete(ctx, evidenceURL); delErr != nil {
			s.log.Warn("failed to delete orphaned evidence", "url", evidenceURL, "error", delErr)
		}
		return nil, err
	}
	return resp, nil
}

func (s *completionService) Decide(ctx context.Context, id uuid.UUID, outcome Outcome, moderator string) (*completionDto.CompletionResponse, error) {
	if !outcome.Valid() {
		return nil, fmt.Errorf("outcome must be approved or rejected: %w", apperror.ErrValidation)
	}

	ev := eventApprove
	if outcome == OutcomeRejected {
		ev = eventReject
	}
	to, _ := next(entity.StatusValidating, ev)

	ok, err := s.repo.Transition(ctx, id, entity.StatusValidating, map[string]interface{}{
		"status":     to,
		"decided_at": s.now().UTC(),
		"decided_by": moderator,
	})
	if err != nil {
		return nil, err
	}

	completion, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalidTransition(completion.Status, ev)
	}

	s.log.Info("completion decided", "completion_id", id, "outcome", outcome, "moderator", moderator)
	return respond(completion), nil
}

func (s *completionService) Claim(ctx context.Context, identifier string, taskID uuid.UUID) (*completionDto.CompletionResponse, error) {
	var (
		completion *entity.TaskCompletion
		total      int64
		credited   bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		completion, err = repo.FindForUpdate(ctx, identifier, taskID)
		if err != nil {
			return err
		}
		if completion.Status == entity.StatusClaimed {
			return nil
		}
		to, ok := next(completion.Status, eventClaim)
		if !ok {
			return invalidTransition(completion.Status, eventClaim)
		}

		ref := completion.ID.String()
		total, err = s.ledger.ApplyDeltaTx(ctx, tx, identifier, completion.TaskPoints, entity.ReasonTaskClaim, &ref)
		if err != nil {
			return err
		}

		claimedAt := s.now().UTC()
		moved, err := repo.Transition(ctx, completion.ID, completion.Status, map[string]interface{}{
			"status":     to,
			"claimed_at": claimedAt,
		})
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("completion changed during claim: %w", apperror.ErrConflict)
		}

		completion.Status = to
		completion.ClaimedAt = &claimedAt
		credited = true
		return nil
	})
	if err != nil {
		return nil, apperror.FromStorage(err)
	}

	if credited {
		s.ledger.SyncCache(ctx, identifier)
		s.log.Info("task claimed", "identifier", identifier, "task_id", taskID, "points", completion.TaskPoints, "total", total)
	}
	return respond(completion), nil
}

func (s *completionService) ListMine(ctx context.Context, identifier string) ([]completionDto.CompletionResponse, error) {
	list, err := s.repo.ListByUser(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return completionDto.NewCompletionResponses(list), nil
}

// advance moves completion along ev, guarded on its current status.
func (s *completionService) advance(ctx context.Context, completion *entity.TaskCompletion, ev event, fields map[string]interface{}) (*completionDto.CompletionResponse, error) {
	to, ok := next(completion.Status, ev)
	if !ok {
		return nil, invalidTransition(completion.Status, ev)
	}
	fields["status"] = to

	moved, err := s.repo.Transition(ctx, completion.ID, completion.Status, fields)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, fmt.Errorf("completion changed concurrently: %w", apperror.ErrConflict)
	}

	updated, err := s.repo.FindByID(ctx, completion.ID)
	if err != nil {
		return nil, err
	}
	s.log.Debug("completion advanced", "completion_id", completion.ID, "event", ev, "from", completion.Status, "to", to)
	return respond(updated), nil
}

func invalidTransition(from entity.CompletionStatus, ev event) error {
	return fmt.Errorf("cannot %s a %s completion: %w", ev, from, apperror.ErrInvalidState)
}

func validEvidenceURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func respond(c *entity.TaskCompletion) *completionDto.CompletionResponse {
	resp := completionDto.NewCompletionResponse(c)
	return &resp
}
