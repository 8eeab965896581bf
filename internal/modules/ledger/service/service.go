package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"pooltap.app/earnhub/internal/entity"
	ledgerDto "pooltap.app/earnhub/internal/modules/ledger/dto"
	ledgerRepo "pooltap.app/earnhub/internal/modules/ledger/repository"
	"pooltap.app/earnhub/pkg/apperror"
	commonDto "pooltap.app/earnhub/pkg/dto"
	"pooltap.app/earnhub/pkg/logger"
)

// ScoreCache mirrors lifetime totals into a ranked view. A write carrying a
// version not newer than the cached one is ignored.
type ScoreCache interface {
	SetScore(ctx context.Context, identifier string, score, version int64) error
}

type LedgerService interface {
	// ApplyDelta credits (or debits) identifier and returns the new lifetime total.
	// referenceID, when set, makes the credit land at most once.
	ApplyDelta(ctx context.Context, identifier string, amount int64, reason string, referenceID *string) (int64, error)
	// ApplyDeltaTx is ApplyDelta inside the caller's transaction. The caller
	// runs SyncCache after commit.
	ApplyDeltaTx(ctx context.Context, tx *gorm.DB, identifier string, amount int64, reason string, referenceID *string) (int64, error)
	// SyncCache copies the committed total into the cache.
	SyncCache(ctx context.Context, identifier string)
	GetScore(ctx context.Context, identifier string) (*ledgerDto.ScoreResponse, error)
	History(ctx context.Context, identifier string, q commonDto.PageQuery) (*ledgerDto.HistoryResponse, error)
	SubmitGameScore(ctx context.Context, identifier string, score int64) (int64, error)
	ResetWeekly(ctx context.Context) (int64, error)
}

type ledgerService struct {
	db    *gorm.DB
	repo  ledgerRepo.LedgerRepository
	cache ScoreCache
	log   *logger.Logger
	now   func() time.Time
}

func NewLedgerService(db *gorm.DB, repo ledgerRepo.LedgerRepository, cache ScoreCache, log *logger.Logger) LedgerService {
	return &ledgerService{
		db:    db,
		repo:  repo,
		cache: cache,
		log:   log.With("component", "ledger"),
		now:   time.Now,
	}
}

func (s *ledgerService) ApplyDelta(ctx context.Context, identifier string, amount int64, reason string, referenceID *string) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		total, err = s.ApplyDeltaTx(ctx, tx, identifier, amount, reason, referenceID)
		return err
	})
	if err != nil {
		return 0, apperror.FromStorage(err)
	}

	s.SyncCache(ctx, identifier)
	return total, nil
}

func (s *ledgerService) ApplyDeltaTx(ctx context.Context, tx *gorm.DB, identifier string, amount int64, reason string, referenceID *string) (int64, error) {
	if reason == "" {
		return 0, fmt.Errorf("reason is required: %w", apperror.ErrValidation)
	}

	now := s.now().UTC()
	repo := s.repo.WithTx(tx)

	if err := repo.Increment(ctx, identifier, amount, entity.WeekWindowStart(now)); err != nil {
		return 0, err
	}

	event := &entity.ScoreEvent{
		UserIdentifier: identifier,
		Score:          amount,
		Reason:         reason,
		ReferenceID:    referenceID,
		CreatedAt:      now,
	}
	if err := repo.AppendEvent(ctx, event); err != nil {
		return 0, err
	}

	balance, err := repo.GetBalance(ctx, identifier)
	if err != nil {
		return 0, err
	}

	s.log.Debug("score applied", "identifier", identifier, "amount", amount, "reason", reason, "total", balance.Score)
	return balance.Score, nil
}

func (s *ledgerService) SyncCache(ctx context.Context, identifier string) {
	if s.cache == nil {
		return
	}

	// read back what is committed now; the version orders racing syncs
	balance, err := s.repo.GetBalance(ctx, identifier)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.log.Warn("failed to read total for leaderboard cache", "identifier", identifier, "error", err)
		}
		return
	}
	if err := s.cache.SetScore(ctx, identifier, balance.Score, balance.Version); err != nil {
		s.log.Warn("failed to sync leaderboard cache", "identifier", identifier, "error", err)
	}
}

func (s *ledgerService) GetScore(ctx context.Context, identifier string) (*ledgerDto.ScoreResponse, error) {
	balance, err := s.repo.GetBalance(ctx, identifier)
	if err != nil {
		return nil, err
	}

	weekly := balance.WeeklyScore
	if balance.WeekStart.Before(entity.WeekWindowStart(s.now())) {
		// reset has not run yet for this user
		weekly = 0
	}

	return &ledgerDto.ScoreResponse{
		Identifier:  identifier,
		Score:       balance.Score,
		WeeklyScore: weekly,
	}, nil
}

func (s *ledgerService) History(ctx context.Context, identifier string, q commonDto.PageQuery) (*ledgerDto.HistoryResponse, error) {
	q = q.Normalize(20)

	if _, err := s.repo.GetBalance(ctx, identifier); err != nil {
		return nil, err
	}

	events, total, err := s.repo.History(ctx, identifier, q.Limit, q.Offset())
	if err != nil {
		return nil, err
	}

	data := make([]ledgerDto.ScoreEventResponse, 0, len(events))
	for _, e := range events {
		data = append(data, ledgerDto.ScoreEventResponse{
			Score:     e.Score,
			Reason:    e.Reason,
			Timestamp: e.CreatedAt,
		})
	}

	return &ledgerDto.HistoryResponse{
		Data: data,
		Meta: commonDto.NewPaginationMeta(q, total),
	}, nil
}

func (s *ledgerService) SubmitGameScore(ctx context.Context, identifier string, score int64) (int64, error) {
	if score < 0 {
		return 0, fmt.Errorf("game score must not be negative: %w", apperror.ErrValidation)
	}
	return s.ApplyDelta(ctx, identifier, score, entity.ReasonGame, nil)
}

func (s *ledgerService) ResetWeekly(ctx context.Context) (int64, error) {
	window := entity.WeekWindowStart(s.now())
	n, err := s.repo.ResetWeekly(ctx, window)
	if err != nil {
		return 0, err
	}
	s.log.Info("weekly scores reset", "window_start", window, "users", n)
	return n, nil
}
