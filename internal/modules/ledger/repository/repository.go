package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"pooltap.app/earnhub/internal/entity"
	"pooltap.app/earnhub/pkg/apperror"
)

type Balance struct {
	Score       int64
	WeeklyScore int64
	WeekStart   time.Time
	// Version grows by one with every committed increment.
	Version int64
}

type LedgerRepository interface {
	// WithTx binds the repository to an open transaction.
	WithTx(tx *gorm.DB) LedgerRepository
	Increment(ctx context.Context, identifier string, amount int64, windowStart time.Time) error
	AppendEvent(ctx context.Context, event *entity.ScoreEvent) error
	GetBalance(ctx context.Context, identifier string) (*Balance, error)
	History(ctx context.Context, identifier string, limit, offset int) ([]entity.ScoreEvent, int64, error)
	ResetWeekly(ctx context.Context, windowStart time.Time) (int64, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) WithTx(tx *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: tx}
}

// Increment adds amount to the lifetime and weekly totals in one statement.
// A row whose window predates windowStart rolls over first: weekly counters
// restart and week_start moves forward.
func (r *ledgerRepository) Increment(ctx context.Context, identifier string, amount int64, windowStart time.Time) error {
	res := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("identifier = ?", identifier).
		Updates(map[string]interface{}{
			"score":            gorm.Expr("score + ?", amount),
			"score_version":    gorm.Expr("score_version + 1"),
			"weekly_score":     gorm.Expr("CASE WHEN week_start >= ? THEN weekly_score + ? ELSE ? END", windowStart, amount, amount),
			"weekly_referrals": gorm.Expr("CASE WHEN week_start >= ? THEN weekly_referrals ELSE 0 END", windowStart),
			"week_start":       gorm.Expr("CASE WHEN week_start >= ? THEN week_start ELSE ? END", windowStart, windowStart),
		})
	if res.Error != nil {
		return apperror.FromStorage(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s not found: %w", identifier, apperror.ErrNotFound)
	}
	return nil
}

func (r *ledgerRepository) AppendEvent(ctx context.Context, event *entity.ScoreEvent) error {
	err := r.db.WithContext(ctx).Create(event).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("score event %v already recorded: %w", deref(event.ReferenceID), apperror.ErrConflict)
	}
	return apperror.FromStorage(err)
}

func (r *ledgerRepository) GetBalance(ctx context.Context, identifier string) (*Balance, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Select("score", "weekly_score", "week_start", "score_version").
		Where("identifier = ?", identifier).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s not found: %w", identifier, apperror.ErrNotFound)
	}
	if err != nil {
		return nil, apperror.FromStorage(err)
	}
	return &Balance{Score: user.Score, WeeklyScore: user.WeeklyScore, WeekStart: user.WeekStart, Version: user.ScoreVersion}, nil
}

func (r *ledgerRepository) History(ctx context.Context, identifier string, limit, offset int) ([]entity.ScoreEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.ScoreEvent{}).
		Where("user_identifier = ?", identifier).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperror.FromStorage(err)
	}

	var events []entity.ScoreEvent
	err := query.Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&events).Error
	if err != nil {
		return nil, 0, apperror.FromStorage(err)
	}
	return events, total, nil
}

// ResetWeekly zeroes weekly counters of every user still in an older window.
func (r *ledgerRepository) ResetWeekly(ctx context.Context, windowStart time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("week_start < ?", windowStart).
		Updates(map[string]interface{}{
			"weekly_score":     0,
			"weekly_referrals": 0,
			"week_start":       windowStart,
		})
	return res.RowsAffected, apperror.FromStorage(res.Error)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
