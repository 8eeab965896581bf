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

// ReferredUser is a referred user joined with the edge timestamp.
type ReferredUser struct {
	Identifier string
	Username   string
	Score      int64
	ReferredAt time.Time
}

type ReferralRepository interface {
	WithTx(tx *gorm.DB) ReferralRepository
	FindUser(ctx context.Context, identifier string) (*entity.User, error)
	FindByCode(ctx context.Context, code string) (*entity.User, error)
	// SetReferrer sets the referrer only if none is set yet and reports whether it did.
	SetReferrer(ctx context.Context, identifier, referrer string) (bool, error)
	CreateEdge(ctx context.Context, edge *entity.ReferralEdge) error
	IncrementCounts(ctx context.Context, referrer string, windowStart time.Time) error
	ListReferrals(ctx context.Context, referrer string) ([]ReferredUser, error)
}

type referralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) ReferralRepository {
	return &referralRepository{db: db}
}

func (r *referralRepository) WithTx(tx *gorm.DB) ReferralRepository {
	return &referralRepository{db: tx}
}

func (r *referralRepository) FindUser(ctx context.Context, identifier string) (*entity.User, error) {
	return r.first(ctx, "identifier = ?", identifier)
}

func (r *referralRepository) FindByCode(ctx context.Context, code string) (*entity.User, error) {
	return r.first(ctx, "referral_code = ?", code)
}

func (r *referralRepository) first(ctx context.Context, query string, arg string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user not found: %w", apperror.ErrNotFound)
	}
	if err != nil {
		return nil, apperror.FromStorage(err)
	}
	return &user, nil
}

func (r *referralRepository) SetReferrer(ctx context.Context, identifier, referrer string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("identifier = ? AND referrer IS NULL", identifier).
		Update("referrer", referrer)
	if res.Error != nil {
		return false, apperror.FromStorage(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *referralRepository) CreateEdge(ctx context.Context, edge *entity.ReferralEdge) error {
	err := r.db.WithContext(ctx).Create(edge).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("user %s already referred: %w", edge.ReferralIdentifier, apperror.ErrConflict)
	}
	return apperror.FromStorage(err)
}

// IncrementCounts bumps the referrer's lifetime and weekly referral counters,
// rolling the weekly window over when it is stale.
func (r *referralRepository) IncrementCounts(ctx context.Context, referrer string, windowStart time.Time) error {
	res := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("identifier = ?", referrer).
		Updates(map[string]interface{}{
			"referral_count":   gorm.Expr("referral_count + 1"),
			"weekly_referrals": gorm.Expr("CASE WHEN week_start >= ? THEN weekly_referrals + 1 ELSE 1 END", windowStart),
			"weekly_score":     gorm.Expr("CASE WHEN week_start >= ? THEN weekly_score ELSE 0 END", windowStart),
			"week_start":       gorm.Expr("CASE WHEN week_start >= ? THEN week_start ELSE ? END", windowStart, windowStart),
		})
	if res.Error != nil {
		return apperror.FromStorage(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("referrer %s not found: %w", referrer, apperror.ErrNotFound)
	}
	return nil
}

func (r *referralRepository) ListReferrals(ctx context.Context, referrer string) ([]ReferredUser, error) {
	var rows []ReferredUser
	err := r.db.WithContext(ctx).
		Table("referral_edges").
		Select("users.identifier, users.username, users.score, referral_edges.created_at AS referred_at").
		Joins("JOIN users ON users.identifier = referral_edges.referral_identifier").
		Where("referral_edges.referrer_identifier = ?", referrer).
		Order("referral_edges.created_at ASC").
		Order("referral_edges.id ASC").
		Scan(&rows).Error
	return rows, apperror.FromStorage(err)
}
