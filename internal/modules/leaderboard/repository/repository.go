package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"pooltap.app/earnhub/internal/entity"
	"pooltap.app/earnhub/pkg/apperror"
)

const rebuildBatch = 500

// Standing is the slice of a user row the ranked views need.
type Standing struct {
	Identifier      string
	Username        string
	Score           int64
	WeeklyScore     int64
	ReferralCount   int
	WeeklyReferrals int
	ScoreVersion    int64
}

type LeaderboardRepository interface {
	TopAllTime(ctx context.Context, limit int) ([]Standing, error)
	TopWeekly(ctx context.Context, window time.Time, limit int) ([]Standing, error)
	TopReferrals(ctx context.Context, window time.Time, limit int) ([]Standing, error)
	FindByIdentifiers(ctx context.Context, identifiers []string) (map[string]Standing, error)
	// EachScore walks every user's lifetime total in batches.
	EachScore(ctx context.Context, fn func(batch []Standing) error) error
}

type leaderboardRepository struct {
	db *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

func (r *leaderboardRepository) standings(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&entity.User{}).
		Select("identifier, username, score, weekly_score, referral_count, weekly_referrals, score_version")
}

func (r *leaderboardRepository) TopAllTime(ctx context.Context, limit int) ([]Standing, error) {
	var out []Standing
	err := r.standings(ctx).
		Order("score DESC").
		Order("identifier ASC").
		Limit(limit).
		Scan(&out).Error
	return out, apperror.FromStorage(err)
}

func (r *leaderboardRepository) TopWeekly(ctx context.Context, window time.Time, limit int) ([]Standing, error) {
	var out []Standing
	err := r.standings(ctx).
		Where("week_start >= ? AND weekly_score > 0", window).
		Order("weekly_score DESC").
		Order("identifier ASC").
		Limit(limit).
		Scan(&out).Error
	return out, apperror.FromStorage(err)
}

func (r *leaderboardRepository) TopReferrals(ctx context.Context, window time.Time, limit int) ([]Standing, error) {
	var out []Standing
	err := r.standings(ctx).
		Where("week_start >= ? AND weekly_referrals > 0", window).
		Order("weekly_referrals DESC").
		Order("identifier ASC").
		Limit(limit).
		Scan(&out).Error
	return out, apperror.FromStorage(err)
}

func (r *leaderboardRepository) FindByIdentifiers(ctx context.Context, identifiers []string) (map[string]Standing, error) {
	out := make(map[string]Standing, len(identifiers))
	if len(identifiers) == 0 {
		return out, nil
	}

	var rows []Standing
	if err := r.standings(ctx).Where("identifier IN ?", identifiers).Scan(&rows).Error; err != nil {
		return nil, apperror.FromStorage(err)
	}
	for _, row := range rows {
		out[row.Identifier] = row
	}
	return out, nil
}

func (r *leaderboardRepository) EachScore(ctx context.Context, fn func(batch []Standing) error) error {
	for offset := 0; ; offset += rebuildBatch {
		var batch []Standing
		err := r.standings(ctx).
			Order("identifier ASC").
			Limit(rebuildBatch).
			Offset(offset).
			Scan(&batch).Error
		if err != nil {
			return apperror.FromStorage(err)
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < rebuildBatch {
			return nil
		}
	}
}
