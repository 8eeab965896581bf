package service

import (
	"context"
	"fmt"
	"time"

	"pooltap.app/earnhub/internal/entity"
	leaderboardDto "pooltap.app/earnhub/internal/modules/leaderboard/dto"
	leaderboardRepo "pooltap.app/earnhub/internal/modules/leaderboard/repository"
	"pooltap.app/earnhub/pkg/apperror"
	"pooltap.app/earnhub/pkg/logger"
)

type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, timeframe string, limit int) (*leaderboardDto.LeaderboardResponse, error)
	AllTime(ctx context.Context, limit int) ([]leaderboardDto.LeaderboardEntry, error)
	Weekly(ctx context.Context, limit int) ([]leaderboardDto.LeaderboardEntry, error)
	Referrals(ctx context.Context, limit int) ([]leaderboardDto.ReferralEntry, error)
	// RebuildCache reloads the all-time set from the database.
	RebuildCache(ctx context.Context) (int, error)
}

type leaderboardService struct {
	repo  leaderboardRepo.LeaderboardRepository
	cache *leaderboardRepo.ScoreCache
	log   *logger.Logger
	now   func() time.Time
}

func NewLeaderboardService(repo leaderboardRepo.LeaderboardRepository, cache *leaderboardRepo.ScoreCache, log *logger.Logger) LeaderboardService {
	return &leaderboardService{
		repo:  repo,
		cache: cache,
		log:   log.With("component", "leaderboard"),
		now:   time.Now,
	}
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, timeframe string, limit int) (*leaderboardDto.LeaderboardResponse, error) {
	var (
		entries []leaderboardDto.LeaderboardEntry
		err     error
	)

	switch timeframe {
	case "", leaderboardDto.TimeframeAllTime:
		timeframe = leaderboardDto.TimeframeAllTime
		entries, err = s.AllTime(ctx, limit)
	case leaderboardDto.TimeframeWeekly:
		entries, err = s.Weekly(ctx, limit)
	default:
		return nil, fmt.Errorf("unknown timeframe %q: %w", timeframe, apperror.ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	return &leaderboardDto.LeaderboardResponse{Timeframe: timeframe, Data: entries}, nil
}

func (s *leaderboardService) AllTime(ctx context.Context, limit int) ([]leaderboardDto.LeaderboardEntry, error) {
	limit = clamp(limit, leaderboardDto.MaxAllTime)

	if s.cache.Enabled() {
		entries, err := s.allTimeFromCache(ctx, limit)
		if err == nil {
			return entries, nil
		}
		s.log.Warn("leaderboard cache unavailable, reading database", "error", err)
	}

	standings, err := s.repo.TopAllTime(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]leaderboardDto.LeaderboardEntry, 0, len(standings))
	for i, st := range standings {
		entries = append(entries, entry(i+1, st.Identifier, st.Username, st.Score))
	}
	return entries, nil
}

func (s *leaderboardService) allTimeFromCache(ctx context.Context, limit int) ([]leaderboardDto.LeaderboardEntry, error) {
	warm, err := s.cache.Warm(ctx)
	if err != nil {
		return nil, err
	}
	if !warm {
		if _, err := s.RebuildCache(ctx); err != nil {
			return nil, err
		}
	}

	top, err := s.cache.Top(ctx, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(top))
	for _, z := range top {
		if id, ok := z.Member.(string); ok {
			ids = append(ids, id)
		}
	}
	users, err := s.repo.FindByIdentifiers(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]leaderboardDto.LeaderboardEntry, 0, len(top))
	for _, z := range top {
		id, _ := z.Member.(string)
		user, ok := users[id]
		if !ok {
			// deleted while the cache still held it
			_ = s.cache.RemoveUser(ctx, id)
			continue
		}
		entries = append(entries, entry(len(entries)+1, id, user.Username, int64(z.Score)))
	}
	return entries, nil
}

func (s *leaderboardService) Weekly(ctx context.Context, limit int) ([]leaderboardDto.LeaderboardEntry, error) {
	limit = clamp(limit, leaderboardDto.MaxWeekly)

	standings, err := s.repo.TopWeekly(ctx, entity.WeekWindowStart(s.now()), limit)
	if err != nil {
		return nil, err
	}

	entries := make([]leaderboardDto.LeaderboardEntry, 0, len(standings))
	for i, st := range standings {
		e := entry(i+1, st.Identifier, st.Username, st.WeeklyScore)
		// tier always follows the lifetime total
		e.Tier = GetTierStatus(st.Score).Tier
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *leaderboardService) Referrals(ctx context.Context, limit int) ([]leaderboardDto.ReferralEntry, error) {
	limit = clamp(limit, leaderboardDto.MaxReferrals)

	standings, err := s.repo.TopReferrals(ctx, entity.WeekWindowStart(s.now()), limit)
	if err != nil {
		return nil, err
	}

	entries := make([]leaderboardDto.ReferralEntry, 0, len(standings))
	for i, st := range standings {
		entries = append(entries, leaderboardDto.ReferralEntry{
			Position:        i + 1,
			Identifier:      st.Identifier,
			Username:        st.Username,
			WeeklyReferrals: st.WeeklyReferrals,
			ReferralCount:   st.ReferralCount,
		})
	}
	return entries, nil
}

func (s *leaderboardService) RebuildCache(ctx context.Context) (int, error) {
	n, err := s.cache.Rebuild(ctx, func(fn func(batch []leaderboardRepo.Standing) error) error {
		return s.repo.EachScore(ctx, fn)
	})
	if err != nil {
		return 0, err
	}
	if s.cache.Enabled() {
		s.log.Info("leaderboard cache rebuilt", "members", n)
	}
	return n, nil
}

func entry(position int, identifier, username string, score int64) leaderboardDto.LeaderboardEntry {
	return leaderboardDto.LeaderboardEntry{
		Position:   position,
		Identifier: identifier,
		Username:   username,
		Score:      score,
		Tier:       GetTierStatus(score).Tier,
	}
}

func clamp(limit, max int) int {
	if limit < 1 || limit > max {
		return max
	}
	return limit
}
