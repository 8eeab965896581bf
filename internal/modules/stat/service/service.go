package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"pooltap.app/earnhub/internal/entity"
	statDto "pooltap.app/earnhub/internal/modules/stat/dto"
	statRepo "pooltap.app/earnhub/internal/modules/stat/repository"
	"pooltap.app/earnhub/pkg/apperror"
	commonDto "pooltap.app/earnhub/pkg/dto"
)

const maxSearchResults = 100

// StatService answers dashboard queries. Results are a best-effort
// snapshot: the underlying queries do not share a transaction.
type StatService interface {
	PageUsers(ctx context.Context, q commonDto.PageQuery) (*statDto.UsersResponse, error)
	Count(ctx context.Context) (*statDto.CountResponse, error)
	SearchUsers(ctx context.Context, username string) (*statDto.UsersResponse, error)
}

type statService struct {
	repo statRepo.StatRepository
}

func NewStatService(repo statRepo.StatRepository) StatService {
	return &statService{repo: repo}
}

func (s *statService) PageUsers(ctx context.Context, q commonDto.PageQuery) (*statDto.UsersResponse, error) {
	q = q.Normalize(20)

	var (
		count, total int64
		top, page    []*entity.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		count, err = s.repo.CountUsers(gctx)
		return
	})
	g.Go(func() (err error) {
		total, err = s.repo.SumScores(gctx)
		return
	})
	g.Go(func() (err error) {
		top, err = s.repo.TopByScore(gctx, statDto.TopPerformers)
		return
	})
	g.Go(func() (err error) {
		page, err = s.repo.PageUsers(gctx, q.Limit, q.Offset())
		return
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	meta := commonDto.NewPaginationMeta(q, count)
	return &statDto.UsersResponse{
		Users: statDto.NewUserSummaries(page),
		Stats: statDto.Stats{
			TotalScore:    total,
			AverageScore:  statDto.Average(total, count),
			TopPerformers: statDto.NewUserSummaries(top),
		},
		Meta: &meta,
	}, nil
}

func (s *statService) Count(ctx context.Context) (*statDto.CountResponse, error) {
	var count, total int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		count, err = s.repo.CountUsers(gctx)
		return
	})
	g.Go(func() (err error) {
		total, err = s.repo.SumScores(gctx)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &statDto.CountResponse{
		Count: count,
		Stats: statDto.CountStats{
			TotalScore:   total,
			AverageScore: statDto.Average(total, count),
		},
	}, nil
}

func (s *statService) SearchUsers(ctx context.Context, username string) (*statDto.UsersResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username query is required: %w", apperror.ErrValidation)
	}

	users, err := s.repo.SearchByUsername(ctx, username, maxSearchResults)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, u := range users {
		total += u.Score
	}

	// users is already ordered by score
	top := users
	if len(top) > statDto.TopPerformers {
		top = top[:statDto.TopPerformers]
	}

	return &statDto.UsersResponse{
		Users: statDto.NewUserSummaries(users),
		Stats: statDto.Stats{
			TotalScore:    total,
			AverageScore:  statDto.Average(total, int64(len(users))),
			TopPerformers: statDto.NewUserSummaries(top),
		},
	}, nil
}
