package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	realtimeDto "pooltap.app/earnhub/internal/modules/realtime/dto"
	"pooltap.app/earnhub/pkg/apperror"
	"pooltap.app/earnhub/pkg/logger"
)

const (
	UserCountChannel = "realtime:user_count"
	publishTimeout   = 3 * time.Second
)

// UserCounter reports the number of registered users.
type UserCounter interface {
	Count(ctx context.Context) (int64, error)
}

type RealtimeService interface {
	// PublishUserCount is fire-and-forget; failures are only logged.
	PublishUserCount(ctx context.Context)
	CurrentCount(ctx context.Context) (*realtimeDto.UserCountMessage, error)
	// Subscribe streams raw published payloads until ctx ends or the
	// returned close func is called.
	Subscribe(ctx context.Context) (<-chan string, func(), error)
}

type realtimeService struct {
	rdb     *redis.Client
	counter UserCounter
	log     *logger.Logger
}

func NewRealtimeService(rdb *redis.Client, counter UserCounter, log *logger.Logger) RealtimeService {
	return &realtimeService{
		rdb:     rdb,
		counter: counter,
		log:     log.With("component", "realtime"),
	}
}

func (s *realtimeService) CurrentCount(ctx context.Context) (*realtimeDto.UserCountMessage, error) {
	count, err := s.counter.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &realtimeDto.UserCountMessage{Type: realtimeDto.TypeUserCount, Count: count}, nil
}

func (s *realtimeService) PublishUserCount(ctx context.Context) {
	if s.rdb == nil {
		return
	}

	// the caller's request may finish before the publish does
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	msg, err := s.CurrentCount(ctx)
	if err != nil {
		s.log.Warn("failed to count users", "error", err)
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("failed to encode user count", "error", err)
		return
	}
	if err := s.rdb.Publish(ctx, UserCountChannel, payload).Err(); err != nil {
		s.log.Warn("failed to publish user count", "error", err)
	}
}

func (s *realtimeService) Subscribe(ctx context.Context) (<-chan string, func(), error) {
	if s.rdb == nil {
		return nil, func() {}, fmt.Errorf("realtime updates need redis: %w", apperror.ErrDependencyUnavailable)
	}

	pubsub := s.rdb.Subscribe(ctx, UserCountChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, func() {}, fmt.Errorf("failed to subscribe: %w", apperror.ErrDependencyUnavailable)
	}

	out := make(chan string)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-done:
					return
				case <-ctx.Done():
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	closed := false
	return out, func() {
		if !closed {
			closed = true
			close(done)
			_ = pubsub.Close()
		}
	}, nil
}
