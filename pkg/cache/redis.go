package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pooltap.app/earnhub/pkg/logger"
)

// Connect returns a redis client for url. An empty url disables redis and
// returns a nil client; callers treat nil as "feature off".
func Connect(ctx context.Context, url string, log *logger.Logger) (*redis.Client, error) {
	if url == "" {
		log.Warn("REDIS_URL not set, running without cache and realtime")
		return nil, nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	log.Info("redis connected", "addr", opt.Addr)
	return client, nil
}
