package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	AllTimeKey = "leaderboard:all_time"
	// VersionsKey holds the ledger version behind each cached score.
	VersionsKey = AllTimeKey + ":versions"
)

// setIfNewer writes the score only when ARGV[3] is newer than the stored
// version for the member.
var setIfNewer = redis.NewScript(`
local current = redis.call('HGET', KEYS[2], ARGV[1])
if current and tonumber(current) >= tonumber(ARGV[3]) then
	return 0
end
redis.call('HSET', KEYS[2], ARGV[1], ARGV[3])
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[1])
return 1
`)

// ScoreCache keeps lifetime totals in a redis sorted set. A nil client turns
// every method into a no-op.
type ScoreCache struct {
	rdb      *redis.Client
	key      string
	versions string
}

func NewScoreCache(rdb *redis.Client) *ScoreCache {
	return &ScoreCache{rdb: rdb, key: AllTimeKey, versions: VersionsKey}
}

func (c *ScoreCache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// SetScore stores the absolute total unless a newer version is cached, so
// syncs that land out of order converge on the latest commit.
func (c *ScoreCache) SetScore(ctx context.Context, identifier string, score, version int64) error {
	if !c.Enabled() {
		return nil
	}
	return setIfNewer.Run(ctx, c.rdb, []string{c.key, c.versions}, identifier, score, version).Err()
}

func (c *ScoreCache) RemoveUser(ctx context.Context, identifier string) error {
	if !c.Enabled() {
		return nil
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, c.key, identifier)
		pipe.HDel(ctx, c.versions, identifier)
		return nil
	})
	return err
}

// Warm reports whether the set exists.
func (c *ScoreCache) Warm(ctx context.Context) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	n, err := c.rdb.Exists(ctx, c.key).Result()
	return n > 0, err
}

func (c *ScoreCache) Top(ctx context.Context, limit int) ([]redis.Z, error) {
	if !c.Enabled() {
		return nil, nil
	}
	return c.rdb.ZRevRangeWithScores(ctx, c.key, 0, int64(limit-1)).Result()
}

// Rebuild replaces the set with the rows produced by each. The new set and
// its versions are built under scratch keys and renamed into place together.
func (c *ScoreCache) Rebuild(ctx context.Context, each func(fn func(batch []Standing) error) error) (int, error) {
	if !c.Enabled() {
		return 0, nil
	}

	scratch := c.key + ":rebuild"
	scratchVersions := c.versions + ":rebuild"
	if err := c.rdb.Del(ctx, scratch, scratchVersions).Err(); err != nil {
		return 0, err
	}

	total := 0
	err := each(func(batch []Standing) error {
		members := make([]redis.Z, 0, len(batch))
		versions := make(map[string]interface{}, len(batch))
		for _, s := range batch {
			members = append(members, redis.Z{Score: float64(s.Score), Member: s.Identifier})
			versions[s.Identifier] = s.ScoreVersion
		}
		_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZAdd(ctx, scratch, members...)
			pipe.HSet(ctx, scratchVersions, versions)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to fill leaderboard cache: %w", err)
		}
		total += len(batch)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if total == 0 {
		return 0, c.rdb.Del(ctx, c.key, c.versions).Err()
	}
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Rename(ctx, scratch, c.key)
		pipe.Rename(ctx, scratchVersions, c.versions)
		return nil
	})
	return total, err
}
