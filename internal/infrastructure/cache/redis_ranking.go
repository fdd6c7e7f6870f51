package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"NewsPortal/internal/ports"
)

const defaultKeyPrefix = "news:ranking:"

// RedisRankingCache keeps each ranking as a sorted set of article ids.
type RedisRankingCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ ports.RankingCache = (*RedisRankingCache)(nil)

// NewRedisRankingCache wires a client; entries expire after ttl so a stalled
// scheduler cannot serve stale rankings forever.
func NewRedisRankingCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisRankingCache {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisRankingCache{client: client, prefix: prefix, ttl: ttl}
}

// Store replaces the ranking atomically.
func (c *RedisRankingCache) Store(ctx context.Context, ranking string, entries []ports.RankedEntry) error {
	key := c.prefix + ranking

	members := make([]redis.Z, 0, len(entries))
	for _, e := range entries {
		members = append(members, redis.Z{Score: e.Score, Member: e.ArticleID})
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(members) == 0 {
			return nil
		}
		pipe.ZAdd(ctx, key, members...)
		if c.ttl > 0 {
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store ranking %s: %w", ranking, err)
	}
	return nil
}

// Top returns up to limit entries, highest score first. A missing key yields no entries.
func (c *RedisRankingCache) Top(ctx context.Context, ranking string, limit int) ([]ports.RankedEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	res, err := c.client.ZRevRangeWithScores(ctx, c.prefix+ranking, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read ranking %s: %w", ranking, err)
	}

	entries := make([]ports.RankedEntry, 0, len(res))
	for _, z := range res {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, ports.RankedEntry{ArticleID: id, Score: z.Score})
	}
	return entries, nil
}

// Ping checks the connection at startup.
func (c *RedisRankingCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
