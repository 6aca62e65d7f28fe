package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps hits in one sorted set per key, scored by unix milliseconds.
// Keys expire on their own, so EvictExpired only trims sets it is told about.
type RedisStore struct {
	cli    redis.UniversalClient
	prefix string
}

func NewRedisStore(cli redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisStore{cli: cli, prefix: prefix}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) Get(ctx context.Context, key string, since time.Time) (int, error) {
	n, err := s.cli.ZCount(ctx, s.prefix+key, "("+strconv.FormatInt(since.UnixMilli(), 10), "+inf").Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *RedisStore) Increment(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	k := s.prefix + key
	pipe := s.cli.TxPipeline()
	pipe.ZAdd(ctx, k, redis.Z{Score: float64(at.UnixMilli()), Member: uuid.NewString()})
	pipe.PExpire(ctx, k, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// EvictExpired scans the prefix and trims hits at or before cutoff.
func (s *RedisStore) EvictExpired(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	max := strconv.FormatInt(cutoff.UnixMilli(), 10)
	iter := s.cli.Scan(ctx, 0, s.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if err := s.cli.ZRemRangeByScore(ctx, k, "-inf", max).Err(); err != nil {
			return removed, err
		}
		n, err := s.cli.ZCard(ctx, k).Result()
		if err != nil {
			return removed, err
		}
		if n == 0 {
			if err := s.cli.Del(ctx, k).Err(); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, iter.Err()
}
