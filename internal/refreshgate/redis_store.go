package refreshgate

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "refreshgate:cooldown:"

// RedisStore shares cooldown entries across service instances. Keys expire
// after the cooldown window.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: defaultKeyPrefix, ttl: ttl}
}

// NewRedisClient parses a redis:// or rediss:// URL and pings the server.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func (s *RedisStore) key(subjectID string) string {
	return s.prefix + subjectID
}

func (s *RedisStore) LastRefresh(ctx context.Context, subjectID string) (time.Time, bool, error) {
	raw, err := s.rdb.Get(ctx, s.key(subjectID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(0, nanos).UTC(), true, nil
}

func (s *RedisStore) MarkRefreshed(ctx context.Context, subjectID string, at time.Time) error {
	return s.rdb.Set(ctx, s.key(subjectID), strconv.FormatInt(at.UnixNano(), 10), s.ttl).Err()
}
