package runstate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisUsedPrefix = "engage/used/"

// redisUsedTTL — ключи живут двое суток, затем дневное множество исчезает само.
const redisUsedTTL = 48 * time.Hour

// RedisUsedSet — множество, общее для всех воркеров одного дня.
type RedisUsedSet struct {
	Client *redis.Client
	key    string
}

// NewRedisClient разбирает URL и проверяет соединение.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("redis недоступен: %w", err)
	}
	return rdb, nil
}

// NewRedisUsedSet создаёт множество kind за день day (YYYYMMDD).
func NewRedisUsedSet(client *redis.Client, day uint64, kind string) *RedisUsedSet {
	return &RedisUsedSet{Client: client, key: fmt.Sprintf("%s%d/%s", redisUsedPrefix, day, kind)}
}

// NewRedisRun — общее для дня состояние вместо состояния одного воркера.
func NewRedisRun(client *redis.Client, day uint64) *Run {
	return &Run{
		Topics:  NewRedisUsedSet(client, day, "topics"),
		Phrases: NewRedisUsedSet(client, day, "phrases"),
	}
}

func (s *RedisUsedSet) Contains(ctx context.Context, val string) (bool, error) {
	return s.Client.SIsMember(ctx, s.key, val).Result()
}

func (s *RedisUsedSet) Add(ctx context.Context, val string) error {
	multi := s.Client.TxPipeline()
	multi.SAdd(ctx, s.key, val)
	multi.Expire(ctx, s.key, redisUsedTTL)
	_, err := multi.Exec(ctx)
	return err
}
