package markers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/models"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "checkin:marker:"

// RedisRepository keeps markers as keys with a TTL, so past days expire on
// their own and Purge has nothing to do.
type RedisRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisRepository stores markers for ttl; it should cover at least one day.
func NewRedisRepository(rdb *redis.Client, ttl time.Duration) *RedisRepository {
	if ttl < 24*time.Hour {
		ttl = 48 * time.Hour
	}
	return &RedisRepository{rdb: rdb, ttl: ttl}
}

func redisKey(personKey string, day models.Date) string {
	return redisKeyPrefix + string(day) + ":" + personKey
}

func (r *RedisRepository) Mark(ctx context.Context, personKey, personID string, day models.Date) error {
	if err := r.rdb.SetNX(ctx, redisKey(personKey, day), personID, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set marker[%s/%s]: %w", personKey, day, err)
	}
	return nil
}

func (r *RedisRepository) Has(ctx context.Context, personKey string, day models.Date) (bool, error) {
	n, err := r.rdb.Exists(ctx, redisKey(personKey, day)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to get marker[%s/%s]: %w", personKey, day, err)
	}
	return n > 0, nil
}

func (r *RedisRepository) ListDay(ctx context.Context, day models.Date) ([]string, error) {
	prefix := redisKeyPrefix + string(day) + ":"
	result := []string{}

	iter := r.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		result = append(result, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list markers: %w", err)
	}
	return result, nil
}

func (r *RedisRepository) Purge(ctx context.Context, before models.Date) (int64, error) {
	return 0, nil
}

// NewRedisClient builds a client with the short timeouts used for marker calls.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}
