package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "vibesub:"

// RedisKV stores keys in Redis under a fixed prefix. A zero TTL keeps keys
// forever.
type RedisKV struct {
	rdb *redis.Client
	ttl time.Duration
}

// OpenRedis connects to addr and verifies the connection with PING.
func OpenRedis(ctx context.Context, addr string, ttl time.Duration) (*RedisKV, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return &RedisKV{rdb: rdb, ttl: ttl}, nil
}

func (k *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := k.rdb.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (k *RedisKV) Set(ctx context.Context, key, value string) error {
	return k.rdb.Set(ctx, redisKeyPrefix+key, value, k.ttl).Err()
}

func (k *RedisKV) Delete(ctx context.Context, key string) error {
	return k.rdb.Del(ctx, redisKeyPrefix+key).Err()
}

func (k *RedisKV) Close() error {
	return k.rdb.Close()
}
