package kv

import (
	"context"
	"errors"
	"fmt"

	redis_v9 "github.com/redis/go-redis/v9"
)

// RedisStore maps records onto plain Redis strings without expiry.
type RedisStore struct {
	client *redis_v9.Client
}

func NewRedisStore(client *redis_v9.Client) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis connects and pings, so a bad address fails at startup.
func DialRedis(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis_v9.NewClient(&redis_v9.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("kv: redis ping: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis_v9.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }
