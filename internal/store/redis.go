package store

import (
	"context"
	"fmt"
	"time"

	"webhook-gateway/internal/redis"
)

// RedisInterface is the subset of the redis client the store needs
type RedisInterface interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	ScanPrefix(ctx context.Context, prefix string, limit int) ([]string, error)
	Health(ctx context.Context) error
}

// RedisStore is a Store backed by Redis
type RedisStore struct {
	client RedisInterface
}

// NewRedisStore creates a store on top of an open redis client
func NewRedisStore(client RedisInterface) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

func (r *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl); err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context, prefix string, limit int) ([]string, error) {
	keys, err := r.client.ScanPrefix(ctx, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	return keys, nil
}

func (r *RedisStore) Health(ctx context.Context) error {
	return r.client.Health(ctx)
}
