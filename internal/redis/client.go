package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrNil is returned by Get when the key does not exist
var ErrNil = redis.Nil

// scanBatch is the COUNT hint sent with each SCAN call
const scanBatch = 100

type Client struct {
	rdb    *redis.Client
	config *Config
}

type Config struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

const healthTimeout = 5 * time.Second

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	if config.Address == "" {
		config.Address = "localhost:6379"
	}
	if config.PoolSize == 0 {
		config.PoolSize = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{
		rdb:    rdb,
		config: config,
	}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health pings the server. A ctx without a deadline gets healthTimeout.
func (c *Client) Health(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, healthTimeout)
		defer cancel()
	}
	return c.rdb.Ping(ctx).Err()
}

// Set stores value under key. A zero expiration keeps the key forever.
func (c *Client) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

// Get returns the raw value of key, or ErrNil when it does not exist
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return c.rdb.Get(ctx, key).Bytes()
}

func (c *Client) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// ScanPrefix walks the keyspace with SCAN MATCH and returns up to limit keys that
// start with prefix. SCAN gives no ordering and may return a key more than once, so
// results are deduplicated here.
func (c *Client) ScanPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}

	seen := make(map[string]struct{})
	keys := make([]string, 0)
	pattern := escapeGlob(prefix) + "*"

	var cursor uint64
	for {
		batch, next, err := c.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}

		for _, key := range batch {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
			if len(keys) >= limit {
				return keys, nil
			}
		}

		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// IsNil reports whether err means the key was missing
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax
func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
