package cacheinfra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/singleflight"
)

const scanBatch = 100

// redisService stores entries in redis so several processes share one
// cache. Only []byte values can be stored; callers encode before caching.
type redisService struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	group  singleflight.Group
}

// NewRedisService validates cfg, connects and pings the server.
func NewRedisService(ctx context.Context, cfg Config) (*redisService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}

	return NewRedisServiceWithClient(client, cfg.Redis.KeyPrefix, cfg.TTL), nil
}

// NewRedisServiceWithClient wraps an existing client.
func NewRedisServiceWithClient(client redis.UniversalClient, prefix string, ttl time.Duration) *redisService {
	return &redisService{client: client, prefix: prefix, ttl: ttl}
}

func (s *redisService) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

// GetOrFetch returns the stored bytes for key or runs fetchFn, which must
// produce []byte, and stores its result. Concurrent misses in this process
// share one fetch.
func (s *redisService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	full := s.key(key)
	data, err := s.client.Get(ctx, full).Bytes()
	if err == nil {
		return data, nil
	}
	if err != redis.Nil {
		return nil, fmt.Errorf("redis get %s: %w", full, err)
	}

	v, err, _ := s.group.Do(full, func() (any, error) {
		result, err := callFetch(ctx, fetchFn)
		if err != nil {
			return nil, err
		}
		data, ok := result.([]byte)
		if !ok {
			return nil, &ConfigError{Field: "fetchFn", Message: fmt.Sprintf("redis backend stores []byte, got %T", result)}
		}
		if err := s.client.Set(ctx, full, data, s.ttl).Err(); err != nil {
			return nil, fmt.Errorf("redis set %s: %w", full, err)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Delete removes a single entry.
func (s *redisService) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix, using
// SCAN so the server is never blocked.
func (s *redisService) DeleteByPrefix(ctx context.Context, prefix string) error {
	return s.scanPrefix(ctx, prefix, func(keys []string) error {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis batch delete: %w", err)
		}
		return nil
	})
}

// CountByPrefix reports how many live entries start with prefix.
func (s *redisService) CountByPrefix(ctx context.Context, prefix string) (int, error) {
	n := 0
	err := s.scanPrefix(ctx, prefix, func(keys []string) error {
		n += len(keys)
		return nil
	})
	return n, err
}

// scanPrefix calls fn with every non empty SCAN batch matching prefix.
// The prefix is matched literally.
func (s *redisService) scanPrefix(ctx context.Context, prefix string, fn func(keys []string) error) error {
	var cursor uint64
	match := escapeGlob(s.key(prefix)) + "*"
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escapeGlob quotes the SCAN MATCH metacharacters in s.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

// Close releases the connection pool.
func (s *redisService) Close() error {
	return s.client.Close()
}
