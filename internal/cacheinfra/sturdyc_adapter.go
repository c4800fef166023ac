package cacheinfra

import (
	"context"
	"strings"

	"github.com/viccon/sturdyc"
)

// sturdycService keeps entries in process memory. Concurrent misses on the
// same key share one fetch.
type sturdycService struct {
	client *sturdyc.Client[any]
}

// NewSturdycService validates cfg and builds the in memory backend.
// Capacity, NumShards, TTL and EvictionPercentage go to sturdyc.New, the rest
// through ToSturdycOptions.
func NewSturdycService(cfg Config) (*sturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &sturdycService{client: client}, nil
}

// GetOrFetch returns the entry for key, running fetchFn on a miss.
// fetchFn must have the signature func(context.Context) (T, error).
func (s *sturdycService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	return s.client.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return callFetch(ctx, fetchFn)
	})
}

// Delete removes a single entry.
func (s *sturdycService) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (s *sturdycService) DeleteByPrefix(_ context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// CountByPrefix reports how many unexpired entries start with prefix.
func (s *sturdycService) CountByPrefix(_ context.Context, prefix string) (int, error) {
	n := 0
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			n++
		}
	}
	return n, nil
}

// Size reports the number of stored entries.
func (s *sturdycService) Size() int {
	return s.client.Size()
}
