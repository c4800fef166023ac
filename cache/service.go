package cache

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidResultType is returned when a cached entry does not hold the
// requested type.
var ErrInvalidResultType = errors.New("cache: invalid result type")

// Kinds of cached query results. A search and its count share a namespace
// but never a key.
const (
	KindSearch = "search"
	KindCount  = "count"
)

// KeySerializer builds a cache key from a method name + arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService exposes the read-through caching operations used by the
// query cache and the repository decorator.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	// CountByPrefix reports the live entries whose key starts with prefix.
	CountByPrefix(ctx context.Context, prefix string) (int, error)
}

// GetOrFetch is a type-safe wrapper function that provides generic support for CacheService.
// A nil stored value yields the zero T.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T
	// the unnamed func type keeps the backends' typed fast paths
	result, err := service.GetOrFetch(ctx, key, (func(context.Context) (T, error))(fetchFn))
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%w: entry %q holds %T, want %T", ErrInvalidResultType, key, result, zero)
	}
	return typed, nil
}
