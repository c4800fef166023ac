// Package cache provides the backend interface and canonical key
// serialization shared by the query cache and the repository decorator.
//
// # Overview
//
//   - CacheService: read-through get-or-fetch plus key and prefix deletion
//   - KeySerializer: builds stable, typed keys from a method name and arguments
//   - Config: selects the in-memory (sturdyc) or redis backend
//
// # Basic Usage
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	user, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) (User, error) {
//		return repo.GetByID(ctx, "user-123")
//	})
//
// # Key Serialization
//
// Scalars are rendered through the codec registry in pkg/convert as
// tag:payload pairs, so the string "42" and the integer 42 never share a
// key. Collections are rendered recursively with their length, maps are
// sorted by serialized key, and structs list their exported fields.
//
// QueryKey prefixes the serialized form with the namespace and a kind
// ("search" or "count") and hashes the canonical text with xxhash:
//
//	key, canonical := cache.QueryKey(serializer, "menus.cache", cache.KindSearch, sql, params, page)
//	// key == "menus.cache::search::1f0c9d2a7b3e4f60"
//
// The canonical text is stored next to the value so a digest collision is
// detected on read instead of returning a foreign result.
//
// # Function Criteria
//
// Function arguments are keyed by pointer. Those keys are stable within a
// process only; with the redis backend use named criteria or a custom
// KeySerializer if several processes must share entries.
//
// # Configuration
//
// Every Config field can be set from the environment with the
// CRITERIA_CACHE_ prefix through ConfigFromEnv, for example
// CRITERIA_CACHE_BACKEND=redis and CRITERIA_CACHE_REDIS_ADDR=cache:6379.
package cache
