package cacheinfra

import (
	"errors"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds the configuration for the cache backends.
type Config struct {
	// Backend selects the store: "memory" (sturdyc, per process) or "redis"
	// (shared between processes).
	Backend string

	// Capacity defines the maximum number of entries that the in memory
	// cache can store. Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the default time-to-live for cached entries.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EarlyRefresh configures early refresh behavior for cached entries.
	// If nil, early refresh is disabled.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage remembers keys whose fetch reported
	// sturdyc.ErrNotFound.
	MissingRecordStorage bool

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration

	// Redis is used when Backend is "redis".
	Redis RedisConfig
}

// EarlyRefreshConfig configures early refresh behavior.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// RedisConfig holds the connection settings of the redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix is prepended to every key so several deployments can share
	// one redis database.
	KeyPrefix string
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
// Early refresh is off: a refreshed entry would re-run a query outside the
// write-then-invalidate contract.
func DefaultConfig() Config {
	return Config{
		Backend:              BackendMemory,
		Capacity:             10000,
		NumShards:            256,
		TTL:                  5 * time.Minute,
		EvictionPercentage:   10,
		MissingRecordStorage: false,
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "criteria",
		},
	}
}

// ToSturdycOptions converts the Config to sturdyc options. Capacity,
// NumShards, TTL and EvictionPercentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks the configuration and reports the first invalid field as
// a *ConfigError.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendMemory, BackendRedis)),
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Nanosecond)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
	)
	if err != nil {
		return toConfigError("", err)
	}

	if c.EarlyRefresh != nil {
		er := *c.EarlyRefresh
		err := validation.ValidateStruct(&er,
			validation.Field(&er.MinAsyncRefreshTime, validation.Min(time.Duration(0))),
			validation.Field(&er.MaxAsyncRefreshTime, validation.Min(time.Duration(0))),
			validation.Field(&er.SyncRefreshTime, validation.Min(time.Duration(0))),
			validation.Field(&er.RetryBaseDelay, validation.Min(time.Duration(0))),
		)
		if err != nil {
			return toConfigError("EarlyRefresh.", err)
		}
	}

	if c.Backend == BackendRedis {
		r := c.Redis
		err := validation.ValidateStruct(&r,
			validation.Field(&r.Addr, validation.Required),
			validation.Field(&r.DB, validation.Min(0)),
		)
		if err != nil {
			return toConfigError("Redis.", err)
		}
	}

	return nil
}

// toConfigError flattens ozzo validation errors into the first failing
// field, in name order so the result is deterministic.
func toConfigError(prefix string, err error) error {
	var errs validation.Errors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &ConfigError{Field: prefix, Message: err.Error()}
	}

	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	return &ConfigError{Field: prefix + fields[0], Message: errs[fields[0]].Error()}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
