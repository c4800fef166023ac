package cache

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-criteria-cache/internal/cacheinfra"
)

// Backend names.
const (
	BackendMemory = cacheinfra.BackendMemory
	BackendRedis  = cacheinfra.BackendRedis
)

// Config exposes cache configuration options for consumers of the cache package.
// Every field can be set from the environment with the CRITERIA_CACHE_ prefix.
type Config struct {
	Backend              string              `env:"BACKEND" mapstructure:"backend"`
	Capacity             int                 `env:"CAPACITY" mapstructure:"capacity"`
	NumShards            int                 `env:"NUM_SHARDS" mapstructure:"num_shards"`
	TTL                  time.Duration       `env:"TTL" mapstructure:"ttl"`
	EvictionPercentage   int                 `env:"EVICTION_PERCENTAGE" mapstructure:"eviction_percentage"`
	EarlyRefresh         *EarlyRefreshConfig `mapstructure:"early_refresh"`
	MissingRecordStorage bool                `env:"MISSING_RECORD_STORAGE" mapstructure:"missing_record_storage"`
	EvictionInterval     time.Duration       `env:"EVICTION_INTERVAL" mapstructure:"eviction_interval"`
	Redis                RedisConfig         `envPrefix:"REDIS_" mapstructure:"redis"`
}

// EarlyRefreshConfig mirrors the underlying sturdyc early refresh options.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration `mapstructure:"min_async"`
	MaxAsyncRefreshTime time.Duration `mapstructure:"max_async"`
	SyncRefreshTime     time.Duration `mapstructure:"sync"`
	RetryBaseDelay      time.Duration `mapstructure:"retry_base_delay"`
}

// RedisConfig holds the redis backend connection settings.
type RedisConfig struct {
	Addr      string `env:"ADDR" mapstructure:"addr"`
	Password  string `env:"PASSWORD" mapstructure:"password"`
	DB        int    `env:"DB" mapstructure:"db"`
	KeyPrefix string `env:"KEY_PREFIX" mapstructure:"key_prefix"`
}

// EnvPrefix is the prefix ConfigFromEnv reads.
const EnvPrefix = "CRITERIA_CACHE_"

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// ConfigFromEnv overlays environment variables on DefaultConfig and
// validates the result.
func ConfigFromEnv() (Config, error) {
	return configFromEnv(env.Options{Prefix: EnvPrefix})
}

func configFromEnv(opts env.Options) (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewCacheService constructs the backend selected by cfg.Backend.
func NewCacheService(cfg Config) (CacheService, error) {
	internal := cfg.toInternal()
	if internal.Backend == BackendRedis {
		svc, err := cacheinfra.NewRedisService(context.Background(), internal)
		if err != nil {
			return nil, err
		}
		return svc, nil
	}
	svc, err := cacheinfra.NewSturdycService(internal)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (c Config) toInternal() cacheinfra.Config {
	var early *cacheinfra.EarlyRefreshConfig
	if c.EarlyRefresh != nil {
		early = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: c.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: c.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     c.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      c.EarlyRefresh.RetryBaseDelay,
		}
	}

	backend := c.Backend
	if backend == "" {
		backend = BackendMemory
	}

	return cacheinfra.Config{
		Backend:              backend,
		Capacity:             c.Capacity,
		NumShards:            c.NumShards,
		TTL:                  c.TTL,
		EvictionPercentage:   c.EvictionPercentage,
		EarlyRefresh:         early,
		MissingRecordStorage: c.MissingRecordStorage,
		EvictionInterval:     c.EvictionInterval,
		Redis: cacheinfra.RedisConfig{
			Addr:      c.Redis.Addr,
			Password:  c.Redis.Password,
			DB:        c.Redis.DB,
			KeyPrefix: c.Redis.KeyPrefix,
		},
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	var early *EarlyRefreshConfig
	if cfg.EarlyRefresh != nil {
		early = &EarlyRefreshConfig{
			MinAsyncRefreshTime: cfg.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: cfg.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     cfg.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      cfg.EarlyRefresh.RetryBaseDelay,
		}
	}

	return Config{
		Backend:              cfg.Backend,
		Capacity:             cfg.Capacity,
		NumShards:            cfg.NumShards,
		TTL:                  cfg.TTL,
		EvictionPercentage:   cfg.EvictionPercentage,
		EarlyRefresh:         early,
		MissingRecordStorage: cfg.MissingRecordStorage,
		EvictionInterval:     cfg.EvictionInterval,
		Redis: RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		},
	}
}
