// Package cli holds the configuration and logging setup of the criteria
// command.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-criteria-cache/cache"
	"github.com/goliatone/go-criteria-cache/store"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CRITERIA_STORE_DSN.
const EnvPrefix = "CRITERIA"

const maxWalkDepth = 25

var configNames = []string{"criteria.yaml", "criteria.yml"}

// Config is the content of criteria.yaml.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Server ServerConfig `mapstructure:"server"`
	Store  store.Config `mapstructure:"store"`
	Cache  cache.Config `mapstructure:"cache"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures criteria serve.
type ServerConfig struct {
	Addr     string `mapstructure:"addr"`
	CaseFold bool   `mapstructure:"case_fold"`
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Log,
		validation.Field(&c.Log.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Log.Format, validation.In("text", "json")),
	); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Addr, validation.Required),
	); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// LoadConfig loads configuration with precedence env > config file >
// defaults. It returns the config and the file it was read from, empty
// when none was found.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, configPath, err
	}
	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.case_fold", false)

	s := store.DefaultConfig()
	v.SetDefault("store.driver", s.Driver)
	v.SetDefault("store.dsn", s.DSN)
	v.SetDefault("store.max_open_conns", s.MaxOpenConns)
	v.SetDefault("store.max_idle_conns", s.MaxIdleConns)
	v.SetDefault("store.conn_max_lifetime", s.ConnMaxLifetime)

	c := cache.DefaultConfig()
	v.SetDefault("cache.backend", c.Backend)
	v.SetDefault("cache.capacity", c.Capacity)
	v.SetDefault("cache.num_shards", c.NumShards)
	v.SetDefault("cache.ttl", c.TTL)
	v.SetDefault("cache.eviction_percentage", c.EvictionPercentage)
	v.SetDefault("cache.missing_record_storage", c.MissingRecordStorage)
	v.SetDefault("cache.eviction_interval", c.EvictionInterval)
	v.SetDefault("cache.redis.addr", c.Redis.Addr)
	v.SetDefault("cache.redis.password", c.Redis.Password)
	v.SetDefault("cache.redis.db", c.Redis.DB)
	v.SetDefault("cache.redis.key_prefix", c.Redis.KeyPrefix)
}

// findConfigFile returns explicitPath when set. Otherwise it walks up from
// the working directory looking for criteria.yaml, stopping at a .git
// entry or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}

// NewLogger builds the slog logger described by cfg.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
