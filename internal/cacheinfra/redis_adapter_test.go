package cacheinfra

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-redis/redis/v8"
)

func TestNewRedisService_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Backend = BackendRedis
	cfg.Capacity = 0

	if _, err := NewRedisService(context.Background(), cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestNewRedisService_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.Backend = BackendRedis
	cfg.Redis.Addr = "127.0.0.1:1"

	_, err := NewRedisService(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected ping error")
	}
	if !strings.Contains(err.Error(), "redis ping 127.0.0.1:1") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRedisService_KeyPrefix(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	s := NewRedisServiceWithClient(client, "criteria", testConfig().TTL)
	if got := s.key("menus.cache::search::ab"); got != "criteria:menus.cache::search::ab" {
		t.Errorf("unexpected key %q", got)
	}

	bare := NewRedisServiceWithClient(client, "", testConfig().TTL)
	if got := bare.key("k"); got != "k" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestRedisService_RejectsBadFetchFn(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	s := NewRedisServiceWithClient(client, "criteria", testConfig().TTL)

	_, err := s.GetOrFetch(context.Background(), "k", "not a function")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestEscapeGlob(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"menus.cache::", "menus.cache::"},
		{"menus*.cache::", `menus\*.cache::`},
		{"a?b", `a\?b`},
		{"tenant[0]", `tenant\[0\]`},
		{`back\slash`, `back\\slash`},
	}
	for _, tt := range tests {
		if got := escapeGlob(tt.in); got != tt.want {
			t.Errorf("escapeGlob(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
