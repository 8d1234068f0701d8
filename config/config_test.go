package config

import (
	"strings"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func parseTestConfig(t *testing.T) AppConfig {
	t.Helper()

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()
	return cfg
}

func TestAppConfig_Defaults(t *testing.T) {
	t.Setenv("QUILL_API_BASE_URL", "https://api.quillsuite.dev/")

	cfg := parseTestConfig(t)

	if cfg.API.BaseURL != "https://api.quillsuite.dev" {
		t.Fatalf("BaseURL = %q, want trailing slash trimmed", cfg.API.BaseURL)
	}
	if cfg.API.RequestTimeout != 30*time.Second {
		t.Fatalf("RequestTimeout = %v, want 30s", cfg.API.RequestTimeout)
	}
	if cfg.API.RefreshTimeout != 15*time.Second {
		t.Fatalf("RefreshTimeout = %v, want 15s", cfg.API.RefreshTimeout)
	}
	if cfg.Cache.Backend != CacheBackendFile {
		t.Fatalf("Cache.Backend = %q, want file", cfg.Cache.Backend)
	}
	if cfg.Cache.FilePath == "" {
		t.Fatal("Cache.FilePath should resolve to a default location")
	}
	if cfg.Realtime.Enabled {
		t.Fatal("Realtime should be disabled by default")
	}
	if cfg.SSO.Enabled {
		t.Fatal("SSO should be disabled by default")
	}
	if cfg.Observability.Metrics.IsEnabled() {
		t.Fatal("metrics should be disabled by default")
	}
}

func TestAppConfig_RequiredBaseURL(t *testing.T) {
	var cfg AppConfig
	err := env.Parse(&cfg)
	if err == nil {
		t.Fatal("expected error when QUILL_API_BASE_URL is unset")
	}
	if !strings.Contains(err.Error(), "BASE_URL") {
		t.Fatalf("error %q should name the missing variable", err)
	}
}

func TestAppConfig_RedisBackend(t *testing.T) {
	t.Setenv("QUILL_API_BASE_URL", "https://api.quillsuite.dev")
	t.Setenv("QUILL_CACHE_BACKEND", "redis")
	t.Setenv("QUILL_CACHE_REDIS_ADDRESS", "redis.internal:6380")
	t.Setenv("QUILL_CACHE_REDIS_KEY_PREFIX", "suite:identity:")

	cfg := parseTestConfig(t)

	if cfg.Cache.Backend != CacheBackendRedis {
		t.Fatalf("Cache.Backend = %q, want redis", cfg.Cache.Backend)
	}
	if cfg.Cache.Redis.Address != "redis.internal:6380" {
		t.Fatalf("Redis.Address = %q", cfg.Cache.Redis.Address)
	}
	if cfg.Cache.Redis.KeyPrefix != "suite:identity:" {
		t.Fatalf("Redis.KeyPrefix = %q", cfg.Cache.Redis.KeyPrefix)
	}
}

func TestCacheBackend_UnmarshalText(t *testing.T) {
	tests := []struct {
		input       string
		expected    CacheBackend
		expectError bool
	}{
		{input: "file", expected: CacheBackendFile},
		{input: "redis", expected: CacheBackendRedis},
		{input: "REDIS", expected: CacheBackendRedis},
		{input: "postgres", expectError: true},
		{input: "", expectError: true},
	}

	for _, tc := range tests {
		var b CacheBackend
		err := b.UnmarshalText([]byte(tc.input))
		if tc.expectError {
			if err == nil {
				t.Fatalf("UnmarshalText(%q): expected error", tc.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("UnmarshalText(%q): %v", tc.input, err)
		}
		if b != tc.expected {
			t.Fatalf("UnmarshalText(%q) = %q, want %q", tc.input, b, tc.expected)
		}
	}
}

func TestSSOConfig_DisabledWithoutIssuer(t *testing.T) {
	t.Setenv("QUILL_API_BASE_URL", "https://api.quillsuite.dev")
	t.Setenv("QUILL_SSO_ENABLED", "true")

	cfg := parseTestConfig(t)

	if cfg.SSO.Enabled {
		t.Fatal("SSO must sanitize to disabled without an issuer URL")
	}
}

func TestRealtimeConfig_DisabledWithoutURL(t *testing.T) {
	t.Setenv("QUILL_API_BASE_URL", "https://api.quillsuite.dev")
	t.Setenv("QUILL_REALTIME_ENABLED", "true")

	cfg := parseTestConfig(t)

	if cfg.Realtime.Enabled {
		t.Fatal("Realtime must sanitize to disabled without a URL")
	}
}

func TestObservabilityMetricsConfig_BlankAddressDisables(t *testing.T) {
	t.Setenv("QUILL_API_BASE_URL", "https://api.quillsuite.dev")
	t.Setenv("QUILL_OBSERVABILITY_METRICS_ENABLED", "true")
	t.Setenv("QUILL_OBSERVABILITY_METRICS_STATSD_ADDRESS", "   ")

	cfg := parseTestConfig(t)

	if cfg.Observability.Metrics.IsEnabled() {
		t.Fatal("blank statsd address must disable metrics")
	}
}
