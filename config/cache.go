package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CacheBackend selects the persisted identity cache implementation.
type CacheBackend string

const (
	// CacheBackendFile stores the identity document in a local JSON file.
	CacheBackendFile CacheBackend = "file"
	// CacheBackendRedis stores identity keys in Redis.
	CacheBackendRedis CacheBackend = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for CacheBackend.
func (b *CacheBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "file", "redis":
		*b = CacheBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid CacheBackend: %q (valid options: file, redis)", v)
	}
}

// RedisCacheConfig controls the Redis-backed identity cache.
type RedisCacheConfig struct {
	Address  string `env:"ADDRESS"  envDefault:"127.0.0.1:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB"       envDefault:"0"`
	// KeyPrefix namespaces identity keys in a shared Redis.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"identity:"`
}

// CacheConfig groups persisted identity cache configuration.
type CacheConfig struct {
	// Backend determines where the identity document persists.
	Backend CacheBackend `env:"BACKEND" envDefault:"file"`

	// FilePath is the identity cache file (used when Backend=file). Empty
	// means a quill subdirectory of the user config directory.
	FilePath string `env:"FILE_PATH"`

	// Redis configuration (used when Backend=redis).
	Redis RedisCacheConfig `envPrefix:"REDIS_"`
}

// Sanitize normalises values and resolves the default file location.
func (c *CacheConfig) Sanitize() {
	c.FilePath = strings.TrimSpace(c.FilePath)
	if c.Backend == CacheBackendFile && c.FilePath == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		c.FilePath = filepath.Join(base, "quill", "identity.json")
	}
	c.Redis.KeyPrefix = strings.TrimSpace(c.Redis.KeyPrefix)
}
