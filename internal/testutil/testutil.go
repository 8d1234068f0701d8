// Package testutil provides testing utilities and helpers for the identity
// subsystem.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Credential fixtures. Structural validity only requires three non-empty
// dot-separated segments, so fixtures stay readable.
const (
	CredentialExpired = "expired.sig.v1"
	CredentialFresh   = "fresh.sig.v2"
)

// TempCacheFile returns a path inside a per-test temp directory for the
// file-backed identity cache.
func TempCacheFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "identity.json")
}

// SetupTestRedis connects to a test Redis instance, skipping the test when
// none is reachable. QUILL_TEST_REDIS_ADDR overrides the default address.
// Keys under the returned client are the caller's responsibility; use a
// unique prefix per test.
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("QUILL_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available at %s: %v", addr, err)
	}

	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("warning: failed to close redis client: %v", err)
		}
	})
	return client
}
