package rediscache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillsuite/quill-go/internal/ports"
	"github.com/quillsuite/quill-go/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	client := testutil.SetupTestRedis(t)
	prefix := fmt.Sprintf("quill:test:%d:", time.Now().UnixNano())
	store := NewWithPrefix(client, prefix)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		keys := []string{
			ports.CacheKeyUser, ports.CacheKeyCredential,
			ports.CacheKeyGuestUser, ports.CacheKeyGuestAccess,
		}
		if err := store.Delete(ctx, keys...); err != nil {
			t.Logf("cleanup failed: %v", err)
		}
	})
	return store
}

func TestStore_SetGetDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, ports.CacheKeyCredential, "fresh.sig.v2"))

	got, err := store.Get(ctx, ports.CacheKeyCredential)
	require.NoError(t, err)
	assert.Equal(t, "fresh.sig.v2", got)

	require.NoError(t, store.Delete(ctx, ports.CacheKeyCredential))
	_, err = store.Get(ctx, ports.CacheKeyCredential)
	assert.True(t, errors.Is(err, ports.ErrNotFound))
}

func TestStore_GetMissingKey(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "absent")
	assert.True(t, errors.Is(err, ports.ErrNotFound))
}

func TestStore_SetEmptyKeyRejected(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Set(context.Background(), "", "value"))
}

func TestStore_DeleteVariadic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, ports.CacheKeyUser, `{"id":"u1"}`))
	require.NoError(t, store.Set(ctx, ports.CacheKeyGuestUser, `{"id":"g1"}`))

	require.NoError(t, store.Delete(ctx, ports.CacheKeyUser, ports.CacheKeyGuestUser))

	_, err := store.Get(ctx, ports.CacheKeyUser)
	assert.True(t, errors.Is(err, ports.ErrNotFound))
	_, err = store.Get(ctx, ports.CacheKeyGuestUser)
	assert.True(t, errors.Is(err, ports.ErrNotFound))

	assert.NoError(t, store.Delete(ctx), "deleting nothing is a no-op")
}

func TestStore_PrefixIsolation(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	ctx := context.Background()

	a := NewWithPrefix(client, fmt.Sprintf("quill:test:a:%d:", time.Now().UnixNano()))
	b := NewWithPrefix(client, fmt.Sprintf("quill:test:b:%d:", time.Now().UnixNano()))
	t.Cleanup(func() {
		_ = a.Delete(context.Background(), ports.CacheKeyUser)
		_ = b.Delete(context.Background(), ports.CacheKeyUser)
	})

	require.NoError(t, a.Set(ctx, ports.CacheKeyUser, "from-a"))

	_, err := b.Get(ctx, ports.CacheKeyUser)
	assert.True(t, errors.Is(err, ports.ErrNotFound))
}
