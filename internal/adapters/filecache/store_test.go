package filecache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillsuite/quill-go/internal/ports"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "identity.json")
	return New(path, nil), path
}

func TestStore_SetGetDelete(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
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
	t.Parallel()

	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ports.ErrNotFound))
}

func TestStore_SetEmptyKeyRejected(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	assert.Error(t, store.Set(context.Background(), "", "value"))
}

func TestStore_DeleteMultipleAndMissing(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, ports.CacheKeyUser, `{"id":"u1"}`))
	require.NoError(t, store.Set(ctx, ports.CacheKeyCredential, "fresh.sig.v2"))

	require.NoError(t, store.Delete(ctx, ports.CacheKeyUser, ports.CacheKeyCredential, ports.CacheKeyGuestUser))

	_, err := store.Get(ctx, ports.CacheKeyUser)
	assert.True(t, errors.Is(err, ports.ErrNotFound))
	_, err = store.Get(ctx, ports.CacheKeyCredential)
	assert.True(t, errors.Is(err, ports.ErrNotFound))
}

func TestStore_SurvivesRestart(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "identity.json")
	ctx := context.Background()

	first := New(path, nil)
	require.NoError(t, first.Set(ctx, ports.CacheKeyGuestUser, `{"id":"guest-1"}`))

	second := New(path, nil)
	got, err := second.Get(ctx, ports.CacheKeyGuestUser)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"guest-1"}`, got)
}

func TestStore_MalformedFileTreatedAsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "identity.json")
	require.NoError(t, os.WriteFile(path, []byte("{corrupt"), 0o600))

	store := New(path, nil)
	ctx := context.Background()

	_, err := store.Get(ctx, ports.CacheKeyUser)
	assert.True(t, errors.Is(err, ports.ErrNotFound))

	// The next write replaces the corrupt document wholesale.
	require.NoError(t, store.Set(ctx, ports.CacheKeyUser, `{"id":"u1"}`))
	got, err := store.Get(ctx, ports.CacheKeyUser)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u1"}`, got)
}

func TestStore_CreatesParentDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "deeper", "identity.json")
	store := New(path, nil)

	require.NoError(t, store.Set(context.Background(), ports.CacheKeyUser, `{"id":"u1"}`))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
