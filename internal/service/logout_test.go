package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillsuite/quill-go/internal/mocks/identitytest"
	"github.com/quillsuite/quill-go/internal/ports"
	"github.com/quillsuite/quill-go/internal/testutil"
)

// recordingEnder records which server teardown calls ran.
type recordingEnder struct {
	mu       sync.Mutex
	logouts  int
	guestIDs []string
	err      error
}

func (e *recordingEnder) Logout(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logouts++
	return e.err
}

func (e *recordingEnder) EndGuestSession(_ context.Context, guestID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.guestIDs = append(e.guestIDs, guestID)
	return e.err
}

func TestLogoutProcedure_AuthenticatedTeardown(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()
	store.SetAuthenticated(testutil.NewRecord().Build(), testutil.CredentialFresh)
	cache := identitytest.NewMemoryIdentityCache().Seed(map[string]string{
		ports.CacheKeyUser:        testutil.NewRecord().JSON(t),
		ports.CacheKeyCredential:  testutil.CredentialFresh,
		ports.CacheKeyGuestAccess: "true",
	})
	ender := &recordingEnder{}
	channel := &identitytest.StubChannel{}
	resetter := &identitytest.CountingResetter{}

	proc := NewLogoutProcedure(LogoutOptions{
		Store:     store,
		Cache:     cache,
		Realtime:  channel,
		Sessions:  ender,
		Resetters: []ports.SandboxResetter{resetter},
	})
	proc.Logout(context.Background())

	assert.True(t, store.Identity().IsAnonymous())
	assert.False(t, store.LogoutInProgress(), "flag cleared last")
	assert.Equal(t, 1, ender.logouts)
	assert.Empty(t, ender.guestIDs)
	assert.Equal(t, 1, channel.Disconnects())
	assert.Equal(t, 1, resetter.Resets())

	assert.False(t, cache.Has(ports.CacheKeyUser))
	assert.False(t, cache.Has(ports.CacheKeyCredential))
	assert.True(t, cache.Has(ports.CacheKeyGuestAccess), "feature flag survives logout")
}

func TestLogoutProcedure_GuestTeardown(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()
	store.SetGuest(testutil.NewRecord().WithID("guest-9").AsGuest().Build())
	cache := identitytest.NewMemoryIdentityCache().Seed(map[string]string{
		ports.CacheKeyGuestUser: testutil.NewRecord().WithID("guest-9").AsGuest().JSON(t),
	})
	ender := &recordingEnder{}

	proc := NewLogoutProcedure(LogoutOptions{Store: store, Cache: cache, Sessions: ender})
	proc.Logout(context.Background())

	assert.True(t, store.Identity().IsAnonymous())
	assert.Equal(t, 0, ender.logouts)
	assert.Equal(t, []string{"guest-9"}, ender.guestIDs)
	assert.False(t, cache.Has(ports.CacheKeyGuestUser))
}

func TestLogoutProcedure_ServerFailureStillClears(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()
	store.SetAuthenticated(testutil.NewRecord().Build(), testutil.CredentialFresh)
	cache := identitytest.NewMemoryIdentityCache().Seed(map[string]string{
		ports.CacheKeyUser:       testutil.NewRecord().JSON(t),
		ports.CacheKeyCredential: testutil.CredentialFresh,
	})
	ender := &recordingEnder{err: errors.New("backend down")}
	channel := &identitytest.StubChannel{DisconnectErr: errors.New("socket gone")}

	proc := NewLogoutProcedure(LogoutOptions{
		Store:    store,
		Cache:    cache,
		Realtime: channel,
		Sessions: ender,
	})
	proc.Logout(context.Background())

	// Server-side calls are best-effort; client state always clears.
	assert.True(t, store.Identity().IsAnonymous())
	assert.False(t, store.LogoutInProgress())
	assert.False(t, cache.Has(ports.CacheKeyCredential))
}

func TestLogoutProcedure_AnonymousIsNoServerCall(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()
	ender := &recordingEnder{}

	proc := NewLogoutProcedure(LogoutOptions{
		Store:    store,
		Cache:    identitytest.NewMemoryIdentityCache(),
		Sessions: ender,
	})
	proc.Logout(context.Background())

	assert.Equal(t, 0, ender.logouts)
	assert.Empty(t, ender.guestIDs)
	assert.False(t, store.LogoutInProgress())
}

func TestLogoutProcedure_ConcurrentRunsCollapse(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()
	store.SetAuthenticated(testutil.NewRecord().Build(), testutil.CredentialFresh)
	ender := &recordingEnder{}

	proc := NewLogoutProcedure(LogoutOptions{
		Store:    store,
		Cache:    identitytest.NewMemoryIdentityCache(),
		Sessions: ender,
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			proc.Logout(context.Background())
		}()
	}
	wg.Wait()

	ender.mu.Lock()
	logouts := ender.logouts
	ender.mu.Unlock()
	// The flag-guarded run serializes: at most one server call per episode
	// that still sees an authenticated identity.
	assert.LessOrEqual(t, logouts, 1)
	require.True(t, store.Identity().IsAnonymous())
}

func TestLogoutProcedure_SurvivesCancelledContext(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()
	store.SetAuthenticated(testutil.NewRecord().Build(), testutil.CredentialFresh)
	cache := identitytest.NewMemoryIdentityCache().Seed(map[string]string{
		ports.CacheKeyCredential: testutil.CredentialFresh,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	proc := NewLogoutProcedure(LogoutOptions{Store: store, Cache: cache, Sessions: &recordingEnder{}})
	proc.Logout(ctx)

	assert.True(t, store.Identity().IsAnonymous())
	assert.False(t, cache.Has(ports.CacheKeyCredential), "teardown finishes despite cancellation")
}
