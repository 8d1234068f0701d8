package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillsuite/quill-go/internal/domain/identity"
)

func TestCredentialStore_StartsAnonymous(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()

	assert.True(t, store.Identity().IsAnonymous())
	_, ok := store.Credential()
	assert.False(t, ok)
	assert.False(t, store.RestorationAttempted())
	assert.False(t, store.LogoutInProgress())
	assert.False(t, store.GuestAccessEnabled())
}

func TestCredentialStore_Credential_OnlyWhenAuthenticated(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()

	store.SetGuest(identity.Record{ID: "guest-1"})
	_, ok := store.Credential()
	assert.False(t, ok, "guests carry no credential")

	store.SetAuthenticated(identity.Record{ID: "user-1"}, "fresh.sig.v2")
	cred, ok := store.Credential()
	require.True(t, ok)
	assert.Equal(t, identity.Credential("fresh.sig.v2"), cred)
}

func TestCredentialStore_ReplaceCredential(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()

	assert.False(t, store.ReplaceCredential("fresh.sig.v2"), "no identity to replace on")

	store.SetAuthenticated(identity.Record{ID: "user-1", Email: "u@example.com"}, "expired.sig.v1")
	require.True(t, store.ReplaceCredential("fresh.sig.v2"))

	id := store.Identity()
	assert.Equal(t, identity.Credential("fresh.sig.v2"), id.Credential)
	assert.Equal(t, "u@example.com", id.Record.Email, "record survives credential swap")

	store.SetGuest(identity.Record{ID: "guest-1"})
	assert.False(t, store.ReplaceCredential("another.sig.v3"))
}

func TestCredentialStore_Clear_KeepsFlags(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()
	store.SetAuthenticated(identity.Record{ID: "user-1"}, "fresh.sig.v2")
	store.MarkRestorationComplete()
	store.SetGuestAccessEnabled(true)

	store.Clear()

	assert.True(t, store.Identity().IsAnonymous())
	assert.True(t, store.RestorationAttempted(), "restoration is once per lifetime")
	assert.True(t, store.RestorationComplete())
	assert.True(t, store.GuestAccessEnabled(), "feature flag is not identity state")
}

func TestCredentialStore_MarkRestorationAttempted_FirstCallOnly(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()

	assert.True(t, store.MarkRestorationAttempted())
	assert.False(t, store.MarkRestorationAttempted())
	assert.True(t, store.RestorationAttempted())
	assert.False(t, store.RestorationComplete())

	store.MarkRestorationComplete()
	assert.True(t, store.RestorationComplete())
}

func TestCredentialStore_BeginLogout_Exclusive(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()

	require.True(t, store.BeginLogout())
	assert.False(t, store.BeginLogout(), "second logout joins the first")
	assert.True(t, store.LogoutInProgress())

	store.EndLogout()
	assert.False(t, store.LogoutInProgress())
	assert.True(t, store.BeginLogout(), "a fresh logout can start later")
}

func TestCredentialStore_BeginLogout_ConcurrentWinners(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()

	const goroutines = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.BeginLogout() {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}
