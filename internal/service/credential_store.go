// Package service contains the identity orchestration layer: the credential
// store, the restoration sequencer, the guest session provider, the secure
// logout procedure, and the login flow. Adapters do the IO; this package
// owns the state machine.
package service

import (
	"sync"

	"github.com/quillsuite/quill-go/internal/domain/identity"
)

// CredentialStore holds the current identity, the two restoration flags,
// the logout-in-progress flag, and the cached guest-access feature flag.
// It is the in-memory projection of the persisted identity cache and the
// single shared state read by both the interceptor pipeline and callers.
// All mutators are synchronous and total. Safe for concurrent use.
type CredentialStore struct {
	mu sync.RWMutex

	identity identity.Identity

	// restorationAttempted flips true the instant restoration begins and
	// never resets; restorationComplete implies restorationAttempted.
	restorationAttempted bool
	restorationComplete  bool

	logoutInProgress   bool
	guestAccessEnabled bool
}

// NewCredentialStore creates a store holding the anonymous identity.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{identity: identity.Anonymous()}
}

// Credential returns the current bearer credential, if any.
func (s *CredentialStore) Credential() (identity.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.identity.IsAuthenticated() || s.identity.Credential == "" {
		return "", false
	}
	return s.identity.Credential, true
}

// Identity returns the current identity variant.
func (s *CredentialStore) Identity() identity.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// SetAuthenticated adopts an authenticated identity.
func (s *CredentialStore) SetAuthenticated(rec identity.Record, cred identity.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity.Authenticated(rec, cred)
}

// SetGuest adopts a guest identity.
func (s *CredentialStore) SetGuest(rec identity.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity.Guest(rec)
}

// ReplaceCredential swaps only the credential of an authenticated identity,
// keeping the record. Returns false when no authenticated identity is active.
func (s *CredentialStore) ReplaceCredential(cred identity.Credential) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.identity.IsAuthenticated() {
		return false
	}
	s.identity.Credential = cred
	return true
}

// Clear resets the identity to anonymous. Restoration flags are left
// untouched: restoration is a once-per-lifetime event, not reset by logout.
func (s *CredentialStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity.Anonymous()
}

// MarkRestorationAttempted records that restoration has begun. It returns
// true only on the first call, giving the restorer its re-entry guard.
func (s *CredentialStore) MarkRestorationAttempted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restorationAttempted {
		return false
	}
	s.restorationAttempted = true
	return true
}

// MarkRestorationComplete records that restoration finished, success or
// failure.
func (s *CredentialStore) MarkRestorationComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restorationAttempted = true
	s.restorationComplete = true
}

// RestorationAttempted reports whether restoration has begun.
func (s *CredentialStore) RestorationAttempted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restorationAttempted
}

// RestorationComplete reports whether restoration has finished.
func (s *CredentialStore) RestorationComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restorationComplete
}

// BeginLogout sets the logout-in-progress flag. It returns true only when
// no logout was already running, making the secure logout procedure
// idempotent under concurrent triggers.
func (s *CredentialStore) BeginLogout() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logoutInProgress {
		return false
	}
	s.logoutInProgress = true
	return true
}

// EndLogout clears the logout-in-progress flag. Called last by the secure
// logout procedure, after all state has been torn down.
func (s *CredentialStore) EndLogout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutInProgress = false
}

// LogoutInProgress reports whether a secure logout is running.
func (s *CredentialStore) LogoutInProgress() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logoutInProgress
}

// SetGuestAccessEnabled updates the cached guest-access feature flag.
func (s *CredentialStore) SetGuestAccessEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guestAccessEnabled = enabled
}

// GuestAccessEnabled reports the cached guest-access feature flag.
func (s *CredentialStore) GuestAccessEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guestAccessEnabled
}
