package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/quillsuite/quill-go/internal/domain/identity"
	"github.com/quillsuite/quill-go/internal/observability/metrics"
	"github.com/quillsuite/quill-go/internal/observability/statsd"
	"github.com/quillsuite/quill-go/internal/ports"
)

// RestoreOutcome describes what identity a restoration run adopted.
type RestoreOutcome string

const (
	// RestoreSkipped means restoration had already been attempted; the run
	// was a no-op.
	RestoreSkipped RestoreOutcome = "skipped"
	// RestoreAuthenticated means a valid user/credential pair was adopted.
	RestoreAuthenticated RestoreOutcome = "authenticated"
	// RestoreGuest means a persisted guest record was adopted.
	RestoreGuest RestoreOutcome = "guest"
	// RestoreAnonymous means nothing usable was found.
	RestoreAnonymous RestoreOutcome = "anonymous"
)

// RestorerOptions groups dependencies for Restorer.
type RestorerOptions struct {
	Store   *CredentialStore
	Cache   ports.IdentityCache
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Restorer populates the credential store from the persisted identity cache
// exactly once per process lifetime.
type Restorer struct {
	store   *CredentialStore
	cache   ports.IdentityCache
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewRestorer constructs a new Restorer.
func NewRestorer(opts RestorerOptions) *Restorer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Restorer{
		store:   opts.Store,
		cache:   opts.Cache,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Restore reads the persisted identity cache and commits an identity to the
// credential store. It is idempotent: only the first call does anything.
// Restore never fails — any cache trouble degrades to the anonymous
// identity so the application can never hang in an indeterminate state.
func (r *Restorer) Restore(ctx context.Context) RestoreOutcome {
	// The attempted flag flips before any IO so a concurrent second trigger
	// is a no-op rather than a duplicate run.
	if !r.store.MarkRestorationAttempted() {
		return RestoreSkipped
	}

	outcome := RestoreAnonymous
	committed := false
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "identity restore panicked", "panic", rec)
		}
		if !committed {
			r.store.Clear()
		}
		r.store.MarkRestorationComplete()
		metrics.EmitRestore(r.metrics, string(outcome))
		r.logger.InfoContext(ctx, "identity restore finished", "outcome", string(outcome))
	}()

	r.restoreGuestAccessFlag(ctx)

	outcome = r.restoreIdentity(ctx)
	committed = true
	return outcome
}

func (r *Restorer) restoreGuestAccessFlag(ctx context.Context) {
	value, err := r.cache.Get(ctx, ports.CacheKeyGuestAccess)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			r.logger.WarnContext(ctx, "read guest access flag failed", "error", err)
		}
		return
	}
	r.store.SetGuestAccessEnabled(value == "true")
}

// restoreIdentity prefers an authenticated pair over a guest record; a
// structurally invalid credential discards the pair and falls through to
// the guest check.
func (r *Restorer) restoreIdentity(ctx context.Context) RestoreOutcome {
	if rec, cred, ok := r.loadAuthenticatedPair(ctx); ok {
		r.store.SetAuthenticated(rec, cred)
		return RestoreAuthenticated
	}

	if rec, ok := r.loadGuestRecord(ctx); ok {
		r.store.SetGuest(rec)
		return RestoreGuest
	}

	r.store.Clear()
	return RestoreAnonymous
}

func (r *Restorer) loadAuthenticatedPair(ctx context.Context) (identity.Record, identity.Credential, bool) {
	userJSON, userErr := r.cache.Get(ctx, ports.CacheKeyUser)
	credValue, credErr := r.cache.Get(ctx, ports.CacheKeyCredential)

	if userErr != nil || credErr != nil {
		// A lone leftover key is discarded so a later run starts clean.
		if userErr == nil || credErr == nil {
			r.discard(ctx, "partial authenticated pair", ports.CacheKeyUser, ports.CacheKeyCredential)
		}
		return identity.Record{}, "", false
	}

	cred := identity.Credential(credValue)
	if !cred.Valid() {
		r.discard(ctx, "malformed credential", ports.CacheKeyUser, ports.CacheKeyCredential)
		return identity.Record{}, "", false
	}

	var rec identity.Record
	if err := json.Unmarshal([]byte(userJSON), &rec); err != nil {
		r.discard(ctx, "malformed user record", ports.CacheKeyUser, ports.CacheKeyCredential)
		return identity.Record{}, "", false
	}

	return rec, cred, true
}

func (r *Restorer) loadGuestRecord(ctx context.Context) (identity.Record, bool) {
	guestJSON, err := r.cache.Get(ctx, ports.CacheKeyGuestUser)
	if err != nil {
		return identity.Record{}, false
	}

	var rec identity.Record
	if err := json.Unmarshal([]byte(guestJSON), &rec); err != nil {
		r.discard(ctx, "malformed guest record", ports.CacheKeyGuestUser)
		return identity.Record{}, false
	}

	return rec, true
}

func (r *Restorer) discard(ctx context.Context, reason string, keys ...string) {
	r.logger.WarnContext(ctx, "discarding persisted identity state", "reason", reason)
	if err := r.cache.Delete(ctx, keys...); err != nil {
		r.logger.WarnContext(ctx, "delete persisted identity state failed", "error", err)
	}
}
