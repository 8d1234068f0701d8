package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/quillsuite/quill-go/internal/domain/identity"
	apperrors "github.com/quillsuite/quill-go/internal/errors"
	"github.com/quillsuite/quill-go/internal/observability/statsd"
	"github.com/quillsuite/quill-go/internal/ports"
)

// GuestAccessFetcher retrieves the server-side guest-access feature flag.
type GuestAccessFetcher interface {
	GuestAccessStatus(ctx context.Context) (bool, error)
}

// GuestProviderOptions groups dependencies for GuestProvider.
type GuestProviderOptions struct {
	Store   *CredentialStore
	Cache   ports.IdentityCache
	Flags   GuestAccessFetcher
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// GuestProvider manages the client-side guest identity path. Guests never
// touch the credential/refresh machinery: they have no server-issued
// credential at all.
type GuestProvider struct {
	store   *CredentialStore
	cache   ports.IdentityCache
	flags   GuestAccessFetcher
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewGuestProvider constructs a new GuestProvider.
func NewGuestProvider(opts GuestProviderOptions) *GuestProvider {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GuestProvider{
		store:   opts.Store,
		cache:   opts.Cache,
		flags:   opts.Flags,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Start begins a guest session. It is rejected while the guest-access
// feature flag is disabled; on rejection the current identity is unchanged.
// Any existing authenticated credential is cleared first: the two identity
// paths are mutually exclusive.
func (p *GuestProvider) Start(ctx context.Context) (identity.Record, error) {
	if p.store.LogoutInProgress() {
		return identity.Record{}, apperrors.LogoutInProgress("cannot start a guest session during logout")
	}
	if !p.store.GuestAccessEnabled() {
		return identity.Record{}, apperrors.Validation("guest access is disabled")
	}

	if cur := p.store.Identity(); cur.IsAuthenticated() {
		if err := p.cache.Delete(ctx, ports.CacheKeyUser, ports.CacheKeyCredential); err != nil {
			p.logger.WarnContext(ctx, "clear authenticated cache entries failed", "error", err)
		}
		p.store.Clear()
	}

	rec := identity.Record{
		ID:          "guest-" + uuid.NewString(),
		DisplayName: "Guest",
		Role:        identity.RoleGuest,
		IsTemporary: true,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return identity.Record{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "marshal guest record")
	}
	if err := p.cache.Set(ctx, ports.CacheKeyGuestUser, string(data)); err != nil {
		return identity.Record{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "persist guest record")
	}

	p.store.SetGuest(rec)
	if p.metrics != nil {
		p.metrics.Count("auth.guest.start", 1, nil)
	}
	p.logger.InfoContext(ctx, "guest session started", "guest_id", rec.ID)
	return rec, nil
}

// ApplyAccessFlag updates the cached feature flag. Disabling the flag while
// a guest session is active forces the identity back to anonymous and
// removes the persisted guest entry.
func (p *GuestProvider) ApplyAccessFlag(ctx context.Context, enabled bool) {
	p.store.SetGuestAccessEnabled(enabled)

	if enabled || !p.store.Identity().IsGuest() {
		return
	}

	p.logger.InfoContext(ctx, "guest access disabled while guest session active, ending session")
	if err := p.cache.Delete(ctx, ports.CacheKeyGuestUser); err != nil {
		p.logger.WarnContext(ctx, "remove persisted guest record failed", "error", err)
	}
	p.store.Clear()
	if p.metrics != nil {
		p.metrics.Count("auth.guest.forced_exit", 1, nil)
	}
}

// RefreshAccessFlag refetches the guest-access feature flag from the server
// and applies it. The fetched value is persisted so restoration sees it on
// the next start.
func (p *GuestProvider) RefreshAccessFlag(ctx context.Context) (bool, error) {
	if p.flags == nil {
		return p.store.GuestAccessEnabled(), nil
	}

	enabled, err := p.flags.GuestAccessStatus(ctx)
	if err != nil {
		return p.store.GuestAccessEnabled(), fmt.Errorf("fetch guest access status: %w", err)
	}

	if err := p.cache.Set(ctx, ports.CacheKeyGuestAccess, strconv.FormatBool(enabled)); err != nil {
		p.logger.WarnContext(ctx, "persist guest access flag failed", "error", err)
	}

	p.ApplyAccessFlag(ctx, enabled)
	return enabled, nil
}
