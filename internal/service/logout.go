package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/quillsuite/quill-go/internal/observability/metrics"
	"github.com/quillsuite/quill-go/internal/observability/statsd"
	"github.com/quillsuite/quill-go/internal/ports"
)

// SessionEnder performs the best-effort server-side teardown calls.
type SessionEnder interface {
	// Logout invalidates the server session for an authenticated identity.
	Logout(ctx context.Context) error
	// EndGuestSession tells the server a guest session ended.
	EndGuestSession(ctx context.Context, guestID string) error
}

// LogoutOptions groups dependencies for LogoutProcedure.
type LogoutOptions struct {
	Store    *CredentialStore
	Cache    ports.IdentityCache
	Realtime ports.RealtimeChannel
	Sessions SessionEnder
	// Resetters are dependent in-memory states (e.g. a guest sandbox cache)
	// cleared once the identity is torn down.
	Resetters []ports.SandboxResetter
	Logger    *slog.Logger
	Metrics   statsd.Sink
	// ServerCallTimeout bounds each best-effort server call; zero means
	// 5 seconds.
	ServerCallTimeout time.Duration
}

// LogoutProcedure is the single idempotent teardown path for any identity.
// It is invoked by the refresh coordinator on irrecoverable failure and by
// explicit user action; concurrent invocations collapse into one run.
type LogoutProcedure struct {
	store     *CredentialStore
	cache     ports.IdentityCache
	realtime  ports.RealtimeChannel
	sessions  SessionEnder
	resetters []ports.SandboxResetter
	logger    *slog.Logger
	metrics   statsd.Sink
	timeout   time.Duration
}

// NewLogoutProcedure constructs a new LogoutProcedure.
func NewLogoutProcedure(opts LogoutOptions) *LogoutProcedure {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.ServerCallTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &LogoutProcedure{
		store:     opts.Store,
		cache:     opts.Cache,
		realtime:  opts.Realtime,
		sessions:  opts.Sessions,
		resetters: opts.Resetters,
		logger:    logger,
		metrics:   opts.Metrics,
		timeout:   timeout,
	}
}

// Logout tears down the current identity. Server-side calls are best-effort:
// their failure is logged, never escalated, and client-side state always
// clears. The logout-in-progress flag is set first (so the request
// interceptor blocks new protected calls immediately) and cleared last, so
// queued calls fail cleanly rather than racing a half-cleared state.
func (p *LogoutProcedure) Logout(ctx context.Context) {
	if !p.store.BeginLogout() {
		return
	}
	defer p.store.EndLogout()

	// Teardown must finish even if the triggering request was cancelled.
	ctx = context.WithoutCancel(ctx)

	if p.realtime != nil {
		if err := p.realtime.Disconnect(ctx); err != nil {
			p.logger.WarnContext(ctx, "realtime disconnect failed", "error", err)
		}
	}

	id := p.store.Identity()
	p.notifyServer(ctx, string(id.Kind), func(callCtx context.Context) error {
		switch {
		case id.IsGuest() && id.Record.ID != "":
			return p.sessions.EndGuestSession(callCtx, id.Record.ID)
		case id.IsAuthenticated():
			return p.sessions.Logout(callCtx)
		default:
			return nil
		}
	})

	if err := p.cache.Delete(ctx, ports.CacheKeyUser, ports.CacheKeyCredential, ports.CacheKeyGuestUser); err != nil {
		p.logger.ErrorContext(ctx, "clear persisted identity cache failed", "error", err)
	}

	p.store.Clear()

	for _, r := range p.resetters {
		r.Reset()
	}

	metrics.EmitLogout(p.metrics, string(id.Kind))
	p.logger.InfoContext(ctx, "secure logout complete", "identity", string(id.Kind))
}

func (p *LogoutProcedure) notifyServer(ctx context.Context, kind string, call func(context.Context) error) {
	if p.sessions == nil {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := call(callCtx); err != nil {
		p.logger.WarnContext(ctx, "server logout notification failed", "identity", kind, "error", err)
	}
}
