package transport

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/quillsuite/quill-go/internal/domain/identity"
	apperrors "github.com/quillsuite/quill-go/internal/errors"
	"github.com/quillsuite/quill-go/internal/observability/metrics"
	"github.com/quillsuite/quill-go/internal/observability/statsd"
	"github.com/quillsuite/quill-go/internal/ports"
	"github.com/quillsuite/quill-go/internal/service"
)

// singleflight key: there is only ever one credential to refresh.
const refreshKey = "credential"

// RefreshFunc performs the refresh network call. The refresh secret rides
// an HTTP-only cookie managed by the shared cookie jar; no body is sent.
type RefreshFunc func(ctx context.Context) (identity.Credential, error)

// RefreshCoordinatorOptions groups dependencies for RefreshCoordinator.
type RefreshCoordinatorOptions struct {
	Store   *service.CredentialStore
	Cache   ports.IdentityCache
	Refresh RefreshFunc
	// Logout runs the secure logout procedure when the refresh fails; it
	// executes inside the shared flight, so it runs exactly once per
	// episode no matter how many calls are waiting.
	Logout  func(ctx context.Context)
	Logger  *slog.Logger
	Metrics statsd.Sink
	// Timeout bounds the refresh network call; zero means 15 seconds.
	Timeout time.Duration
}

// RefreshCoordinator serializes concurrent credential-refresh attempts:
// however many calls fail in the same window, exactly one refresh round
// trip is issued and every waiter shares its outcome.
type RefreshCoordinator struct {
	group   singleflight.Group
	store   *service.CredentialStore
	cache   ports.IdentityCache
	refresh RefreshFunc
	logout  func(ctx context.Context)
	logger  *slog.Logger
	metrics statsd.Sink
	timeout time.Duration
}

// NewRefreshCoordinator constructs a new RefreshCoordinator.
func NewRefreshCoordinator(opts RefreshCoordinatorOptions) *RefreshCoordinator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RefreshCoordinator{
		store:   opts.Store,
		cache:   opts.Cache,
		refresh: opts.Refresh,
		logout:  opts.Logout,
		logger:  logger,
		metrics: opts.Metrics,
		timeout: timeout,
	}
}

// Refresh joins the in-flight refresh episode, starting one if none is
// running. On success the new credential has already been committed to the
// credential store and the persisted identity cache. On failure secure
// logout has already run and the returned error carries the refresh_failed
// code. The flight completes independently of any single caller's context.
func (c *RefreshCoordinator) Refresh(ctx context.Context) (identity.Credential, error) {
	v, err, shared := c.group.Do(refreshKey, func() (any, error) {
		return c.doRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.logger.DebugContext(ctx, "joined shared refresh flight")
	}
	cred, ok := v.(identity.Credential)
	if !ok {
		return "", apperrors.Internal("unexpected refresh result type")
	}
	return cred, nil
}

func (c *RefreshCoordinator) doRefresh(ctx context.Context) (identity.Credential, error) {
	start := time.Now()

	// The flight outcome is shared by every waiter; one caller hanging up
	// must not cancel it for the rest.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	cred, err := c.refresh(fctx)
	if err == nil && !cred.Valid() {
		err = apperrors.Internal("refresh endpoint issued a structurally invalid credential")
	}
	if err != nil {
		metrics.EmitRefresh(c.metrics, metrics.RefreshMetric{
			Result:   metrics.ResultError,
			Duration: time.Since(start),
			Err:      err,
		})
		c.logger.WarnContext(fctx, "credential refresh failed", "error", err)
		if c.logout != nil {
			c.logout(fctx)
		}
		return "", apperrors.Wrap(err, apperrors.ErrCodeRefreshFailed, "credential refresh failed")
	}

	c.store.ReplaceCredential(cred)
	if c.cache != nil {
		if cacheErr := c.cache.Set(fctx, ports.CacheKeyCredential, string(cred)); cacheErr != nil {
			c.logger.WarnContext(fctx, "persist refreshed credential failed", "error", cacheErr)
		}
	}

	metrics.EmitRefresh(c.metrics, metrics.RefreshMetric{
		Result:   metrics.ResultSuccess,
		Duration: time.Since(start),
	})
	c.logger.InfoContext(fctx, "credential refreshed", "credential", cred.Redacted())
	return cred, nil
}
