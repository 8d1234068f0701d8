// Package transport implements the interceptor pipeline as an
// http.RoundTripper: the request-side credential decisions, the
// response-side refresh coordination, and the notice extraction side
// channel. Every application-level call rides on this transport; the
// refresh call itself and the secure-logout server calls use a bare client
// so the pipeline never feeds back into itself.
package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	apperrors "github.com/quillsuite/quill-go/internal/errors"
	"github.com/quillsuite/quill-go/internal/observability/metrics"
	"github.com/quillsuite/quill-go/internal/observability/statsd"
	"github.com/quillsuite/quill-go/internal/ports"
	"github.com/quillsuite/quill-go/internal/service"
)

// retriedKey marks a request that has already been replayed once after a
// credential refresh. Replayed calls never earn a second refresh.
type retriedKey struct{}

func withRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

func isRetried(ctx context.Context) bool {
	retried, _ := ctx.Value(retriedKey{}).(bool)
	return retried
}

// Options configures a Transport.
type Options struct {
	// Base performs the actual network round trips; nil means
	// http.DefaultTransport.
	Base http.RoundTripper
	// Store is the credential store consulted on every call.
	Store *service.CredentialStore
	// Refresher coordinates the shared credential refresh; nil disables
	// refresh-and-replay (401s surface directly).
	Refresher *RefreshCoordinator
	// Logout runs the secure logout procedure when the refresh endpoint
	// itself is rejected or a replayed call fails again.
	Logout func(ctx context.Context)
	// Notices extracts user-facing messages from successful responses.
	Notices *NoticeExtractor
	// Navigation receives the one-time forbidden signal.
	Navigation ports.NavigationSink
	// RefreshPath and LogoutPath identify the two special endpoints.
	RefreshPath string
	LogoutPath  string
	// PublicPaths never require a credential and are never blocked by
	// restoration state.
	PublicPaths []string
	Logger      *slog.Logger
	Metrics     statsd.Sink
}

// Transport is the authenticated client round tripper.
type Transport struct {
	base        http.RoundTripper
	store       *service.CredentialStore
	refresher   *RefreshCoordinator
	logout      func(ctx context.Context)
	notices     *NoticeExtractor
	navigation  ports.NavigationSink
	refreshPath string
	logoutPath  string
	publicPaths []string
	logger      *slog.Logger
	metrics     statsd.Sink

	forbiddenSignaled atomic.Bool
}

var _ http.RoundTripper = (*Transport)(nil)

// New constructs a Transport.
func New(opts Options) *Transport {
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		base:        base,
		store:       opts.Store,
		refresher:   opts.Refresher,
		logout:      opts.Logout,
		notices:     opts.Notices,
		navigation:  opts.Navigation,
		refreshPath: opts.RefreshPath,
		logoutPath:  opts.LogoutPath,
		publicPaths: opts.PublicPaths,
		logger:      logger,
		metrics:     opts.Metrics,
	}
}

// RoundTrip applies the request-side interceptor, performs the call, and
// applies the response-side interceptor. Typed rejections surface as
// *errors.AppError (wrapped in *url.Error by http.Client).
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	path := req.URL.Path

	// The logout gate blocks everything except the logout call itself so
	// nothing races a half-cleared identity.
	if t.store.LogoutInProgress() && path != t.logoutPath {
		metrics.EmitRejectedCall(t.metrics, string(apperrors.ErrCodeLogoutInProgress))
		return nil, apperrors.LogoutInProgress("a logout is in progress")
	}

	protected := t.isProtected(path)
	cred, haveCred := t.store.Credential()

	if protected && !haveCred {
		// Before restoration begins the call is indeterminate, not
		// unauthenticated: the caller should retry, not redirect to login.
		if !t.store.RestorationAttempted() {
			metrics.EmitRejectedCall(t.metrics, string(apperrors.ErrCodeRestorationPending))
			return nil, apperrors.RestorationPending("identity restoration has not run yet")
		}
		metrics.EmitRejectedCall(t.metrics, string(apperrors.ErrCodeUnauthenticated))
		return nil, apperrors.Unauthenticated("no credential available")
	}

	out := req
	if haveCred && path != t.refreshPath {
		out = req.Clone(req.Context())
		out.Header.Set("Authorization", "Bearer "+string(cred))
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return t.handleUnauthorized(req, resp)
	case resp.StatusCode == http.StatusForbidden:
		t.signalForbidden(path)
		return resp, nil
	default:
		if resp.StatusCode < 300 {
			t.forbiddenSignaled.Store(false)
			if t.notices != nil {
				t.notices.Process(req.Context(), resp)
			}
		}
		return resp, nil
	}
}

// handleUnauthorized coordinates the shared refresh-and-replay path.
func (t *Transport) handleUnauthorized(req *http.Request, resp *http.Response) (*http.Response, error) {
	ctx := req.Context()
	path := req.URL.Path

	// The refresh endpoint rejecting means the session is gone; another
	// refresh attempt would loop forever.
	if path == t.refreshPath {
		drainAndClose(resp)
		t.runLogout(ctx)
		return nil, apperrors.RefreshFailed("refresh endpoint rejected the session")
	}

	// A replayed call gets no second refresh.
	if isRetried(ctx) {
		drainAndClose(resp)
		t.runLogout(ctx)
		return nil, apperrors.RefreshFailed("credential rejected again after refresh")
	}

	if t.refresher == nil {
		return resp, nil
	}

	retry, replayable := replayableRequest(req)
	if !replayable {
		t.logger.WarnContext(ctx, "cannot replay request with non-rewindable body", "path", path)
		return resp, nil
	}

	drainAndClose(resp)

	if _, err := t.refresher.Refresh(ctx); err != nil {
		// Secure logout already ran inside the shared refresh flight.
		return nil, err
	}

	// Resubmit through the full interceptor so the fresh credential is
	// attached and the logout gate re-applies.
	return t.RoundTrip(retry)
}

func (t *Transport) runLogout(ctx context.Context) {
	if t.logout != nil {
		t.logout(ctx)
	}
}

// signalForbidden emits the navigation signal once per forbidden episode.
// The flag resets on the next successful response, so a later unauthorized
// resource triggers a fresh signal without looping on the current one.
func (t *Transport) signalForbidden(path string) {
	if t.navigation == nil {
		return
	}
	if t.forbiddenSignaled.CompareAndSwap(false, true) {
		t.navigation.ShowForbidden(path)
	}
}

// isProtected classifies a call. Public allow-list paths, the refresh call,
// and the logout call never require a credential.
func (t *Transport) isProtected(path string) bool {
	if path == t.refreshPath || path == t.logoutPath {
		return false
	}
	for _, public := range t.publicPaths {
		if public == "" {
			continue
		}
		if path == public || strings.HasPrefix(path, public+"/") {
			return false
		}
	}
	return true
}

// replayableRequest clones a request for its single post-refresh replay.
// Requests with a consumed, non-rewindable body cannot be replayed.
func replayableRequest(req *http.Request) (*http.Request, bool) {
	out := req.Clone(withRetried(req.Context()))
	if req.Body == nil || req.Body == http.NoBody {
		return out, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	out.Body = body
	return out, true
}

// drainAndClose discards a response body so the underlying connection can
// be reused for the replay.
func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	const drainLimit = 4 << 10
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	_ = resp.Body.Close()
}
