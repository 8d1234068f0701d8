// Package bootstrap wires configuration, adapters, and services into a
// running client. Embedding applications construct an App once at startup
// and hand its HTTPClient (or api.Client) to the rest of the program.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"

	"github.com/redis/go-redis/v9"
	"golang.org/x/net/publicsuffix"

	"github.com/quillsuite/quill-go/config"
	"github.com/quillsuite/quill-go/internal/adapters/filecache"
	"github.com/quillsuite/quill-go/internal/adapters/notify"
	"github.com/quillsuite/quill-go/internal/adapters/realtime"
	"github.com/quillsuite/quill-go/internal/adapters/rediscache"
	"github.com/quillsuite/quill-go/internal/adapters/ssologin"
	"github.com/quillsuite/quill-go/internal/api"
	"github.com/quillsuite/quill-go/internal/observability/statsd"
	"github.com/quillsuite/quill-go/internal/ports"
	"github.com/quillsuite/quill-go/internal/service"
	"github.com/quillsuite/quill-go/internal/transport"
)

// App is the fully wired client.
type App struct {
	Config config.AppConfig
	Logger *slog.Logger

	Store   *service.CredentialStore
	Cache   ports.IdentityCache
	Metrics *statsd.Client

	// HTTPClient is the intercepted client: every call through it gets
	// credential attachment, refresh coordination, and the logout gate.
	HTTPClient *http.Client

	AuthAPI  *api.AuthAPI
	Client   *api.Client
	Auth     *service.AuthFlow
	Guest    *service.GuestProvider
	Restorer *service.Restorer
	Logout   *service.LogoutProcedure

	// Realtime is nil when the channel is disabled.
	Realtime *realtime.Channel
	// SSO is nil when SSO login is disabled.
	SSO *ssologin.Provider

	redisClient *redis.Client
}

// NewApp wires the client from configuration. The context bounds one-time
// startup work (OIDC discovery); it is not retained.
func NewApp(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// One jar, two clients: the bare client and the intercepted client
	// share refresh cookies without sharing the interceptor.
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	metricsClient, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Observability.Metrics.IsEnabled(),
		Address: cfg.Observability.Metrics.StatsdAddress,
		Prefix:  "quill",
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create statsd client: %w", err)
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Store:   service.NewCredentialStore(),
		Metrics: metricsClient,
	}

	if err := app.initCache(cfg.Cache); err != nil {
		return nil, err
	}

	bareClient := &http.Client{Jar: jar, Timeout: cfg.API.RequestTimeout}

	app.AuthAPI, err = api.NewAuthAPI(api.AuthAPIOptions{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: bareClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create auth api: %w", err)
	}

	if cfg.Realtime.Enabled {
		app.Realtime = realtime.New(realtime.Options{
			URL:              cfg.Realtime.URL,
			HandshakeTimeout: cfg.Realtime.HandshakeTimeout,
			Credentials:      app.Store,
			Logger:           logger,
		})
	}

	if cfg.SSO.Enabled {
		app.SSO, err = ssologin.NewProvider(ctx, ssologin.ProviderConfig{
			ClientID:     cfg.SSO.ClientID,
			ClientSecret: cfg.SSO.ClientSecret,
			RedirectURL:  cfg.SSO.RedirectURL,
			Scope:        cfg.SSO.Scope,
			IssuerURL:    cfg.SSO.IssuerURL,
		})
		if err != nil {
			return nil, fmt.Errorf("create sso provider: %w", err)
		}
	}

	logoutOpts := service.LogoutOptions{
		Store:             app.Store,
		Cache:             app.Cache,
		Sessions:          app.AuthAPI,
		Logger:            logger,
		Metrics:           metricsClient,
		ServerCallTimeout: cfg.API.LogoutCallTimeout,
	}
	if app.Realtime != nil {
		logoutOpts.Realtime = app.Realtime
	}
	app.Logout = service.NewLogoutProcedure(logoutOpts)

	refresher := transport.NewRefreshCoordinator(transport.RefreshCoordinatorOptions{
		Store:   app.Store,
		Cache:   app.Cache,
		Refresh: app.AuthAPI.RefreshCredential,
		Logout:  app.Logout.Logout,
		Logger:  logger,
		Metrics: metricsClient,
		Timeout: cfg.API.RefreshTimeout,
	})

	notices, err := transport.NewNoticeExtractor(notify.NewSlogSink(logger), transport.NoticeExtractorOptions{
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create notice extractor: %w", err)
	}

	interceptor := transport.New(transport.Options{
		Store:       app.Store,
		Refresher:   refresher,
		Logout:      app.Logout.Logout,
		Notices:     notices,
		Navigation:  notify.NewSlogNavigation(logger),
		RefreshPath: api.PathRefresh,
		LogoutPath:  api.PathLogout,
		PublicPaths: api.PublicPaths(),
		Logger:      logger,
		Metrics:     metricsClient,
	})

	app.HTTPClient = &http.Client{
		Transport: interceptor,
		Jar:       jar,
		Timeout:   cfg.API.RequestTimeout,
	}

	app.Client, err = api.NewClient(api.ClientOptions{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: app.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}

	app.Auth = service.NewAuthFlow(service.AuthFlowOptions{
		Store:   app.Store,
		Cache:   app.Cache,
		Issuer:  app.AuthAPI,
		Logger:  logger,
		Metrics: metricsClient,
	})

	app.Guest = service.NewGuestProvider(service.GuestProviderOptions{
		Store:   app.Store,
		Cache:   app.Cache,
		Flags:   app.AuthAPI,
		Logger:  logger,
		Metrics: metricsClient,
	})

	app.Restorer = service.NewRestorer(service.RestorerOptions{
		Store:   app.Store,
		Cache:   app.Cache,
		Logger:  logger,
		Metrics: metricsClient,
	})

	return app, nil
}

func (a *App) initCache(cfg config.CacheConfig) error {
	switch cfg.Backend {
	case config.CacheBackendRedis:
		a.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.Cache = rediscache.NewWithPrefix(a.redisClient, cfg.Redis.KeyPrefix)
	default:
		a.Cache = filecache.New(cfg.FilePath, a.Logger)
	}
	return nil
}

// Start restores the persisted identity, refetches the guest-access flag,
// and connects the realtime channel when one is configured. Flag and
// realtime failures are best-effort: startup proceeds without them.
func (a *App) Start(ctx context.Context) service.RestoreOutcome {
	outcome := a.Restorer.Restore(ctx)

	if _, err := a.Guest.RefreshAccessFlag(ctx); err != nil {
		a.Logger.WarnContext(ctx, "guest access flag refetch failed", "error", err)
	}

	if a.Realtime != nil && a.Store.Identity().IsAuthenticated() {
		if err := a.Realtime.Connect(ctx); err != nil {
			a.Logger.WarnContext(ctx, "realtime connect failed", "error", err)
		}
	}

	return outcome
}

// Close releases long-lived resources. It does not log the user out.
func (a *App) Close(ctx context.Context) error {
	var firstErr error

	if a.Realtime != nil {
		if err := a.Realtime.Disconnect(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := a.Metrics.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
