package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/quillsuite/quill-go/internal/domain/identity"
	apperrors "github.com/quillsuite/quill-go/internal/errors"
	"github.com/quillsuite/quill-go/internal/observability/statsd"
	"github.com/quillsuite/quill-go/internal/ports"
)

// RegisterInput groups parameters for account registration.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

// CredentialIssuer is the backend surface that issues credentials.
type CredentialIssuer interface {
	Login(ctx context.Context, email, password string) (identity.Record, identity.Credential, error)
	Register(ctx context.Context, in RegisterInput) (identity.Record, error)
	VerifyEmail(ctx context.Context, token string) error
	ExchangeSSOToken(ctx context.Context, rawIDToken string) (identity.Record, identity.Credential, error)
}

// AuthFlowOptions groups dependencies for AuthFlow.
type AuthFlowOptions struct {
	Store   *CredentialStore
	Cache   ports.IdentityCache
	Issuer  CredentialIssuer
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// AuthFlow orchestrates login, registration, and email verification: it
// calls the backend, persists the resulting pair to the identity cache, and
// commits the identity to the credential store.
type AuthFlow struct {
	store   *CredentialStore
	cache   ports.IdentityCache
	issuer  CredentialIssuer
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewAuthFlow constructs a new AuthFlow.
func NewAuthFlow(opts AuthFlowOptions) *AuthFlow {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthFlow{
		store:   opts.Store,
		cache:   opts.Cache,
		issuer:  opts.Issuer,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Login authenticates with email and password and adopts the resulting
// identity. An active guest session is cleared first: guest cannot
// transition to authenticated directly.
func (f *AuthFlow) Login(ctx context.Context, email, password string) (identity.Record, error) {
	if email == "" {
		return identity.Record{}, apperrors.Validation("email is required")
	}
	if password == "" {
		return identity.Record{}, apperrors.Validation("password is required")
	}

	rec, cred, err := f.issuer.Login(ctx, email, password)
	if err != nil {
		return identity.Record{}, err
	}

	return rec, f.adopt(ctx, rec, cred)
}

// LoginWithSSOToken exchanges a verified IdP ID token for a suite credential
// and adopts the resulting identity.
func (f *AuthFlow) LoginWithSSOToken(ctx context.Context, rawIDToken string) (identity.Record, error) {
	if rawIDToken == "" {
		return identity.Record{}, apperrors.Validation("ID token is required")
	}

	rec, cred, err := f.issuer.ExchangeSSOToken(ctx, rawIDToken)
	if err != nil {
		return identity.Record{}, err
	}

	return rec, f.adopt(ctx, rec, cred)
}

// Register creates an account. It does not adopt an identity: the account
// typically needs email verification before the first login.
func (f *AuthFlow) Register(ctx context.Context, in RegisterInput) (identity.Record, error) {
	if in.Email == "" {
		return identity.Record{}, apperrors.Validation("email is required")
	}
	if in.Password == "" {
		return identity.Record{}, apperrors.Validation("password is required")
	}
	return f.issuer.Register(ctx, in)
}

// VerifyEmail confirms an email verification token.
func (f *AuthFlow) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return apperrors.Validation("verification token is required")
	}
	return f.issuer.VerifyEmail(ctx, token)
}

func (f *AuthFlow) adopt(ctx context.Context, rec identity.Record, cred identity.Credential) error {
	if !cred.Valid() {
		return apperrors.Internal("backend issued a structurally invalid credential")
	}

	if f.store.Identity().IsGuest() {
		if err := f.cache.Delete(ctx, ports.CacheKeyGuestUser); err != nil {
			f.logger.WarnContext(ctx, "clear persisted guest record failed", "error", err)
		}
		f.store.Clear()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "marshal user record")
	}

	// Persistence failures degrade to an in-memory session: the login
	// stands, it just will not survive a restart.
	if err := f.cache.Set(ctx, ports.CacheKeyUser, string(data)); err != nil {
		f.logger.WarnContext(ctx, "persist user record failed", "error", err)
	}
	if err := f.cache.Set(ctx, ports.CacheKeyCredential, string(cred)); err != nil {
		f.logger.WarnContext(ctx, "persist credential failed", "error", err)
	}

	f.store.SetAuthenticated(rec, cred)
	if f.metrics != nil {
		f.metrics.Count("auth.login", 1, nil)
	}
	f.logger.InfoContext(ctx, "login complete", "user_id", rec.ID)
	return nil
}
