// Package api implements the HTTP client surface of the suite backend. Two
// clients exist on purpose: AuthAPI rides a bare http.Client (sharing only
// the cookie jar) so refresh and logout traffic never re-enters the
// interceptor pipeline, while Client rides the intercepted client and gets
// credential attachment and refresh-and-replay for free.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quillsuite/quill-go/internal/domain/identity"
	apperrors "github.com/quillsuite/quill-go/internal/errors"
	"github.com/quillsuite/quill-go/internal/service"
)

const maxErrorBodyBytes = 8 << 10

// AuthAPIOptions configures an AuthAPI.
type AuthAPIOptions struct {
	// BaseURL is the backend origin, e.g. "https://api.quillsuite.dev".
	BaseURL string
	// HTTPClient must be a bare client whose jar is shared with the
	// intercepted client; nil means a 30-second-timeout default.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// AuthAPI performs the credential lifecycle calls: login, registration,
// refresh, and the server-side logout notifications.
type AuthAPI struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var (
	_ service.CredentialIssuer   = (*AuthAPI)(nil)
	_ service.SessionEnder       = (*AuthAPI)(nil)
	_ service.GuestAccessFetcher = (*AuthAPI)(nil)
)

// NewAuthAPI constructs an AuthAPI.
func NewAuthAPI(opts AuthAPIOptions) (*AuthAPI, error) {
	if opts.BaseURL == "" {
		return nil, apperrors.Validation("base URL is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid base URL")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthAPI{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		logger:  logger,
	}, nil
}

type sessionResponse struct {
	User        identity.Record `json:"user"`
	AccessToken string          `json:"accessToken"`
}

// Login exchanges email and password for a user record and credential. The
// refresh secret arrives as an HTTP-only cookie captured by the shared jar.
func (a *AuthAPI) Login(ctx context.Context, email, password string) (identity.Record, identity.Credential, error) {
	var out sessionResponse
	err := a.call(ctx, http.MethodPost, PathLogin, map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return identity.Record{}, "", err
	}
	return out.User, identity.Credential(out.AccessToken), nil
}

// Register creates an account. No credential is issued; the account needs
// email verification before the first login.
func (a *AuthAPI) Register(ctx context.Context, in service.RegisterInput) (identity.Record, error) {
	var out struct {
		User identity.Record `json:"user"`
	}
	err := a.call(ctx, http.MethodPost, PathRegister, map[string]string{
		"email":       in.Email,
		"password":    in.Password,
		"displayName": in.DisplayName,
	}, &out)
	if err != nil {
		return identity.Record{}, err
	}
	return out.User, nil
}

// VerifyEmail confirms an email verification token.
func (a *AuthAPI) VerifyEmail(ctx context.Context, token string) error {
	return a.call(ctx, http.MethodPost, PathVerifyEmail, map[string]string{"token": token}, nil)
}

// ExchangeSSOToken trades a verified IdP ID token for a suite session.
func (a *AuthAPI) ExchangeSSOToken(ctx context.Context, rawIDToken string) (identity.Record, identity.Credential, error) {
	var out sessionResponse
	err := a.call(ctx, http.MethodPost, PathSSOExchange, map[string]string{"idToken": rawIDToken}, &out)
	if err != nil {
		return identity.Record{}, "", err
	}
	return out.User, identity.Credential(out.AccessToken), nil
}

// RefreshCredential asks the backend for a fresh credential. No body is
// sent: the refresh secret rides the HTTP-only cookie in the shared jar.
func (a *AuthAPI) RefreshCredential(ctx context.Context) (identity.Credential, error) {
	var out sessionResponse
	if err := a.call(ctx, http.MethodPost, PathRefresh, nil, &out); err != nil {
		return "", err
	}
	return identity.Credential(out.AccessToken), nil
}

// Logout invalidates the server session and refresh cookie.
func (a *AuthAPI) Logout(ctx context.Context) error {
	return a.call(ctx, http.MethodPost, PathLogout, nil, nil)
}

// EndGuestSession tells the server a guest session ended.
func (a *AuthAPI) EndGuestSession(ctx context.Context, guestID string) error {
	return a.call(ctx, http.MethodPost, PathEndGuestSession, map[string]string{"guestId": guestID}, nil)
}

// GuestAccessStatus fetches whether the guest-access feature is enabled.
func (a *AuthAPI) GuestAccessStatus(ctx context.Context) (bool, error) {
	var out struct {
		Enabled bool `json:"enabled"`
	}
	if err := a.call(ctx, http.MethodGet, PathGuestAccess, nil, &out); err != nil {
		return false, err
	}
	return out.Enabled, nil
}

// call issues a JSON request and decodes the response into out (when non-nil).
func (a *AuthAPI) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "marshal request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeUnavailable, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return decodeError(resp, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.Wrapf(err, apperrors.ErrCodeInternal, "decode %s response", path)
		}
	} else {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
	}
	return nil
}

// decodeError maps an error response to the client error taxonomy. The
// backend envelope is {"code": ..., "message": ...}; when absent the status
// code alone drives the mapping.
func decodeError(resp *http.Response, path string) error {
	var envelope struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	_ = json.Unmarshal(data, &envelope)

	message := envelope.Message
	if message == "" {
		message = fmt.Sprintf("%s returned %s", path, resp.Status)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.AuthorizationExpired(message)
	case resp.StatusCode == http.StatusForbidden:
		return apperrors.Forbidden(message)
	case resp.StatusCode >= 500:
		return apperrors.Unavailable(message)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return apperrors.Validation(message)
	default:
		return apperrors.Newf(apperrors.ErrCodeUnavailable, "%s: unexpected status %d", message, resp.StatusCode)
	}
}
