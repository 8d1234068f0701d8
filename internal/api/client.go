package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quillsuite/quill-go/internal/domain/identity"
	apperrors "github.com/quillsuite/quill-go/internal/errors"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	// BaseURL is the backend origin.
	BaseURL string
	// HTTPClient must carry the interceptor transport; every call made here
	// rides the full pipeline.
	HTTPClient *http.Client
}

// Client is the application-facing API surface. Calls made through it are
// credential-attached, refresh-coordinated, and logout-gated by the
// transport underneath.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, apperrors.Validation("base URL is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
	}, nil
}

// CurrentUser fetches the server's view of the current identity.
func (c *Client) CurrentUser(ctx context.Context) (identity.Record, error) {
	var out struct {
		User identity.Record `json:"user"`
	}
	if err := c.get(ctx, PathCurrentUser, &out); err != nil {
		return identity.Record{}, err
	}
	return out.User, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport rejections arrive wrapped in *url.Error; surface the
		// typed error so callers can branch on the code.
		if appErr := AsAppError(err); appErr != nil {
			return appErr
		}
		return apperrors.Wrapf(err, apperrors.ErrCodeUnavailable, "GET %s", path)
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

// AsAppError unwraps the *url.Error layer http.Client adds around transport
// errors and returns the typed error, or nil when there is none.
func AsAppError(err error) *apperrors.AppError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
