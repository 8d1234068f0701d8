// Package ssologin implements the browser-assisted SSO login flow against
// an OIDC identity provider. It produces a verified raw ID token; the auth
// flow then exchanges it with the suite backend for a session credential.
package ssologin

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// ProviderConfig holds configuration for the SSO provider.
type ProviderConfig struct {
	ClientID string
	// ClientSecret may be empty for public clients; PKCE covers the exchange.
	ClientSecret string
	RedirectURL  string
	Scope        string
	// IssuerURL is the OIDC issuer; discovery runs once at construction.
	IssuerURL  string
	HTTPClient *http.Client
}

// Provider drives the authorization-code flow with PKCE.
type Provider struct {
	config   *oauth2.Config
	verifier *gooidc.IDTokenVerifier
}

// Session carries the per-attempt secrets generated by Begin. The caller
// holds it until the IdP redirects back with the authorization code.
type Session struct {
	AuthURL      string
	State        string
	Nonce        string
	CodeVerifier string
}

// NewProvider discovers the issuer and constructs a Provider.
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	if cfg.IssuerURL == "" {
		return nil, errors.New("issuer URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)

	op, err := gooidc.NewProvider(ctx, strings.TrimSuffix(cfg.IssuerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	scope := cfg.Scope
	if scope == "" {
		scope = "openid profile email"
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       strings.Fields(scope),
			Endpoint:     op.Endpoint(),
		},
		verifier: op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// Begin generates per-attempt state, nonce, and PKCE verifier, and returns
// the authorization URL to open in a browser.
func (p *Provider) Begin(_ context.Context) (Session, error) {
	state, err := generateRandomString(32)
	if err != nil {
		return Session{}, fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return Session{}, fmt.Errorf("generate nonce: %w", err)
	}
	codeVerifier, err := generateRandomString(64)
	if err != nil {
		return Session{}, fmt.Errorf("generate code verifier: %w", err)
	}

	authURL := p.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("code_challenge", pkceChallenge(codeVerifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)

	return Session{
		AuthURL:      authURL,
		State:        state,
		Nonce:        nonce,
		CodeVerifier: codeVerifier,
	}, nil
}

// Exchange trades the authorization code for tokens, verifies the ID token
// signature and nonce, and returns the raw ID token for the backend
// exchange.
func (p *Provider) Exchange(ctx context.Context, sess Session, code, returnedState string) (string, error) {
	if code == "" {
		return "", errors.New("authorization code is required")
	}
	if returnedState != sess.State {
		return "", errors.New("state mismatch")
	}

	token, err := p.config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", sess.CodeVerifier),
	)
	if err != nil {
		return "", fmt.Errorf("exchange code for token: %w", err)
	}

	rawID, ok := token.Extra("id_token").(string)
	if !ok || rawID == "" {
		return "", errors.New("missing id_token in token response")
	}

	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return "", fmt.Errorf("verify id_token: %w", err)
	}
	if sess.Nonce != "" && idTok.Nonce != sess.Nonce {
		return "", errors.New("invalid nonce")
	}

	return rawID, nil
}

// generateRandomString generates a URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	for len(s) < length {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}

// pkceChallenge derives the S256 code challenge from a verifier.
func pkceChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
