package config

import "strings"

// SSOConfig controls the browser-assisted SSO login flow.
type SSOConfig struct {
	// Enabled turns SSO login on. Disabled unless an issuer is configured.
	Enabled bool `env:"ENABLED" envDefault:"false"`

	// IssuerURL is the OIDC issuer; discovery runs once at startup.
	IssuerURL string `env:"ISSUER_URL"`

	ClientID string `env:"CLIENT_ID" envDefault:"quill-client"`

	// ClientSecret may be empty for public clients; PKCE covers the
	// exchange.
	ClientSecret string `env:"CLIENT_SECRET"`

	RedirectURL string `env:"REDIRECT_URL" envDefault:"http://127.0.0.1:8765/callback"`

	Scope string `env:"SCOPE" envDefault:"openid profile email"`
}

// Sanitize normalises values and enforces safe defaults.
func (c *SSOConfig) Sanitize() {
	c.IssuerURL = strings.TrimSpace(c.IssuerURL)
	if c.IssuerURL == "" || c.ClientID == "" {
		c.Enabled = false
	}
}
