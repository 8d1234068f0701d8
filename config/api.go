package config

import (
	"strings"
	"time"
)

// APIConfig controls how the client reaches the suite backend.
type APIConfig struct {
	// BaseURL is the backend origin, e.g. "https://api.quillsuite.dev".
	BaseURL string `env:"BASE_URL,required"`

	// RequestTimeout bounds each application call end to end, including a
	// refresh-and-replay cycle.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	// RefreshTimeout bounds the shared credential refresh round trip.
	RefreshTimeout time.Duration `env:"REFRESH_TIMEOUT" envDefault:"15s"`

	// LogoutCallTimeout bounds each best-effort server call during secure
	// logout.
	LogoutCallTimeout time.Duration `env:"LOGOUT_CALL_TIMEOUT" envDefault:"5s"`
}

// Sanitize normalises values and enforces safe defaults.
func (c *APIConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = 15 * time.Second
	}
	if c.LogoutCallTimeout <= 0 {
		c.LogoutCallTimeout = 5 * time.Second
	}
}
