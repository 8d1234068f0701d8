package config

// AppConfig is the main client configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - api.go: Backend API configuration
//   - cache.go: Persisted identity cache configuration
//   - realtime.go: Realtime channel configuration
//   - sso.go: SSO login configuration
//   - observability.go: Metrics and logging configuration
type AppConfig struct {
	// IsDev controls development mode behavior (text log output, relaxed
	// timeouts). Set QUILL_DEV=true for development mode.
	IsDev bool `env:"QUILL_DEV" envDefault:"false"`

	// API backend configuration
	API APIConfig `envPrefix:"QUILL_API_"`

	// Persisted identity cache configuration
	Cache CacheConfig `envPrefix:"QUILL_CACHE_"`

	// Realtime channel configuration
	Realtime RealtimeConfig `envPrefix:"QUILL_REALTIME_"`

	// SSO login configuration
	SSO SSOConfig `envPrefix:"QUILL_SSO_"`

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment
// variables.
func (c *AppConfig) Sanitize() {
	c.API.Sanitize()
	c.Cache.Sanitize()
	c.Realtime.Sanitize()
	c.SSO.Sanitize()
	c.Observability.Sanitize()
}
