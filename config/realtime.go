package config

import (
	"strings"
	"time"
)

// RealtimeConfig controls the activity-feed websocket channel.
type RealtimeConfig struct {
	// Enabled turns the realtime channel on. When false the client never
	// dials and logout skips the disconnect step.
	Enabled bool `env:"ENABLED" envDefault:"false"`

	// URL is the websocket endpoint, e.g. "wss://api.quillsuite.dev/ws".
	URL string `env:"URL"`

	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration `env:"HANDSHAKE_TIMEOUT" envDefault:"10s"`
}

// Sanitize normalises values and enforces safe defaults.
func (c *RealtimeConfig) Sanitize() {
	c.URL = strings.TrimSpace(c.URL)
	if c.URL == "" {
		c.Enabled = false
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
}
