// Package realtime provides the WebSocket activity-feed channel. The
// identity core treats the channel as an opaque transport: it only ever
// instructs a disconnect during secure logout.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quillsuite/quill-go/internal/domain/identity"
	"github.com/quillsuite/quill-go/internal/ports"
)

// CredentialSource exposes read access to the current bearer credential.
type CredentialSource interface {
	Credential() (identity.Credential, bool)
}

// Options configures a Channel.
type Options struct {
	// URL is the WebSocket endpoint for the activity feed.
	URL string
	// HandshakeTimeout bounds the dial; zero means 10 seconds.
	HandshakeTimeout time.Duration
	// Credentials supplies the bearer credential attached at connect time.
	Credentials CredentialSource
	Logger      *slog.Logger
}

// Channel maintains at most one WebSocket connection to the activity feed.
// It is safe for concurrent use.
type Channel struct {
	url         string
	dialer      *websocket.Dialer
	credentials CredentialSource
	logger      *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

var _ ports.RealtimeChannel = (*Channel)(nil)

// New creates a disconnected channel.
func New(opts Options) *Channel {
	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		url:         opts.URL,
		dialer:      &websocket.Dialer{HandshakeTimeout: timeout},
		credentials: opts.Credentials,
		logger:      logger,
	}
}

// Connect dials the activity feed, attaching the current bearer credential.
// An already-connected channel is left untouched.
func (c *Channel) Connect(ctx context.Context) error {
	if c.url == "" {
		return errors.New("realtime URL is not configured")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	header := http.Header{}
	if c.credentials != nil {
		if cred, ok := c.credentials.Credential(); ok {
			header.Set("Authorization", "Bearer "+string(cred))
		}
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial realtime channel: %w", err)
	}

	c.conn = conn
	c.logger.InfoContext(ctx, "realtime channel connected", "url", c.url)
	return nil
}

// Disconnect severs the connection with a normal-closure frame. Disconnecting
// an idle channel is a no-op.
func (c *Channel) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	deadline := time.Now().Add(2 * time.Second)
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client signed out")
	if err := c.conn.WriteControl(websocket.CloseMessage, message, deadline); err != nil {
		c.logger.WarnContext(ctx, "realtime close frame failed", "error", err)
	}

	err := c.conn.Close()
	c.conn = nil
	c.logger.InfoContext(ctx, "realtime channel disconnected")
	return err
}

// Connected reports whether a connection is currently established.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}
