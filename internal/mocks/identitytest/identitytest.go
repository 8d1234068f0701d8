// Package identitytest contains simple hand-written test doubles for the
// identity ports. These are lightweight and suitable for unit tests without
// codegen.
package identitytest

import (
	"context"
	"sync"

	"github.com/quillsuite/quill-go/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityCache    = (*MemoryIdentityCache)(nil)
	_ ports.NotificationSink = (*RecorderSink)(nil)
	_ ports.RealtimeChannel  = (*StubChannel)(nil)
	_ ports.SandboxResetter  = (*CountingResetter)(nil)
	_ ports.NavigationSink   = (*RecorderNavigation)(nil)
)

// MemoryIdentityCache is an in-memory identity cache. Individual operations
// can be forced to fail for error-path tests.
type MemoryIdentityCache struct {
	mu      sync.Mutex
	entries map[string]string

	// GetErr, SetErr, and DeleteErr force the corresponding operation to
	// fail when non-nil.
	GetErr    error
	SetErr    error
	DeleteErr error
}

// NewMemoryIdentityCache creates an empty in-memory cache.
func NewMemoryIdentityCache() *MemoryIdentityCache {
	return &MemoryIdentityCache{entries: map[string]string{}}
}

// Seed pre-populates the cache.
func (c *MemoryIdentityCache) Seed(entries map[string]string) *MemoryIdentityCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range entries {
		c.entries[k] = v
	}
	return c
}

func (c *MemoryIdentityCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.GetErr != nil {
		return "", c.GetErr
	}
	value, ok := c.entries[key]
	if !ok {
		return "", ports.ErrNotFound
	}
	return value, nil
}

func (c *MemoryIdentityCache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SetErr != nil {
		return c.SetErr
	}
	c.entries[key] = value
	return nil
}

func (c *MemoryIdentityCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.DeleteErr != nil {
		return c.DeleteErr
	}
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

// Snapshot returns a copy of the current entries.
func (c *MemoryIdentityCache) Snapshot() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Has reports whether a key is present.
func (c *MemoryIdentityCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Notice is one recorded notification.
type Notice struct {
	Message  string
	Severity ports.Severity
}

// RecorderSink records notifications for assertions.
type RecorderSink struct {
	mu      sync.Mutex
	notices []Notice
}

func (s *RecorderSink) Notify(_ context.Context, message string, severity ports.Severity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, Notice{Message: message, Severity: severity})
}

// Notices returns a copy of the recorded notifications.
func (s *RecorderSink) Notices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notice(nil), s.notices...)
}

// StubChannel counts disconnects and can simulate a failing channel.
type StubChannel struct {
	mu          sync.Mutex
	disconnects int

	DisconnectErr error
}

func (c *StubChannel) Disconnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	return c.DisconnectErr
}

// Disconnects returns how many times Disconnect was called.
func (c *StubChannel) Disconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

// CountingResetter counts Reset calls.
type CountingResetter struct {
	mu     sync.Mutex
	resets int
}

func (r *CountingResetter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
}

// Resets returns how many times Reset was called.
func (r *CountingResetter) Resets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resets
}

// RecorderNavigation records forbidden signals for assertions.
type RecorderNavigation struct {
	mu    sync.Mutex
	paths []string
}

func (n *RecorderNavigation) ShowForbidden(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

// Paths returns a copy of the recorded forbidden paths.
func (n *RecorderNavigation) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}
