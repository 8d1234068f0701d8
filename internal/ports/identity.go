// Package ports defines interfaces (hexagonal ports) for the identity
// subsystem. Implementations live in internal/adapters; orchestration in
// internal/service and internal/transport.
package ports

import "context"

// Persisted identity cache keys. At most one of the {user, credential} pair
// or guestUser is populated at a time; guestAccessFeatureEnabled is a global
// flag cached from the server.
const (
	CacheKeyUser        = "user"
	CacheKeyCredential  = "credential"
	CacheKeyGuestUser   = "guestUser"
	CacheKeyGuestAccess = "guestAccessFeatureEnabled"
)

// IdentityCache is the durable key-value store that survives process
// restarts. Absence of a key is reported as ErrNotFound. Implementations
// must treat unreadable backing state as empty rather than failing.
type IdentityCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// ErrNotFound is returned when a cache key is absent.
var ErrNotFound error = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "cache key not found" }

// RealtimeChannel is the activity-feed transport. The identity core treats
// it as opaque; it only ever instructs a disconnect during secure logout.
type RealtimeChannel interface {
	Disconnect(ctx context.Context) error
}

// Severity classifies a user-facing notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// NotificationSink receives user-facing messages opportunistically extracted
// from response bodies. It is a pure side-effect consumer; the core never
// reads it back.
type NotificationSink interface {
	Notify(ctx context.Context, message string, severity Severity)
}

// SandboxResetter clears dependent in-memory state (e.g. a guest sandbox
// cache) when the identity is torn down.
type SandboxResetter interface {
	Reset()
}

// NavigationSink receives the one-time signal that the current identity is
// authenticated but not permitted for a resource. Implementations should
// ignore the call when the access-denied view is already active.
type NavigationSink interface {
	ShowForbidden(path string)
}
