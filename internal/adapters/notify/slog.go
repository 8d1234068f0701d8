// Package notify provides default sinks for user-facing signals. Embedding
// applications replace these with their own presentation layer; the CLI and
// tests use the slog-backed versions.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/quillsuite/quill-go/internal/ports"
)

// SlogSink logs notifications through a structured logger.
type SlogSink struct {
	logger *slog.Logger
}

var _ ports.NotificationSink = (*SlogSink)(nil)

// NewSlogSink creates a logger-backed notification sink.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Notify(ctx context.Context, message string, severity ports.Severity) {
	switch severity {
	case ports.SeverityError:
		s.logger.ErrorContext(ctx, "server notice", "message", message)
	case ports.SeverityWarning:
		s.logger.WarnContext(ctx, "server notice", "message", message)
	default:
		s.logger.InfoContext(ctx, "server notice", "message", message, "severity", string(severity))
	}
}

// SlogNavigation logs the forbidden signal and suppresses repeats for the
// same path until a different path is signalled, mirroring the "already on
// the access-denied view" guard a UI would apply.
type SlogNavigation struct {
	logger *slog.Logger

	mu       sync.Mutex
	lastPath string
}

var _ ports.NavigationSink = (*SlogNavigation)(nil)

// NewSlogNavigation creates a logger-backed navigation sink.
func NewSlogNavigation(logger *slog.Logger) *SlogNavigation {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogNavigation{logger: logger}
}

func (n *SlogNavigation) ShowForbidden(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastPath == path {
		return
	}
	n.lastPath = path
	n.logger.Warn("access denied", "path", path)
}
