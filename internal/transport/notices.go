package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/quillsuite/quill-go/internal/ports"
)

// Default extraction expressions: backend responses embed user-facing
// messages either at the top level or under an error envelope.
const (
	DefaultMessageExpr  = "message || notice.message"
	DefaultSeverityExpr = "severity || notice.severity"
)

const defaultMaxNoticeBody = 64 << 10

// NoticeExtractorOptions configures a NoticeExtractor.
type NoticeExtractorOptions struct {
	// MessageExpr and SeverityExpr are JMESPath expressions evaluated
	// against JSON response bodies. Empty means the defaults above.
	MessageExpr  string
	SeverityExpr string
	// MaxBodyBytes caps how much of a body is buffered for extraction;
	// larger bodies are passed through untouched. Zero means 64 KiB.
	MaxBodyBytes int
	Logger       *slog.Logger
}

// NoticeExtractor opportunistically pulls (message, severity) pairs out of
// JSON response bodies and forwards them to the notification sink. It is a
// pure pass-through: the response body is re-buffered for the caller and
// the sink is never read back.
type NoticeExtractor struct {
	sink         ports.NotificationSink
	messageExpr  string
	severityExpr string
	maxBody      int
	logger       *slog.Logger
}

// NewNoticeExtractor validates the expressions and constructs an extractor.
func NewNoticeExtractor(sink ports.NotificationSink, opts NoticeExtractorOptions) (*NoticeExtractor, error) {
	messageExpr := opts.MessageExpr
	if messageExpr == "" {
		messageExpr = DefaultMessageExpr
	}
	severityExpr := opts.SeverityExpr
	if severityExpr == "" {
		severityExpr = DefaultSeverityExpr
	}
	if _, err := jmespath.Compile(messageExpr); err != nil {
		return nil, err
	}
	if _, err := jmespath.Compile(severityExpr); err != nil {
		return nil, err
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxNoticeBody
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &NoticeExtractor{
		sink:         sink,
		messageExpr:  messageExpr,
		severityExpr: severityExpr,
		maxBody:      maxBody,
		logger:       logger,
	}, nil
}

// Process inspects a response and notifies the sink when a message is
// embedded. The body is restored so downstream decoding is unaffected.
func (e *NoticeExtractor) Process(ctx context.Context, resp *http.Response) {
	if e == nil || e.sink == nil || resp == nil || resp.Body == nil {
		return
	}
	if !isJSONResponse(resp) {
		return
	}

	buf, rest, err := peekBody(resp.Body, e.maxBody)
	resp.Body = rebuffer(buf, rest)
	if err != nil {
		e.logger.DebugContext(ctx, "notice extraction read failed", "error", err)
		return
	}
	if rest != nil {
		// Oversized body: skip extraction rather than buffer it all.
		return
	}

	var payload any
	if err := json.Unmarshal(buf, &payload); err != nil {
		return
	}

	message := searchString(e.messageExpr, payload)
	if message == "" {
		return
	}

	e.sink.Notify(ctx, message, normalizeSeverity(searchString(e.severityExpr, payload)))
}

func isJSONResponse(resp *http.Response) bool {
	contentType := resp.Header.Get("Content-Type")
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.TrimSpace(strings.ToLower(contentType)) == "application/json"
}

// peekBody reads up to limit bytes. When the body is larger, rest carries
// the original reader so nothing is lost.
func peekBody(body io.ReadCloser, limit int) (buf []byte, rest io.ReadCloser, err error) {
	buf, err = io.ReadAll(io.LimitReader(body, int64(limit)))
	if err != nil {
		return buf, nil, err
	}
	if len(buf) == limit {
		return buf, body, nil
	}
	_ = body.Close()
	return buf, nil, nil
}

func rebuffer(buf []byte, rest io.ReadCloser) io.ReadCloser {
	if rest != nil {
		return struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(buf), rest), rest}
	}
	return io.NopCloser(bytes.NewReader(buf))
}

func searchString(expr string, data any) string {
	result, err := jmespath.Search(expr, data)
	if err != nil {
		return ""
	}
	s, _ := result.(string)
	return strings.TrimSpace(s)
}

func normalizeSeverity(raw string) ports.Severity {
	switch strings.ToLower(raw) {
	case "success":
		return ports.SeveritySuccess
	case "warning", "warn":
		return ports.SeverityWarning
	case "error", "danger":
		return ports.SeverityError
	default:
		return ports.SeverityInfo
	}
}
