package observability

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldSessionID is the field name for the review session ID.
	LogFieldSessionID = "session_id"
	// LogFieldItemID is the field name for item ID.
	LogFieldItemID = "item_id"
	// LogFieldKind is the field name for item kind.
	LogFieldKind = "kind"
	// LogFieldRating is the field name for a review rating.
	LogFieldRating = "rating"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldErrorCode is the field name for error code.
	LogFieldErrorCode = "error_code"
)

// NewLogger builds the process logger. Dev mode logs text at debug level,
// everything else logs JSON at info level.
func NewLogger(w io.Writer, mode string) *slog.Logger {
	if mode == "dev" {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// SessionContext carries logging state for one review session.
type SessionContext struct {
	SessionID string
	StartTime time.Time
	Logger    *slog.Logger
	Metrics   *SessionMetrics
}

// NewSessionContext creates a session context with a generated session ID.
func NewSessionContext(logger *slog.Logger) *SessionContext {
	return NewSessionContextWithID(logger, uuid.New().String())
}

// NewSessionContextWithID creates a session context with a specific session ID.
func NewSessionContextWithID(logger *slog.Logger, sessionID string) *SessionContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionContext{
		SessionID: sessionID,
		StartTime: time.Now(),
		Logger:    logger,
		Metrics:   NewSessionMetrics(),
	}
}

// Info logs an info message.
func (s *SessionContext) Info(msg string, attrs ...slog.Attr) {
	s.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, s.withBase(attrs)...)
}

// Debug logs a debug message.
func (s *SessionContext) Debug(msg string, attrs ...slog.Attr) {
	s.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, s.withBase(attrs)...)
}

// Warn logs a warning message.
func (s *SessionContext) Warn(msg string, attrs ...slog.Attr) {
	s.Logger.LogAttrs(context.Background(), slog.LevelWarn, msg, s.withBase(attrs)...)
}

// Error logs an error message with the error.
func (s *SessionContext) Error(msg string, err error, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("error", err.Error()))
	s.Logger.LogAttrs(context.Background(), slog.LevelError, msg, s.withBase(attrs)...)
}

// Duration returns the elapsed time since the session started.
func (s *SessionContext) Duration() time.Duration {
	return time.Since(s.StartTime)
}

func (s *SessionContext) withBase(attrs []slog.Attr) []slog.Attr {
	return append([]slog.Attr{slog.String(LogFieldSessionID, s.SessionID)}, attrs...)
}

type ctxKey struct{}

// WithSessionContext adds the session context to the context.
func WithSessionContext(ctx context.Context, sess *SessionContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromContext extracts the session context from the context.
func FromContext(ctx context.Context) (*SessionContext, bool) {
	sess, ok := ctx.Value(ctxKey{}).(*SessionContext)
	return sess, ok
}

// LoggerFromContext returns the session logger, or the default logger outside a session.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if sess, ok := FromContext(ctx); ok {
		return sess.Logger.With(slog.String(LogFieldSessionID, sess.SessionID))
	}
	return slog.Default()
}
