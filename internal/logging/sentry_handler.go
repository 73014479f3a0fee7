package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

// taggedAttrs are promoted to Sentry tags so events can be searched by them.
// Everything else lands in the "log" context.
var taggedAttrs = map[string]bool{
	"report_id": true,
	"user_id":   true,
	"action":    true,
	"scope":     true,
}

// SentryHandler is an slog.Handler that forwards ERROR+ records to Sentry.
type SentryHandler struct {
	hub   *sentry.Hub
	attrs []slog.Attr
}

// NewSentryHandler binds the handler to hub, or to the current hub when nil.
func NewSentryHandler(hub *sentry.Hub) *SentryHandler {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &SentryHandler{hub: hub}
}

// InitSentry configures the global Sentry client. It returns a flush func
// that is safe to call even when dsn is empty.
func InitSentry(dsn, environment string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
	}); err != nil {
		return func() {}, fmt.Errorf("sentry init: %w", err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// Enabled only handles ERROR and above.
func (h *SentryHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *SentryHandler) Handle(_ context.Context, record slog.Record) error {
	var cause error
	extra := sentry.Context{}
	tags := map[string]string{}

	visit := func(a slog.Attr) bool {
		if a.Key == "error" {
			if err, ok := a.Value.Any().(error); ok {
				cause = err
			}
			extra["error"] = a.Value.String()
			return true
		}
		if taggedAttrs[a.Key] {
			tags[a.Key] = a.Value.String()
			return true
		}
		extra[a.Key] = a.Value.Any()
		return true
	}
	for _, a := range h.attrs {
		visit(a)
	}
	record.Attrs(visit)

	h.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		scope.SetTags(tags)
		scope.SetContext("log", extra)
		if cause != nil {
			h.hub.CaptureException(fmt.Errorf("%s: %w", record.Message, cause))
			return
		}
		h.hub.CaptureMessage(record.Message)
	})
	return nil
}

func (h *SentryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &SentryHandler{hub: h.hub, attrs: merged}
}

// WithGroup flattens groups; Sentry contexts are a single level deep.
func (h *SentryHandler) WithGroup(string) slog.Handler {
	return h
}

var ErrSentryDisabled = errors.New("sentry client not configured")

// Check reports whether events will go anywhere.
func (h *SentryHandler) Check() error {
	if h.hub.Client() == nil {
		return ErrSentryDisabled
	}
	return nil
}
