package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	tenantIDKey     contextKey = "tenant_id"
	resolutionIDKey contextKey = "resolution_id"
	documentIDKey   contextKey = "document_id"
)

// WithTenantID tags the context with the tenant handling the request.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// WithResolutionID tags the context with the resolution in flight.
func WithResolutionID(ctx context.Context, resolutionID string) context.Context {
	return context.WithValue(ctx, resolutionIDKey, resolutionID)
}

// WithDocumentID tags the context with the document being indexed.
func WithDocumentID(ctx context.Context, documentID string) context.Context {
	return context.WithValue(ctx, documentIDKey, documentID)
}

// ContextHandler appends request-scoped identifiers from the context to
// every record, so call sites log events without re-threading IDs.
type ContextHandler struct {
	inner slog.Handler
}

// NewContextHandler wraps a handler with context attribute extraction.
func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, key := range []contextKey{tenantIDKey, resolutionIDKey, documentIDKey} {
		if value, ok := ctx.Value(key).(string); ok && value != "" {
			r.AddAttrs(slog.String(string(key), value))
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}
