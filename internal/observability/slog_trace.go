package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// traceAttrHandler decorates another slog handler: when the log call
// happens inside an active span, the record gains trace_id and span_id
// so log lines can be joined with traces.
type traceAttrHandler struct {
	inner slog.Handler
}

func NewTraceHandler(inner slog.Handler) slog.Handler {
	return &traceAttrHandler{inner: inner}
}

func (h *traceAttrHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *traceAttrHandler) Handle(ctx context.Context, rec slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		rec.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	return h.inner.Handle(ctx, rec)
}

func (h *traceAttrHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceAttrHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *traceAttrHandler) WithGroup(name string) slog.Handler {
	return &traceAttrHandler{inner: h.inner.WithGroup(name)}
}
