package log

import (
	"context"
	"strconv"

	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// WithDD returns a logger enriched with dd.trace_id and dd.span_id when ctx
// carries a span. Datadog expects both as decimal strings.
func WithDD(ctx context.Context, base *zap.Logger, extra ...zap.Field) *zap.Logger {
	if sp, ok := tracer.SpanFromContext(ctx); ok && sp != nil {
		sc := sp.Context()
		extra = append(extra,
			zap.String("dd.trace_id", strconv.FormatUint(sc.TraceID(), 10)),
			zap.String("dd.span_id", strconv.FormatUint(sc.SpanID(), 10)),
		)
	}
	if len(extra) == 0 {
		return base
	}
	return base.With(extra...)
}
