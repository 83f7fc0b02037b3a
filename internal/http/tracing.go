package http

import (
	"context"

	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// WithSpan runs fn inside a child span named name and records its error.
func WithSpan(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	span, ctx := tracer.StartSpanFromContext(ctx, name)
	err := fn(ctx)
	span.Finish(tracer.WithError(err))
	return err
}
