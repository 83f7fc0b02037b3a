package log

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

var global atomic.Pointer[zap.Logger]

func init() { global.Store(zap.NewNop()) }

// Init builds the process logger. prod selects JSON output at info level;
// otherwise a colored development console logger is used.
func Init(prod bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if prod {
		cfg = zap.NewProductionConfig()
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	global.Store(l)
	return l, nil
}

// L returns the logger installed by Init, or a no-op logger.
func L() *zap.Logger { return global.Load() }

type ctxKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// From returns base enriched with the request id and Datadog correlation
// fields carried by ctx. A nil base means the process logger.
func From(ctx context.Context, base *zap.Logger, extra ...zap.Field) *zap.Logger {
	if base == nil {
		base = L()
	}
	if id := RequestID(ctx); id != "" {
		extra = append(extra, zap.String("request_id", id))
	}
	return WithDD(ctx, base, extra...)
}
