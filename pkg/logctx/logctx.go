package logctx

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ctxKey string

const (
	loggerKey  ctxKey = "logger"
	traceIDKey ctxKey = "traceID"
	ownerIDKey ctxKey = "owner_id"
)

// Gin context keys shared with the middleware.
const (
	GinLoggerKey  = "logger"
	GinTraceIDKey = "traceID"
)

func WithLogger(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDKey, ownerID)
}

func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}

func OwnerID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(ownerIDKey).(string)
	return v
}

// FromGin returns a request-scoped logger from gin.Context if present,
// otherwise returns the provided base logger.
func FromGin(c *gin.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if c == nil {
		return base
	}
	if l, ok := c.Get(GinLoggerKey); ok {
		if lg, ok := l.(*zap.SugaredLogger); ok && lg != nil {
			return lg
		}
	}
	// fall back to ctx-based enrichment
	return FromCtx(c.Request.Context(), base)
}

// FromCtx returns a logger from context if set, otherwise attempts to enrich
// base with trace_id/owner_id from context values.
func FromCtx(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if ctx == nil {
		return base
	}
	lg, ok := ctx.Value(loggerKey).(*zap.SugaredLogger)
	if !ok || lg == nil {
		lg = base
		if tid := TraceID(ctx); tid != "" {
			lg = lg.With("trace_id", tid)
		}
	}
	if oid := OwnerID(ctx); oid != "" {
		lg = lg.With("owner_id", oid)
	}
	return lg
}

// Detach keeps logging values of ctx but drops its cancellation, for work
// that must outlive the request.
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
