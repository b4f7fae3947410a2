package log

import (
	"context"

	"go.uber.org/zap"
)

type ctxMarkerLogger struct{}

var (
	ctxKeyLogger = &ctxMarkerLogger{}
	nullLogger   = zap.NewNop().Sugar()
)

type ctxLogger struct {
	logger *zap.SugaredLogger
	fields []interface{}
}

// AddFields adds zap fields to the request-scoped logger, if any.
func AddFields(ctx context.Context, fields ...interface{}) {
	l, ok := ctx.Value(ctxKeyLogger).(*ctxLogger)
	if !ok || l == nil {
		return
	}
	l.fields = append(l.fields, fields...)
}

// ExtractLogger takes the call-scoped logger put there by the middleware.
func ExtractLogger(ctx context.Context) *zap.SugaredLogger {
	l, ok := ctx.Value(ctxKeyLogger).(*ctxLogger)
	if !ok || l == nil {
		return nullLogger
	}
	// carry the fields accumulated so far
	return l.logger.With(l.fields...)
}

// ToContext adds the zap logger to the context for extraction later.
// Returning the new context that has been created.
func ToContext(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	l := &ctxLogger{logger: logger}
	return context.WithValue(ctx, ctxKeyLogger, l)
}
