package logger

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const (
	traceIDKey       ctxKey = "trace_id"
	correlationIDKey ctxKey = "correlation_id"
	loggerKey        ctxKey = "logger"
)

// WithTraceID кладёт trace_id в контекст. Генерируется на входе в систему
// (HTTP middleware) и переносится через заголовки сообщений шины.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext возвращает trace_id или пустую строку.
func TraceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// WithCorrelationID кладёт correlation_id в контекст.
// Связывает все шаги одной саги (создание заказа, резерв, ответ).
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// CorrelationIDFromContext возвращает correlation_id или пустую строку.
func CorrelationIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(correlationIDKey).(string); ok {
		return v
	}
	return ""
}

// NewContextWithIDs добавляет непустые trace_id и correlation_id.
func NewContextWithIDs(ctx context.Context, traceID, correlationID string) context.Context {
	if traceID != "" {
		ctx = WithTraceID(ctx, traceID)
	}
	if correlationID != "" {
		ctx = WithCorrelationID(ctx, correlationID)
	}
	return ctx
}

// WithLogger сохраняет настроенный логгер в контексте.
func WithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext возвращает логгер из контекста (или процессный) с полями
// trace_id и correlation_id, если они заданы.
//
//	func (s *customerService) ReserveCredit(ctx context.Context, info OrderCreatedInfo) error {
//	    log := logger.FromContext(ctx)
//	    log.Info().Int64("order_id", info.OrderID).Msg("Резервирование кредита")
//	}
func FromContext(ctx context.Context) zerolog.Logger {
	l, ok := ctx.Value(loggerKey).(zerolog.Logger)
	if !ok {
		l = log
	}

	lc := l.With()
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		lc = lc.Str("trace_id", traceID)
	}
	if correlationID := CorrelationIDFromContext(ctx); correlationID != "" {
		lc = lc.Str("correlation_id", correlationID)
	}
	return lc.Logger()
}
