package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TraceStorageCall creates a client span for a media backend call
// Examples: put_object, delete_object, head_bucket
func TraceStorageCall(ctx context.Context, backend, operation, key string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("flexbase/storage").Start(ctx, backend+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("storage.backend", backend),
			attribute.String("storage.operation", operation),
		),
	)
	if key != "" {
		span.SetAttributes(attribute.String("storage.key", key))
	}
	return ctx, span
}

// TraceCacheCall creates a client span for Redis operations
func TraceCacheCall(ctx context.Context, operation, channel string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("flexbase/cache").Start(ctx, "redis."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("redis.operation", operation)),
	)
	if channel != "" {
		span.SetAttributes(attribute.String("redis.channel", channel))
	}
	return ctx, span
}

// RecordServiceError records err on span; nil marks the span ok
func RecordServiceError(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}

// SetRequestContext sets request-specific attributes
func SetRequestContext(span trace.Span, requestID string, userAgent string) {
	if requestID != "" {
		span.SetAttributes(attribute.String("request.id", requestID))
	}
	if userAgent != "" {
		// Truncate to avoid cardinality explosion
		if len(userAgent) > 200 {
			userAgent = userAgent[:200] + "..."
		}
		span.SetAttributes(attribute.String("http.user_agent", userAgent))
	}
}
