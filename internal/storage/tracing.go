package storage

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/benvon/trip-planner/internal/storage"

// startSpan uses whichever tracer provider is currently installed
func startSpan(ctx context.Context, backend, op, key string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, backend+"."+op, trace.WithAttributes(
		attribute.String("storage.backend", backend),
		attribute.String("storage.key", key),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil && err != ErrNotFound {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
