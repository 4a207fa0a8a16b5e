package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/davidleathers/advice-risk-scorer"

// Tracer returns the application tracer from the global provider
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartServiceSpan starts an internal span named <service>.<operation>
func StartServiceSpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("service.component", service),
		attribute.String("service.operation", operation),
	)
	return Tracer().Start(ctx, fmt.Sprintf("%s.%s", service, operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...))
}

// StartDatabaseSpan starts a client span for a registry store query
func StartDatabaseSpan(ctx context.Context, operation, table string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, fmt.Sprintf("db.%s %s", operation, table),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", table),
		))
}

// StartHTTPClientSpan starts a client span for an outbound HTTP call
func StartHTTPClientSpan(ctx context.Context, peer, method, url string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, fmt.Sprintf("%s %s", method, peer),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("peer.service", peer),
			attribute.String("http.method", method),
			attribute.String("http.url", url),
		))
}

// StartHTTPServerSpan starts a server span for an inbound request
func StartHTTPServerSpan(ctx context.Context, method, route string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, fmt.Sprintf("%s %s", method, route),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
		))
}
