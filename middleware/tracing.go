package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/relay/delivery"
)

// tracerName is the instrumentation scope name for relay tracing.
const tracerName = "github.com/xraph/relay"

// Tracing returns middleware that wraps each delivery attempt in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a pass-through
// with zero overhead.
//
// Span attributes include: relay.delivery.id, relay.subscription.id,
// relay.definition, relay.attempt, relay.tenant_id.
// On error, the span status is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, d *delivery.Delivery, next Handler) error {
		ctx, span := tracer.Start(ctx, "relay.delivery.send",
			trace.WithAttributes(
				attribute.String("relay.delivery.id", d.ID.String()),
				attribute.String("relay.subscription.id", d.SubscriptionID.String()),
				attribute.String("relay.definition", d.Definition),
				attribute.Int("relay.attempt", d.Attempts+1),
				attribute.String("relay.tenant_id", d.TenantID),
			),
			trace.WithSpanKind(trace.SpanKindClient),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
