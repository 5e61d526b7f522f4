package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/relay/delivery"
)

// meterName is the instrumentation scope name for relay metrics.
const meterName = "github.com/xraph/relay"

// Metrics returns middleware that records per-attempt delivery metrics
// using the global OTel MeterProvider. If no MeterProvider is configured,
// noop instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - relay.delivery.duration (Float64Histogram): attempt time in seconds,
//     with attributes: definition, status ("ok" or "error")
//   - relay.delivery.sends (Int64Counter): total send attempts,
//     with attributes: definition, status ("ok" or "error")
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Create instruments once at middleware construction time.
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the middleware degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"relay.delivery.duration",
		metric.WithDescription("Duration of webhook send attempts in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	sends, sErr := meter.Int64Counter(
		"relay.delivery.sends",
		metric.WithDescription("Total number of webhook send attempts"),
		metric.WithUnit("{attempt}"),
	)
	_ = sErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, d *delivery.Delivery, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("definition", d.Definition),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		sends.Add(ctx, 1, attrs)

		return err
	}
}
