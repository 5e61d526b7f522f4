// Package middleware provides composable middleware for webhook delivery.
//
// A [Middleware] is a function that wraps a delivery send. Middleware are
// composed into a chain using [Chain] and applied before each attempt.
// They are applied right-to-left: the first middleware in the slice is
// the outermost wrapper.
//
//	// logging → recover → sender
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging] — logs definition, endpoint, duration, and outcome per attempt
//   - [Recover] — catches panics and converts them to errors
//   - [Timeout] — cancels the send context after a configured duration
//   - [Tracing] — wraps the attempt in an OpenTelemetry span
//   - [Metrics] — records per-definition duration and outcome counters
//   - [Scope] — restores the delivery's tenant scope into the context
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, d *delivery.Delivery, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting (e.g., circuit breaker, rate limiting).
package middleware
