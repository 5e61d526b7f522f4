package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/relay/delivery"
)

// Recover returns middleware that recovers from panics in the send chain.
// Panics are converted to errors and logged with a stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, d *delivery.Delivery, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("delivery sender panicked",
					slog.String("delivery_id", d.ID.String()),
					slog.String("definition", d.Definition),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic delivering %s: %v", d.ID, r)
			}
		}()
		return next(ctx)
	}
}
